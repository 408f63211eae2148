package rag

// AskRequest is a question for the engine. TopK of 0 means use the
// configured default; Documents restricts retrieval to matching document
// names when non-empty.
type AskRequest struct {
	Question  string   `json:"question"`
	TopK      int      `json:"top_k,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

// Reference identifies one chunk that grounded the answer.
type Reference struct {
	Document   string  `json:"document"`
	Section    string  `json:"section,omitempty"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// AskResponse is the generated answer with its supporting context.
type AskResponse struct {
	Answer     string           `json:"answer"`
	References []Reference      `json:"references"`
	QueryType  string           `json:"query_type"`
	Confidence float32          `json:"confidence"`
	Aggregate  *AggregateResult `json:"aggregate,omitempty"`
}
