package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docuchat-ai/internal/handlers"
	"docuchat-ai/internal/indexer"
)

var (
	serverURL string
	topK      int
	documents []string
)

func main() {
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Command-line client for the document chat API",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9000", "base URL of the API server")

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve (0 uses the server default)")
	askCmd.Flags().StringSliceVar(&documents, "documents", nil, "restrict retrieval to matching document names")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve matching chunks without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntVar(&topK, "top-k", 5, "number of chunks to retrieve")
	searchCmd.Flags().StringSliceVar(&documents, "documents", nil, "restrict retrieval to matching document names")

	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a text or markdown file",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <document>",
		Short: "Remove a document from the index",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and catalog statistics",
		RunE:  runStats,
	}

	root.AddCommand(askCmd, searchCmd, ingestCmd, deleteCmd, statsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	var resp handlers.AskResponse
	err := callAPI(http.MethodPost, "/api/v1/ask", handlers.AskRequest{
		Question:  question,
		TopK:      topK,
		Documents: documents,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	fmt.Printf("query type: %s, confidence: %.2f\n", resp.QueryType, resp.Confidence)
	if len(resp.References) > 0 {
		fmt.Println("references:")
		for _, ref := range resp.References {
			line := fmt.Sprintf("  %s#%d (%.2f)", ref.Document, ref.ChunkIndex, ref.Score)
			if ref.Section != "" {
				line += " " + ref.Section
			}
			if ref.Page > 0 {
				line += fmt.Sprintf(" p.%d", ref.Page)
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	var resp handlers.SearchResponse
	err := callAPI(http.MethodPost, "/api/v1/search", handlers.SearchRequest{
		Query:     query,
		TopK:      topK,
		Documents: documents,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Printf("query type: %s, confidence: %.2f, results: %d\n", resp.QueryType, resp.Confidence, len(resp.Results))
	if resp.Aggregate != nil {
		fmt.Println(resp.Aggregate.Summary)
	}
	for i, result := range resp.Results {
		fmt.Printf("\n[%d] %s#%d (%.2f)\n", i+1, result.Document, result.ChunkIndex, result.Score)
		fmt.Println(truncate(result.Text, 300))
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var result indexer.IngestResult
	err = callAPI(http.MethodPost, "/api/v1/documents", handlers.IngestRequest{
		Name:    filepath.Base(path),
		Content: string(content),
	}, &result)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %s: %d chunks\n", result.Document, result.Chunks)
	if result.Stats != nil {
		fmt.Printf("blocks: %v, patterns: %v\n", result.Stats.Blocks, result.Stats.Patterns)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	var resp handlers.DeleteResponse
	path := "/api/v1/documents/" + url.PathEscape(args[0])
	if err := callAPI(http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}

	fmt.Printf("deleted %s: %d chunks removed\n", resp.Document, resp.ChunksRemoved)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	var resp handlers.ListResponse
	if err := callAPI(http.MethodGet, "/api/v1/documents", nil, &resp); err != nil {
		return err
	}

	fmt.Printf("chunks: %d, documents: %d, dimension: %d\n",
		resp.Index.Chunks, len(resp.Index.Documents), resp.Index.Dimension)
	for _, doc := range resp.Documents {
		fmt.Printf("  %s: %d chunks, ingested %s\n",
			doc.Name, doc.ChunkCount, doc.IngestedAt.Format(time.RFC3339))
	}
	return nil
}

// callAPI sends a JSON request to the server and decodes the response into
// out. Non-2xx responses are turned into errors using the server's error
// payload when present.
func callAPI(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr handlers.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
