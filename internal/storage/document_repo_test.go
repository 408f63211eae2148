package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"docuchat-ai/internal/service"
)

func newTestRepo(t *testing.T) *DocumentRepo {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return NewDocumentRepo(db)
}

func TestDocumentRepo_UpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := Document{
		ID:          "id-1",
		Name:        "handbook.txt",
		ChunkCount:  12,
		ContentHash: "abc123",
		IngestedAt:  time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	got, err := repo.GetByName(ctx, "handbook.txt")
	if err != nil {
		t.Fatalf("GetByName() error: %v", err)
	}
	if got.ID != doc.ID || got.ChunkCount != 12 || got.ContentHash != "abc123" {
		t.Errorf("GetByName() = %+v", got)
	}
}

func TestDocumentRepo_UpsertReplacesByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := Document{ID: "id-1", Name: "doc.txt", ChunkCount: 3, ContentHash: "v1", IngestedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	second := Document{ID: "id-2", Name: "doc.txt", ChunkCount: 7, ContentHash: "v2", IngestedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("re-Upsert() error: %v", err)
	}

	docs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].ChunkCount != 7 || docs[0].ContentHash != "v2" {
		t.Errorf("document not replaced: %+v", docs[0])
	}
	// the original id is kept on conflict; only the payload columns update
	if docs[0].ID != "id-1" {
		t.Errorf("ID = %q, want the original id-1", docs[0].ID)
	}
}

func TestDocumentRepo_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByName(context.Background(), "nope.txt")
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("GetByName(missing) err = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := Document{ID: "id-1", Name: "doc.txt", IngestedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := repo.DeleteByName(ctx, "doc.txt"); err != nil {
		t.Fatalf("DeleteByName() error: %v", err)
	}
	if _, err := repo.GetByName(ctx, "doc.txt"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("document still present after delete: %v", err)
	}

	// deleting a missing document is not an error
	if err := repo.DeleteByName(ctx, "doc.txt"); err != nil {
		t.Errorf("DeleteByName(missing) error: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("first Migrate() error: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("schema missing after migrate: %v", err)
	}
}
