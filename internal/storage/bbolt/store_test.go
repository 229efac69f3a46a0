package bbolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/internal/storage/storagetest"
	"github.com/yourusername/ludoengine/pkg/engine"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		store, err := Open(filepath.Join(t.TempDir(), "ludo.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		return store
	})
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ludo.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	gs, _ := engine.NewGame([]string{"a", "b"})
	if err := store.PutGameState(context.Background(), "ROOMAAAAAA", gs); err != nil {
		t.Fatalf("put game: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	got, err := store.GetGameState(context.Background(), "ROOMAAAAAA")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.Players[1].Name != "b" {
		t.Fatalf("expected player b, got %q", got.Players[1].Name)
	}
}
