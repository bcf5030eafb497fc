package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStores(t *testing.T) {
	runContract(t, func(*testing.T) Stores { return NewMemory() })
}

func TestMemoryAnime_ConcurrentInsertKeepsOneRow(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Anime.Insert(ctx, Anime{MalID: 5114, Title: "FMA:B"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicateExternalID):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dups != n-1 {
		t.Fatalf("expected 1 insert and %d duplicates, got %d and %d", n-1, ok, dups)
	}
}

func TestMemoryAnime_ReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	if _, err := s.Anime.Insert(ctx, Anime{MalID: 1, Title: "X", Genres: []Genre{{Name: "Action"}}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	a, _ := s.Anime.GetByExternalID(ctx, 1)
	a.Genres[0].Name = "mutated"

	b, _ := s.Anime.GetByExternalID(ctx, 1)
	if b.Genres[0].Name != "Action" {
		t.Fatalf("cached record mutated through returned value: %q", b.Genres[0].Name)
	}
}

func TestGenreKeys(t *testing.T) {
	a := Anime{Genres: []Genre{{Name: "Action"}, {Name: " action "}, {Name: "Slice  of Life"}, {Name: ""}}}
	keys := a.GenreKeys()
	if len(keys) != 2 || keys[0] != "action" || keys[1] != "slice of life" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
