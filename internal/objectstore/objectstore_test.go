package objectstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Exists(ctx, "raw/a.json")
	if err != nil || ok {
		t.Fatalf("Exists on empty store = %v, %v", ok, err)
	}
	if _, err := s.Get(ctx, "raw/a.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Get missing = %v, want ErrObjectNotFound", err)
	}

	body := []byte(`[{"id":"1"}]`)
	if err := s.Put(ctx, "raw/a.json", body, "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	body[0] = 'x'

	got, err := s.Get(ctx, "raw/a.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("stored body changed with caller's slice: %s", got)
	}
	if ct := s.ContentType("raw/a.json"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	_ = s.Put(ctx, "processed/b.csv", []byte("id\n"), "text/csv")
	if keys := s.Keys("raw/"); len(keys) != 1 || keys[0] != "raw/a.json" {
		t.Errorf("Keys(raw/) = %v", keys)
	}
}
