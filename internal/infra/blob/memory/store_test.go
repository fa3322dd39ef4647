package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"rnaindex/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "a/1.xml", strings.NewReader("one"), core.PutOptions{Metadata: map[string]string{"k": "v"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "b/2.xml", strings.NewReader("two"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "a/1.xml", strings.NewReader("dup"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, rc, err := s.Get(ctx, "a/1.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "one" || info.ETag == "" {
		t.Fatalf("unexpected object %q %+v", body, info)
	}
	info.Metadata["k"] = "mutated"
	if h, _ := s.Head(ctx, "a/1.xml"); h.Metadata["k"] != "v" {
		t.Fatalf("metadata shared with caller")
	}
	if list, _ := s.List(ctx, "a/"); len(list) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, err := s.PresignURL(ctx, "a/1.xml", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign")
	}
	if ok, _ := s.Delete(ctx, "a/1.xml"); !ok {
		t.Fatalf("expected delete to report existing object")
	}
	if _, _, err := s.Get(ctx, "a/1.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
