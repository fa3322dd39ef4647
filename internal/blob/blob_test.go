package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected default fs driver: %v", err)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("expected memory driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

// Every backend must refuse to overwrite an existing key.
func TestBackendsAreCreateOnly(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	mem, _ := Open(ctx, Config{Driver: DriverMemory})
	for _, s := range []Store{fsStore, mem, NewMockS3ForTests()} {
		if _, err := s.Put(ctx, "dump/chunk_00001.xml", bytes.NewReader([]byte("<database/>")), PutOptions{ContentType: "application/xml"}); err != nil {
			t.Fatalf("%s put: %v", s.Driver(), err)
		}
		_, err := s.Put(ctx, "dump/chunk_00001.xml", bytes.NewReader([]byte("x")), PutOptions{})
		if !errors.Is(err, ErrExists) {
			t.Fatalf("%s: expected ErrExists, got %v", s.Driver(), err)
		}
		list, err := s.List(ctx, "dump/")
		if err != nil || len(list) != 1 {
			t.Fatalf("%s list: %v %+v", s.Driver(), err, list)
		}
	}
}
