package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"rnaindex/internal/blob/core"
)

func TestStoreMockedFlow(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	info, err := store.Put(ctx, "dump/chunk_00001.xml", bytes.NewReader([]byte("<database/>")),
		core.PutOptions{ContentType: "application/xml"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "dump/chunk_00001.xml" || info.ContentType != "application/xml" || info.Size != int64(len("<database/>")) {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := store.Put(ctx, "dump/chunk_00001.xml", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, err := store.Get(ctx, "dump/chunk_00001.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "<database/>" {
		t.Fatalf("get mismatch: %q", data)
	}
	if url, err := store.PresignURL(ctx, "dump/chunk_00001.xml", core.SignedURLOptions{}); err != nil || url == "" {
		t.Fatalf("presign: %v %s", err, url)
	}
	if _, err := store.PresignURL(ctx, "dump/chunk_00001.xml", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported PUT presign, got %v", err)
	}
	if ok, err := store.Delete(ctx, "dump/chunk_00001.xml"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "dump/chunk_00001.xml"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestStoreNotFound(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestStoreListFollowsContinuation(t *testing.T) {
	store := newMock(&mockTransport{objects: make(map[string]mockObject), pageSize: 2})
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		key := fmt.Sprintf("dump/chunk_%05d.xml", i)
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "dump/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 5 || list[0].Key != "dump/chunk_00001.xml" || list[4].Key != "dump/chunk_00005.xml" {
		t.Fatalf("unexpected list %+v", list)
	}
	if empty, err := store.List(ctx, "other/"); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list: %v %+v", err, empty)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://minio.local", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3")
	}
}

func TestDecodeChunked(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("expected plain body to pass through")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("size mismatch should fail")
	}
	if b, ok := decodeChunked([]byte("5;chunk-signature=abc\r\nhello\r\n0\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected decode hello")
	}
}
