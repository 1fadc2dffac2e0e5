package photostore

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestMemoryStorePutFailsOnlyOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.FailNextPut(true)
	if err := store.Put(ctx, "k1", strings.NewReader("data"), 4, "image/jpeg"); err == nil {
		t.Fatal("第一次 Put 应失败")
	}

	// 失败一次后自动恢复
	if err := store.Put(ctx, "k2", strings.NewReader("data"), 4, "image/jpeg"); err != nil {
		t.Fatalf("第二次 Put 应成功: %v", err)
	}
	if !store.Has("k2") {
		t.Fatal("恢复后的 Put 应写入对象")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "k", strings.NewReader("hello"), 5, "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	obj, mimeType, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" || mimeType != "image/png" {
		t.Fatalf("got (%q, %q), want (hello, image/png)", data, mimeType)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Has("k") {
		t.Fatal("删除后对象应消失")
	}
}
