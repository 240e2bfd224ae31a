package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestKVImplementations(t *testing.T) {
	redis := miniredis.RunT(t)
	fileKV, err := NewFileKV(filepath.Join(t.TempDir(), "session"))
	if err != nil {
		t.Fatalf("new file kv: %v", err)
	}
	redisKV := NewRedisKV(redis.Addr(), "", "")
	t.Cleanup(func() { _ = redisKV.Close() })

	tests := []struct {
		name string
		kv   KV
	}{
		{name: "memory", kv: NewMemoryKV()},
		{name: "file", kv: fileKV},
		{name: "redis", kv: redisKV},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok, err := tc.kv.Get(TokenKey); err != nil || ok {
				t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
			}
			if err := tc.kv.Set(TokenKey, "tok-1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, ok, err := tc.kv.Get(TokenKey)
			if err != nil || !ok || got != "tok-1" {
				t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
			}
			if err := tc.kv.Set(TokenKey, "tok-2"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if got, _, _ := tc.kv.Get(TokenKey); got != "tok-2" {
				t.Fatalf("overwrite not visible, got %q", got)
			}
			if err := tc.kv.Delete(TokenKey, UserKey); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := tc.kv.Get(TokenKey); ok {
				t.Fatalf("expected key deleted")
			}
		})
	}
}

func TestRedisKVUsesPrefix(t *testing.T) {
	redis := miniredis.RunT(t)
	kv := NewRedisKV(redis.Addr(), "", "shop:")
	defer kv.Close()

	if err := kv.Set(TokenKey, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := redis.Get("shop:" + TokenKey)
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != "tok" {
		t.Fatalf("stored value = %q", got)
	}
}

func TestFileKVSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("new file kv: %v", err)
	}
	if err := kv.Set("../escape", "x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
}

func TestNewFileKVRequiresPath(t *testing.T) {
	if _, err := NewFileKV(" "); err == nil {
		t.Fatalf("expected empty path to fail")
	}
}
