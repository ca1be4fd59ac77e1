package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsUserAssetKey(t *testing.T) {
	cases := []struct {
		name string
		key  string
		want bool
	}{
		{"own png", "user-assets/7/a.png", true},
		{"own jpeg upper", "user-assets/7/a.JPEG", true},
		{"other user", "user-assets/8/a.png", false},
		{"prefix collision", "user-assets/70/a.png", false},
		{"traversal", "user-assets/7/../8/a.png", false},
		{"double slash", "user-assets/7//a.png", false},
		{"not image", "user-assets/7/a.pdf", false},
		{"too long", "user-assets/7/" + strings.Repeat("a", 200) + ".png", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUserAssetKey(7, tc.key); got != tc.want {
				t.Fatalf("IsUserAssetKey(%q) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestNewKeys(t *testing.T) {
	key := NewUserAssetKey(3, ".PNG")
	if !IsUserAssetKey(3, key) {
		t.Fatalf("generated asset key %q rejected", key)
	}

	export := NewExportKey(3, "r-1")
	if !strings.HasPrefix(export, "exports/3/r-1/") || !strings.HasSuffix(export, ".pdf") {
		t.Fatalf("unexpected export key %q", export)
	}
}

func TestIsNoSuchKey(t *testing.T) {
	if !IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatal("expected NoSuchKey code to match")
	}
	if !IsNoSuchKey(fmt.Errorf("stat: %w", minio.ErrorResponse{Code: "NotFound"})) {
		t.Fatal("expected wrapped NotFound to match")
	}
	if !IsNoSuchKey(errors.New("The specified key does not exist.")) {
		t.Fatal("expected message fallback to match")
	}
	if IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}) || IsNoSuchKey(nil) {
		t.Fatal("unexpected match")
	}
}

func TestIsNoSuchBucket(t *testing.T) {
	if !IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}) {
		t.Fatal("expected NoSuchBucket code to match")
	}
	if IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatal("NoSuchKey must not match bucket check")
	}
}
