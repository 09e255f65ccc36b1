package s3

import (
	"strings"
	"testing"

	"talentranker/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestBuildKeyNamespacesByKindAndOwner(t *testing.T) {
	key := buildKey(object.KindJobDescription, "sub-1", "abc", "jd.pdf")
	if !strings.HasPrefix(key, "job-descriptions/") || !strings.HasSuffix(key, "/abc_jd.pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if strings.Contains(key, "sub-1") {
		t.Fatalf("owner id must be hashed, got %q", key)
	}
}
