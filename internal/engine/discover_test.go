package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"arm.hcl",
		"props/cube.yaml",
		"props/lights/lamp.json",
		"props/readme.md",
		"notes.txt",
	}
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "recursive",
			patterns: []string{"**/*"},
			want:     []string{"arm.hcl", "props/cube.yaml", "props/lights/lamp.json"},
		},
		{
			name:     "single level",
			patterns: []string{"props/*"},
			want:     []string{"props/cube.yaml"},
		},
		{
			name:     "overlapping patterns",
			patterns: []string{"*.hcl", "**/*.hcl", "**/*.json"},
			want:     []string{"arm.hcl", "props/lights/lamp.json"},
		},
		{
			name:     "no matches",
			patterns: []string{"**/*.yml"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discover(dir, tt.patterns...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d files, got %d: %v", len(tt.want), len(got), got)
			}
			for i, w := range tt.want {
				want := filepath.Join(dir, filepath.FromSlash(w))
				if got[i] != want {
					t.Errorf("file %d: expected %s, got %s", i, want, got[i])
				}
			}
		})
	}
}

func TestDiscover_InvalidPattern(t *testing.T) {
	if _, err := Discover(t.TempDir(), "[*.hcl"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
