package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

const testCorpus = `{"movies": [
  {"id": 1, "title": "Jaws", "description": "A great white shark terrorizes a beach town. The police chief hunts the shark."},
  {"id": 2, "title": "Alien", "description": "The crew of a spaceship meets a deadly alien. Only one survives."},
  {"id": 3, "title": "Finding Nemo", "description": "A clownfish crosses the ocean to find his son. A friendly shark swims by."}
]}`

// writeConfig lays out a corpus and a config pointing at a fresh data dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "movies.json")
	if err := os.WriteFile(corpusPath, []byte(testCorpus), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := "indexer:\n  dataDir: " + filepath.Join(dir, "cache") + "\n" +
		"corpus:\n  source: json\n  path: " + corpusPath + "\n  stopwordsPath: " + filepath.Join(dir, "none.txt") + "\n" +
		"embedding:\n  dimension: 128\n" +
		"logging:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"hybridsearch", "--config", cfgPath, "--embedder", "mock"}, args...)
	err := newApp(&out).Run(argv)
	return out.String(), err
}

func TestBuildThenQuery(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "build", "--chunks")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out, "Indexed 3 documents") || !strings.Contains(out, "Embedded") {
		t.Errorf("build output = %q", out)
	}

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"tf", "1", "shark"}, "in document 1: 2"},
		{[]string{"tf", "2", "shark"}, "in document 2: 0"},
		{[]string{"bm25search", "--limit", "1", "shark"}, "1. (1) Jaws"},
		{[]string{"search", "shark"}, "(3) Finding Nemo"},
		{[]string{"idf", "alien"}, "Inverse document frequency of 'alien': 0.69"},
		{[]string{"bm25tf", "1", "shark", "1.2", "0.5"}, "BM25 TF score of 'shark' in document '1'"},
		{[]string{"search-chunked", "--limit", "1", "deadly alien spaceship"}, "1. Alien"},
		{[]string{"embed-chunks"}, "chunked embeddings"},
		{[]string{"hybrid", "--alpha", "0.5", "shark"}, "keyword:"},
		// every document is on the semantic side, so the leader sums two reciprocal ranks
		{[]string{"hybrid", "--fusion", "rrf", "--limit", "1", "shark"}, "(score: 0.032"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, cfg, tt.args...)
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}
}

func TestQueryBeforeBuild(t *testing.T) {
	_, err := run(t, writeConfig(t), "idf", "shark")
	if !errors.Is(err, apperrors.ErrCacheCorruption) || !strings.Contains(err.Error(), "build") {
		t.Errorf("err = %v", err)
	}
}

func TestStatelessCommands(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "normalize", "1", "2", "3")
	if err != nil {
		t.Fatal(err)
	}
	if out != "* 0.0000\n* 0.5000\n* 1.0000\n" {
		t.Errorf("normalize output = %q", out)
	}

	out, err = run(t, cfg, "semantic-chunk", "--max-chunk-size", "2", "--overlap", "1", "One. Two. Three.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1. One. Two.\n2. Two. Three.\n") {
		t.Errorf("semantic-chunk output = %q", out)
	}

	out, err = run(t, cfg, "chunk", "--chunk-size", "3", "--overlap", "1", "a b c d e")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1. a b c\n2. c d e\n") {
		t.Errorf("chunk output = %q", out)
	}

	out, err = run(t, cfg, "embed-text", "hello world")
	if err != nil || !strings.Contains(out, "Dimensions: 128") {
		t.Errorf("embed-text = %q, %v", out, err)
	}
}

func TestInvalidArguments(t *testing.T) {
	cfg := writeConfig(t)
	cases := [][]string{
		{"tf", "abc", "shark"},
		{"tf", "1"},
		{"idf", " "},
		{"bm25tf", "1", "shark", "1.2", "2"},
		{"bm25tf", "1", "shark", "x"},
		{"bm25search", "--limit", "0", "shark"},
		{"hybrid", "--alpha", "1.5", "shark"},
		{"hybrid", "--fusion", "borda", "shark"},
		{"hybrid", "--fusion", "rrf", "--rrf-k", "0", "shark"},
		{"normalize"},
		{"normalize", "1", "nan?"},
		{"semantic-chunk", "--max-chunk-size", "2", "--overlap", "2", "One. Two."},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := run(t, cfg, args...); !errors.Is(err, apperrors.ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestUnknownEmbedder(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"hybridsearch", "--config", writeConfig(t), "--embedder", "magic", "normalize", "1"})
	if err == nil || !strings.Contains(err.Error(), "magic") {
		t.Errorf("err = %v", err)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	_, err := run(t, writeConfig(t), "--log-level", "loud", "normalize", "1")
	if !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}
