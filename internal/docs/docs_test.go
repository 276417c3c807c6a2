package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opsmantis/mantis/internal/log"
)

func TestLoadDirMissing(t *testing.T) {
	t.Parallel()

	l := NewLoader(1000, 200, log.NewNop())
	chunks, err := l.LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadDir on missing dir: %v, want nil error", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestLoadDirEmpty(t *testing.T) {
	t.Parallel()

	l := NewLoader(1000, 200, log.NewNop())
	chunks, err := l.LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir on empty dir: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "reset.txt", strings.Repeat("To reset the device hold the power button for ten seconds. ", 40))
	writeFile(t, dir, "errors.md", "# Error codes\n\nE01 means overheating.")
	writeFile(t, dir, "diagram.pdf", "%PDF-1.4 binary junk")
	writeFile(t, dir, "notes.docx", "unsupported")

	l := NewLoader(500, 100, log.NewNop())
	chunks, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want >= 3 (reset.txt split plus errors.md)", len(chunks))
	}

	sources := map[string]bool{}
	ids := map[string]bool{}
	for _, c := range chunks {
		sources[c.Source] = true
		if ids[c.ID] {
			t.Errorf("duplicate chunk ID %q", c.ID)
		}
		ids[c.ID] = true
		if c.Meta["source"] != c.Source {
			t.Errorf("chunk meta source %q != %q", c.Meta["source"], c.Source)
		}
	}

	if !sources["reset.txt"] || !sources["errors.md"] {
		t.Errorf("sources = %v, want reset.txt and errors.md", sources)
	}
	if sources["diagram.pdf"] || sources["notes.docx"] {
		t.Errorf("unsupported files were loaded: %v", sources)
	}
}

func TestLoadDirSkipsOversized(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "huge.txt", strings.Repeat("a", MaxFileSize+1))
	writeFile(t, dir, "ok.txt", "small manual")

	l := NewLoader(1000, 0, log.NewNop())
	chunks, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Source != "ok.txt" {
		t.Fatalf("chunks = %+v, want only ok.txt", chunks)
	}
}

func TestChunkIDStable(t *testing.T) {
	t.Parallel()

	if chunkID("a.txt", 0) != chunkID("a.txt", 0) {
		t.Error("chunkID is not deterministic")
	}
	if chunkID("a.txt", 0) == chunkID("a.txt", 1) {
		t.Error("chunkID collides across ordinals")
	}
	if chunkID("a.txt", 0) == chunkID("b.txt", 0) {
		t.Error("chunkID collides across sources")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
