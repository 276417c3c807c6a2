package docs

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	t.Parallel()

	got := Split("short text", 100, 20)
	if len(got) != 1 || got[0] != "short text" {
		t.Fatalf("Split() = %v, want single unchanged chunk", got)
	}
}

func TestSplitEmpty(t *testing.T) {
	t.Parallel()

	if got := Split("", 100, 20); got != nil {
		t.Fatalf("Split(\"\") = %v, want nil", got)
	}
	if got := Split("   \n\t ", 100, 20); got != nil {
		t.Fatalf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplitChunkSizes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 1000) // ~5000 runes
	chunks := Split(text, 500, 100)

	if len(chunks) < 9 {
		t.Fatalf("got %d chunks, want at least 9", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 500 {
			t.Errorf("chunk %d has %d runes, want <= 500", i, n)
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	t.Parallel()

	para1 := strings.Repeat("a", 300)
	para2 := strings.Repeat("b", 300)
	text := para1 + "\n\n" + para2

	chunks := Split(text, 400, 0)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks %q, want 2", len(chunks), chunks)
	}
	if strings.Contains(chunks[0], "b") {
		t.Errorf("first chunk crosses paragraph boundary: %q", chunks[0])
	}
}

func TestSplitOverlap(t *testing.T) {
	t.Parallel()

	// Continuous text with no good boundaries forces hard cuts, so the
	// overlap region is exactly reproducible.
	text := strings.Repeat("x", 250)
	chunks := Split(text, 100, 20)

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want >= 3", len(chunks))
	}

	// Every rune of the input must appear in some chunk (coverage).
	total := 0
	for _, c := range chunks {
		total += len([]rune(c))
	}
	if total < 250 {
		t.Errorf("chunks cover %d runes, want >= 250", total)
	}
}

func TestSplitMakesProgressWithPathologicalOverlap(t *testing.T) {
	t.Parallel()

	// overlap >= size is rejected and treated as zero; must terminate.
	text := strings.Repeat("y", 500)
	chunks := Split(text, 100, 100)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
}

func TestSplitUnicode(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("機械の取扱説明書 ", 200)
	chunks := Split(text, 100, 10)
	for i, c := range chunks {
		if !strings.HasPrefix(c, "機") && !strings.Contains(c, "機") {
			t.Errorf("chunk %d lost multibyte content: %q", i, c)
		}
		if n := len([]rune(c)); n > 100 {
			t.Errorf("chunk %d has %d runes, want <= 100", i, n)
		}
	}
}
