package chunking

import (
	"strings"
	"testing"
)

func TestSplitPagesIndexesAcrossPages(t *testing.T) {
	longA := strings.Repeat("alpha ", 15)
	longB := strings.Repeat("bravo ", 15)
	longC := strings.Repeat("charlie ", 15)

	s := NewSplitter(50)
	chunks := s.SplitPages([]string{
		longA + "\n\nshort\n\n" + longB,
		longC,
	})

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.CharCount != len(c.Text) {
			t.Errorf("chunk %d char count %d != len %d", i, c.CharCount, len(c.Text))
		}
	}
	if chunks[0].Page != 1 || chunks[1].Page != 1 || chunks[2].Page != 2 {
		t.Errorf("pages = %d,%d,%d", chunks[0].Page, chunks[1].Page, chunks[2].Page)
	}
}

func TestSplitPagesDropsShortParagraphsWithoutIndexHoles(t *testing.T) {
	long := strings.Repeat("word ", 20)

	s := NewSplitter(50)
	chunks := s.SplitPages([]string{"tiny\n\n" + long + "\n\ntiny again\n\n" + long})

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("indexes = %d,%d", chunks[0].Index, chunks[1].Index)
	}
}

func TestSplitPagesEmptyInput(t *testing.T) {
	s := NewSplitter(50)
	if chunks := s.SplitPages(nil); len(chunks) != 0 {
		t.Errorf("chunks = %d, want 0", len(chunks))
	}
	if chunks := s.SplitPages([]string{"", "   "}); len(chunks) != 0 {
		t.Errorf("chunks = %d, want 0", len(chunks))
	}
}
