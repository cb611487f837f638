package chunker

import (
	"strings"
	"testing"
)

func TestSplit_Blank(t *testing.T) {
	if got := Split("", DefaultOptions()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := Split(" \n\n\t", DefaultOptions()); got != nil {
		t.Errorf("expected nil for whitespace, got %v", got)
	}
}

func TestSplit_ShortContentIsOnePiece(t *testing.T) {
	got := Split("\n\nfirst idea\nsecond line\n", DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(got))
	}
	if got[0].Text != "first idea\nsecond line" {
		t.Errorf("unexpected text %q", got[0].Text)
	}
	if got[0].StartLine != 3 || got[0].EndLine != 4 {
		t.Errorf("expected lines 3-4, got %d-%d", got[0].StartLine, got[0].EndLine)
	}
}

func TestSplit_Headings(t *testing.T) {
	body := strings.Repeat("Some content filling space. ", 12)
	text := "# One\n\n" + body + "\n\n# Two\n\n" + body + "\n\n# Three\n\n" + body

	got := Split(text, DefaultOptions())
	if len(got) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(got))
	}
	for i, want := range []string{"# One", "# Two", "# Three"} {
		if !strings.HasPrefix(got[i].Text, want) {
			t.Errorf("piece %d should start with %q, got %q", i, want, got[i].Text)
		}
	}
	if got[0].StartLine != 1 || got[1].StartLine != 5 || got[2].StartLine != 9 {
		t.Errorf("unexpected start lines %d, %d, %d", got[0].StartLine, got[1].StartLine, got[2].StartLine)
	}
}

func TestSplit_HeadingNotJoinedToPreviousSection(t *testing.T) {
	text := "# Alpha\n\n" + strings.Repeat("a", 150) + "\n\n# Beta\n\n" + strings.Repeat("b", 150)

	got := Split(text, Options{Target: 400, Limit: 300})
	if len(got) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(got))
	}
	if !strings.HasPrefix(got[1].Text, "# Beta") {
		t.Errorf("second piece should start with the heading, got %q", got[1].Text)
	}
	if got[1].StartLine != 5 {
		t.Errorf("expected StartLine 5, got %d", got[1].StartLine)
	}
}

func TestSplit_ListItems(t *testing.T) {
	item := strings.Repeat("x", 150)
	var lines []string
	for i := 0; i < 6; i++ {
		lines = append(lines, "- "+item)
	}
	got := Split(strings.Join(lines, "\n"), Options{Target: 200, Limit: 300})
	if len(got) != 6 {
		t.Fatalf("expected 6 pieces, got %d", len(got))
	}
	for i, p := range got {
		if p.StartLine != i+1 || p.EndLine != i+1 {
			t.Errorf("piece %d: expected line %d, got %d-%d", i, i+1, p.StartLine, p.EndLine)
		}
	}
}

func TestSplit_LongParagraphFallsBackToLines(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "This is a line of text that is about sixty characters long.")
	}
	got := Split(strings.Join(lines, "\n"), Options{Target: 200, Limit: 300})
	if len(got) < 2 {
		t.Fatalf("expected at least 2 pieces, got %d", len(got))
	}
	for _, p := range got {
		if len(p.Text) > 200 {
			t.Errorf("piece exceeds target: %d bytes", len(p.Text))
		}
	}
	if got[0].StartLine != 1 {
		t.Errorf("expected first StartLine 1, got %d", got[0].StartLine)
	}
	if end := got[len(got)-1].EndLine; end != 20 {
		t.Errorf("expected last EndLine 20, got %d", end)
	}
}

func TestSplit_SmallContentKeepsHeadingsTogether(t *testing.T) {
	text := "# A\n\nShort.\n\n# B\n\nAlso short."
	got := Split(text, Options{Target: 400, Limit: 600})
	if len(got) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(got))
	}
	if got[0].Text != text {
		t.Errorf("expected %q, got %q", text, got[0].Text)
	}
}
