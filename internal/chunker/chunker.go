// Package chunker splits node content into line-addressed pieces for the
// search index. Splits prefer markdown headings, then paragraph breaks,
// then list items, and fall back to line boundaries.
package chunker

import "strings"

const (
	DefaultTarget = 400
	DefaultLimit  = 600
)

// Options bounds chunk sizes in bytes.
type Options struct {
	Target int // pieces are packed up to this size
	Limit  int // content at or under this size is never split
}

// DefaultOptions returns the sizes the store indexes with.
func DefaultOptions() Options {
	return Options{Target: DefaultTarget, Limit: DefaultLimit}
}

// Piece is one chunk of content. Lines are 1-based and inclusive.
type Piece struct {
	Text      string
	StartLine int
	EndLine   int
}

// Split chunks text. Blank text yields nil; text within opts.Limit is a
// single piece.
func Split(text string, opts Options) []Piece {
	if opts.Target <= 0 || opts.Limit <= 0 {
		opts = DefaultOptions()
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	first, last := 0, len(lines)-1
	for strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for strings.TrimSpace(lines[last]) == "" {
		last--
	}

	whole := span{lines: lines, from: first, to: last}
	if len(whole.text()) <= opts.Limit {
		return []Piece{whole.piece()}
	}
	return pack(sections(lines, first, last), opts)
}

// span is a line range [from, to] of the source.
type span struct {
	lines    []string
	from, to int
}

func (s span) text() string {
	return strings.TrimSpace(strings.Join(s.lines[s.from:s.to+1], "\n"))
}

func (s span) piece() Piece {
	return Piece{Text: s.text(), StartLine: s.from + 1, EndLine: s.to + 1}
}

// sections cuts the line range before every heading, list item and
// paragraph break.
func sections(lines []string, first, last int) []span {
	var out []span
	start := first
	cut := func(end int) {
		for end >= start && strings.TrimSpace(lines[end]) == "" {
			end--
		}
		if end >= start {
			out = append(out, span{lines: lines, from: start, to: end})
		}
	}

	for i := first + 1; i <= last; i++ {
		t := strings.TrimSpace(lines[i])
		prevBlank := strings.TrimSpace(lines[i-1]) == ""
		if t == "" {
			continue
		}
		if isHeading(t) || isListItem(lines[i]) || prevBlank {
			cut(i - 1)
			start = i
		}
	}
	cut(last)
	return out
}

func isHeading(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#")
}

// isListItem matches top-level bullets only; nested items stay with their parent.
func isListItem(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "+ ")
}

// pack greedily joins consecutive sections up to opts.Target, splitting any
// section that alone exceeds opts.Limit. A heading always starts a new piece.
func pack(secs []span, opts Options) []Piece {
	var out []Piece
	var cur *span

	flush := func() {
		if cur == nil {
			return
		}
		if len(cur.text()) > opts.Limit {
			out = append(out, byLines(*cur, opts.Target)...)
		} else {
			out = append(out, cur.piece())
		}
		cur = nil
	}

	for i := range secs {
		s := secs[i]
		if cur == nil {
			cur = &s
			continue
		}
		joined := span{lines: s.lines, from: cur.from, to: s.to}
		if !isHeading(strings.TrimSpace(s.lines[s.from])) && len(joined.text()) <= opts.Target {
			cur = &joined
			continue
		}
		flush()
		cur = &s
	}
	flush()
	return out
}

// byLines splits a span on line boundaries into pieces of about target bytes.
func byLines(s span, target int) []Piece {
	var out []Piece
	from, size := s.from, 0
	for i := s.from; i <= s.to; i++ {
		n := len(s.lines[i]) + 1
		if size+n > target && i > from {
			if p := (span{lines: s.lines, from: from, to: i - 1}); p.text() != "" {
				out = append(out, p.piece())
			}
			from, size = i, 0
		}
		size += n
	}
	if p := (span{lines: s.lines, from: from, to: s.to}); p.text() != "" {
		out = append(out, p.piece())
	}
	return out
}
