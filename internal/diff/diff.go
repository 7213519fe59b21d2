// internal/diff/diff.go
package diff

import (
	"strings"
)

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

func (t LineType) Prefix() byte {
	switch t {
	case Addition:
		return '+'
	case Deletion:
		return '-'
	default:
		return ' '
	}
}

// Line represents a single line in a diff with its type and content.
// NoNewline marks a final line that has no terminator.
type Line struct {
	Type      LineType
	Content   string
	NoNewline bool
	OldNum    int
	NewNum    int
}

// Hunk is one @@ section. Starts follow the unified-diff convention: 1-based,
// and for an empty range the number of the line preceding it.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// OldIndex is the 0-based index of the first old line the hunk covers
func (h Hunk) OldIndex() int {
	if h.OldLines == 0 {
		return h.OldStart
	}
	return h.OldStart - 1
}

type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

func (s *Stats) add(hunks []Hunk) {
	for _, hunk := range hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				s.Additions++
			case Deletion:
				s.Deletions++
			}
		}
	}
	s.Changes = s.Additions + s.Deletions
}

// Result contains the complete diff information for one text
type Result struct {
	Hunks []Hunk
	Stats Stats
}

// Empty reports whether the texts were equal
func (r *Result) Empty() bool {
	return len(r.Hunks) == 0
}

// DefaultContext is the number of unchanged lines kept around each change
const DefaultContext = 3

// maxLCSCells bounds the LCS table (4 bytes a cell, so 32MB at most).
// Larger inputs fall back to a replace-everything script, which is still a
// correct diff.
var maxLCSCells = 8_000_000

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// TextLine is one line of a text and whether it ended with a newline
type TextLine struct {
	Content   string
	NoNewline bool
}

// SplitText splits s into lines. A final line without "\n" is flagged.
func SplitText(s string) []TextLine {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\n")
	last := len(parts) - 1
	lines := make([]TextLine, 0, len(parts))
	for i, p := range parts {
		if i == last {
			if p != "" {
				lines = append(lines, TextLine{Content: p, NoNewline: true})
			}
			break
		}
		lines = append(lines, TextLine{Content: p})
	}
	return lines
}

// JoinText is the inverse of SplitText
func JoinText(lines []TextLine) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Content)
		if !l.NoNewline {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

// op is one step of the edit script; i and j index the old and new lines
type op struct {
	kind opKind
	i, j int
}

// Diff generates a line-by-line diff between two texts
func (e *Engine) Diff(oldText, newText string) *Result {
	a, b := SplitText(oldText), SplitText(newText)
	result := &Result{Hunks: e.group(a, b, editScript(a, b))}
	result.Stats.add(result.Hunks)
	return result
}

// editScript aligns a and b: common prefix and suffix first, then an LCS
// table over the middle.
func editScript(a, b []TextLine) []op {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	ops := make([]op, 0, len(a)+len(b))
	for k := 0; k < prefix; k++ {
		ops = append(ops, op{opEqual, k, k})
	}
	ops = append(ops, lcsScript(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix], prefix, prefix)...)
	for k := suffix; k > 0; k-- {
		ops = append(ops, op{opEqual, len(a) - k, len(b) - k})
	}
	return ops
}

// lcsScript builds a table of LCS lengths of the suffixes a[i:], b[j:] and
// walks it forward, preferring deletions so removed lines precede added ones.
func lcsScript(a, b []TextLine, offA, offB int) []op {
	n, m := len(a), len(b)
	var ops []op
	if n*m > maxLCSCells {
		for i := 0; i < n; i++ {
			ops = append(ops, op{opDelete, offA + i, offB})
		}
		for j := 0; j < m; j++ {
			ops = append(ops, op{opInsert, offA + n, offB + j})
		}
		return ops
	}

	width := m + 1
	table := make([]int32, (n+1)*width)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i*width+j] = table[(i+1)*width+j+1] + 1
			} else {
				table[i*width+j] = max(table[(i+1)*width+j], table[i*width+j+1])
			}
		}
	}

	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && a[i] == b[j]:
			ops = append(ops, op{opEqual, offA + i, offB + j})
			i++
			j++
		case i < n && (j == m || table[(i+1)*width+j] >= table[i*width+j+1]):
			ops = append(ops, op{opDelete, offA + i, offB + j})
			i++
		default:
			ops = append(ops, op{opInsert, offA + i, offB + j})
			j++
		}
	}
	return ops
}

// group cuts the edit script into hunks. Changes separated by at most twice
// the context window share a hunk.
func (e *Engine) group(a, b []TextLine, ops []op) []Hunk {
	var changes []int
	for k, o := range ops {
		if o.kind != opEqual {
			changes = append(changes, k)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var hunks []Hunk
	first := changes[0]
	last := first
	for _, k := range changes[1:] {
		if k-last-1 > 2*e.contextLines {
			hunks = append(hunks, e.buildHunk(a, b, ops, first, last))
			first = k
		}
		last = k
	}
	return append(hunks, e.buildHunk(a, b, ops, first, last))
}

func (e *Engine) buildHunk(a, b []TextLine, ops []op, first, last int) Hunk {
	from := max(0, first-e.contextLines)
	to := min(len(ops), last+e.contextLines+1)

	h := Hunk{}
	oldIdx, newIdx := ops[from].i, ops[from].j
	for _, o := range ops[from:to] {
		switch o.kind {
		case opEqual:
			l := a[o.i]
			h.Lines = append(h.Lines, Line{Type: Context, Content: l.Content, NoNewline: l.NoNewline, OldNum: o.i + 1, NewNum: o.j + 1})
			h.OldLines++
			h.NewLines++
		case opDelete:
			l := a[o.i]
			h.Lines = append(h.Lines, Line{Type: Deletion, Content: l.Content, NoNewline: l.NoNewline, OldNum: o.i + 1})
			h.OldLines++
		case opInsert:
			l := b[o.j]
			h.Lines = append(h.Lines, Line{Type: Addition, Content: l.Content, NoNewline: l.NoNewline, NewNum: o.j + 1})
			h.NewLines++
		}
	}

	h.OldStart = oldIdx + 1
	if h.OldLines == 0 {
		h.OldStart = oldIdx
	}
	h.NewStart = newIdx + 1
	if h.NewLines == 0 {
		h.NewStart = newIdx
	}
	return h
}
