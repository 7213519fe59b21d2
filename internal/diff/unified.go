package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"contexter/internal/errors"
)

// NoNewlineMarker follows a line that has no terminator
const NoNewlineMarker = `\ No newline at end of file`

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

func formatRange(start, count int) string {
	if count == 1 {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// FormatHunks renders hunks without file headers
func FormatHunks(hunks []Hunk) string {
	var sb strings.Builder
	for _, hunk := range hunks {
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n",
			formatRange(hunk.OldStart, hunk.OldLines),
			formatRange(hunk.NewStart, hunk.NewLines))

		for _, line := range hunk.Lines {
			sb.WriteByte(line.Type.Prefix())
			sb.WriteString(line.Content)
			sb.WriteByte('\n')
			if line.NoNewline {
				sb.WriteString(NoNewlineMarker)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

// Format returns the hunks of r in unified form
func (r *Result) Format() string {
	return FormatHunks(r.Hunks)
}

// Unified renders a complete unified diff for one path. Both header lines
// name the same path.
func Unified(path string, hunks []Hunk) string {
	if len(hunks) == 0 {
		return ""
	}
	return fmt.Sprintf("--- %s\n+++ %s\n", path, path) + FormatHunks(hunks)
}

// ParseUnified reads a single-file unified diff. The path comes from the
// "+++" header when present. An empty input yields no hunks.
func ParseUnified(text string) (string, []Hunk, error) {
	var (
		path  string
		hunks []Hunk
		cur   *Hunk
		needA int
		needB int
	)

	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	for idx, raw := range lines {
		lineNo := idx + 1

		if cur != nil && (needA > 0 || needB > 0) {
			if strings.HasPrefix(raw, `\`) {
				if err := markNoNewline(cur, lineNo); err != nil {
					return "", nil, err
				}
				continue
			}
			line, err := parseHunkLine(raw, lineNo)
			if err != nil {
				return "", nil, err
			}
			switch line.Type {
			case Context:
				needA--
				needB--
			case Deletion:
				needA--
			case Addition:
				needB--
			}
			if needA < 0 || needB < 0 {
				return "", nil, errors.ParseError("hunk longer than its header declares", lineNo)
			}
			cur.Lines = append(cur.Lines, line)
			continue
		}

		switch {
		case strings.HasPrefix(raw, `\`):
			if err := markNoNewline(cur, lineNo); err != nil {
				return "", nil, err
			}
		case strings.HasPrefix(raw, "@@"):
			h, err := parseHunkHeader(raw, lineNo)
			if err != nil {
				return "", nil, err
			}
			hunks = append(hunks, h)
			cur = &hunks[len(hunks)-1]
			needA, needB = h.OldLines, h.NewLines
		case strings.HasPrefix(raw, "+++ "):
			path = headerPath(raw[4:])
		case strings.HasPrefix(raw, "--- "):
			if path == "" {
				path = headerPath(raw[4:])
			}
		case strings.TrimSpace(raw) == "":
		case strings.HasPrefix(raw, "diff "), strings.HasPrefix(raw, "index "):
		default:
			return "", nil, errors.ParseError(fmt.Sprintf("unexpected line outside a hunk: %q", raw), lineNo)
		}
	}

	if cur != nil && (needA > 0 || needB > 0) {
		return "", nil, errors.ParseError("diff ends inside a hunk", len(lines))
	}
	numberLines(hunks)
	return path, hunks, nil
}

func parseHunkHeader(raw string, lineNo int) (Hunk, error) {
	m := hunkHeader.FindStringSubmatch(raw)
	if m == nil {
		return Hunk{}, errors.ParseError(fmt.Sprintf("malformed hunk header %q", raw), lineNo)
	}
	count := func(s string) int {
		if s == "" {
			return 1
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	oldStart, _ := strconv.Atoi(m[1])
	newStart, _ := strconv.Atoi(m[3])
	return Hunk{
		OldStart: oldStart,
		OldLines: count(m[2]),
		NewStart: newStart,
		NewLines: count(m[4]),
	}, nil
}

// parseHunkLine tags a body line by its first character. An empty line is
// empty context, which some editors leave behind after stripping whitespace.
func parseHunkLine(raw string, lineNo int) (Line, error) {
	if raw == "" {
		return Line{Type: Context}, nil
	}
	switch raw[0] {
	case ' ':
		return Line{Type: Context, Content: raw[1:]}, nil
	case '-':
		return Line{Type: Deletion, Content: raw[1:]}, nil
	case '+':
		return Line{Type: Addition, Content: raw[1:]}, nil
	}
	return Line{}, errors.ParseError(fmt.Sprintf("hunk truncated: unexpected line %q", raw), lineNo)
}

func markNoNewline(h *Hunk, lineNo int) error {
	if h == nil || len(h.Lines) == 0 {
		return errors.ParseError("no-newline marker without a preceding line", lineNo)
	}
	h.Lines[len(h.Lines)-1].NoNewline = true
	return nil
}

// headerPath strips a trailing timestamp
func headerPath(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "/dev/null" {
		return ""
	}
	return s
}

// numberLines fills OldNum and NewNum from the hunk starts
func numberLines(hunks []Hunk) {
	for h := range hunks {
		hunk := &hunks[h]
		oldNum, newNum := hunk.OldIndex()+1, hunk.NewStart
		if hunk.NewLines == 0 {
			newNum++
		}
		for i := range hunk.Lines {
			line := &hunk.Lines[i]
			switch line.Type {
			case Context:
				line.OldNum, line.NewNum = oldNum, newNum
				oldNum++
				newNum++
			case Deletion:
				line.OldNum = oldNum
				oldNum++
			case Addition:
				line.NewNum = newNum
				newNum++
			}
		}
	}
}
