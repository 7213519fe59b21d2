// internal/container/grammar.go
package container

import (
	"regexp"
	"strings"
)

// MinFence is the shortest fence the text container uses
const MinFence = 4

// HeaderKind identifies the structural header lines of the text container
type HeaderKind int

const (
	HeaderNone HeaderKind = iota
	HeaderFile
	HeaderSkipped
	HeaderTree
)

var headerPattern = regexp.MustCompile(`^--- (FILE|SKIPPED \(BINARY\)|DIRECTORY STRUCTURE): (.*) ---$`)

// ParseHeader recognizes a header line and returns its kind and path (or tree name)
func ParseHeader(line string) (HeaderKind, string) {
	m := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return HeaderNone, ""
	}
	name := strings.TrimSpace(m[2])
	switch m[1] {
	case "FILE":
		return HeaderFile, name
	case "SKIPPED (BINARY)":
		return HeaderSkipped, name
	default:
		return HeaderTree, name
	}
}

func FileHeader(path string) string    { return "--- FILE: " + path + " ---" }
func SkippedHeader(path string) string { return "--- SKIPPED (BINARY): " + path + " ---" }
func TreeHeader(name string) string    { return "--- DIRECTORY STRUCTURE: " + name + " ---" }

// Fence is an opening fence: a run of backticks and an optional language tag
type Fence struct {
	Ticks int
	Tag   string
}

// ParseFence recognizes a line opening a fence of at least MinFence backticks
func ParseFence(line string) (Fence, bool) {
	t := strings.TrimSpace(line)
	n := leadingTicks(t)
	if n < MinFence {
		return Fence{}, false
	}
	return Fence{Ticks: n, Tag: strings.TrimSpace(t[n:])}, true
}

// Closes reports whether line is the closing fence matching f
func (f Fence) Closes(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) == f.Ticks && leadingTicks(t) == f.Ticks
}

// Strict fences are longer than the minimum. Header lines inside them are content.
func (f Fence) Strict() bool {
	return f.Ticks > MinFence
}

func (f Fence) Delimiter() string {
	return strings.Repeat("`", f.Ticks)
}

// Open renders the opening line
func (f Fence) Open() string {
	return f.Delimiter() + f.Tag
}

// FenceFor picks a fence that no line of body can close. Bodies holding
// header-like lines get a strict fence.
func FenceFor(body, tag string) Fence {
	n := MinFence
	headers := false
	for _, line := range strings.Split(body, "\n") {
		if run := leadingTicks(strings.TrimSpace(line)); run >= n {
			n = run + 1
		}
		if !headers {
			if kind, _ := ParseHeader(line); kind != HeaderNone {
				headers = true
			}
		}
	}
	if headers && n == MinFence {
		n++
	}
	return Fence{Ticks: n, Tag: tag}
}

func leadingTicks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

// splitLines splits on \n, dropping one trailing empty element and any \r
// left over from CRLF input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// SplitLines is splitLines for callers outside the package
func SplitLines(s string) []string {
	return splitLines(s)
}
