// Package sanitize repairs hand-made text containers whose file blocks are
// missing their fences, so that the strict decoder can read them.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"contexter/internal/classify"
	"contexter/internal/container"
)

// Report counts the repairs made by one pass
type Report struct {
	OpenedFences    int  `json:"opened_fences"`
	ClosedFences    int  `json:"closed_fences"`
	ClosedAtEOF     bool `json:"closed_at_eof"`
	CRLFLines       int  `json:"crlf_lines"`
	InvalidUTF8     bool `json:"invalid_utf8"`
	HeadersObserved int  `json:"headers_observed"`
}

// Repairs is the number of structural fixes (fences inserted)
func (r Report) Repairs() int {
	n := r.OpenedFences + r.ClosedFences
	if r.ClosedAtEOF {
		n++
	}
	return n
}

func (r Report) Changed() bool {
	return r.Repairs() > 0 || r.CRLFLines > 0 || r.InvalidUTF8
}

type state int

const (
	scanning state = iota
	awaitingFence
	inFence
)

type sanitizer struct {
	state   state
	tag     string
	fence   container.Fence
	out     []string
	pending []string
	report  Report
}

// String returns the repaired container
func String(in string) string {
	out, _ := Sanitize(in)
	return out
}

// Sanitize repairs in and reports what it changed. Sanitize(Sanitize(x)) is
// always equal to Sanitize(x).
func Sanitize(in string) (string, Report) {
	s := &sanitizer{}

	if !utf8.ValidString(in) {
		s.report.InvalidUTF8 = true
		in = strings.ToValidUTF8(in, string(utf8.RuneError))
	}
	trailingNewline := strings.HasSuffix(in, "\n")
	lines := strings.Split(in, "\n")
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		if strings.HasSuffix(line, "\r") {
			s.report.CRLFLines++
			line = strings.TrimRight(line, "\r")
		}
		s.feed(line)
	}
	s.finish()

	if in == "" {
		return "", s.report
	}
	out := strings.Join(s.out, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out, s.report
}

func (s *sanitizer) feed(line string) {
	switch s.state {
	case inFence:
		if s.fence.Closes(line) {
			s.flush()
			s.emit(line)
			s.state = scanning
			return
		}
		if !s.fence.Strict() {
			if kind, _ := container.ParseHeader(line); kind != container.HeaderNone {
				s.close()
				s.report.ClosedFences++
				s.header(line)
				return
			}
		}
		if strings.TrimSpace(line) == "" {
			s.pending = append(s.pending, line)
			return
		}
		s.flush()
		s.emit(line)

	case awaitingFence:
		if strings.TrimSpace(line) == "" {
			s.pending = append(s.pending, line)
			return
		}
		if fence, ok := container.ParseFence(line); ok {
			s.flush()
			s.emit(line)
			s.fence = fence
			s.state = inFence
			return
		}
		s.open()
		s.feed(line)

	default:
		s.header(line)
	}
}

// header handles a line seen while scanning
func (s *sanitizer) header(line string) {
	kind, name := container.ParseHeader(line)
	s.emit(line)
	switch kind {
	case container.HeaderFile:
		s.report.HeadersObserved++
		s.tag = classify.Language(name)
		s.state = awaitingFence
	case container.HeaderTree:
		s.report.HeadersObserved++
		s.tag = ""
		s.state = awaitingFence
	case container.HeaderSkipped:
		s.report.HeadersObserved++
	}
}

// open inserts a synthetic opening fence after any blank lines following the header
func (s *sanitizer) open() {
	s.flush()
	s.fence = container.Fence{Ticks: container.MinFence, Tag: s.tag}
	s.emit(s.fence.Open())
	s.report.OpenedFences++
	s.state = inFence
}

// close inserts a closing fence after the last non-blank line, followed by
// the blank lines that preceded the next header (at least one).
func (s *sanitizer) close() {
	s.emit(s.fence.Delimiter())
	if len(s.pending) == 0 {
		s.pending = append(s.pending, "")
	}
	s.flush()
	s.state = scanning
}

func (s *sanitizer) finish() {
	switch s.state {
	case awaitingFence:
		s.open()
		s.emit(s.fence.Delimiter())
		s.report.ClosedAtEOF = true
	case inFence:
		pending := s.pending
		s.pending = nil
		s.emit(s.fence.Delimiter())
		s.out = append(s.out, pending...)
		s.report.ClosedAtEOF = true
	}
	s.flush()
	s.state = scanning
}

func (s *sanitizer) flush() {
	s.out = append(s.out, s.pending...)
	s.pending = s.pending[:0]
}

func (s *sanitizer) emit(line string) {
	s.out = append(s.out, line)
}
