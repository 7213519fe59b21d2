package patch

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"contexter/internal/diff"
	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

// Report lists what an Apply did, by path
type Report struct {
	Created  []string `json:"created,omitempty"`
	Modified []string `json:"modified,omitempty"`
	Deleted  []string `json:"deleted,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

func (r *Report) Total() int {
	return len(r.Created) + len(r.Modified) + len(r.Deleted)
}

type Applier struct {
	logger *zap.Logger
}

func NewApplier(logger *zap.Logger) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applier{logger: logger}
}

// Apply returns a new snapshot with ps applied to target. Every conflict in
// every path is collected before failing; on conflict no snapshot is
// returned. target itself is never modified.
func (a *Applier) Apply(target *snapshot.Snapshot, ps *diff.PatchSet) (*snapshot.Snapshot, *Report, error) {
	result := target.Clone()
	report := &Report{}
	var conflicts []errors.Conflict

	for _, path := range ps.Paths() {
		change, _ := ps.Get(path)
		current, exists := target.Get(path)

		switch {
		case change.IsDelete():
			if exists {
				result.Delete(path)
				report.Deleted = append(report.Deleted, path)
			}

		case exists && current.IsBinary():
			a.logger.Warn("Skipping patch for binary entry",
				zap.String("path", path),
				zap.Error(errors.BinaryPatchSkip(path)))
			report.Skipped = append(report.Skipped, path)

		default:
			text, found := applyHunks(path, current.String(), change.Hunks)
			if len(found) > 0 {
				conflicts = append(conflicts, found...)
				continue
			}
			if err := result.Put(path, snapshot.Text(text)); err != nil {
				return nil, nil, fmt.Errorf("storing %s: %w", path, err)
			}
			if exists {
				report.Modified = append(report.Modified, path)
			} else {
				report.Created = append(report.Created, path)
			}
		}
	}

	if len(conflicts) > 0 {
		a.logger.Error("Patch does not apply",
			zap.Int("conflicts", len(conflicts)),
			zap.String("first", conflicts[0].String()))
		return nil, nil, errors.ApplyConflict(conflicts)
	}

	a.logger.Debug("Patch applied",
		zap.Int("created", len(report.Created)),
		zap.Int("modified", len(report.Modified)),
		zap.Int("deleted", len(report.Deleted)),
		zap.Int("skipped", len(report.Skipped)))
	return result, report, nil
}

// applyHunks walks the original lines with a cursor. Hunk positions are in
// old-file coordinates; context and removed lines must match the target,
// compared without line terminators.
func applyHunks(path, text string, hunks []diff.Hunk) (string, []errors.Conflict) {
	old := diff.SplitText(text)
	var (
		out       []diff.TextLine
		conflicts []errors.Conflict
	)
	push := func(l diff.TextLine) {
		if n := len(out); n > 0 {
			out[n-1].NoNewline = false
		}
		out = append(out, l)
	}

	cursor := 0
	for hi, hunk := range hunks {
		conflict := func(line int, format string, args ...any) {
			conflicts = append(conflicts, errors.Conflict{
				Path:   path,
				Hunk:   hi + 1,
				Line:   line,
				Reason: fmt.Sprintf(format, args...),
			})
		}

		start := hunk.OldIndex()
		if start < cursor {
			conflict(start+1, "overlaps the previous hunk")
			continue
		}
		if start > len(old) {
			conflict(start+1, "starts beyond the end of the file (%d lines)", len(old))
			continue
		}

		var staged []diff.TextLine
		pos := start
		ok := true
		for _, line := range hunk.Lines {
			if line.Type == diff.Addition {
				staged = append(staged, diff.TextLine{Content: line.Content, NoNewline: line.NoNewline})
				continue
			}
			if pos >= len(old) {
				conflict(pos+1, "expected %q beyond the end of the file", line.Content)
				ok = false
				break
			}
			if !sameLine(old[pos].Content, line.Content) {
				conflict(pos+1, "expected %q, found %q", line.Content, old[pos].Content)
				ok = false
				break
			}
			if line.Type == diff.Context {
				staged = append(staged, old[pos])
			}
			pos++
		}
		if !ok {
			continue
		}

		for _, l := range old[cursor:start] {
			push(l)
		}
		for _, l := range staged {
			push(l)
		}
		cursor = pos
	}

	for _, l := range old[cursor:] {
		push(l)
	}
	return diff.JoinText(out), conflicts
}

func sameLine(a, b string) bool {
	return strings.TrimSuffix(a, "\r") == strings.TrimSuffix(b, "\r")
}
