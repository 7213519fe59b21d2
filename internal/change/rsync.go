package change

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	itemizedFile    = regexp.MustCompile(`^(>f|hf)(\.|\+).*? (.*)$`)
	itemizedDeleted = regexp.MustCompile(`^\*deleting   (.*)$`)
)

// RsyncMirror delegates comparison and copying to an rsync binary. A dry
// run with itemized output gives the report.
type RsyncMirror struct {
	binary string
	logger *zap.Logger
}

// NewRsyncMirror runs binary, or "rsync" from PATH when binary is empty
func NewRsyncMirror(binary string, logger *zap.Logger) *RsyncMirror {
	if binary == "" {
		binary = "rsync"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RsyncMirror{binary: binary, logger: logger}
}

func rsyncArgs(dryRun bool, source, dest string, excludes []string) []string {
	args := []string{"-a"}
	if dryRun {
		args = append(args, "-n", "-i")
	}
	args = append(args, "--delete")
	for _, p := range excludes {
		args = append(args, "--exclude="+p)
	}
	return append(args,
		strings.TrimSuffix(source, string(os.PathSeparator))+string(os.PathSeparator),
		strings.TrimSuffix(dest, string(os.PathSeparator))+string(os.PathSeparator))
}

func (m *RsyncMirror) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, m.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	m.logger.Debug("Running rsync", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", m.binary, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (m *RsyncMirror) Compare(ctx context.Context, source, dest string, excludes []string) (*Report, error) {
	out, err := m.run(ctx, rsyncArgs(true, source, dest, excludes))
	if err != nil {
		return nil, err
	}
	return parseItemized(out), nil
}

func (m *RsyncMirror) Sync(ctx context.Context, source, dest string, excludes []string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	_, err := m.run(ctx, rsyncArgs(false, source, dest, excludes))
	return err
}

// parseItemized reads "rsync -i" output. Directory lines and deleted
// directories are ignored.
func parseItemized(out []byte) *Report {
	report := &Report{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := itemizedDeleted.FindStringSubmatch(line); m != nil {
			if !strings.HasSuffix(m[1], "/") {
				report.Deleted = append(report.Deleted, m[1])
			}
			continue
		}
		m := itemizedFile.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[2] == "+" {
			report.Added = append(report.Added, m[3])
		} else {
			report.Modified = append(report.Modified, m[3])
		}
	}
	report.sort()
	return report
}
