package change

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	MirrorWalk  = "walk"
	MirrorRsync = "rsync"
)

// NewMirror builds the mirror named by kind for projectDir. The returned
// close function releases whatever the mirror opened.
func NewMirror(kind, projectDir string, logger *zap.Logger) (Mirror, func() error, error) {
	switch kind {
	case "", MirrorWalk:
		m, err := OpenWalkMirror(IndexDir(projectDir), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening mirror index: %w", err)
		}
		return m, m.Close, nil
	case MirrorRsync:
		return NewRsyncMirror("", logger), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown mirror %q (want %s or %s)", kind, MirrorWalk, MirrorRsync)
	}
}
