// Package export writes the merged playlist to disk after each refresh.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"

	"github.com/kelgrand/iptv-deck/pkg/m3u"
)

// Exporter writes the current lineup as an M3U file. Writes are atomic so
// players reloading the file never observe a half-written playlist.
type Exporter struct {
	path   string
	logger *logrus.Logger
}

// NewExporter creates an exporter targeting path.
func NewExporter(path string, logger *logrus.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// Write serializes channels to the export path.
func (e *Exporter) Write(channels []m3u.Channel) error {
	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	pending, err := renameio.NewPendingFile(e.path)
	if err != nil {
		return fmt.Errorf("failed to create pending export file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if err := m3u.Write(pending, channels); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace export file: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"path":     e.path,
		"channels": len(channels),
	}).Info("Exported playlist")
	return nil
}
