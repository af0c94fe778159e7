package notification

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
)

// FileChannel writes each report to <dir>/report_YYYYMMDD.md
type FileChannel struct {
	dir    string
	logger arbor.ILogger
	now    func() time.Time
}

// NewFileChannel creates a channel writing into dir
func NewFileChannel(dir string, logger arbor.ILogger) *FileChannel {
	return &FileChannel{dir: dir, logger: logger, now: time.Now}
}

// Name returns the channel name
func (c *FileChannel) Name() string { return "file" }

// Send writes the report, replacing any earlier report from the same day
func (c *FileChannel) Send(ctx context.Context, subject, markdown string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	path := c.Path()
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	c.logger.Info().Str("path", path).Str("subject", subject).Msg("Report saved")
	return nil
}

// Path returns the file the next Send writes to
func (c *FileChannel) Path() string {
	return filepath.Join(c.dir, fmt.Sprintf("report_%s.md", c.now().Format("20060102")))
}
