package snapshot

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Progress reports export and import progress with elapsed time.
type Progress struct {
	start   time.Time
	logger  *zap.Logger
	verbose bool
}

// NewProgress creates a progress reporter writing to logger.
func NewProgress(logger *zap.Logger, verbose bool) *Progress {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Progress{start: time.Now(), logger: logger.Named("snapshot"), verbose: verbose}
}

// Log emits a progress message with the elapsed time since the reporter was created.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	p.logger.Info(fmt.Sprintf(format, args...), zap.String("elapsed", fmt.Sprintf("%02d:%02d", mins, secs)))
}

// Verbose logs only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}
