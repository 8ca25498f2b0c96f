package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ScanProgress implements scanner progress reporting with a progress bar.
type ScanProgress struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

// NewScanProgress creates a progress reporter for scan runs. With quiet set
// it stays completely silent.
func NewScanProgress(quiet bool) *ScanProgress {
	return &ScanProgress{quiet: quiet}
}

func (p *ScanProgress) OnScanStart(totalFiles int) {
	if p.quiet {
		return
	}
	// Finish any existing progress bar
	if p.bar != nil {
		p.bar.Finish()
	}
	p.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (p *ScanProgress) OnFileScanned(scannedFiles, totalFiles int, fileName string) {
	if p.quiet {
		return
	}
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *ScanProgress) OnScanComplete(nodeCount, edgeCount int, duration time.Duration) {
	if p.quiet {
		return
	}
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	fmt.Printf("✓ Scan complete: %s nodes, %s edges (took %.1fs)\n",
		formatNumber(nodeCount), formatNumber(edgeCount), duration.Seconds())
}

// formatNumber is defined in status.go and reused here
