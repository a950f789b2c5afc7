package utils

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Standard progress bar descriptions
const (
	DescCloning   = "Cloning"
	DescIndexing  = "Indexing Files"
	DescRendering = "Rendering"
)

// ProgressOptions tune a progress bar
type ProgressOptions struct {
	// Writer receives the bar output; defaults to os.Stderr
	Writer io.Writer
	// Quiet hides the bar entirely
	Quiet bool
}

// NewProgressBarWithOptions creates a consistently styled progress bar.
// A total of -1 switches to spinner mode.
//
// Example:
//
//	bar := utils.NewProgressBarWithOptions(len(files), utils.DescIndexing, opts)
//	defer bar.Finish()
//
//	for _, f := range files {
//	    // parse f
//	    bar.Add(1)
//	}
func NewProgressBarWithOptions(total int, description string, po ProgressOptions) *progressbar.ProgressBar {
	var w io.Writer = os.Stderr
	if po.Writer != nil {
		w = po.Writer
	}
	if po.Quiet {
		w = io.Discard
	}

	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	} else {
		opts = append(opts,
			progressbar.OptionShowIts(),
		)
	}

	return progressbar.NewOptions(total, opts...)
}
