package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// TrainingProgress returns a callback for regression.TrainOptions.Progress
// that draws a bar on w. The bar is created on the first call.
func TrainingProgress(w io.Writer) func(done, total int) {
	var (
		bar  *progressbar.ProgressBar
		last int
		mu   sync.Mutex
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = newTrainingBar(w, total)
		}
		if done <= last {
			return
		}
		if err := bar.Add(done - last); err != nil {
			slog.Warn("failed to update progress bar", "error", err)
		}
		last = done
	}
}

func newTrainingBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Growing trees...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}
