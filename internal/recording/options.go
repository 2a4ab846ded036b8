package recording

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
)

var (
	// ErrRateUnavailable means neither the source nor the configuration gave a frame rate.
	ErrRateUnavailable = errors.New("frame rate not available")
	// ErrNonMonotonic rejects a frame whose timestamp does not move forward.
	ErrNonMonotonic = errors.New("timestamp is not increasing")
)

// ComputeOptions derives the output parameters from the first frame. Fields left unset
// in rec follow the input; announcedRate is the source rate sent ahead of the frames.
func ComputeOptions(rec config.RecordConfig, path string, first *media.Frame, announcedRate float64) (Options, error) {
	input := first.Metadata(announcedRate)
	output := rec.Metadata().Or(input)
	if output.Rate <= 0 {
		return Options{}, fmt.Errorf("recording %s: %w", path, ErrRateUnavailable)
	}
	if _, err := media.ImageSize(output.Format, output.Width, output.Height); err != nil {
		return Options{}, fmt.Errorf("recording %s: %w", path, err)
	}

	opts := Options{
		Path:         path,
		Container:    rec.Container,
		Codec:        rec.Codec,
		Input:        input,
		Output:       output,
		Rate:         media.RateToRational(output.Rate),
		CodecOptions: rec.Options,
	}
	if opts.Container == "" {
		opts.Container = "avi"
	}
	if opts.Codec == "" {
		opts.Codec = "rawvideo"
	}
	return opts, nil
}

// ResolvePath builds the output file name for a recording, replacing the increment placeholder.
func ResolvePath(p config.PlayerConfig, increment int) string {
	name := strings.Replace(p.Filename, config.IncrementPlaceholder, strconv.Itoa(increment), 1)
	return filepath.Join(p.OutputDir, name+p.Extension)
}
