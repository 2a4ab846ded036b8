// Package ffmpeg reads and writes video through libav (go-astiav).
package ffmpeg

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
)

var initOnce sync.Once

// Init registers capture devices and routes libav messages to the application log.
// It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		astiav.RegisterAllDevices()
		if logging.Verbose {
			astiav.SetLogLevel(astiav.LogLevelVerbose)
		} else {
			astiav.SetLogLevel(astiav.LogLevelWarning)
		}
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, format, msg string) {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				return
			}
			switch {
			case l <= astiav.LogLevelError:
				logging.ErrorLogger.Printf("libav: %s", msg)
			case l <= astiav.LogLevelWarning:
				logging.WarningLogger.Printf("libav: %s", msg)
			default:
				logging.Trace("libav: %s", msg)
			}
		})
	})
}

// pixelFormat finds the libav pixel format with the same name.
func pixelFormat(f media.PixelFormat) (astiav.PixelFormat, error) {
	p := astiav.FindPixelFormatByName(string(f))
	if p == astiav.PixelFormatNone {
		return p, fmt.Errorf("unknown pixel format %q", f)
	}
	return p, nil
}

// inputOptions builds the demuxer options. Capture parameters are only passed to
// device inputs, files and streams carry their own.
func inputOptions(cfg config.DecoderConfig, requested media.Metadata) map[string]string {
	opts := make(map[string]string, len(cfg.Options)+3)
	if cfg.Format != "" {
		if requested.Format != "" {
			opts["pixel_format"] = string(requested.Format)
		}
		if requested.Rate > 0 {
			opts["framerate"] = strconv.FormatFloat(requested.Rate, 'f', -1, 64)
		}
		if requested.Width > 0 && requested.Height > 0 {
			opts["video_size"] = fmt.Sprintf("%dx%d", requested.Width, requested.Height)
		}
	}
	for k, v := range cfg.Options {
		opts[k] = v
	}
	return opts
}

func dictionary(opts map[string]string) (*astiav.Dictionary, error) {
	d := astiav.NewDictionary()
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := d.Set(k, opts[k], 0); err != nil {
			d.Free()
			return nil, fmt.Errorf("setting option %s=%s: %w", k, opts[k], err)
		}
	}
	return d, nil
}

// rateOf returns a rational rate as frames per second, 0 when unset.
func rateOf(r astiav.Rational) float64 {
	if r.Num() <= 0 || r.Den() <= 0 {
		return 0
	}
	return float64(r.Num()) / float64(r.Den())
}

// ticks converts seconds to a timestamp in units of 1/rate.
func ticks(seconds float64, rate media.Rational) int64 {
	return int64(math.Round(seconds * float64(rate.Num) / float64(rate.Den)))
}

// seconds converts a timestamp in the time base tb to seconds.
func seconds(ts int64, tb astiav.Rational) float64 {
	if tb.Den() == 0 {
		return 0
	}
	return float64(ts) * float64(tb.Num()) / float64(tb.Den())
}
