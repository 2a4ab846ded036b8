// Package sysstats samples disk, memory and cpu usage and estimates how long the
// recording disk will last.
package sysstats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// MinRemainingSeconds and MinFreeBytes define a low disk: recording would stop
	// within five minutes, or less than 5 GiB are left.
	MinRemainingSeconds = 300
	MinFreeBytes        = 5 << 30
)

// Usage is one sample of the machine resources.
type Usage struct {
	Time       time.Time `json:"time"`
	Path       string    `json:"path"`
	FreeSpace  uint64    `json:"freeSpace"`
	TotalSpace uint64    `json:"totalSpace"`
	CPUPercent float64   `json:"cpuPercent"`
	FreeRAM    uint64    `json:"freeRam"`
	TotalRAM   uint64    `json:"totalRam"`
}

// Sample reads the current usage; path selects the disk.
func Sample(path string) (Usage, error) {
	u := Usage{Time: time.Now(), Path: path}
	d, err := disk.Usage(path)
	if err != nil {
		return u, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	u.FreeSpace, u.TotalSpace = d.Free, d.Total

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		u.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		u.FreeRAM, u.TotalRAM = vm.Available, vm.Total
	}
	return u, nil
}

// Remaining is the recording time left at bytesPerSecond, 0 when the rate is unknown.
func (u Usage) Remaining(bytesPerSecond float64) float64 {
	if bytesPerSecond <= 0 {
		return 0
	}
	return float64(u.FreeSpace) / bytesPerSecond
}

// Low reports whether recording at bytesPerSecond would soon fill the disk.
func (u Usage) Low(bytesPerSecond float64) bool {
	return u.lowAfter(bytesPerSecond, 0)
}

func (u Usage) lowAfter(bytesPerSecond, seconds float64) bool {
	if bytesPerSecond <= 0 {
		return false
	}
	free := float64(u.FreeSpace)
	return free/bytesPerSecond-seconds <= MinRemainingSeconds || free-bytesPerSecond*seconds <= MinFreeBytes
}

// Estimate is the disk use of a planned series of recordings.
type Estimate struct {
	Bytes   float64 `json:"bytes"`
	Seconds float64 `json:"seconds"`
	Low     bool    `json:"low"`
}

// EstimatedSize plans count recordings of duration seconds each at bytesPerSecond.
func (u Usage) EstimatedSize(duration float64, count int, bytesPerSecond float64) Estimate {
	if count < 1 {
		count = 1
	}
	seconds := duration * float64(count)
	return Estimate{
		Bytes:   bytesPerSecond * seconds,
		Seconds: seconds,
		Low:     u.lowAfter(bytesPerSecond, seconds),
	}
}

func (e Estimate) String() string {
	return fmt.Sprintf("Size: %s, Time: %s", media.PrettySpace(e.Bytes, false), media.PrettyTime(e.Seconds))
}

// Sampler keeps the latest Usage of a directory up to date.
type Sampler struct {
	path     string
	interval time.Duration

	mu     sync.RWMutex
	latest Usage
	err    error
}

// NewSampler samples path every interval once Run is called.
func NewSampler(path string, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{path: path, interval: interval}
}

// Latest returns the most recent sample and the error of the last attempt.
func (s *Sampler) Latest() (Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.err
}

// Refresh takes a sample now.
func (s *Sampler) Refresh() (Usage, error) {
	u, err := Sample(s.path)
	s.mu.Lock()
	if err == nil {
		s.latest = u
	}
	s.err = err
	s.mu.Unlock()
	return u, err
}

// Run samples until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	var lastErr string
	for {
		if _, err := s.Refresh(); err != nil && err.Error() != lastErr {
			lastErr = err.Error()
			logging.WarningLogger.Printf("sampling system usage: %v", err)
		} else if err == nil {
			lastErr = ""
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
