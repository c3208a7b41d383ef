package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/loov/hrtime"
	"github.com/sirupsen/logrus"
)

// StatsSnapshot summarizes the frames recorded since the previous snapshot.
type StatsSnapshot struct {
	Frames    int
	FPS       float64
	MeanFrame time.Duration
	LastFrame time.Duration
}

// FrameStats accumulates frame times from the render thread and hands
// snapshots to a reporter goroutine.
type FrameStats struct {
	mu     sync.Mutex
	frames int
	total  time.Duration
	last   time.Duration
	since  time.Duration
}

func NewFrameStats() *FrameStats {
	return &FrameStats{since: hrtime.Now()}
}

// Begin returns the timestamp a frame started at.
func (s *FrameStats) Begin() time.Duration {
	return hrtime.Now()
}

// End records the frame that started at start.
func (s *FrameStats) End(start time.Duration) {
	s.Record(hrtime.Since(start))
}

func (s *FrameStats) Record(frame time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames++
	s.total += frame
	s.last = frame
}

// Snapshot returns the statistics for the window that ends now and starts a
// new one.
func (s *FrameStats) Snapshot() StatsSnapshot {
	now := hrtime.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked(now - s.since)
	s.since = now
	return snap
}

func (s *FrameStats) snapshotLocked(elapsed time.Duration) StatsSnapshot {
	snap := StatsSnapshot{Frames: s.frames, LastFrame: s.last}
	if s.frames > 0 {
		snap.MeanFrame = s.total / time.Duration(s.frames)
	}
	if elapsed > 0 {
		snap.FPS = float64(s.frames) / elapsed.Seconds()
	}
	s.frames = 0
	s.total = 0
	return snap
}

// Report logs a snapshot every interval until ctx is done.
func (s *FrameStats) Report(ctx context.Context, interval time.Duration, logger logrus.FieldLogger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := s.Snapshot()
			logger.WithFields(logrus.Fields{
				"fps":    int(snap.FPS + 0.5),
				"frames": snap.Frames,
				"mean":   snap.MeanFrame,
				"last":   snap.LastFrame,
			}).Info("frame stats")
		}
	}
}
