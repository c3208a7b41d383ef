package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestFrameStatsSnapshot(t *testing.T) {
	stats := NewFrameStats()
	stats.Record(10 * time.Millisecond)
	stats.Record(20 * time.Millisecond)
	stats.Record(30 * time.Millisecond)

	snap := stats.snapshotLocked(time.Second / 2)
	if snap.Frames != 3 {
		t.Errorf("Frames = %d, want 3", snap.Frames)
	}
	if snap.MeanFrame != 20*time.Millisecond {
		t.Errorf("MeanFrame = %s, want 20ms", snap.MeanFrame)
	}
	if snap.LastFrame != 30*time.Millisecond {
		t.Errorf("LastFrame = %s, want 30ms", snap.LastFrame)
	}
	if snap.FPS != 6 {
		t.Errorf("FPS = %v, want 6", snap.FPS)
	}

	empty := stats.snapshotLocked(0)
	if empty.Frames != 0 || empty.MeanFrame != 0 || empty.FPS != 0 {
		t.Errorf("window not reset: %+v", empty)
	}
}

func TestFrameStatsReport(t *testing.T) {
	logger, hook := test.NewNullLogger()
	stats := NewFrameStats()
	stats.Record(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- stats.Report(ctx, 5*time.Millisecond, logger)
	}()

	deadline := time.After(5 * time.Second)
	for len(hook.AllEntries()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("no stats reported")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Report: %v", err)
	}

	entry := hook.AllEntries()[0]
	if entry.Level != logrus.InfoLevel || entry.Message != "frame stats" {
		t.Errorf("unexpected entry %s %q", entry.Level, entry.Message)
	}
	if entry.Data["frames"] != 1 {
		t.Errorf("frames = %v, want 1", entry.Data["frames"])
	}
}
