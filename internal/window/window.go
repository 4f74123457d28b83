// Package window computes the delta-sync date range for a fetch run.
package window

import (
	"context"
	"fmt"
	"time"
)

// DateFormat is the vendor's windowing parameter format.
const DateFormat = "2006-01-02"

// LatestStored reports the most recent call-start timestamp currently
// persisted, or ok=false when nothing is stored yet.
type LatestStored interface {
	LatestCallStart(ctx context.Context) (time.Time, bool, error)
}

// Window is one fetch range. End is always "now" at resolution time.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) StartParam() string { return w.Start.Format(DateFormat) }
func (w Window) EndParam() string   { return w.End.Format(DateFormat) }

// Resolve picks the next fetch window: the later of the fixed baseline and
// the most recent imported timestamp, through now. Starting from the latest
// stored day re-fetches that day on every run; the idempotent upsert makes
// the overlap harmless and it closes any gap a crashed prior run left. The
// baseline floor also wins over stale or clock-skewed stored data.
func Resolve(latest time.Time, haveData bool, baseline, now time.Time) Window {
	start := baseline
	if haveData && latest.After(baseline) {
		start = latest
	}
	return Window{Start: start, End: now}
}

// ResolveFromStore reads the stored high-water mark and resolves the window.
// A failing timestamp query propagates: there is no safe default range to
// fall back to silently.
func ResolveFromStore(ctx context.Context, src LatestStored, baseline, now time.Time) (Window, error) {
	latest, ok, err := src.LatestCallStart(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("resolve fetch window: %w", err)
	}
	return Resolve(latest, ok, baseline, now), nil
}
