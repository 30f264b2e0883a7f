package sim

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"droneops-referee/internal/logging"
	"droneops-referee/internal/telemetry"
)

// Referee is the part of the referee controller the harness drives.
type Referee interface {
	Tick(ctx context.Context, frame telemetry.Frame)
	ReportTargets(fields []string) bool
}

// Harness feeds frames from a source into the referee. It doubles as the
// host pause hook: once paused it stops consuming frames.
type Harness struct {
	ref    Referee
	src    FrameSource
	speed  float64
	paused atomic.Bool
	frames atomic.Int64
}

// NewHarness creates a harness. A speed > 0 paces frames by their simulated
// time divided by speed; otherwise frames are fed as fast as they arrive.
func NewHarness(ref Referee, src FrameSource, speed float64) *Harness {
	return &Harness{ref: ref, src: src, speed: speed}
}

// Pause stops frame consumption.
func (h *Harness) Pause() {
	h.paused.Store(true)
}

// Paused reports whether the host has been paused.
func (h *Harness) Paused() bool {
	return h.paused.Load()
}

// Frames returns the number of frames handed to the referee.
func (h *Harness) Frames() int64 {
	return h.frames.Load()
}

// Run consumes frames until the source is exhausted, the harness is paused or
// ctx is cancelled. Reports embedded in a frame are queued before its tick.
func (h *Harness) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting harness", "speed", h.speed)
	var prev time.Duration
	first := true
	for !h.Paused() {
		frame, err := h.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("frame source exhausted", "frames", h.Frames())
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			return err
		}
		if !first && h.speed > 0 {
			if !sleep(ctx, time.Duration(float64(frame.SimTime-prev)/h.speed)) {
				return nil
			}
		}
		first = false
		prev = frame.SimTime

		if h.Paused() {
			break
		}
		for _, fields := range frame.Reports {
			h.ref.ReportTargets(fields)
		}
		h.ref.Tick(ctx, frame)
		h.frames.Add(1)
	}
	log.Info("harness paused", "frames", h.Frames())
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// IdleSource produces empty frames whose simulated time follows the wall
// clock. It stands in for a host when no frame log is given.
type IdleSource struct {
	interval time.Duration
	now      func() time.Time

	once   sync.Once
	ticker *time.Ticker
	start  time.Time
}

// NewIdleSource emits one frame per interval.
func NewIdleSource(interval time.Duration) *IdleSource {
	return &IdleSource{interval: interval, now: time.Now}
}

// Next blocks until the next tick.
func (s *IdleSource) Next(ctx context.Context) (telemetry.Frame, error) {
	s.once.Do(func() {
		s.ticker = time.NewTicker(s.interval)
		s.start = s.now()
	})
	select {
	case <-ctx.Done():
		return telemetry.Frame{}, ctx.Err()
	case <-s.ticker.C:
		return telemetry.Frame{SimTime: s.now().Sub(s.start)}, nil
	}
}

// Close stops the ticker.
func (s *IdleSource) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}
