// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package io

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Line is an input that can wait for a change of level.
type Line interface {
	Read() (int, error)
	Wait(time.Duration) (int, error)
	Close() error
}

// How often the edge goroutines check for cancellation.
const pollInterval = 100 * time.Millisecond

const (
	clkLine = iota
	dtLine
)

var lineNames = [...]string{"clk", "dt"}

// Source delivers edges from the CLK and DT lines of an encoder.
// Each line is serviced by its own goroutine; the latest level of
// each line is cached so that the handler can read both levels.
// Calls to the handler are serialised.
type Source struct {
	Edges   uint64 // Edges delivered, accessed atomically
	Dropped uint64 // Edges seen while disabled, accessed atomically
	lines   [2]Line
	levels  [2]int32 // accessed atomically
	enabled int32    // accessed atomically
	mu      sync.Mutex
	log     *zap.SugaredLogger
}

// NewSource creates a Source from the CLK and DT lines, reading
// their initial levels. Delivery is initially enabled.
func NewSource(clk, dt Line, log *zap.SugaredLogger) (*Source, error) {
	s := new(Source)
	s.lines = [2]Line{clk, dt}
	s.log = log
	for i, l := range s.lines {
		v, err := l.Read()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lineNames[i], err)
		}
		s.levels[i] = int32(v)
	}
	s.enabled = 1
	return s, nil
}

// CLK returns the last level seen on the CLK line.
func (s *Source) CLK() int {
	return int(atomic.LoadInt32(&s.levels[clkLine]))
}

// DT returns the last level seen on the DT line.
func (s *Source) DT() int {
	return int(atomic.LoadInt32(&s.levels[dtLine]))
}

// Enable resumes edge delivery.
func (s *Source) Enable() {
	atomic.StoreInt32(&s.enabled, 1)
}

// Disable stops edge delivery. Edges seen while disabled still
// update the cached levels but the handler is not called.
func (s *Source) Disable() {
	atomic.StoreInt32(&s.enabled, 0)
}

// Enabled reports whether edges are being delivered.
func (s *Source) Enabled() bool {
	return atomic.LoadInt32(&s.enabled) != 0
}

// Run calls h for every edge on either line until ctx is cancelled
// or a line fails. h reads the levels via CLK and DT.
func (s *Source) Run(ctx context.Context, h func()) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range s.lines {
		i := i
		g.Go(func() error {
			return s.watch(ctx, i, h)
		})
	}
	return g.Wait()
}

// Close disables delivery and closes both lines.
func (s *Source) Close() error {
	s.Disable()
	var errs []error
	for i, l := range s.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", lineNames[i], err))
		}
	}
	return errors.Join(errs...)
}

func (s *Source) watch(ctx context.Context, line int, h func()) error {
	for ctx.Err() == nil {
		v, err := s.lines[line].Wait(pollInterval)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			s.log.Errorw("Edge wait failed", "line", lineNames[line], "error", err)
			return fmt.Errorf("%s: %w", lineNames[line], err)
		}
		s.deliver(line, v, h)
	}
	return nil
}

func (s *Source) deliver(line, v int, h func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	atomic.StoreInt32(&s.levels[line], int32(v))
	if atomic.LoadInt32(&s.enabled) == 0 {
		atomic.AddUint64(&s.Dropped, 1)
		return
	}
	atomic.AddUint64(&s.Edges, 1)
	h()
}
