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
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by a SimLine after it has been closed.
var ErrClosed = errors.New("line closed")

// SimLine is a simulated input line. Levels written with Set are
// delivered to Wait in order, so no edges are lost.
type SimLine struct {
	send   sync.Mutex // Keeps edges in order
	mu     sync.Mutex
	level  int
	edges  chan int
	done   chan struct{}
	closed bool
}

// NewSimLine creates a simulated line with an initial level.
func NewSimLine(level int) *SimLine {
	return &SimLine{
		level: level,
		edges: make(chan int, 64),
		done:  make(chan struct{}),
	}
}

// Set changes the level of the line. Setting the current
// level again is not an edge, and is ignored.
func (l *SimLine) Set(v int) error {
	l.send.Lock()
	defer l.send.Unlock()
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if v == l.level {
		l.mu.Unlock()
		return nil
	}
	l.level = v
	l.mu.Unlock()
	select {
	case l.edges <- v:
	case <-l.done:
		return ErrClosed
	}
	return nil
}

// Read returns the current level.
func (l *SimLine) Read() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, nil
}

// Wait returns the level after the next edge.
func (l *SimLine) Wait(timeout time.Duration) (int, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case v := <-l.edges:
		return v, nil
	case <-l.done:
		return 0, ErrClosed
	case <-t.C:
		return 0, ErrTimeout
	}
}

// Close closes the line.
func (l *SimLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}
