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

// Package encoder decodes the quadrature signal of a rotary encoder
// into a value that is unbounded, wraps around or is bounded
// between a minimum and maximum.
package encoder

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// PinSource provides the levels of the encoder's CLK (A) and DT (B)
// lines, and control over the delivery of edge events.
// Edge delivery is disabled while the decoder is being reconfigured.
type PinSource interface {
	CLK() int
	DT() int
	Enable()
	Disable()
}

// ErrClosed is returned when a closed Decoder is reconfigured.
var ErrClosed = errors.New("decoder closed")

// enabledSource is a PinSource that reports whether delivery is enabled.
type enabledSource interface {
	Enabled() bool
}

// Decoder tracks the state of a rotary encoder.
// Edge is called each time either line changes level; the levels
// are passed through a state table that only reports a step once
// a full detent has been traversed, so no separate debounce is needed.
type Decoder struct {
	src       PinSource
	mu        sync.Mutex // Serialises edges and reconfiguration
	value     int64      // Current value, accessed atomically
	state     uint8
	table     *table
	s         settings
	listeners listeners
	closed    bool
}

// New creates a Decoder reading levels from src. The initial value is
// the minimum unless WithValue is supplied. src may be nil if
// levels are only ever passed via Edge.
func New(src PinSource, opts ...Option) (*Decoder, error) {
	o := options{settings: defaults}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	d := new(Decoder)
	d.src = src
	d.s = o.settings
	d.table = tableFor(o.half)
	d.state = rStart
	d.value = int64(o.min)
	if o.setValue {
		d.value = int64(o.value)
	}
	return d, nil
}

// Process reads the current line levels from the PinSource and
// processes them as an edge.
func (d *Decoder) Process() (int, bool) {
	return d.Edge(d.src.CLK(), d.src.DT())
}

// Edge advances the state machine using the CLK and DT levels (0 or 1).
// If a step changes the value, the listeners are called and the new
// value is returned with true. Otherwise the current value and false
// are returned.
func (d *Decoder) Edge(clk, dt int) (int, bool) {
	d.mu.Lock()
	code := uint8((clk&1)<<1 | dt&1)
	if d.s.invert {
		code = ^code & 0x03
	}
	next := d.table[d.state&stateMask][code]
	d.state = next & stateMask
	old := int(atomic.LoadInt64(&d.value))
	var incr int
	switch next & dirMask {
	case dirCW:
		incr = d.s.incr
	case dirCCW:
		incr = -d.s.incr
	default:
		d.mu.Unlock()
		return old, false
	}
	v := d.s.mode.apply(old, incr*d.s.sign, d.s.min, d.s.max)
	if v == old {
		// Absorbed by a bound.
		d.mu.Unlock()
		return old, false
	}
	atomic.StoreInt64(&d.value, int64(v))
	l := d.listeners
	d.mu.Unlock()
	l.notify()
	return v, true
}

// Value returns the current value. It is safe to call at any time.
func (d *Decoder) Value() int {
	return int(atomic.LoadInt64(&d.value))
}

// Range returns the current bounds and range mode.
func (d *Decoder) Range() (min, max int, mode Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.s.min, d.s.max, d.s.mode
}

// Set reconfigures the decoder. Only the parameters named by opts
// are changed, and none are changed if the result is invalid.
// If the value is not set and the new range excludes it, it is
// clamped to the range. The state machine is always reset, so a
// partially completed detent is discarded.
// Listeners are not called. ErrClosed is returned after Close.
func (d *Decoder) Set(opts ...Option) error {
	defer d.suspend()()
	if d.closed {
		return ErrClosed
	}
	o := options{settings: d.s}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return err
	}
	v := int(atomic.LoadInt64(&d.value))
	if o.setValue {
		v = o.value
	} else if o.mode != Unbounded {
		v = bound(v, 0, o.min, o.max)
	}
	d.s = o.settings
	d.table = tableFor(o.half)
	d.state = rStart
	atomic.StoreInt64(&d.value, int64(v))
	return nil
}

// Reset sets the value to 0, regardless of the bounds.
// Use Set(WithValue(n)) to set a value that respects the range.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	atomic.StoreInt64(&d.value, 0)
}

// AddListener adds a function to be called when the value changes.
// Listeners are called in the order they were added, and cannot be removed.
func (d *Decoder) AddListener(f Listener) {
	if f == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners.add(f)
}

// Close disables edge delivery and closes the PinSource if
// it implements io.Closer.
func (d *Decoder) Close() error {
	d.mu.Lock()
	d.closed = true
	if d.src != nil {
		d.src.Disable()
	}
	d.mu.Unlock()
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// suspend disables edge delivery and locks the decoder.
// The returned function reverses this, and must always be called.
// Delivery is only enabled again if it was enabled beforehand and
// the decoder is still open.
func (d *Decoder) suspend() func() {
	restore := d.src != nil
	if e, ok := d.src.(enabledSource); ok {
		restore = e.Enabled()
	}
	if d.src != nil {
		d.src.Disable()
	}
	d.mu.Lock()
	if d.closed {
		restore = false
	}
	return func() {
		if restore {
			d.src.Enable()
		}
		d.mu.Unlock()
	}
}
