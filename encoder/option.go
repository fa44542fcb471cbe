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

package encoder

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by all errors from New and Set
// that are caused by an invalid set of options.
var ErrInvalidConfig = errors.New("invalid configuration")

// settings holds the parameters that govern how steps are applied.
type settings struct {
	min, max int
	sign     int // -1 if reversed
	mode     Mode
	incr     int
	half     bool
	invert   bool
}

// Default settings, matching an encoder with no options.
var defaults = settings{
	min:  0,
	max:  10,
	sign: 1,
	mode: Unbounded,
	incr: 1,
}

type options struct {
	settings
	value    int
	setValue bool
}

// Option sets one decoder parameter. Options are applied in order,
// by New and by Set; parameters not named keep their current value.
type Option func(*options)

// WithValue sets the current value.
func WithValue(v int) Option {
	return func(o *options) {
		o.value = v
		o.setValue = true
	}
}

// WithMin sets the lower bound (inclusive).
func WithMin(min int) Option {
	return func(o *options) { o.min = min }
}

// WithMax sets the upper bound (inclusive).
func WithMax(max int) Option {
	return func(o *options) { o.max = max }
}

// WithBounds sets both bounds.
func WithBounds(min, max int) Option {
	return func(o *options) {
		o.min = min
		o.max = max
	}
}

// WithReverse inverts the direction of rotation.
func WithReverse(reverse bool) Option {
	return func(o *options) {
		o.sign = 1
		if reverse {
			o.sign = -1
		}
	}
}

// WithRange selects the range mode.
func WithRange(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithIncrement sets the amount the value changes on each step.
func WithIncrement(incr int) Option {
	return func(o *options) { o.incr = incr }
}

// WithHalfStep selects half step decoding, where the value
// changes twice for each quadrature cycle.
func WithHalfStep(half bool) Option {
	return func(o *options) { o.half = half }
}

// WithInvert inverts the CLK and DT input levels, for active low encoders.
func WithInvert(invert bool) Option {
	return func(o *options) { o.invert = invert }
}

func (o *options) validate() error {
	if !o.mode.valid() {
		return fmt.Errorf("%w: range mode %d", ErrInvalidConfig, int(o.mode))
	}
	if o.incr < 1 {
		return fmt.Errorf("%w: increment %d must be positive", ErrInvalidConfig, o.incr)
	}
	if o.min > o.max {
		return fmt.Errorf("%w: min %d greater than max %d", ErrInvalidConfig, o.min, o.max)
	}
	if o.mode == Unbounded {
		return nil
	}
	// A span that overflows shows up as zero or negative.
	if o.mode == Wrap && o.max-o.min+1 <= 0 {
		return fmt.Errorf("%w: range %d..%d too large to wrap", ErrInvalidConfig, o.min, o.max)
	}
	if o.setValue && (o.value < o.min || o.value > o.max) {
		return fmt.Errorf("%w: value %d outside %d..%d", ErrInvalidConfig, o.value, o.min, o.max)
	}
	return nil
}
