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
	"fmt"
	"strings"
)

// Mode selects how a step is applied to the encoder value.
type Mode int

const (
	Unbounded Mode = iota + 1 // No limits
	Wrap                      // Wrap around between min and max
	Bounded                   // Saturate at min and max
)

var modeNames = map[Mode]string{
	Unbounded: "unbounded",
	Wrap:      "wrap",
	Bounded:   "bounded",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) valid() bool {
	return m >= Unbounded && m <= Bounded
}

// ParseMode converts a mode name (as returned by String) to a Mode.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown range mode %q", ErrInvalidConfig, s)
}

// apply returns the value after a step of incr.
func (m Mode) apply(value, incr, min, max int) int {
	switch m {
	case Wrap:
		return wrap(value, incr, min, max)
	case Bounded:
		return bound(value, incr, min, max)
	}
	return value + incr
}

// wrap uses a floored modulo so that negative steps wrap from min to max.
// The offsets are kept in [0, span) as unsigned values so that no
// intermediate result overflows, even for a span close to MaxInt.
func wrap(value, incr, min, max int) int {
	span := max - min + 1
	us := uint(span)
	off := (floorMod(value, span) + us - floorMod(min, span)) % us
	off = (off + floorMod(incr, span)) % us
	return min + int(off)
}

// floorMod returns x mod n in [0, n). n must be positive.
func floorMod(x, n int) uint {
	r := x % n
	if r < 0 {
		r += n
	}
	return uint(r)
}

// bound saturates at min and max. The distance to the limit is
// checked before adding, so a step never overflows past it.
func bound(value, incr, min, max int) int {
	switch {
	case incr > 0 && (value >= max || uint(max)-uint(value) <= uint(incr)):
		return max
	case incr < 0 && (value <= min || uint(value)-uint(min) <= uint(-incr)):
		return min
	}
	value += incr
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
