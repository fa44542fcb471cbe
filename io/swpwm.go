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
	"fmt"
	"sync"
	"time"
)

// PWM is a pulse width modulated output.
type PWM interface {
	Set(period time.Duration, duty int) error
	Close() error
}

// Output is held low for this long when no period is set.
const idlePeriod = 5 * time.Millisecond

// SwPWM is a software PWM driving a GPIO output from a goroutine.
type SwPWM struct {
	pin     Setter
	mu      sync.Mutex // Guards on and off
	on, off time.Duration
	stop    chan struct{}
	done    chan struct{}
}

// NewSwPWM creates a new s/w PWM controller. The output is
// low until Set is called.
func NewSwPWM(pin Setter) *SwPWM {
	p := new(SwPWM)
	p.pin = pin
	p.off = idlePeriod
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.handler()
	return p
}

// Set sets the PWM period and the duty cycle as a percentage.
// The change takes effect at the end of the current period, and
// Set never blocks on the output.
func (p *SwPWM) Set(period time.Duration, duty int) error {
	if duty < 0 || duty > 100 {
		return fmt.Errorf("%d: invalid duty cycle percentage", duty)
	}
	if period <= 0 {
		return fmt.Errorf("%s: invalid period", period)
	}
	on := period * time.Duration(duty) / 100
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = on
	p.off = period - on
	return nil
}

// Close stops the PWM and sets the output low.
func (p *SwPWM) Close() error {
	close(p.stop)
	<-p.done
	return p.pin.Set(0)
}

func (p *SwPWM) handler() {
	defer close(p.done)
	t := time.NewTimer(idlePeriod)
	defer t.Stop()
	current := -1
	output := func(v int) {
		if current != v {
			p.pin.Set(v)
			current = v
		}
	}
	output(0)
	for {
		p.mu.Lock()
		on, off := p.on, p.off
		p.mu.Unlock()
		for _, phase := range []struct {
			v int
			d time.Duration
		}{{1, on}, {0, off}} {
			if phase.d == 0 {
				continue
			}
			output(phase.v)
			if !sleep(t, phase.d, p.stop) {
				return
			}
		}
	}
}

// sleep waits for d using t, returning false if stop is closed first.
func sleep(t *time.Timer, d time.Duration, stop <-chan struct{}) bool {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
