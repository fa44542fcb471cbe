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

// Package knob combines the GPIO inputs of a rotary encoder, the
// decoder and optional outputs into a knob built from a config file.

package knob

import (
	"context"
	"fmt"

	gpio "github.com/aamcrae/gpio"
	"go.uber.org/zap"

	"github.com/aamcrae/rotary/encoder"
	"github.com/aamcrae/rotary/io"
)

// Knob is a rotary encoder with its I/O.
// The value is held in the Decoder; listeners may be added to it
// directly, or Changed may be used to wait for changes.
type Knob struct {
	Name    string
	Config  *Config
	Decoder *encoder.Decoder
	source  *io.Source
	power   *gpio.Gpio // Encoder power, if used
	pwmPin  *gpio.Gpio // Output for s/w PWM
	pwm     io.PWM
	changed chan struct{}
	log     *zap.SugaredLogger
}

// New opens the I/O for the knob and creates the decoder.
func New(c *Config, log *zap.SugaredLogger) (*Knob, error) {
	clk, err := io.EdgePin(c.Clk)
	if err != nil {
		return nil, fmt.Errorf("%s: clk pin %d: %w", c.Name, c.Clk, err)
	}
	dt, err := io.EdgePin(c.Dt)
	if err != nil {
		clk.Close()
		return nil, fmt.Errorf("%s: dt pin %d: %w", c.Name, c.Dt, err)
	}
	k, err := newKnob(c, clk, dt, log)
	if err != nil {
		clk.Close()
		dt.Close()
		return nil, err
	}
	if c.Power >= 0 {
		if k.power, err = gpio.OutputPin(c.Power); err == nil {
			err = k.power.Set(1)
		}
		if err != nil {
			k.Close()
			return nil, fmt.Errorf("%s: power pin %d: %w", c.Name, c.Power, err)
		}
		log.Infow("Encoder powered", "knob", c.Name, "gpio", c.Power)
	}
	if c.PWM >= 0 {
		if k.pwmPin, err = gpio.OutputPin(c.PWM); err != nil {
			k.Close()
			return nil, fmt.Errorf("%s: pwm pin %d: %w", c.Name, c.PWM, err)
		}
		k.pwm = io.NewSwPWM(k.pwmPin)
	} else if c.HwPWM >= 0 {
		if k.pwm, err = io.NewHwPWM(c.HwPWM); err != nil {
			k.Close()
			return nil, fmt.Errorf("%s: pwm unit %d: %w", c.Name, c.HwPWM, err)
		}
	}
	k.updatePWM()
	return k, nil
}

// newKnob builds the knob from the encoder input lines.
func newKnob(c *Config, clk, dt io.Line, log *zap.SugaredLogger) (*Knob, error) {
	k := new(Knob)
	k.Name = c.Name
	k.Config = c
	k.log = log.With("knob", c.Name)
	k.changed = make(chan struct{}, 1)
	var err error
	if k.source, err = io.NewSource(clk, dt, k.log); err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	if k.Decoder, err = encoder.New(k.source, c.Options()...); err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	k.Decoder.AddListener(k.onChange)
	min, max, mode := k.Decoder.Range()
	k.log.Infow("Knob ready", "clk", c.Clk, "dt", c.Dt, "min", min, "max", max, "mode", mode)
	return k, nil
}

// Run processes encoder edges until ctx is cancelled.
func (k *Knob) Run(ctx context.Context) error {
	return k.source.Run(ctx, func() { k.Decoder.Process() })
}

// Changed returns a channel that receives after the value changes.
// Changes that occur before the previous one is received are merged.
func (k *Knob) Changed() <-chan struct{} {
	return k.changed
}

// Value returns the current value of the knob.
func (k *Knob) Value() int {
	return k.Decoder.Value()
}

// Duty returns the value as a percentage of the range.
// Unbounded knobs are clamped to the range.
func (k *Knob) Duty() int {
	min, max, _ := k.Decoder.Range()
	return duty(k.Decoder.Value(), min, max)
}

func duty(v, min, max int) int {
	if v <= min {
		return 0
	}
	if v >= max {
		return 100
	}
	return (v - min) * 100 / (max - min)
}

// Close shuts down the knob and releases the resources.
func (k *Knob) Close() {
	if err := k.Decoder.Close(); err != nil {
		k.log.Warnw("Closing inputs", "error", err)
	}
	if k.pwm != nil {
		k.pwm.Close()
	}
	if k.pwmPin != nil {
		k.pwmPin.Close()
	}
	if k.power != nil {
		k.power.Set(0)
		k.power.Close()
	}
}

// onChange is the decoder listener.
func (k *Knob) onChange() {
	select {
	case k.changed <- struct{}{}:
	default:
	}
	k.updatePWM()
}

func (k *Knob) updatePWM() {
	if k.pwm == nil {
		return
	}
	if err := k.pwm.Set(k.Config.Period, k.Duty()); err != nil {
		k.log.Errorw("PWM update failed", "error", err)
	}
}
