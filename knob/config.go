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

package knob

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aamcrae/config"

	"github.com/aamcrae/rotary/encoder"
)

const defaultPeriod = 10 * time.Millisecond

// Config holds the configuration of a knob, read from a configuration file.
// GPIO and PWM unit numbers are -1 when not used.
type Config struct {
	Name     string
	Clk, Dt  int
	Min, Max int
	Mode     encoder.Mode
	Reverse  bool
	Incr     int
	HalfStep bool
	Invert   bool
	Power    int           // GPIO driven high to power the encoder
	PWM      int           // GPIO for a software PWM output
	HwPWM    int           // Hardware PWM unit
	Period   time.Duration // PWM period
}

// section is the part of a config section used for parsing.
type section interface {
	GetArg(string) (string, error)
}

// Parse reads and validates a knob config from a config file section.
// Sample config:
//  [volume]
//  pins=17,27            # GPIOs for CLK and DT
//  range=0,100,bounded   # min, max and range mode (unbounded, wrap, bounded)
//  reverse=false         # Reverse the direction
//  incr=1                # Value change per step
//  halfstep=false        # Count both rest positions of each cycle
//  invert=false          # Inputs are active low
//  power=22              # GPIO to power the encoder
//  pwm=18,10ms           # GPIO and period of a s/w PWM output showing the value
//  hwpwm=0,1ms           # Hardware PWM unit and period, instead of pwm
// Only pins is required.
func Parse(conf *config.Config, name string) (*Config, error) {
	s := conf.GetSection(name)
	if s == nil {
		return nil, fmt.Errorf("no config for %s", name)
	}
	return parse(name, s)
}

func parse(name string, s section) (*Config, error) {
	c := &Config{
		Name:   name,
		Min:    0,
		Max:    10,
		Mode:   encoder.Unbounded,
		Incr:   1,
		Power:  -1,
		PWM:    -1,
		HwPWM:  -1,
		Period: defaultPeriod,
	}
	p, err := s.GetArg("pins")
	if err != nil {
		return nil, fmt.Errorf("%s: pins: %v", name, err)
	}
	n, err := fmt.Sscanf(p, "%d,%d", &c.Clk, &c.Dt)
	if err != nil || n != 2 {
		return nil, fmt.Errorf("%s: pins: invalid arguments %q", name, p)
	}
	if r, ok := arg(s, "range"); ok {
		if err := c.parseRange(r); err != nil {
			return nil, fmt.Errorf("%s: range: %v", name, err)
		}
	}
	for key, b := range map[string]*bool{"reverse": &c.Reverse, "halfstep": &c.HalfStep, "invert": &c.Invert} {
		if v, ok := arg(s, key); ok {
			if *b, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("%s: %s: %v", name, key, err)
			}
		}
	}
	for key, i := range map[string]*int{"incr": &c.Incr, "power": &c.Power} {
		if v, ok := arg(s, key); ok {
			if *i, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("%s: %s: %v", name, key, err)
			}
		}
	}
	if v, ok := arg(s, "pwm"); ok {
		if c.PWM, c.Period, err = unitPeriod(v); err != nil {
			return nil, fmt.Errorf("%s: pwm: %v", name, err)
		}
	}
	if v, ok := arg(s, "hwpwm"); ok {
		if c.PWM >= 0 {
			return nil, fmt.Errorf("%s: only one of pwm and hwpwm allowed", name)
		}
		if c.HwPWM, c.Period, err = unitPeriod(v); err != nil {
			return nil, fmt.Errorf("%s: hwpwm: %v", name, err)
		}
	}
	// Check the encoder options now rather than when the knob is opened.
	if _, err := encoder.New(nil, c.Options()...); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Options returns the decoder options for this knob.
func (c *Config) Options() []encoder.Option {
	return []encoder.Option{
		encoder.WithBounds(c.Min, c.Max),
		encoder.WithRange(c.Mode),
		encoder.WithReverse(c.Reverse),
		encoder.WithIncrement(c.Incr),
		encoder.WithHalfStep(c.HalfStep),
		encoder.WithInvert(c.Invert),
	}
}

// parseRange parses "min,max" or "min,max,mode".
func (c *Config) parseRange(r string) error {
	f := strings.Split(r, ",")
	if len(f) != 2 && len(f) != 3 {
		return fmt.Errorf("invalid arguments %q", r)
	}
	var err error
	if c.Min, err = strconv.Atoi(strings.TrimSpace(f[0])); err != nil {
		return err
	}
	if c.Max, err = strconv.Atoi(strings.TrimSpace(f[1])); err != nil {
		return err
	}
	if len(f) == 3 {
		c.Mode, err = encoder.ParseMode(f[2])
	}
	return err
}

func arg(s section, key string) (string, bool) {
	v, err := s.GetArg(key)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// unitPeriod parses "unit,period".
func unitPeriod(v string) (int, time.Duration, error) {
	f := strings.Split(v, ",")
	if len(f) != 2 {
		return -1, 0, fmt.Errorf("invalid arguments %q", v)
	}
	u, err := strconv.Atoi(strings.TrimSpace(f[0]))
	if err != nil {
		return -1, 0, err
	}
	p, err := time.ParseDuration(strings.TrimSpace(f[1]))
	if err != nil {
		return -1, 0, err
	}
	if p <= 0 {
		return -1, 0, fmt.Errorf("invalid period %s", p)
	}
	return u, p, nil
}
