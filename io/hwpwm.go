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
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	pwmBaseDir      = "/sys/class/pwm/pwmchip0/"
	pwmExportFile   = pwmBaseDir + "export"
	pwmUnexportFile = pwmBaseDir + "unexport"
)

// HwPWM is a PWM unit controlled through sysfs.
type HwPWM struct {
	unit   int
	base   string
	mu     sync.Mutex
	pFile  *os.File
	dFile  *os.File
	period int64 // nanoseconds
	duty   int64 // nanoseconds
}

// NewHwPWM creates a new hardware PWM controller, initially at 0% duty.
func NewHwPWM(unit int) (*HwPWM, error) {
	p := new(HwPWM)
	p.unit = unit
	p.base = fmt.Sprintf("%spwm%d/", pwmBaseDir, unit)
	p.period = -1
	p.duty = -1
	if err := export(p.base+"period", pwmExportFile, unit); err != nil {
		return nil, err
	}
	var err error
	if p.pFile, err = os.OpenFile(p.base+"period", os.O_RDWR, 0600); err != nil {
		p.release()
		return nil, err
	}
	if err = verifyFile(p.base + "duty_cycle"); err == nil {
		p.dFile, err = os.OpenFile(p.base+"duty_cycle", os.O_RDWR, 0600)
	}
	if err == nil {
		err = p.Set(idlePeriod, 0)
	}
	if err == nil {
		err = writeFile(p.base+"enable", "1")
	}
	if err != nil {
		p.release()
		return nil, err
	}
	return p, nil
}

// Close disables the PWM output and unexports the unit.
func (p *HwPWM) Close() error {
	err := writeFile(p.base+"enable", "0")
	p.release()
	return err
}

func (p *HwPWM) release() {
	if p.pFile != nil {
		p.pFile.Close()
	}
	if p.dFile != nil {
		p.dFile.Close()
	}
	unexport(pwmUnexportFile, p.unit)
}

// Set sets the PWM period and the duty cycle as a percentage.
func (p *HwPWM) Set(period time.Duration, duty int) error {
	if duty < 0 || duty > 100 {
		return fmt.Errorf("pwm%d: %d: invalid duty cycle percentage", p.unit, duty)
	}
	pNano := period.Nanoseconds()
	if pNano < 15 {
		return fmt.Errorf("pwm%d: %s: invalid period", p.unit, period)
	}
	dNano := pNano * int64(duty) / 100
	p.mu.Lock()
	defer p.mu.Unlock()
	// The duty cycle must never exceed the period, so the order
	// of the writes depends on which way the period is moving.
	var err error
	if dNano > p.period {
		err = p.write(p.pFile, &p.period, pNano)
		if err == nil {
			err = p.write(p.dFile, &p.duty, dNano)
		}
	} else {
		err = p.write(p.dFile, &p.duty, dNano)
		if err == nil {
			err = p.write(p.pFile, &p.period, pNano)
		}
	}
	return err
}

// write updates a sysfs value file if the value has changed.
func (p *HwPWM) write(f *os.File, cur *int64, v int64) error {
	if *cur == v {
		return nil
	}
	if _, err := f.WriteAt([]byte(strconv.FormatInt(v, 10)), 0); err != nil {
		return fmt.Errorf("pwm%d: %w", p.unit, err)
	}
	*cur = v
	return nil
}
