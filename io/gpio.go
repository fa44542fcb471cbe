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
	"time"

	"golang.org/x/sys/unix"
)

// Edge
const (
	NONE = iota // Default
	RISING
	FALLING
	BOTH
)

var edgeNames = []string{"none", "rising", "falling", "both"}

const (
	baseDir      = "/sys/class/gpio/"
	exportFile   = baseDir + "export"
	unexportFile = baseDir + "unexport"
)

// Gpio is an input GPIO pin, optionally with edge detection.
type Gpio struct {
	number int
	value  *os.File
	buf    []byte
	edge   int
	pollfd []unix.PollFd
}

// Pin opens a GPIO pin as an input.
func Pin(gpio int) (*Gpio, error) {
	g := new(Gpio)
	g.number = gpio
	g.buf = make([]byte, 1)
	dir := fmt.Sprintf("%sgpio%d", baseDir, gpio)
	if err := export(dir+"/value", exportFile, gpio); err != nil {
		return nil, err
	}
	if err := writeFile(dir+"/direction", "in"); err != nil {
		unexport(unexportFile, gpio)
		return nil, err
	}
	if err := g.Edge(NONE); err != nil {
		unexport(unexportFile, gpio)
		return nil, err
	}
	var err error
	g.value, err = os.OpenFile(dir+"/value", os.O_RDONLY, 0600)
	if err != nil {
		unexport(unexportFile, gpio)
		return nil, err
	}
	g.pollfd = []unix.PollFd{{Fd: int32(g.value.Fd()), Events: unix.POLLPRI | unix.POLLERR}}
	return g, nil
}

// EdgePin opens a GPIO input that reports both rising and falling edges.
func EdgePin(gpio int) (*Gpio, error) {
	g, err := Pin(gpio)
	if err != nil {
		return nil, err
	}
	if err := g.Edge(BOTH); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// Edge sets the edge detection on the GPIO pin.
func (g *Gpio) Edge(e int) error {
	if e < NONE || e > BOTH {
		return fmt.Errorf("gpio%d: unknown edge %d", g.number, e)
	}
	err := writeFile(fmt.Sprintf("%sgpio%d/edge", baseDir, g.number), edgeNames[e])
	if err == nil {
		g.edge = e
	}
	return err
}

// Read returns the current value of the GPIO pin without waiting.
func (g *Gpio) Read() (int, error) {
	if _, err := g.value.ReadAt(g.buf, 0); err != nil {
		return 0, err
	}
	switch g.buf[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, fmt.Errorf("gpio%d: unknown value %q", g.number, g.buf)
}

// Wait waits up to timeout for an edge and returns the new value
// of the pin. ErrTimeout is returned if no edge occurs.
// Pins without edge detection return the current value immediately.
func (g *Gpio) Wait(timeout time.Duration) (int, error) {
	if g.edge != NONE {
		g.pollfd[0].Revents = 0
		n, err := unix.Poll(g.pollfd, int(timeout.Milliseconds()))
		if err == unix.EINTR {
			return 0, ErrTimeout
		}
		if err != nil {
			return 0, fmt.Errorf("gpio%d: poll: %w", g.number, err)
		}
		if n == 0 {
			return 0, ErrTimeout
		}
	}
	return g.Read()
}

// Close closes the GPIO pin and unexports it.
func (g *Gpio) Close() error {
	g.Edge(NONE)
	err := g.value.Close()
	unexport(unexportFile, g.number)
	return err
}
