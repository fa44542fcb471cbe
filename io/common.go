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

// Package io provides the platform side of a rotary encoder: sysfs
// GPIO inputs with edge detection, an edge source driving a decoder,
// and PWM outputs.

package io

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"golang.org/x/sys/unix"
)

// Setter is an interface for setting an output value on a GPIO
type Setter interface {
	Set(int) error
}

// ErrTimeout is returned when no edge is seen within the wait period.
var ErrTimeout = errors.New("timeout waiting for edge")

const verifyTimeout = 2 * time.Second

// Verify will enable waiting for exported files to become writable.
// This is necessary if the process is not running as root - udev
// changes the group permissions on the exported files, which
// takes some time to do.
var Verify = false

func init() {
	if u, err := user.Current(); err == nil && u.Uid != "0" {
		Verify = true
	}
}

// unexport writes a unit number to an unexport file.
func unexport(f string, g int) error {
	return writeFile(f, fmt.Sprintf("%d", g))
}

// export writes a unit number to an export file unless the
// file f is already accessible, and then optionally waits for f
// to become writable.
func export(f, expfile string, g int) error {
	if unix.Access(f, unix.W_OK|unix.R_OK) == nil {
		return nil
	}
	err := writeFile(expfile, fmt.Sprintf("%d", g))
	if err == nil && Verify {
		return verifyFile(f)
	}
	return err
}

func writeFile(fname, s string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(s))
	return err
}

// Wait for file to become writable.
func verifyFile(f string) error {
	sl := time.Millisecond
	for tout := time.Duration(0); tout < verifyTimeout; tout += sl {
		if unix.Access(f, unix.W_OK) == nil {
			return nil
		}
		time.Sleep(sl)
	}
	return fmt.Errorf("%s: not writable", f)
}
