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

package io_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aamcrae/rotary/io"
)

// recorder is a Setter that counts the outputs written.
type recorder struct {
	mu     sync.Mutex
	counts [2]int
	last   int
}

func (r *recorder) Set(v int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[v]++
	r.last = v
	return nil
}

func (r *recorder) get() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[0], r.counts[1], r.last
}

var _ = Describe("SwPWM", func() {
	var (
		pin *recorder
		pwm *io.SwPWM
	)

	BeforeEach(func() {
		pin = new(recorder)
		pwm = io.NewSwPWM(pin)
	})

	It("holds the output low until set", func() {
		Consistently(func() int {
			_, high, _ := pin.get()
			return high
		}, 30*time.Millisecond).Should(BeZero())
		Expect(pwm.Close()).To(Succeed())
	})

	It("toggles the output", func() {
		Expect(pwm.Set(2*time.Millisecond, 50)).To(Succeed())
		Eventually(func() int {
			_, high, _ := pin.get()
			return high
		}).Should(BeNumerically(">=", 3))
		Expect(pwm.Close()).To(Succeed())
		_, _, last := pin.get()
		Expect(last).To(Equal(0))
	})

	It("rejects invalid settings", func() {
		Expect(pwm.Set(time.Millisecond, 101)).ToNot(Succeed())
		Expect(pwm.Set(time.Millisecond, -1)).ToNot(Succeed())
		Expect(pwm.Set(0, 50)).ToNot(Succeed())
		Expect(pwm.Close()).To(Succeed())
	})
})
