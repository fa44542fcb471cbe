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
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/aamcrae/rotary/encoder"
	"github.com/aamcrae/rotary/io"
)

// fakePWM records the last duty cycle set.
type fakePWM struct {
	mu     sync.Mutex
	period time.Duration
	duty   int
	closed bool
}

func (p *fakePWM) Set(period time.Duration, duty int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.period = period
	p.duty = duty
	return nil
}

func (p *fakePWM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePWM) get() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

var _ = Describe("Knob", func() {
	var (
		clk, dt *io.SimLine
		k       *Knob
		cancel  context.CancelFunc
		done    chan error
	)

	// turn moves the encoder one detent, waiting for each edge to be processed.
	turn := func(clockwise bool) {
		first, second := dt, clk
		if !clockwise {
			first, second = clk, dt
		}
		for _, step := range []struct {
			l *io.SimLine
			v int
		}{{first, 0}, {second, 0}, {first, 1}, {second, 1}} {
			Expect(step.l.Set(step.v)).To(Succeed())
			want := step.v
			if step.l == clk {
				Eventually(k.source.CLK).Should(Equal(want))
			} else {
				Eventually(k.source.DT).Should(Equal(want))
			}
		}
	}

	BeforeEach(func() {
		clk = io.NewSimLine(1)
		dt = io.NewSimLine(1)
		c, err := parse("volume", args{"pins": "4,5", "range": "0,4,bounded"})
		Expect(err).ToNot(HaveOccurred())
		k, err = newKnob(c, clk, dt, zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() {
			done <- k.Run(ctx)
		}()
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
		k.Close()
	})

	It("follows the encoder", func() {
		Expect(k.Value()).To(Equal(0))
		turn(true)
		turn(true)
		Eventually(k.Value).Should(Equal(2))
		turn(false)
		Eventually(k.Value).Should(Equal(1))
	})

	It("signals changes", func() {
		Expect(k.Changed()).ToNot(Receive())
		turn(true)
		Eventually(k.Changed()).Should(Receive())
	})

	It("merges pending changes", func() {
		k.onChange()
		k.onChange()
		Expect(k.Changed()).To(Receive())
		Expect(k.Changed()).ToNot(Receive())
	})

	It("does not signal saturated steps", func() {
		turn(false)
		Consistently(k.Changed(), 50*time.Millisecond).ShouldNot(Receive())
		Expect(k.Value()).To(Equal(0))
	})

	It("updates the PWM duty cycle", func() {
		pwm := new(fakePWM)
		k.pwm = pwm
		for i := 0; i < 3; i++ {
			turn(true)
		}
		Eventually(pwm.get).Should(Equal(75))
		turn(true)
		Eventually(pwm.get).Should(Equal(100))
	})

	It("can be reconfigured while running", func() {
		Expect(k.Decoder.Set(encoder.WithBounds(0, 1), encoder.WithRange(encoder.Wrap))).To(Succeed())
		turn(true)
		turn(true)
		Eventually(k.Value).Should(Equal(0))
		Expect(k.Duty()).To(Equal(0))
	})
})

var _ = Describe("duty", func() {
	DescribeTable("scales the value to a percentage",
		func(v, min, max, want int) {
			Expect(duty(v, min, max)).To(Equal(want))
		},
		Entry("min", 0, 0, 10, 0),
		Entry("max", 10, 0, 10, 100),
		Entry("middle", 5, 0, 10, 50),
		Entry("below", -3, 0, 10, 0),
		Entry("above", 30, 0, 10, 100),
		Entry("offset", 15, 10, 20, 50),
		Entry("empty range", 3, 3, 3, 0),
	)
})
