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
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/aamcrae/rotary/encoder"
	"github.com/aamcrae/rotary/io"
)

var _ = Describe("Source", func() {
	var (
		clk, dt *io.SimLine
		src     *io.Source
		ctx     context.Context
		cancel  context.CancelFunc
		done    chan error
		mu      sync.Mutex
		seen    [][2]int
	)

	handler := func() {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, [2]int{src.CLK(), src.DT()})
	}
	edges := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(seen)
	}
	// drive sets one line and waits for the edge to be handled.
	drive := func(l *io.SimLine, v int) {
		before := atomic.LoadUint64(&src.Edges) + atomic.LoadUint64(&src.Dropped)
		Expect(l.Set(v)).To(Succeed())
		Eventually(func() uint64 {
			return atomic.LoadUint64(&src.Edges) + atomic.LoadUint64(&src.Dropped)
		}).Should(Equal(before + 1))
	}

	BeforeEach(func() {
		var err error
		clk = io.NewSimLine(1)
		dt = io.NewSimLine(1)
		src, err = io.NewSource(clk, dt, zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
		seen = nil
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
	})

	AfterEach(func() {
		cancel()
		src.Close()
	})

	start := func(h func()) {
		go func() {
			done <- src.Run(ctx, h)
		}()
	}

	It("reads the initial levels", func() {
		Expect(src.CLK()).To(Equal(1))
		Expect(src.DT()).To(Equal(1))
	})

	It("delivers each edge with both levels", func() {
		start(handler)
		drive(clk, 0)
		drive(dt, 0)
		drive(clk, 1)
		drive(dt, 1)
		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(Equal([][2]int{{0, 1}, {0, 0}, {1, 0}, {1, 1}}))
	})

	It("drives a decoder", func() {
		d, err := encoder.New(src, encoder.WithBounds(0, 3), encoder.WithRange(encoder.Wrap))
		Expect(err).ToNot(HaveOccurred())
		start(func() { d.Process() })
		// Two clockwise detents.
		for i := 0; i < 2; i++ {
			drive(dt, 0)
			drive(clk, 0)
			drive(dt, 1)
			drive(clk, 1)
		}
		Expect(d.Value()).To(Equal(2))
		// One counter-clockwise.
		drive(clk, 0)
		drive(dt, 0)
		drive(clk, 1)
		drive(dt, 1)
		Expect(d.Value()).To(Equal(1))
	})

	It("drops edges while disabled", func() {
		start(handler)
		Expect(src.Enabled()).To(BeTrue())
		src.Disable()
		Expect(src.Enabled()).To(BeFalse())
		drive(clk, 0)
		Expect(edges()).To(Equal(0))
		Expect(atomic.LoadUint64(&src.Dropped)).To(Equal(uint64(1)))
		// The level is still tracked.
		Expect(src.CLK()).To(Equal(0))
		src.Enable()
		Expect(src.Enabled()).To(BeTrue())
		drive(dt, 0)
		Expect(edges()).To(Equal(1))
	})

	It("stops when the context is cancelled", func() {
		start(handler)
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("returns an error when a line fails", func() {
		start(handler)
		Expect(clk.Close()).To(Succeed())
		var err error
		Eventually(done).Should(Receive(&err))
		Expect(err).To(MatchError(io.ErrClosed))
		Expect(err.Error()).To(HavePrefix("clk:"))
	})

	It("stays disabled when a closed decoder is reconfigured", func() {
		d, err := encoder.New(src)
		Expect(err).ToNot(HaveOccurred())
		src.Disable()
		Expect(d.Set(encoder.WithValue(2))).To(Succeed())
		Expect(src.Enabled()).To(BeFalse())
		src.Enable()
		Expect(d.Close()).To(Succeed())
		Expect(d.Set(encoder.WithValue(3))).To(MatchError(encoder.ErrClosed))
		Expect(src.Enabled()).To(BeFalse())
	})

	It("closes the lines", func() {
		Expect(src.Close()).To(Succeed())
		Expect(clk.Set(0)).To(MatchError(io.ErrClosed))
		Expect(dt.Set(0)).To(MatchError(io.ErrClosed))
	})
})

var _ = Describe("SimLine", func() {
	It("ignores a write of the current level", func() {
		l := io.NewSimLine(0)
		Expect(l.Set(0)).To(Succeed())
		_, err := l.Wait(10 * time.Millisecond)
		Expect(err).To(MatchError(io.ErrTimeout))
	})

	It("delivers edges in order", func() {
		l := io.NewSimLine(0)
		for _, v := range []int{1, 0, 1} {
			Expect(l.Set(v)).To(Succeed())
		}
		for _, v := range []int{1, 0, 1} {
			Expect(l.Wait(time.Second)).To(Equal(v))
		}
		Expect(l.Read()).To(Equal(1))
	})
})
