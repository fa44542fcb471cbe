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

// Simulator for a rotary encoder knob

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aamcrae/rotary/encoder"
	"github.com/aamcrae/rotary/io"
	"github.com/aamcrae/rotary/knob"
)

// Line levels {CLK, DT} for each quarter step of a clockwise rotation,
// starting at the detent.
var phases = [4][2]int{{1, 1}, {1, 0}, {0, 0}, {0, 1}}

var turns = flag.String("turns", "5,-3,12,-20", "Comma separated detent counts to turn (negative is counter-clockwise)")
var minValue = flag.Int("min", 0, "Minimum value")
var maxValue = flag.Int("max", 10, "Maximum value")
var mode = flag.String("mode", "wrap", "Range mode (unbounded, wrap, bounded)")
var reverse = flag.Bool("reverse", false, "Reverse the direction")
var bounce = flag.Int("bounce", 2, "Contact bounces on every transition")
var delay = flag.Duration("delay", 2*time.Millisecond, "Delay between line transitions")
var port = flag.Int("port", 0, "Dial server port number (0 disables)")

// Shaft is a simulated encoder shaft driving the CLK and DT lines.
type Shaft struct {
	clk, dt *io.SimLine
	phase   int
	bounce  int
	delay   time.Duration
}

func main() {
	flag.Parse()
	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Logger: %v", err)
	}
	defer zl.Sync()
	lg := zl.Sugar()

	moves, err := parseTurns(*turns)
	if err != nil {
		lg.Fatalw("Bad turns", "turns", *turns, "error", err)
	}
	m, err := encoder.ParseMode(*mode)
	if err != nil {
		lg.Fatalw("Bad mode", "error", err)
	}
	s := &Shaft{
		clk:    io.NewSimLine(1),
		dt:     io.NewSimLine(1),
		bounce: *bounce,
		delay:  *delay,
	}
	src, err := io.NewSource(s.clk, s.dt, lg)
	if err != nil {
		lg.Fatalw("Source", "error", err)
	}
	d, err := encoder.New(src, encoder.WithBounds(*minValue, *maxValue), encoder.WithRange(m), encoder.WithReverse(*reverse))
	if err != nil {
		lg.Fatalw("Decoder", "error", err)
	}
	defer d.Close()
	d.AddListener(func() {
		fmt.Printf("value %d\n", d.Value())
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func() { d.Process() })
	}()
	if *port > 0 {
		ds := knob.NewDialServer(lg)
		ds.Add("sim", d)
		go func() {
			if err := ds.ListenAndServe(*port); err != nil {
				lg.Errorw("Dial server", "error", err)
			}
		}()
	}
	for _, n := range moves {
		fmt.Printf("turn %d\n", n)
		s.Turn(n)
	}
	lg.Infow("Simulation complete", "value", d.Value(), "edges", atomic.LoadUint64(&src.Edges), "dropped", atomic.LoadUint64(&src.Dropped))
	if *port > 0 {
		// Keep serving the dial until interrupted.
		<-ctx.Done()
	}
	stop()
	if err := <-done; err != nil {
		lg.Errorw("Source failed", "error", err)
	}
}

// Turn rotates the shaft by n detents.
func (s *Shaft) Turn(n int) {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for i := 0; i < n*len(phases); i++ {
		s.move(step)
	}
}

// move steps the shaft one quarter step, bouncing the line that changes.
func (s *Shaft) move(step int) {
	from := phases[s.phase]
	s.phase = (s.phase + step + len(phases)) % len(phases)
	to := phases[s.phase]
	l, v := s.clk, to[0]
	if from[1] != to[1] {
		l, v = s.dt, to[1]
	}
	for b := 0; b < s.bounce; b++ {
		l.Set(v)
		time.Sleep(s.delay)
		l.Set(v ^ 1)
		time.Sleep(s.delay)
	}
	l.Set(v)
	time.Sleep(s.delay)
}

func parseTurns(s string) ([]int, error) {
	var moves []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		moves = append(moves, n)
	}
	return moves, nil
}
