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

// Program to demonstrate how to watch the raw encoder inputs

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/aamcrae/rotary/io"
)

var clkPin = flag.Int("clk", 17, "GPIO pin for encoder CLK")
var dtPin = flag.Int("dt", 27, "GPIO pin for encoder DT")

func main() {
	flag.Parse()
	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Logger: %v", err)
	}
	defer zl.Sync()
	lg := zl.Sugar()
	clk, err := io.EdgePin(*clkPin)
	if err != nil {
		lg.Fatalw("CLK pin", "gpio", *clkPin, "error", err)
	}
	dt, err := io.EdgePin(*dtPin)
	if err != nil {
		lg.Fatalw("DT pin", "gpio", *dtPin, "error", err)
	}
	src, err := io.NewSource(clk, dt, lg)
	if err != nil {
		lg.Fatalw("Source", "error", err)
	}
	defer src.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	lg.Infow("Watching", "clk", src.CLK(), "dt", src.DT())
	err = src.Run(ctx, func() {
		code := src.CLK()<<1 | src.DT()
		lg.Infow("Edge", "clk", src.CLK(), "dt", src.DT(), "code", code)
	})
	if err != nil {
		lg.Errorw("Watch failed", "error", err)
	}
}
