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

// Program to demonstrate a knob driving a PWM output (e.g an LED brightness).

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/aamcrae/config"
	"go.uber.org/zap"

	"github.com/aamcrae/rotary/knob"
)

var configFile = flag.String("config", "", "Configuration file")
var section = flag.String("knob", "led", "Knob section, which should set pwm or hwpwm")

func main() {
	flag.Parse()
	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Logger: %v", err)
	}
	defer zl.Sync()
	lg := zl.Sugar()
	conf, err := config.ParseFile(*configFile)
	if err != nil {
		lg.Fatalw("Config", "file", *configFile, "error", err)
	}
	c, err := knob.Parse(conf, *section)
	if err != nil {
		lg.Fatalw("Knob config", "error", err)
	}
	if c.PWM < 0 && c.HwPWM < 0 {
		lg.Fatalw("No PWM output configured", "knob", c.Name)
	}
	k, err := knob.New(c, lg)
	if err != nil {
		lg.Fatalw("Knob init", "error", err)
	}
	defer k.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-k.Changed():
				lg.Infow("Duty", "value", k.Value(), "duty", k.Duty())
			}
		}
	}()
	if err := k.Run(ctx); err != nil {
		lg.Errorw("Knob failed", "error", err)
	}
}
