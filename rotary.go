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

// Rotary encoder knob program

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aamcrae/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aamcrae/rotary/knob"
)

var configFile = flag.String("config", "", "Configuration file")
var knobList = flag.String("knobs", "", "Comma separated list of knob sections")
var port = flag.Int("port", 0, "Dial server port number (0 disables)")
var verbose = flag.Bool("verbose", false, "Debug logging")

func main() {
	flag.Parse()
	zc := zap.NewProductionConfig()
	if *verbose {
		zc = zap.NewDevelopmentConfig()
	}
	zl, err := zc.Build()
	if err != nil {
		log.Fatalf("Logger: %v", err)
	}
	defer zl.Sync()
	lg := zl.Sugar()

	conf, err := config.ParseFile(*configFile)
	if err != nil {
		lg.Fatalw("Config", "file", *configFile, "error", err)
	}
	if *knobList == "" {
		lg.Fatal("No knobs selected (use -knobs)")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var knobs []*knob.Knob
	for _, name := range strings.Split(*knobList, ",") {
		c, err := knob.Parse(conf, strings.TrimSpace(name))
		if err != nil {
			lg.Fatalw("Knob config", "file", *configFile, "error", err)
		}
		k, err := knob.New(c, lg)
		if err != nil {
			lg.Fatalw("Knob init", "error", err)
		}
		defer k.Close()
		knobs = append(knobs, k)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, k := range knobs {
		k := k
		g.Go(func() error {
			return k.Run(ctx)
		})
		g.Go(func() error {
			return report(ctx, k, lg)
		})
	}
	if *port > 0 {
		ds := knob.NewDialServer(lg)
		for _, k := range knobs {
			ds.Add(k.Name, k.Decoder)
		}
		go func() {
			if err := ds.ListenAndServe(*port); err != nil {
				lg.Errorw("Dial server", "error", err)
			}
		}()
	}
	if err := g.Wait(); err != nil {
		lg.Errorw("Knob failed", "error", err)
		return
	}
	lg.Info("Shutting down")
}

// report logs the knob value each time it changes.
func report(ctx context.Context, k *knob.Knob, lg *zap.SugaredLogger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-k.Changed():
			lg.Infow("Value changed", "knob", k.Name, "value", k.Value(), "duty", k.Duty())
		}
	}
}
