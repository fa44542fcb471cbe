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

// HTTP server for knob dial images

package knob

import (
	"fmt"
	"html"
	"image"
	"image/jpeg"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/aamcrae/rotary/encoder"
)

// Number of positions shown on the dial of an unbounded knob.
const unboundedTicks = 24

const defaultSize = 300

// DialServer serves images of knob positions as dials.
type DialServer struct {
	Size  int // Image width and height in pixels
	mu    sync.Mutex
	dials map[string]*encoder.Decoder
	log   *zap.SugaredLogger
	mux   *http.ServeMux
}

// NewDialServer creates a DialServer with no dials.
func NewDialServer(log *zap.SugaredLogger) *DialServer {
	s := &DialServer{
		Size:  defaultSize,
		dials: make(map[string]*encoder.Decoder),
		log:   log,
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.index)
	s.mux.HandleFunc("/dial.jpg", s.dial)
	s.mux.HandleFunc("/value", s.value)
	return s
}

// Add adds a named dial.
func (s *DialServer) Add(name string, d *encoder.Decoder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dials[name] = d
}

func (s *DialServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves the dials on port.
func (s *DialServer) ListenAndServe(port int) error {
	url := fmt.Sprintf(":%d", port)
	s.log.Infow("Starting dial server", "addr", url)
	server := &http.Server{Addr: url, Handler: s}
	return server.ListenAndServe()
}

// lookup finds the dial named by the knob parameter, or the
// only dial if there is just one.
func (s *DialServer) lookup(w http.ResponseWriter, r *http.Request) (*encoder.Decoder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := r.URL.Query().Get("knob")
	if name == "" && len(s.dials) == 1 {
		for _, d := range s.dials {
			return d, true
		}
	}
	d, ok := s.dials[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown knob %q", name), http.StatusNotFound)
	}
	return d, ok
}

func (s *DialServer) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	var names []string
	for n := range s.dials {
		names = append(names, n)
	}
	s.mu.Unlock()
	sort.Strings(names)
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><meta http-equiv=\"refresh\" content=\"1\"></head><body>\n")
	for _, n := range names {
		src := "/dial.jpg?knob=" + url.QueryEscape(n)
		fmt.Fprintf(w, "<img src=\"%s\" title=\"%s\">\n", html.EscapeString(src), html.EscapeString(n))
	}
	fmt.Fprintf(w, "</body></html>\n")
}

func (s *DialServer) value(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "%d\n", d.Value())
}

func (s *DialServer) dial(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	min, max, mode := d.Range()
	img := drawDial(s.Size, d.Value(), min, max, mode)
	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, img, nil); err != nil {
		s.log.Warnw("Error writing image", "error", err)
	}
}

// position returns the dial position of v as a fraction of a revolution.
func position(v, min, max int, mode encoder.Mode) float64 {
	if mode == encoder.Unbounded {
		p := math.Mod(float64(v), unboundedTicks) / unboundedTicks
		if p < 0 {
			p += 1
		}
		return p
	}
	return (float64(v) - float64(min)) / (float64(max) - float64(min) + 1)
}

func drawDial(size, v, min, max int, mode encoder.Mode) image.Image {
	c := gg.NewContext(size, size)
	mid := float64(size) / 2
	radius := mid * 0.8
	c.SetRGB(1, 1, 1)
	c.Clear()
	c.SetRGB(0.2, 0.2, 0.2)
	c.DrawCircle(mid, mid, radius)
	c.Fill()
	ticks := unboundedTicks
	if mode != encoder.Unbounded && max-min+1 <= unboundedTicks {
		ticks = max - min + 1
	}
	c.SetRGB(0.8, 0.8, 0.8)
	c.SetLineWidth(2)
	for i := 0; i < ticks; i++ {
		x0, y0 := polar(mid, radius*0.85, float64(i)/float64(ticks))
		x1, y1 := polar(mid, radius, float64(i)/float64(ticks))
		c.DrawLine(x0, y0, x1, y1)
	}
	c.Stroke()
	x, y := polar(mid, radius*0.9, position(v, min, max, mode))
	c.SetRGB(1, 0.5, 0)
	c.SetLineWidth(float64(size) / 40)
	c.DrawLine(mid, mid, x, y)
	c.Stroke()
	c.SetRGB(0, 0, 0)
	c.DrawStringAnchored(strconv.Itoa(v), mid, float64(size)-mid*0.1, 0.5, 0.5)
	return c.Image()
}

// polar returns the point at fraction p of a clockwise revolution,
// starting at the top of a circle centred on (mid, mid).
func polar(mid, radius, p float64) (float64, float64) {
	a := p * 2 * math.Pi
	return mid + radius*math.Sin(a), mid - radius*math.Cos(a)
}
