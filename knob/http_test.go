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
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/aamcrae/rotary/encoder"
)

var _ = Describe("DialServer", func() {
	var (
		s      *DialServer
		volume *encoder.Decoder
	)

	get := func(url string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		return w
	}

	BeforeEach(func() {
		var err error
		s = NewDialServer(zap.NewNop().Sugar())
		s.Size = 100
		volume, err = encoder.New(nil, encoder.WithBounds(0, 10), encoder.WithRange(encoder.Bounded), encoder.WithValue(7))
		Expect(err).ToNot(HaveOccurred())
		s.Add("volume", volume)
	})

	It("serves the only knob by default", func() {
		w := get("/value")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("7\n"))
	})

	It("selects a knob by name", func() {
		tone, err := encoder.New(nil, encoder.WithValue(-3))
		Expect(err).ToNot(HaveOccurred())
		s.Add("tone", tone)
		Expect(get("/value?knob=tone").Body.String()).To(Equal("-3\n"))
		Expect(get("/value?knob=volume").Body.String()).To(Equal("7\n"))
		Expect(get("/value").Code).To(Equal(http.StatusNotFound))
	})

	It("rejects unknown knobs", func() {
		w := get("/dial.jpg?knob=bass")
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring("unknown knob"))
	})

	It("draws the dial", func() {
		w := get("/dial.jpg?knob=volume")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("image/jpeg"))
		img, err := jpeg.Decode(w.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(100))
		Expect(img.Bounds().Dy()).To(Equal(100))
	})

	It("lists the knobs", func() {
		s.Add("bass", volume)
		w := get("/")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchRegexp(`(?s)knob=bass.*knob=volume`))
		Expect(get("/other").Code).To(Equal(http.StatusNotFound))
	})

	It("escapes knob names", func() {
		s.Add(`a&b"<c>`, volume)
		body := get("/").Body.String()
		Expect(body).To(ContainSubstring(`src="/dial.jpg?knob=a%26b%22%3Cc%3E"`))
		Expect(body).To(ContainSubstring(`title="a&amp;b&#34;&lt;c&gt;"`))
		Expect(body).ToNot(ContainSubstring(`<c>`))
		w := get("/value?knob=" + url.QueryEscape(`a&b"<c>`))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("7\n"))
	})
})

var _ = Describe("position", func() {
	DescribeTable("maps a value onto the dial",
		func(v, min, max int, mode encoder.Mode, want float64) {
			Expect(position(v, min, max, mode)).To(BeNumerically("~", want, 1e-9))
		},
		Entry("bounded min", 0, 0, 9, encoder.Bounded, 0.0),
		Entry("bounded middle", 5, 0, 9, encoder.Bounded, 0.5),
		Entry("wrap offset", -2, -4, 3, encoder.Wrap, 0.25),
		Entry("unbounded", 6, 0, 10, encoder.Unbounded, 0.25),
		Entry("unbounded turn", 30, 0, 10, encoder.Unbounded, 0.25),
		Entry("unbounded negative", -6, 0, 10, encoder.Unbounded, 0.75),
	)
})
