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

package encoder

// Listener is called after the encoder value changes.
// It is called from the edge processing context, so it should
// return quickly; use Value to read the new value.
type Listener func()

// listeners is append only. Existing entries are never modified, so
// a copy of the slice header can be iterated without holding a lock.
type listeners []Listener

func (l *listeners) add(f Listener) {
	*l = append(*l, f)
}

// notify calls every listener in the order added.
// A panic in a listener is not recovered.
func (l listeners) notify() {
	for _, f := range l {
		f()
	}
}
