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

// Direction flags, set in a table entry only when a detent completes.
const (
	dirCW   = 0x10
	dirCCW  = 0x20
	dirMask = 0x30
)

const stateMask = 0x07

// Full step states.
const (
	rStart = iota
	rCW1
	rCW2
	rCW3
	rCCW1
	rCCW2
	rCCW3
	rIllegal
)

// Half step states. The encoder rests at either 11 (hStart) or 00 (hMid).
const (
	hStart = iota
	hCCWBegin
	hCWBegin
	hMid
	hCWBeginMid
	hCCWBeginMid
)

type table [8][4]uint8

// fullStep is indexed by [state][code], where code is (CLK << 1) | DT.
// A direction is only reported when the state returns to rest after passing
// through all 3 intermediate states for that direction. Any other path
// (e.g. contact bounce reversing part way) returns to rest silently.
var fullStep = table{
	//  00      01      10      11
	{rStart, rCCW1, rCW1, rStart},            // rStart
	{rCW2, rStart, rCW1, rStart},             // rCW1
	{rCW2, rCW3, rCW1, rStart},               // rCW2
	{rCW2, rCW3, rStart, rStart | dirCW},     // rCW3
	{rCCW2, rCCW1, rStart, rStart},           // rCCW1
	{rCCW2, rCCW1, rCCW3, rStart},            // rCCW2
	{rCCW2, rStart, rCCW3, rStart | dirCCW},  // rCCW3
	{rStart, rStart, rStart, rStart},         // rIllegal
}

// halfStep reports a direction at both rest points, giving 2 steps
// per quadrature cycle. Clockwise is 11->10->00 and 00->01->11.
var halfStep = table{
	//  00               01            10             11
	{hMid, hCCWBegin, hCWBegin, hStart},                   // hStart
	{hMid | dirCCW, hCCWBegin, hStart, hStart},            // hCCWBegin
	{hMid | dirCW, hStart, hCWBegin, hStart},              // hCWBegin
	{hMid, hCWBeginMid, hCCWBeginMid, hStart},             // hMid
	{hMid, hCWBeginMid, hMid, hStart | dirCW},             // hCWBeginMid
	{hMid, hMid, hCCWBeginMid, hStart | dirCCW},           // hCCWBeginMid
	{hStart, hStart, hStart, hStart},
	{hStart, hStart, hStart, hStart},
}

func tableFor(half bool) *table {
	if half {
		return &halfStep
	}
	return &fullStep
}
