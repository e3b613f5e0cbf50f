// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package barcode resolves raw cell barcodes against a whitelist of expected
// barcodes. It only reports the candidates; picking one of several candidates
// is left to a later stage.
package barcode

import "strings"

// MatchStatus describes how a raw cell barcode matched the whitelist. The
// numeric values are written to the intermediate record stream.
type MatchStatus int

const (
	// NoMatch means the barcode matched nothing, or was unusable.
	NoMatch MatchStatus = -1
	// Exact means the barcode is in the whitelist. Without a whitelist every
	// usable barcode is an exact match.
	Exact MatchStatus = 0
	// OneInexact means exactly one whitelist entry is one mismatch away.
	OneInexact MatchStatus = 1
	// MultipleInexact means several whitelist entries are one mismatch away.
	MultipleInexact MatchStatus = 2
)

func (s MatchStatus) String() string {
	switch s {
	case NoMatch:
		return "no_match"
	case Exact:
		return "exact"
	case OneInexact:
		return "one_inexact"
	case MultipleInexact:
		return "multiple_inexact"
	}
	return "invalid"
}

// Match is the barcode information of one read.
type Match struct {
	// UMI is the read's UMI sequence.
	UMI string
	// Status is the match status of the cell barcode.
	Status MatchStatus
	// MatchString is the human-readable match: the whitelist index for an
	// exact or single inexact match, comma-separated indices for multiple
	// inexact matches, and the barcode itself without a whitelist.
	MatchString string
	// Indices lists the candidate whitelist entries, in increasing order.
	// It is empty without a whitelist.
	Indices []uint32
	// Barcode is the raw cell barcode.
	Barcode string
}

// Reset clears m, keeping the Indices storage.
func (m *Match) Reset() {
	*m = Match{Indices: m.Indices[:0]}
}

// usable reports whether s can be written to the space-delimited record
// stream.
func usable(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\n")
}

// NoWhitelist fills m for a run without a whitelist: every usable barcode is
// its own bucket.
func NoWhitelist(umi, cb string, m *Match) {
	m.Reset()
	m.UMI = umi
	m.Barcode = cb
	if !usable(umi) || !usable(cb) {
		m.Status = NoMatch
		return
	}
	m.Status = Exact
	m.MatchString = cb
}
