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

package barcode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

var alphabet = []byte{'A', 'C', 'G', 'T'}

func validBase(c byte) bool {
	return c == 'A' || c == 'C' || c == 'G' || c == 'T'
}

// Whitelist is the list of expected cell barcodes. Entries are identified by
// their 0-based position in the list.
type Whitelist struct {
	barcodes []string
	k        int
	index    map[string]uint32
}

// NewWhitelist creates a whitelist from r, which contains one barcode per
// line. All barcodes must have the same length and consist of ACGT. Empty
// lines are ignored; a barcode may be followed by whitespace-separated
// columns, which are ignored as well.
func NewWhitelist(r io.Reader) (*Whitelist, error) {
	wl := &Whitelist{k: -1, index: map[string]uint32{}}
	scanner := bufio.NewScanner(r)
	nLine := 0
	for scanner.Scan() {
		nLine++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		bc := strings.ToUpper(fields[0])
		if wl.k < 0 {
			wl.k = len(bc)
		}
		if len(bc) != wl.k {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("line %d: barcode %s has length %d, other barcodes have length %d", nLine, bc, len(bc), wl.k))
		}
		for i := 0; i < len(bc); i++ {
			if !validBase(bc[i]) {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("line %d: invalid base %c in barcode %s", nLine, bc[i], bc))
			}
		}
		if _, ok := wl.index[bc]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("line %d: duplicate barcode %s", nLine, bc))
		}
		wl.index[bc] = uint32(len(wl.barcodes))
		wl.barcodes = append(wl.barcodes, bc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(wl.barcodes) == 0 {
		return nil, errors.E(errors.Invalid, "no barcodes in whitelist")
	}
	return wl, nil
}

// LoadWhitelist reads a whitelist file. Compressed files are decompressed
// based on their extension.
func LoadWhitelist(ctx context.Context, path string) (wl *Whitelist, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open whitelist", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	if wl, err = NewWhitelist(r); err != nil {
		return nil, errors.E(err, "read whitelist", path)
	}
	log.Printf("Loaded %d barcodes of length %d from %s", wl.Len(), wl.k, path)
	return wl, nil
}

// Len returns the number of barcodes.
func (wl *Whitelist) Len() int { return len(wl.barcodes) }

// BarcodeLen returns the length of the barcodes.
func (wl *Whitelist) BarcodeLen() int { return wl.k }

// Barcode returns the i'th barcode.
func (wl *Whitelist) Barcode(i int) string { return wl.barcodes[i] }

// Index returns the position of bc in the whitelist.
func (wl *Whitelist) Index(bc string) (int, bool) {
	i, ok := wl.index[bc]
	return int(i), ok
}

// Match resolves the raw barcode cb and fills m. A barcode in the whitelist is
// an exact match. Otherwise every whitelist entry at Hamming distance one is a
// candidate; an N in cb counts as a mismatch. Matching ignores case.
func (wl *Whitelist) Match(umi, cb string, m *Match) {
	m.Reset()
	m.UMI = umi
	m.Barcode = cb
	if len(cb) != wl.k || !usable(umi) {
		m.Status = NoMatch
		return
	}
	// Whitelist entries are stored in upper case.
	buf := []byte(cb)
	for pos, c := range buf {
		if 'a' <= c && c <= 'z' {
			buf[pos] = c - 'a' + 'A'
		}
	}
	if i, ok := wl.index[string(buf)]; ok {
		m.Status = Exact
		m.Indices = append(m.Indices, i)
		m.MatchString = strconv.Itoa(int(i))
		return
	}
	for pos := range buf {
		orig := buf[pos]
		for _, c := range alphabet {
			if c == orig {
				continue
			}
			buf[pos] = c
			if i, ok := wl.index[string(buf)]; ok {
				m.Indices = append(m.Indices, i)
			}
		}
		buf[pos] = orig
	}
	switch len(m.Indices) {
	case 0:
		m.Status = NoMatch
		return
	case 1:
		m.Status = OneInexact
		m.MatchString = strconv.Itoa(int(m.Indices[0]))
		return
	}
	sort.Slice(m.Indices, func(i, j int) bool { return m.Indices[i] < m.Indices[j] })
	m.Status = MultipleInexact
	var sb strings.Builder
	for i, idx := range m.Indices {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(idx)))
	}
	m.MatchString = sb.String()
}
