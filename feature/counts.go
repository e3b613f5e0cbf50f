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

package feature

import (
	"io"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/unsafe"
	"github.com/grailbio/solo/barcode"
)

// Counts accumulates the number of records written per cell barcode. Counts
// only grow. Implementations are safe for concurrent use.
type Counts interface {
	// Add adds n to the count of every bucket m resolves to.
	Add(m *barcode.Match, n uint64)
	// Each calls fn for every barcode with a nonzero count, in a stable
	// order: whitelist order, or lexicographic order without a whitelist. It
	// must not run concurrently with Add.
	Each(fn func(bc string, n uint64))
	// Total returns the sum of all counts.
	Total() uint64
}

// NewCounts returns WhitelistCounts if wl is non-nil, else BarcodeCounts.
func NewCounts(wl *barcode.Whitelist) Counts {
	if wl != nil {
		return NewWhitelistCounts(wl)
	}
	return NewBarcodeCounts()
}

// WhitelistCounts keeps one counter per whitelist entry.
//
// A read whose barcode is one mismatch away from several whitelist entries
// adds its count to each of them. The resulting overcount is resolved later,
// when the ambiguous barcodes are assigned using the per-barcode counts.
type WhitelistCounts struct {
	wl *barcode.Whitelist
	n  []uint64
}

// NewWhitelistCounts creates zero counts for every entry of wl.
func NewWhitelistCounts(wl *barcode.Whitelist) *WhitelistCounts {
	return &WhitelistCounts{wl: wl, n: make([]uint64, wl.Len())}
}

// Add implements Counts.
func (c *WhitelistCounts) Add(m *barcode.Match, n uint64) {
	for _, i := range m.Indices {
		atomic.AddUint64(&c.n[i], n)
	}
}

// Get returns the count of the i'th whitelist entry.
func (c *WhitelistCounts) Get(i int) uint64 {
	return atomic.LoadUint64(&c.n[i])
}

// Each implements Counts.
func (c *WhitelistCounts) Each(fn func(bc string, n uint64)) {
	for i := range c.n {
		if n := c.Get(i); n > 0 {
			fn(c.wl.Barcode(i), n)
		}
	}
}

// Total implements Counts.
func (c *WhitelistCounts) Total() uint64 {
	var total uint64
	for i := range c.n {
		total += c.Get(i)
	}
	return total
}

const numCountShards = 256

type countShard struct {
	mu sync.Mutex
	n  map[string]uint64
}

// BarcodeCounts is a sharded, thread-safe map from cell barcode to count,
// used when there is no whitelist.
type BarcodeCounts struct {
	shards [numCountShards]countShard
}

// NewBarcodeCounts creates an empty BarcodeCounts.
func NewBarcodeCounts() *BarcodeCounts {
	c := &BarcodeCounts{}
	for i := range c.shards {
		c.shards[i].n = make(map[string]uint64)
	}
	return c
}

func (c *BarcodeCounts) shard(bc string) *countShard {
	h := seahash.Sum64(unsafe.StringToBytes(bc))
	return &c.shards[h%numCountShards]
}

// Add implements Counts.
func (c *BarcodeCounts) Add(m *barcode.Match, n uint64) {
	s := c.shard(m.Barcode)
	s.mu.Lock()
	s.n[m.Barcode] += n
	s.mu.Unlock()
}

// Get returns the count for the barcode.
func (c *BarcodeCounts) Get(bc string) uint64 {
	s := c.shard(bc)
	s.mu.Lock()
	n := s.n[bc]
	s.mu.Unlock()
	return n
}

// Each implements Counts.
func (c *BarcodeCounts) Each(fn func(bc string, n uint64)) {
	var barcodes []string
	for i := range c.shards {
		for bc := range c.shards[i].n {
			barcodes = append(barcodes, bc)
		}
	}
	sort.Strings(barcodes)
	for _, bc := range barcodes {
		if n := c.shard(bc).n[bc]; n > 0 {
			fn(bc, n)
		}
	}
}

// Total implements Counts.
func (c *BarcodeCounts) Total() uint64 {
	var total uint64
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for _, n := range s.n {
			total += n
		}
		s.mu.Unlock()
	}
	return total
}

// WriteCountsTSV writes "barcode<TAB>count" rows, preceded by a header line,
// for every barcode with a nonzero count.
func WriteCountsTSV(w io.Writer, c Counts) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("#barcode")
	tw.WriteString("count")
	if err := tw.EndLine(); err != nil {
		return err
	}
	var err error
	c.Each(func(bc string, n uint64) {
		if err != nil {
			return
		}
		tw.WriteString(bc)
		tw.WriteString(strconv.FormatUint(n, 10))
		err = tw.EndLine()
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}
