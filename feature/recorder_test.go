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
package feature_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/grailbio/solo/barcode"
	"github.com/grailbio/solo/feature"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFixture struct {
	buf    bytes.Buffer
	wl     *barcode.Whitelist
	counts *feature.WhitelistCounts
	r      *feature.Recorder
}

// newRecorderFixture creates a Recorder with a six-entry whitelist.
func newRecorderFixture(t *testing.T, typ feature.Type, readInfo bool) *recorderFixture {
	f := &recorderFixture{wl: newWhitelist(t, "AAAA", "CCCC", "GGGG", "TTTT", "ACGT", "TGCA")}
	f.counts = feature.NewWhitelistCounts(f.wl)
	f.r = feature.NewRecorder(typ, readInfo, feature.NewWriter(&f.buf), f.counts)
	return f
}

func (f *recorderFixture) output(t *testing.T) string {
	require.NoError(t, f.r.Flush())
	return f.buf.String()
}

// Index-5 candidate, as produced by a barcode matcher.
var match5 = barcode.Match{
	UMI:         "UMI123",
	Status:      barcode.Exact,
	MatchString: "CBSTRING",
	Indices:     []uint32{5},
}

func TestRecordUnmapped(t *testing.T) {
	f := newRecorderFixture(t, feature.Gene, false)
	m := match5
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 0}, 3, &feature.ReadAnnotation{GeneConcordant: []string{"G1"}}))
	expect.EQ(t, f.output(t), "")
	expect.EQ(t, f.r.Stats, feature.Stats{Unmapped: 1})
	expect.EQ(t, f.counts.Total(), uint64(0))
}

func TestRecordUniqueGene(t *testing.T) {
	f := newRecorderFixture(t, feature.Gene, false)
	m := match5
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 1}, 3, &feature.ReadAnnotation{GeneConcordant: []string{"G1"}}))
	expect.EQ(t, f.output(t), "UMI123 G1 0 CBSTRING\n")
	expect.EQ(t, f.counts.Get(5), uint64(1))
	expect.EQ(t, f.counts.Total(), uint64(1))
	expect.EQ(t, f.r.Stats, feature.Stats{Records: 1})
}

func TestRecordAmbiguousMultimapper(t *testing.T) {
	f := newRecorderFixture(t, feature.Gene, false)
	m := match5
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 2}, 3, &feature.ReadAnnotation{GeneConcordant: []string{"G1", "G2"}}))
	expect.EQ(t, f.output(t), "")
	expect.EQ(t, f.r.Stats, feature.Stats{AmbiguousFeature: 1, AmbiguousFeatureMultimap: 1})
	expect.EQ(t, f.counts.Total(), uint64(0))
}

func TestRecordNovelJunctions(t *testing.T) {
	f := newRecorderFixture(t, feature.SJ, false)
	m := match5
	aln := fakeAlignment{nAlign: 1, junctions: []feature.Junction{{1000, 2000}, {3000, 3500}}}
	require.NoError(t, f.r.Record(&m, aln, 3, &feature.ReadAnnotation{}))
	expect.EQ(t, f.output(t), "UMI123 1000 2000 0 CBSTRING\nUMI123 3000 3500 0 CBSTRING\n")
	expect.EQ(t, f.counts.Get(5), uint64(2))
	expect.EQ(t, f.r.Stats, feature.Stats{Records: 2})
}

func TestRecordDiagnostics(t *testing.T) {
	f := newRecorderFixture(t, feature.GeneFull, true)
	m := match5
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 1}, 7, &feature.ReadAnnotation{GeneFull: []string{"G3"}}))
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 1}, 8, &feature.ReadAnnotation{}))
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 0}, 9, &feature.ReadAnnotation{}))
	expect.EQ(t, f.output(t), "UMI123 7 G3 0 CBSTRING\nUMI123 8 -1 0 CBSTRING\nUMI123 9 -1 0 CBSTRING\n")
	// Diagnostic lines are counted like records.
	expect.EQ(t, f.counts.Get(5), uint64(3))
	expect.EQ(t, f.r.Stats, feature.Stats{NoFeature: 1, Unmapped: 1, Records: 3})
}

func TestRecordSkipped(t *testing.T) {
	annot := &feature.ReadAnnotation{GeneConcordant: []string{"G1"}}

	f := newRecorderFixture(t, feature.None, true)
	m := match5
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 1}, 0, annot))
	expect.EQ(t, f.output(t), "")
	expect.EQ(t, f.r.Stats, feature.Stats{})

	f = newRecorderFixture(t, feature.Gene, true)
	m = barcode.Match{UMI: "UMI123", Status: barcode.NoMatch}
	require.NoError(t, f.r.Record(&m, fakeAlignment{nAlign: 0}, 0, annot))
	expect.EQ(t, f.output(t), "")
	expect.EQ(t, f.r.Stats, feature.Stats{})
	expect.EQ(t, f.counts.Total(), uint64(0))
}

func TestRecordWriteError(t *testing.T) {
	ioErr := errors.New("stream closed")
	wl := newWhitelist(t, "AAAA")
	r := feature.NewRecorder(feature.Gene, false, feature.NewWriter(failingWriter{ioErr}), feature.NewWhitelistCounts(wl))
	m := barcode.Match{UMI: "U", Status: barcode.Exact, MatchString: "0", Indices: []uint32{0}}
	annot := &feature.ReadAnnotation{GeneConcordant: []string{"G1"}}
	require.NoError(t, r.Record(&m, fakeAlignment{nAlign: 1}, 0, annot))
	assert.Error(t, r.Flush())
	assert.Error(t, r.Record(&m, fakeAlignment{nAlign: 1}, 1, annot))
}
