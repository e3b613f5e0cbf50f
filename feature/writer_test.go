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
	"strings"
	"testing"

	"github.com/grailbio/solo/barcode"
	"github.com/grailbio/solo/feature"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLines(t *testing.T) {
	exact := &barcode.Match{UMI: "ACGTAC", Status: barcode.Exact, MatchString: "5", Indices: []uint32{5}}
	multi := &barcode.Match{UMI: "ACGTAC", Status: barcode.MultipleInexact, MatchString: "0,3", Indices: []uint32{0, 3}}
	tests := []struct {
		name  string
		iRead uint64
		typ   feature.Type
		m     *barcode.Match
		rec   feature.Record
		want  string
		n     uint64
	}{
		{"gene", feature.NoReadIndex, feature.Gene, exact, feature.Record{Gene: "G1"},
			"ACGTAC G1 0 5\n", 1},
		{"gene with read index", 17, feature.Gene, exact, feature.Record{Gene: "G1"},
			"ACGTAC 17 G1 0 5\n", 1},
		{"read index zero", 0, feature.GeneFull, exact, feature.Record{Gene: "G1"},
			"ACGTAC 0 G1 0 5\n", 1},
		{"velocyto", feature.NoReadIndex, feature.VelocytoUnspliced, multi, feature.Record{Gene: "G2"},
			"ACGTAC G2 2 0,3\n", 1},
		{"diagnostic", 42, feature.None, exact, feature.Record{Gene: "ignored"},
			"ACGTAC 42 -1 0 5\n", 1},
		{"diagnostic without read index", feature.NoReadIndex, feature.None, exact, feature.Record{},
			"ACGTAC -1 0 5\n", 1},
		{"junctions", feature.NoReadIndex, feature.SJ, exact,
			feature.Record{Junctions: []feature.Junction{{100, 200}, {300, 400}}},
			"ACGTAC 100 200 0 5\nACGTAC 300 400 0 5\n", 2},
		{"junctions with read index", 9, feature.SJ, exact,
			feature.Record{Junctions: []feature.Junction{{1, 2}}},
			"ACGTAC 9 1 2 0 5\n", 1},
		{"transcripts", feature.NoReadIndex, feature.Transcript3p, exact,
			feature.Record{Transcripts: []feature.TranscriptHit{{"T1", 10}, {"T2", 0}}},
			"ACGTAC 2 T1 10 T2 0 0 5\n", 1},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		w := feature.NewWriter(&buf)
		n, err := w.Write(test.iRead, test.typ, test.m, &test.rec)
		require.NoError(t, err, test.name)
		require.NoError(t, w.Flush(), test.name)
		assert.Equal(t, test.want, buf.String(), test.name)
		assert.Equal(t, test.n, n, test.name)
		assert.Equal(t, int(test.n), strings.Count(buf.String(), "\n"), test.name)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriterError(t *testing.T) {
	diskFull := errors.New("disk full")
	w := feature.NewWriter(failingWriter{diskFull})
	m := &barcode.Match{UMI: "AAAA", Status: barcode.Exact, MatchString: "0"}
	_, err := w.Write(feature.NoReadIndex, feature.Gene, m, &feature.Record{Gene: "G1"})
	require.NoError(t, err) // Buffered.
	expect.EQ(t, w.Flush(), diskFull)

	n, err := w.Write(feature.NoReadIndex, feature.Gene, m, &feature.Record{Gene: "G1"})
	expect.EQ(t, err, diskFull)
	expect.EQ(t, n, uint64(0))
	expect.EQ(t, w.Flush(), diskFull)
}

func TestScannerRoundTrip(t *testing.T) {
	exact := &barcode.Match{UMI: "TTGCA", Status: barcode.Exact, MatchString: "12", Indices: []uint32{12}}
	multi := &barcode.Match{UMI: "GGCAT", Status: barcode.MultipleInexact, MatchString: "1,2", Indices: []uint32{1, 2}}
	for _, readInfo := range []bool{false, true} {
		iRead := func(i uint64) uint64 {
			if readInfo {
				return i
			}
			return feature.NoReadIndex
		}
		var buf bytes.Buffer
		w := feature.NewWriter(&buf)
		_, err := w.Write(iRead(0), feature.Transcript3p, exact,
			&feature.Record{Transcripts: []feature.TranscriptHit{{"T1", 10}, {"T2", 0}}})
		require.NoError(t, err)
		_, err = w.Write(iRead(1), feature.Transcript3p, multi, &feature.Record{Transcripts: []feature.TranscriptHit{}})
		require.NoError(t, err)
		if readInfo {
			_, err = w.Write(iRead(2), feature.None, multi, nil)
			require.NoError(t, err)
		}
		require.NoError(t, w.Flush())

		sc := feature.NewScanner(&buf, feature.Transcript3p, readInfo)
		require.True(t, sc.Scan())
		l := sc.Line()
		assert.Equal(t, "TTGCA", l.UMI)
		assert.Equal(t, iRead(0), l.ReadIndex)
		assert.Equal(t, []feature.TranscriptHit{{"T1", 10}, {"T2", 0}}, l.Transcripts)
		assert.Equal(t, barcode.Exact, l.MatchStatus)
		assert.Equal(t, "12", l.MatchString)

		require.True(t, sc.Scan())
		l = sc.Line()
		assert.Equal(t, "GGCAT", l.UMI)
		assert.Equal(t, iRead(1), l.ReadIndex)
		assert.Len(t, l.Transcripts, 0)
		assert.Equal(t, barcode.MultipleInexact, l.MatchStatus)
		assert.Equal(t, "1,2", l.MatchString)

		if readInfo {
			require.True(t, sc.Scan())
			l = sc.Line()
			assert.True(t, l.Diagnostic)
			assert.Equal(t, uint64(2), l.ReadIndex)
		}
		assert.False(t, sc.Scan())
		assert.NoError(t, sc.Err())
	}
}

func TestScannerJunctions(t *testing.T) {
	sc := feature.NewScanner(strings.NewReader("AAC 7 100 200 1 4\n"), feature.SJ, true)
	require.True(t, sc.Scan())
	l := sc.Line()
	expect.EQ(t, l.ReadIndex, uint64(7))
	expect.EQ(t, l.Junction, feature.Junction{Start: 100, End: 200})
	expect.EQ(t, l.MatchStatus, barcode.OneInexact)
	expect.EQ(t, l.MatchString, "4")
	expect.False(t, sc.Scan())
	expect.NoError(t, sc.Err())
}

func TestScannerErrors(t *testing.T) {
	tests := []struct {
		typ   feature.Type
		input string
	}{
		{feature.Gene, "AAC G1 0\n"},
		{feature.Gene, "AAC G1 G2 0 5\n"},
		{feature.Gene, "AAC G1 x 5\n"},
		{feature.SJ, "AAC 100 0 5\n"},
		{feature.SJ, "AAC 100 x 0 5\n"},
		{feature.Transcript3p, "AAC 2 T1 10 0 5\n"},
	}
	for _, test := range tests {
		sc := feature.NewScanner(strings.NewReader(test.input), test.typ, false)
		assert.False(t, sc.Scan(), test.input)
		assert.Error(t, sc.Err(), test.input)
	}
}
