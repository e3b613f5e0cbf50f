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
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/grailbio/solo/barcode"
)

// NoReadIndex is passed to Writer.Write when the read index should not be
// written.
const NoReadIndex = math.MaxUint64

// Writer formats records into the intermediate stream. Each line is assembled
// in full before it is handed to the underlying buffer, so a Writer never
// emits a partial line except when the destination itself fails. A Writer is
// not thread safe.
type Writer struct {
	w   *bufio.Writer
	buf []byte
	err error
}

// NewWriter creates a Writer that appends lines to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<20)}
}

// Write appends the lines for one read and returns the number of records
// written. t is the record's type, or None for a diagnostic line of an
// ineligible read (rec is ignored then). iRead is omitted if it is
// NoReadIndex.
//
// Once a write fails, Write does nothing and returns the first error.
func (w *Writer) Write(iRead uint64, t Type, m *barcode.Match, rec *Record) (uint64, error) {
	if w.err != nil {
		return 0, w.err
	}
	var n uint64 = 1
	switch t {
	case None:
		w.prefix(m.UMI, iRead)
		w.buf = append(w.buf, "-1 "...)
		w.suffix(m)
	case Gene, GeneFull, VelocytoSpliced, VelocytoUnspliced, VelocytoAmbiguous:
		w.prefix(m.UMI, iRead)
		w.buf = append(w.buf, rec.Gene...)
		w.buf = append(w.buf, ' ')
		w.suffix(m)
	case SJ:
		for _, sj := range rec.Junctions {
			w.prefix(m.UMI, iRead)
			w.buf = strconv.AppendUint(w.buf, sj.Start, 10)
			w.buf = append(w.buf, ' ')
			w.buf = strconv.AppendUint(w.buf, sj.End, 10)
			w.buf = append(w.buf, ' ')
			w.suffix(m)
		}
		n = uint64(len(rec.Junctions))
	case Transcript3p:
		w.prefix(m.UMI, iRead)
		w.buf = strconv.AppendInt(w.buf, int64(len(rec.Transcripts)), 10)
		w.buf = append(w.buf, ' ')
		for _, tr := range rec.Transcripts {
			w.buf = append(w.buf, tr.ID...)
			w.buf = append(w.buf, ' ')
			w.buf = strconv.AppendUint(w.buf, uint64(tr.Distance), 10)
			w.buf = append(w.buf, ' ')
		}
		w.suffix(m)
	default:
		panic(t)
	}
	return n, w.err
}

// prefix starts a new line with "UMI [iRead] ".
func (w *Writer) prefix(umi string, iRead uint64) {
	w.buf = append(w.buf[:0], umi...)
	w.buf = append(w.buf, ' ')
	if iRead != NoReadIndex {
		w.buf = strconv.AppendUint(w.buf, iRead, 10)
		w.buf = append(w.buf, ' ')
	}
}

// suffix ends the line with "cbMatch cbMatchString\n" and flushes it to the
// buffer.
func (w *Writer) suffix(m *barcode.Match) {
	w.buf = strconv.AppendInt(w.buf, int64(m.Status), 10)
	w.buf = append(w.buf, ' ')
	w.buf = append(w.buf, m.MatchString...)
	w.buf = append(w.buf, '\n')
	if w.err == nil {
		_, w.err = w.w.Write(w.buf)
	}
}

// Flush writes buffered lines to the underlying writer. It must be called
// after the last Write.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}
