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
	"github.com/grailbio/base/errors"
	"github.com/grailbio/solo/barcode"
)

// Recorder classifies reads for one feature type, writes their records to a
// stream, and adds the number of records to the per-barcode counts.
//
// A Recorder is used by one goroutine. Recorders of different goroutines may
// share Counts but must each have their own Writer.
type Recorder struct {
	// Type is the feature type recorded. None disables recording.
	Type Type
	// ReadInfo requests per-read traceability: read indices are written, and
	// reads without a feature get a diagnostic line.
	ReadInfo bool
	// Stats accumulates rejection counters.
	Stats Stats

	w      *Writer
	counts Counts
}

// NewRecorder creates a Recorder writing to w and counting into counts.
func NewRecorder(t Type, readInfo bool, w *Writer, counts Counts) *Recorder {
	return &Recorder{Type: t, ReadInfo: readInfo, w: w, counts: counts}
}

// Record processes one read. iRead is the read's ordinal in the input. An
// error means the stream could not be written, and the run must be aborted.
func (r *Recorder) Record(m *barcode.Match, aln Alignment, iRead uint64, annot *ReadAnnotation) error {
	if r.Type == None || m.Status == barcode.NoMatch {
		return nil
	}
	rec, reason := Classify(aln, annot, r.Type, &r.Stats)
	if reason != ReasonNone && !r.ReadInfo {
		return nil
	}
	if !r.ReadInfo {
		iRead = NoReadIndex
	}
	t := r.Type
	if reason != ReasonNone {
		t = None
	}
	n, err := r.w.Write(iRead, t, m, &rec)
	if err != nil {
		return errors.E(err, "write", r.Type.String(), "record")
	}
	r.Stats.Records += n
	r.counts.Add(m, n)
	return nil
}

// Flush flushes the underlying Writer.
func (r *Recorder) Flush() error {
	if err := r.w.Flush(); err != nil {
		return errors.E(err, "flush", r.Type.String(), "records")
	}
	return nil
}
