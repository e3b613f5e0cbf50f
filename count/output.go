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

package count

import (
	"bufio"
	"context"
	"io"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/solo/feature"
	"github.com/klauspost/compress/gzip"
)

// segments holds the temporary stream segment of every (worker, type) pair.
// Segments are snappy-compressed.
type segments struct {
	files   [][]*os.File
	writers [][]*snappy.Writer
}

func newSegments(dir string, nJob, nType int) (*segments, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	s := &segments{files: make([][]*os.File, nJob), writers: make([][]*snappy.Writer, nJob)}
	for job := range s.files {
		s.files[job] = make([]*os.File, nType)
		s.writers[job] = make([]*snappy.Writer, nType)
		for i := range s.files[job] {
			f, err := ioutil.TempFile(dir, "solo_tmp"+strconv.Itoa(job)+"_"+strconv.Itoa(i)+"_*.txt")
			if err != nil {
				var ignored error
				s.cleanup(&ignored)
				return nil, err
			}
			s.files[job][i] = f
			s.writers[job][i] = snappy.NewBufferedWriter(f)
		}
	}
	return s, nil
}

// writer returns the destination of the segment of worker job and type index
// i.
func (s *segments) writer(job, i int) io.Writer {
	return s.writers[job][i]
}

// finish flushes the compressed segments of worker job. It must be called
// once the worker is done writing.
func (s *segments) finish(job int) error {
	for _, w := range s.writers[job] {
		if err := w.Close(); err != nil {
			return errors.E(err, "flush stream segment")
		}
	}
	return nil
}

// cleanup closes and removes all segments. The first error is stored in
// *err unless *err is already set.
func (s *segments) cleanup(err *error) {
	once := errors.Once{}
	for _, files := range s.files {
		for _, f := range files {
			if f == nil {
				continue
			}
			once.Set(f.Close())
			once.Set(os.Remove(f.Name()))
		}
	}
	if e := once.Err(); e != nil && *err == nil {
		*err = errors.E(e, "remove stream segments")
	}
}

// merge concatenates the segments of type index i, in worker order, into
// path.
func (s *segments) merge(ctx context.Context, i int, path string, gz bool) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	var (
		w  io.Writer = out.Writer(ctx)
		zw *gzip.Writer
	)
	if gz {
		zw = gzip.NewWriter(w)
		w = zw
	}
	bw := bufio.NewWriterSize(w, 1<<20)
	var n int64
	for _, files := range s.files {
		f := files[i]
		if _, err = f.Seek(0, io.SeekStart); err != nil {
			return errors.E(err, "rewind", f.Name())
		}
		nf, err := io.Copy(bw, snappy.NewReader(f))
		if err != nil {
			return errors.E(err, "copy", f.Name(), "to", path)
		}
		n += nf
	}
	if err = bw.Flush(); err != nil {
		return errors.E(err, "write", path)
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return errors.E(err, "write", path)
		}
	}
	log.Printf("count: wrote %d bytes of records to %s", n, path)
	return nil
}

func writeCounts(ctx context.Context, path string, c feature.Counts) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if err = feature.WriteCountsTSV(out.Writer(ctx), c); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}

// writeStats writes one row of rejection counters per feature type.
func writeStats(ctx context.Context, path string, types []feature.Type, stats []feature.Stats) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("#feature\tunmapped\tno_feature\tambiguous_feature\tambiguous_feature_multimap\trecords")
	if err = w.EndLine(); err != nil {
		return errors.E(err, "write", path)
	}
	for i, t := range types {
		s := stats[i]
		w.WriteString(t.String())
		for _, r := range []feature.Reason{feature.Unmapped, feature.NoFeature, feature.AmbiguousFeature, feature.AmbiguousFeatureMultimap, feature.ReasonNone} {
			w.WriteString(strconv.FormatUint(s.Get(r), 10))
		}
		if err = w.EndLine(); err != nil {
			return errors.E(err, "write", path)
		}
	}
	if err = w.Flush(); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}
