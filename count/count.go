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

// Package count runs feature recording over an annotated BAM file.
//
// One goroutine reads the BAM and hands batches of primary records to
// Opts.Parallelism workers. Each worker owns a feature.Recorder and a temporary
// stream segment per feature type; all workers share the count table of a
// type. Once the input is exhausted, the segments of each type are
// concatenated, in worker order, into the final record stream.
package count

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/solo/annotation"
	"github.com/grailbio/solo/barcode"
	"github.com/grailbio/solo/feature"
)

// Result summarizes a run.
type Result struct {
	// Reads is the # of primary records read.
	Reads uint64
	// MalformedReads is the # of reads whose annotation tags could not be
	// parsed. They are treated as unmapped.
	MalformedReads uint64
	// Stats holds the rejection statistics of each type, in Opts.Types order.
	Stats []feature.Stats
	// Counts holds the per-barcode counts of each type, in Opts.Types order.
	Counts []feature.Counts
}

// batch is a run of consecutive primary records.
type batch struct {
	// start is the read index of recs[0].
	start uint64
	recs  []*sam.Record
}

// Run records the features of every read in opts.BAMPath and writes the record
// streams, count tables, and statistics under opts.OutputPrefix.
func Run(ctx context.Context, opts Opts) (res Result, err error) {
	if err = opts.validate(); err != nil {
		return
	}
	var wl *barcode.Whitelist
	if opts.WhitelistPath != "" {
		if wl, err = barcode.LoadWhitelist(ctx, opts.WhitelistPath); err != nil {
			return
		}
	}
	var db *annotation.JunctionDB
	if opts.JunctionDBPath != "" {
		if db, err = annotation.LoadJunctionDB(ctx, opts.JunctionDBPath); err != nil {
			return
		}
	}

	in, err := file.Open(ctx, opts.BAMPath)
	if err != nil {
		return res, errors.E(err, "open", opts.BAMPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return res, errors.E(err, "read header", opts.BAMPath)
	}
	defer func() {
		if e := br.Close(); e != nil && err == nil {
			err = errors.E(e, "close", opts.BAMPath)
		}
	}()
	annotator := annotation.NewAnnotator(br.Header(), db)

	res.Counts = make([]feature.Counts, len(opts.Types))
	for i := range opts.Types {
		res.Counts[i] = feature.NewCounts(wl)
	}
	segs, err := newSegments(opts.TempDir, opts.Parallelism, len(opts.Types))
	if err != nil {
		return res, errors.E(err, "create stream segments")
	}
	defer segs.cleanup(&err)

	log.Printf("count: starting %d workers for %v", opts.Parallelism, opts.Types)
	batchCh := make(chan batch, opts.Parallelism*2)
	readErrCh := make(chan error, 1)
	go func() {
		n, err := readBatches(ctx, br, opts.BatchSize, batchCh)
		res.Reads = n
		close(batchCh)
		readErrCh <- err
	}()

	workers := make([]*worker, opts.Parallelism)
	workErr := traverse.Each(opts.Parallelism, func(job int) error {
		w := &worker{annotator: annotator, wl: wl}
		for i, t := range opts.Types {
			fw := feature.NewWriter(segs.writer(job, i))
			w.recorders = append(w.recorders, feature.NewRecorder(t, opts.ReadInfo, fw, res.Counts[i]))
		}
		workers[job] = w
		if err := w.run(batchCh); err != nil {
			return err
		}
		return segs.finish(job)
	})
	readErr := <-readErrCh
	if readErr != nil {
		return res, errors.E(readErr, "read", opts.BAMPath)
	}
	if workErr != nil {
		return res, workErr
	}

	res.Stats = make([]feature.Stats, len(opts.Types))
	for _, w := range workers {
		res.MalformedReads += w.malformed
		for i, r := range w.recorders {
			res.Stats[i] = res.Stats[i].Merge(r.Stats)
		}
	}
	log.Printf("count: read %d reads (%d with malformed tags)", res.Reads, res.MalformedReads)
	for i, t := range opts.Types {
		log.Printf("count: %v: %v", t, res.Stats[i])
		if err = segs.merge(ctx, i, opts.ReadsPath(t), opts.Gzip); err != nil {
			return
		}
		if err = writeCounts(ctx, opts.CountsPath(t), res.Counts[i]); err != nil {
			return
		}
	}
	err = writeStats(ctx, opts.StatsPath(), opts.Types, res.Stats)
	return
}

// readBatches sends the primary records of br to batchCh. It returns the
// number of records sent.
func readBatches(ctx context.Context, br *bam.Reader, batchSize int, batchCh chan<- batch) (uint64, error) {
	var nRead uint64
	b := batch{recs: make([]*sam.Record, 0, batchSize)}
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nRead, err
		}
		if r.Flags&(sam.Secondary|sam.Supplementary) != 0 {
			sam.PutInFreePool(r)
			continue
		}
		b.recs = append(b.recs, r)
		nRead++
		if nRead%(1024*1024) == 0 {
			log.Printf("count: %dMi reads", nRead/(1024*1024))
		}
		if len(b.recs) == batchSize {
			if err := ctx.Err(); err != nil {
				return nRead, err
			}
			batchCh <- b
			b = batch{start: nRead, recs: make([]*sam.Record, 0, batchSize)}
		}
	}
	if len(b.recs) > 0 {
		batchCh <- b
	}
	return nRead, nil
}

// worker processes batches with one Recorder per feature type.
type worker struct {
	annotator *annotation.Annotator
	wl        *barcode.Whitelist
	recorders []*feature.Recorder
	malformed uint64

	read  annotation.Read
	annot feature.ReadAnnotation
	match barcode.Match
}

// run consumes batchCh until it is closed. After an error it keeps draining
// the channel so that the reader never blocks.
func (w *worker) run(batchCh <-chan batch) error {
	var err error
	for b := range batchCh {
		if err == nil {
			err = w.process(b)
		}
		for _, r := range b.recs {
			sam.PutInFreePool(r)
		}
	}
	if err != nil {
		return err
	}
	for _, r := range w.recorders {
		if err := r.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) process(b batch) error {
	for i, r := range b.recs {
		cb, umi, err := annotation.CellBarcode(r)
		if err != nil {
			w.malformed++
			log.Debug.Printf("count: %v", err)
			continue
		}
		if w.wl != nil {
			w.wl.Match(umi, cb, &w.match)
		} else {
			barcode.NoWhitelist(umi, cb, &w.match)
		}
		if w.match.Status == barcode.NoMatch {
			continue
		}
		if err := w.annotator.Annotate(r, &w.read, &w.annot); err != nil {
			w.malformed++
			log.Debug.Printf("count: %v", err)
		}
		iRead := b.start + uint64(i)
		for _, rec := range w.recorders {
			if err := rec.Record(&w.match, &w.read, iRead, &w.annot); err != nil {
				return err
			}
		}
	}
	return nil
}
