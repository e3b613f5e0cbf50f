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

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/solo/barcode"
	"github.com/grailbio/solo/feature"
)

// streamSummary tallies the lines of one record stream.
type streamSummary struct {
	lines      uint64
	diagnostic uint64
	// byStatus counts lines per barcode match status, indexed by status+1.
	byStatus [4]uint64
	umis     map[string]struct{}
}

func inspect(ctx context.Context, path string, t feature.Type, readInfo bool) (s streamSummary, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return s, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	s, err = summarize(r, t, readInfo)
	if err != nil {
		err = errors.E(err, path)
	}
	return
}

func summarize(r io.Reader, t feature.Type, readInfo bool) (streamSummary, error) {
	s := streamSummary{umis: map[string]struct{}{}}
	sc := feature.NewScanner(r, t, readInfo)
	for sc.Scan() {
		l := sc.Line()
		s.lines++
		if l.Diagnostic {
			s.diagnostic++
		}
		if l.MatchStatus < barcode.NoMatch || l.MatchStatus > barcode.MultipleInexact {
			return s, errors.E(errors.Invalid, fmt.Sprintf("line %d: invalid barcode match status %d", s.lines, l.MatchStatus))
		}
		s.byStatus[l.MatchStatus+1]++
		s.umis[l.UMI] = struct{}{}
	}
	return s, sc.Err()
}

func (s streamSummary) print(w io.Writer) {
	fmt.Fprintf(w, "lines\t%d\n", s.lines)
	fmt.Fprintf(w, "diagnostic\t%d\n", s.diagnostic)
	for _, st := range []barcode.MatchStatus{barcode.Exact, barcode.OneInexact, barcode.MultipleInexact} {
		fmt.Fprintf(w, "%v\t%d\n", st, s.byStatus[st+1])
	}
	fmt.Fprintf(w, "distinct_umis\t%d\n", len(s.umis))
}
