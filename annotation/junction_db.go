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

package annotation

import (
	"context"
	"fmt"
	"io"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// junctionKey identifies an intron by reference name and 1-based, closed
// [start, end] coordinates.
type junctionKey struct {
	ref        string
	start, end int
}

// Compare compares two junctionKey objects for use in llrb.
func (k junctionKey) Compare(c2 llrb.Comparable) int {
	k2 := c2.(junctionKey)
	if k.ref != k2.ref {
		if k.ref < k2.ref {
			return -1
		}
		return 1
	}
	if diff := k.start - k2.start; diff != 0 {
		return diff
	}
	return k.end - k2.end
}

// JunctionDB is a set of annotated splice junctions.
type JunctionDB struct {
	tree llrb.Tree
}

// junctionRow is one line of a junction file, e.g. STAR's sjdbList.out.tab.
type junctionRow struct {
	Chrom  string
	Start  int
	End    int
	Strand string
}

// NewJunctionDB reads junctions from r. Each line has four tab-separated
// columns: reference name, 1-based first intron base, 1-based last intron
// base, and strand. Lines starting with '#' are ignored.
func NewJunctionDB(r io.Reader) (*JunctionDB, error) {
	db := &JunctionDB{}
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	var row junctionRow
	for nLine := 1; ; nLine++ {
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, fmt.Sprintf("junction line %d", nLine), err)
		}
		if row.Start <= 0 || row.End < row.Start {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("junction line %d: invalid interval %s:%d-%d", nLine, row.Chrom, row.Start, row.End))
		}
		db.Add(row.Chrom, row.Start, row.End)
	}
	return db, nil
}

// LoadJunctionDB reads a junction file, see NewJunctionDB.
func LoadJunctionDB(ctx context.Context, path string) (db *JunctionDB, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open junctions", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	if db, err = NewJunctionDB(r); err != nil {
		return nil, errors.E(err, path)
	}
	log.Printf("Loaded %d annotated junctions from %s", db.Len(), path)
	return db, nil
}

// Add registers the junction ref:[start,end] (1-based, closed).
func (db *JunctionDB) Add(ref string, start, end int) {
	db.tree.Insert(junctionKey{ref, start, end})
}

// Contains reports whether ref:[start,end] is annotated.
func (db *JunctionDB) Contains(ref string, start, end int) bool {
	return db.tree.Get(junctionKey{ref, start, end}) != nil
}

// Len returns the number of junctions.
func (db *JunctionDB) Len() int {
	return db.tree.Len()
}
