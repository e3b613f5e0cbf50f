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

// Package annotation derives the per-read inputs of package feature from BAM
// records produced by an aligner that annotates reads with aux tags:
//
//   NH:i  number of loci the read aligns to
//   GX:Z  genes whose exons are concordant with the read, ';'-separated, '-' if none
//   GF:Z  genes whose full span is concordant with the read, same syntax
//   TX:Z  transcript hits, "id,distance;id,distance"
//   VG:Z  velocyto gene
//   VS:i  velocyto status: 0 none, 1 spliced, 2 unspliced, 3 ambiguous
//   jM:B  junction motifs; a value >= 20 marks an annotated junction
//   CR:Z  raw cell barcode (CB:Z is used if CR is missing)
//   UR:Z  raw UMI (UB:Z is used if UR is missing)
//
// Splice junctions are the CIGAR 'N' operations, reported in
// concatenated-genome coordinates: the references of the BAM header are laid
// end to end in header order.
package annotation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/solo/feature"
)

var (
	nhTag = sam.Tag{'N', 'H'}
	gxTag = sam.Tag{'G', 'X'}
	gfTag = sam.Tag{'G', 'F'}
	txTag = sam.Tag{'T', 'X'}
	vgTag = sam.Tag{'V', 'G'}
	vsTag = sam.Tag{'V', 'S'}
	jmTag = sam.Tag{'j', 'M'}
	crTag = sam.Tag{'C', 'R'}
	cbTag = sam.Tag{'C', 'B'}
	urTag = sam.Tag{'U', 'R'}
	ubTag = sam.Tag{'U', 'B'}
)

// annotatedMotifOffset is added to a jM motif value for annotated junctions.
const annotatedMotifOffset = 20

// Annotator extracts annotations from records of one BAM file.
type Annotator struct {
	offsets map[*sam.Reference]uint64
	db      *JunctionDB
}

// NewAnnotator creates an Annotator for BAM files with the given header. db,
// if non-nil, marks annotated junctions of reads without a jM tag.
func NewAnnotator(header *sam.Header, db *JunctionDB) *Annotator {
	a := &Annotator{offsets: map[*sam.Reference]uint64{}, db: db}
	var offset uint64
	for _, ref := range header.Refs() {
		a.offsets[ref] = offset
		offset += uint64(ref.Len())
	}
	return a
}

// Read is the alignment of one read. It implements feature.Alignment.
type Read struct {
	a      *Annotator
	r      *sam.Record
	nAlign int

	junctions []feature.Junction
}

// NumAlignments implements feature.Alignment.
func (r *Read) NumAlignments() int { return r.nAlign }

// SpliceJunctions implements feature.Alignment. The junctions are computed on
// demand.
func (r *Read) SpliceJunctions() ([]feature.Junction, bool) {
	r.junctions = r.junctions[:0]
	if r.nAlign == 0 || r.r.Ref == nil {
		return r.junctions, false
	}
	var (
		offset    = r.a.offsets[r.r.Ref]
		pos       = r.r.Pos
		annotated bool
	)
	motifs, hasMotifs := junctionMotifs(r.r)
	for _, op := range r.r.Cigar {
		n := op.Len()
		if op.Type() == sam.CigarSkipped {
			r.junctions = append(r.junctions, feature.Junction{
				Start: offset + uint64(pos) + 1,
				End:   offset + uint64(pos+n),
			})
			if !hasMotifs && r.a.db != nil && r.a.db.Contains(r.r.Ref.Name(), pos+1, pos+n) {
				annotated = true
			}
		}
		pos += n * op.Type().Consumes().Reference
	}
	for _, m := range motifs {
		if m >= annotatedMotifOffset {
			annotated = true
		}
	}
	return r.junctions, annotated
}

// Annotate fills read and annot from r. It returns an error if a tag is
// malformed; read and annot are then reset to an unmapped, unannotated read.
func (a *Annotator) Annotate(r *sam.Record, read *Read, annot *feature.ReadAnnotation) error {
	read.a = a
	read.r = r
	read.nAlign = 0
	annot.Reset()
	if r.Flags&sam.Unmapped != 0 {
		return nil
	}
	err := a.annotate(r, read, annot)
	if err != nil {
		read.nAlign = 0
		annot.Reset()
	}
	return err
}

func (a *Annotator) annotate(r *sam.Record, read *Read, annot *feature.ReadAnnotation) (err error) {
	read.nAlign = 1
	if aux := r.AuxFields.Get(nhTag); aux != nil {
		if read.nAlign, err = auxInt(aux); err != nil {
			return err
		}
	}
	if annot.GeneConcordant, err = geneSet(r, gxTag, annot.GeneConcordant); err != nil {
		return err
	}
	if annot.GeneFull, err = geneSet(r, gfTag, annot.GeneFull); err != nil {
		return err
	}
	if annot.TranscriptConcordant, err = transcripts(r, annot.TranscriptConcordant); err != nil {
		return err
	}
	if aux := r.AuxFields.Get(vsTag); aux != nil {
		status, err := auxInt(aux)
		if err != nil {
			return err
		}
		if status < int(feature.VelocytoNone) || status > int(feature.Ambiguous) {
			return fmt.Errorf("%s: invalid velocyto status %d", r.Name, status)
		}
		annot.Velocyto.Status = feature.VelocytoStatus(status)
		if annot.Velocyto.Gene, err = auxString(r, vgTag); err != nil {
			return err
		}
		if annot.Velocyto.Status != feature.VelocytoNone && annot.Velocyto.Gene == "" {
			return fmt.Errorf("%s: velocyto status %d without a gene", r.Name, status)
		}
	}
	return nil
}

// CellBarcode returns the raw cell barcode and UMI of r. CB and UB are used
// only when CR and UR are absent; a tag of the wrong type is an error.
func CellBarcode(r *sam.Record) (cb, umi string, err error) {
	if cb, err = auxStringFallback(r, crTag, cbTag); err != nil {
		return "", "", err
	}
	if umi, err = auxStringFallback(r, urTag, ubTag); err != nil {
		return "", "", err
	}
	return cb, umi, nil
}

func auxStringFallback(r *sam.Record, tag, fallback sam.Tag) (string, error) {
	if r.AuxFields.Get(tag) != nil {
		return auxString(r, tag)
	}
	return auxString(r, fallback)
}

func auxString(r *sam.Record, tag sam.Tag) (string, error) {
	aux := r.AuxFields.Get(tag)
	if aux == nil {
		return "", nil
	}
	s, ok := aux.Value().(string)
	if !ok {
		return "", fmt.Errorf("%s: tag %s is not a string: %v", r.Name, tag, aux.Value())
	}
	return s, nil
}

func auxInt(aux sam.Aux) (int, error) {
	switch v := aux.Value().(type) {
	case int8:
		return int(v), nil
	case uint8:
		return int(v), nil
	case int16:
		return int(v), nil
	case uint16:
		return int(v), nil
	case int32:
		return int(v), nil
	case uint32:
		return int(v), nil
	}
	return 0, fmt.Errorf("tag %s is not an integer: %v", aux.Tag(), aux.Value())
}

// geneSet parses a ';'-separated gene list, dropping duplicates. The result
// is appended to dst[:0].
func geneSet(r *sam.Record, tag sam.Tag, dst []string) ([]string, error) {
	dst = dst[:0]
	s, err := auxString(r, tag)
	if err != nil || s == "" || s == "-" {
		return dst, err
	}
outer:
	for _, g := range strings.Split(s, ";") {
		if g == "" || g == "-" {
			continue
		}
		for _, prev := range dst {
			if prev == g {
				continue outer
			}
		}
		dst = append(dst, g)
	}
	return dst, nil
}

// transcripts parses the TX tag. The result is appended to dst[:0].
func transcripts(r *sam.Record, dst []feature.TranscriptHit) ([]feature.TranscriptHit, error) {
	dst = dst[:0]
	s, err := auxString(r, txTag)
	if err != nil || s == "" || s == "-" {
		return dst, err
	}
	for _, hit := range strings.Split(s, ";") {
		comma := strings.IndexByte(hit, ',')
		if comma <= 0 {
			return dst, fmt.Errorf("%s: malformed transcript hit %q", r.Name, hit)
		}
		dist, err := strconv.ParseUint(hit[comma+1:], 10, 32)
		if err != nil {
			return dst, fmt.Errorf("%s: malformed transcript hit %q: %v", r.Name, hit, err)
		}
		dst = append(dst, feature.TranscriptHit{ID: hit[:comma], Distance: uint32(dist)})
	}
	return dst, nil
}

// junctionMotifs returns the values of the jM tag.
func junctionMotifs(r *sam.Record) ([]int, bool) {
	aux := r.AuxFields.Get(jmTag)
	if aux == nil {
		return nil, false
	}
	var motifs []int
	switch v := aux.Value().(type) {
	case []int8:
		for _, m := range v {
			motifs = append(motifs, int(m))
		}
	case []uint8:
		for _, m := range v {
			motifs = append(motifs, int(m))
		}
	default:
		return nil, false
	}
	return motifs, true
}
