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

// VelocytoStatus is the splicing state of a read. The states are mutually
// exclusive.
type VelocytoStatus uint8

const (
	VelocytoNone VelocytoStatus = iota
	Spliced
	Unspliced
	Ambiguous
)

// Velocyto is the velocyto call for a read.
type Velocyto struct {
	Gene   string
	Status VelocytoStatus
}

// TranscriptHit is a transcript a read is concordant with, and the distance
// from the read to the transcript's 3' end.
type TranscriptHit struct {
	ID       string
	Distance uint32
}

// Junction is a splice junction crossed by an alignment. Start and End are the
// first and the last intron base, in whatever coordinate system the aligner
// uses.
type Junction struct {
	Start, End uint64
}

// ReadAnnotation holds the annotation-derived sets for one read. The gene sets
// must not contain duplicates; their order is irrelevant.
type ReadAnnotation struct {
	// GeneConcordant lists the genes whose exons are consistent with the read.
	GeneConcordant []string
	// GeneFull lists the genes whose full span (exons and introns) is
	// consistent with the read.
	GeneFull []string
	// TranscriptConcordant lists the transcripts consistent with the read, in
	// annotation order.
	TranscriptConcordant []TranscriptHit
	Velocyto             Velocyto
}

// Reset clears the annotation, keeping the allocated slices.
func (a *ReadAnnotation) Reset() {
	a.GeneConcordant = a.GeneConcordant[:0]
	a.GeneFull = a.GeneFull[:0]
	a.TranscriptConcordant = a.TranscriptConcordant[:0]
	a.Velocyto = Velocyto{}
}

// Alignment is the part of a read's alignment result used for classification.
type Alignment interface {
	// NumAlignments returns the number of loci the read aligned to. Zero
	// means unmapped.
	NumAlignments() int
	// SpliceJunctions returns the junctions crossed by the alignment, in
	// alignment order, and whether at least one of them is annotated.
	SpliceJunctions() (sj []Junction, annotated bool)
}
