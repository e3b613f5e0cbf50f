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

// Record is the feature a read was assigned to. Which field is set depends on
// Type: Gene for Gene, GeneFull and the velocyto types, Junctions for SJ, and
// Transcripts for Transcript3p.
type Record struct {
	Type        Type
	Gene        string
	Junctions   []Junction
	Transcripts []TranscriptHit
}

// Classify decides whether a read counts toward a feature of type t. On
// success it returns the record and ReasonNone. Otherwise it returns the
// rejection reason and bumps the matching counter in stats.
//
// For Gene and GeneFull, a read ambiguous between genes that also maps to
// several loci is counted in both AmbiguousFeature and
// AmbiguousFeatureMultimap. The returned reason is AmbiguousFeature.
//
// The returned record may alias slices in annot.
func Classify(aln Alignment, annot *ReadAnnotation, t Type, stats *Stats) (Record, Reason) {
	rec := Record{Type: t}
	nAlign := aln.NumAlignments()
	if nAlign == 0 {
		stats.inc(Unmapped)
		return rec, Unmapped
	}
	var reason Reason
	switch t {
	case Gene:
		reason = classifyGene(&rec, annot.GeneConcordant, nAlign, stats)
	case GeneFull:
		reason = classifyGene(&rec, annot.GeneFull, nAlign, stats)
	case SJ:
		reason = classifySJ(&rec, aln, annot.GeneConcordant, nAlign)
	case Transcript3p:
		if len(annot.TranscriptConcordant) == 0 {
			reason = NoFeature
		} else {
			rec.Transcripts = annot.TranscriptConcordant
		}
	case VelocytoSpliced, VelocytoUnspliced, VelocytoAmbiguous:
		if annot.Velocyto.Status == t.velocytoStatus() {
			rec.Gene = annot.Velocyto.Gene
		} else {
			reason = NoFeature
		}
	default:
		panic(t)
	}
	if reason != ReasonNone {
		stats.inc(reason)
	}
	return rec, reason
}

// classifyGene handles Gene and GeneFull. genes is the concordant set selected
// by the caller.
func classifyGene(rec *Record, genes []string, nAlign int, stats *Stats) Reason {
	switch len(genes) {
	case 0:
		return NoFeature
	case 1:
		rec.Gene = genes[0]
		return ReasonNone
	}
	if nAlign > 1 {
		stats.inc(AmbiguousFeatureMultimap)
	}
	return AmbiguousFeature
}

// classifySJ handles SJ. Junctions are never counted for multimappers.
func classifySJ(rec *Record, aln Alignment, genes []string, nAlign int) Reason {
	if nAlign > 1 {
		return AmbiguousFeatureMultimap
	}
	if len(genes) > 1 {
		return AmbiguousFeature
	}
	sj, annotated := aln.SpliceJunctions()
	// A read crossing an annotated junction without matching any transcript
	// of a gene is not counted.
	if len(sj) == 0 || (annotated && len(genes) == 0) {
		return NoFeature
	}
	rec.Junctions = sj
	return ReasonNone
}
