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

import "fmt"

// Reason is the outcome of Classify. ReasonNone means the read is eligible.
type Reason int

const (
	ReasonNone Reason = iota
	// Unmapped: the read has no alignment.
	Unmapped
	// NoFeature: the read maps, but to no feature of the requested type.
	NoFeature
	// AmbiguousFeature: the read is consistent with more than one gene.
	AmbiguousFeature
	// AmbiguousFeatureMultimap: the feature is ambiguous because the read
	// maps to more than one locus.
	AmbiguousFeatureMultimap
)

var reasonNames = [...]string{
	ReasonNone:               "none",
	Unmapped:                 "unmapped",
	NoFeature:                "no_feature",
	AmbiguousFeature:         "ambiguous_feature",
	AmbiguousFeatureMultimap: "ambiguous_feature_multimap",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

// Stats counts rejected reads by reason. A Stats is owned by one goroutine;
// per-worker Stats are combined with Merge at the end of a run.
type Stats struct {
	// Unmapped is the # of reads with no alignment.
	Unmapped uint64
	// NoFeature is the # of mapped reads not assigned to any feature.
	NoFeature uint64
	// AmbiguousFeature is the # of reads consistent with more than one gene.
	AmbiguousFeature uint64
	// AmbiguousFeatureMultimap is the # of reads whose feature is ambiguous
	// because of multimapping. For Gene and GeneFull, such reads are also
	// counted in AmbiguousFeature.
	AmbiguousFeatureMultimap uint64
	// Records is the # of lines written to the intermediate stream.
	Records uint64
}

func (s *Stats) inc(r Reason) {
	switch r {
	case Unmapped:
		s.Unmapped++
	case NoFeature:
		s.NoFeature++
	case AmbiguousFeature:
		s.AmbiguousFeature++
	case AmbiguousFeatureMultimap:
		s.AmbiguousFeatureMultimap++
	default:
		panic(r)
	}
}

// Get returns the counter for the given reason. Get(ReasonNone) returns
// Records.
func (s Stats) Get(r Reason) uint64 {
	switch r {
	case ReasonNone:
		return s.Records
	case Unmapped:
		return s.Unmapped
	case NoFeature:
		return s.NoFeature
	case AmbiguousFeature:
		return s.AmbiguousFeature
	case AmbiguousFeatureMultimap:
		return s.AmbiguousFeatureMultimap
	}
	panic(r)
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Unmapped += o.Unmapped
	s.NoFeature += o.NoFeature
	s.AmbiguousFeature += o.AmbiguousFeature
	s.AmbiguousFeatureMultimap += o.AmbiguousFeatureMultimap
	s.Records += o.Records
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("unmapped:%d no_feature:%d ambiguous_feature:%d ambiguous_feature_multimap:%d records:%d",
		s.Unmapped, s.NoFeature, s.AmbiguousFeature, s.AmbiguousFeatureMultimap, s.Records)
}
