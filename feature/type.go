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
	"fmt"
	"strings"
)

// Type is the kind of feature a read is counted toward. A run processes one
// Type per pass.
type Type int

const (
	// None means "no feature". As a configured type it disables recording; as
	// the argument to Writer.Write it requests a diagnostic line.
	None Type = iota - 1
	// Gene counts reads concordant with exactly one gene's exons.
	Gene
	// GeneFull counts reads concordant with exactly one gene, exons and introns.
	GeneFull
	// SJ counts the splice junctions crossed by uniquely mapped reads.
	SJ
	// Transcript3p records transcript hits with their distance to the 3' end.
	Transcript3p
	// VelocytoSpliced counts reads classified as spliced.
	VelocytoSpliced
	// VelocytoUnspliced counts reads classified as unspliced.
	VelocytoUnspliced
	// VelocytoAmbiguous counts reads whose splicing state is ambiguous.
	VelocytoAmbiguous

	numTypes = int(VelocytoAmbiguous) + 1
)

var typeNames = [numTypes]string{
	Gene:              "Gene",
	GeneFull:          "GeneFull",
	SJ:                "SJ",
	Transcript3p:      "Transcript3p",
	VelocytoSpliced:   "VelocytoSpliced",
	VelocytoUnspliced: "VelocytoUnspliced",
	VelocytoAmbiguous: "VelocytoAmbiguous",
}

// AllTypes lists every countable feature type, in declaration order.
var AllTypes = []Type{Gene, GeneFull, SJ, Transcript3p, VelocytoSpliced, VelocytoUnspliced, VelocytoAmbiguous}

// String returns the canonical name of the type, e.g. "GeneFull".
func (t Type) String() string {
	if t == None {
		return "None"
	}
	if t < 0 || int(t) >= numTypes {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of AllTypes.
func (t Type) Valid() bool {
	return t >= 0 && int(t) < numTypes
}

// velocytoStatus returns the velocyto status required by a velocyto type.
func (t Type) velocytoStatus() VelocytoStatus {
	switch t {
	case VelocytoSpliced:
		return Spliced
	case VelocytoUnspliced:
		return Unspliced
	case VelocytoAmbiguous:
		return Ambiguous
	}
	panic(t)
}

// ParseType parses a type name. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(name, s) {
			return Type(i), nil
		}
	}
	if strings.EqualFold(s, "None") {
		return None, nil
	}
	return None, fmt.Errorf("unknown feature type %q", s)
}

// ParseTypes parses a comma-separated list of type names. Duplicates are
// removed; the order of first appearance is kept.
func ParseTypes(s string) ([]Type, error) {
	var (
		types []Type
		seen  [numTypes]bool
	)
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		if t == None || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types, nil
}
