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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/solo/barcode"
)

// Line is one parsed line of the intermediate stream.
type Line struct {
	UMI string
	// ReadIndex is NoReadIndex if the stream has no read indices.
	ReadIndex uint64
	// Diagnostic is set for the "-1" lines of reads without a feature.
	Diagnostic bool
	// Gene is set for Gene, GeneFull and velocyto lines.
	Gene string
	// Junction is set for SJ lines.
	Junction Junction
	// Transcripts is set for Transcript3p lines.
	Transcripts []TranscriptHit
	MatchStatus barcode.MatchStatus
	MatchString string
}

// Scanner reads the intermediate stream written for one feature type. The
// caller must know whether the stream was written with read indices.
//
//   sc := feature.NewScanner(r, feature.Gene, false)
//   for sc.Scan() {
//     l := sc.Line()
//     ...
//   }
//   if err := sc.Err(); err != nil { ... }
type Scanner struct {
	sc       *bufio.Scanner
	t        Type
	readInfo bool
	nLine    int
	line     Line
	err      error
}

// NewScanner creates a Scanner reading lines of type t from r.
func NewScanner(r io.Reader, t Type, readInfo bool) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	return &Scanner{sc: sc, t: t, readInfo: readInfo}
}

// Scan reads the next line. It returns false at the end of the stream or on
// error.
func (s *Scanner) Scan() bool {
	if s.err != nil || !s.sc.Scan() {
		return false
	}
	s.nLine++
	if err := s.parse(s.sc.Text()); err != nil {
		s.err = errors.E(errors.Invalid, fmt.Sprintf("line %d: %v", s.nLine, err))
		return false
	}
	return true
}

// Line returns the line read by the last successful Scan. The Transcripts
// slice is reused by the next Scan.
func (s *Scanner) Line() Line { return s.line }

// Err returns the first error encountered.
func (s *Scanner) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.sc.Err()
}

func (s *Scanner) parse(text string) (err error) {
	f := strings.Split(text, " ")
	transcripts := s.line.Transcripts[:0]
	s.line = Line{ReadIndex: NoReadIndex}
	if len(f) < 4 {
		return fmt.Errorf("too few fields: %q", text)
	}
	s.line.UMI = f[0]
	f = f[1:]
	if s.readInfo {
		if s.line.ReadIndex, err = strconv.ParseUint(f[0], 10, 64); err != nil {
			return err
		}
		f = f[1:]
	}
	// The last two fields are always the barcode match.
	n := len(f)
	if n < 3 {
		return fmt.Errorf("too few fields: %q", text)
	}
	status, err := strconv.Atoi(f[n-2])
	if err != nil {
		return err
	}
	s.line.MatchStatus = barcode.MatchStatus(status)
	s.line.MatchString = f[n-1]
	f = f[:n-2]

	if len(f) == 1 && f[0] == "-1" {
		s.line.Diagnostic = true
		return nil
	}
	switch s.t {
	case Gene, GeneFull, VelocytoSpliced, VelocytoUnspliced, VelocytoAmbiguous:
		if len(f) != 1 {
			return fmt.Errorf("expect one gene field: %q", text)
		}
		s.line.Gene = f[0]
	case SJ:
		if len(f) != 2 {
			return fmt.Errorf("expect two junction fields: %q", text)
		}
		if s.line.Junction.Start, err = strconv.ParseUint(f[0], 10, 64); err != nil {
			return err
		}
		if s.line.Junction.End, err = strconv.ParseUint(f[1], 10, 64); err != nil {
			return err
		}
	case Transcript3p:
		nTr, err := strconv.Atoi(f[0])
		if err != nil {
			return err
		}
		if len(f) != 1+2*nTr {
			return fmt.Errorf("expect %d transcripts: %q", nTr, text)
		}
		for i := 0; i < nTr; i++ {
			dist, err := strconv.ParseUint(f[2+2*i], 10, 32)
			if err != nil {
				return err
			}
			transcripts = append(transcripts, TranscriptHit{ID: f[1+2*i], Distance: uint32(dist)})
		}
		s.line.Transcripts = transcripts
	default:
		return fmt.Errorf("cannot parse lines of type %v", s.t)
	}
	return nil
}
