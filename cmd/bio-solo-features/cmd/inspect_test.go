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
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/solo/feature"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	stream := "U1 3 G1 0 7\nU2 4 -1 1 2\nU1 5 G2 2 1,2\nU3 6 G1 0 7\n"
	s, err := summarize(strings.NewReader(stream), feature.Gene, true)
	require.NoError(t, err)
	expect.EQ(t, s.lines, uint64(4))
	expect.EQ(t, s.diagnostic, uint64(1))
	expect.EQ(t, len(s.umis), 3)

	var buf bytes.Buffer
	s.print(&buf)
	expect.EQ(t, buf.String(), "lines\t4\ndiagnostic\t1\nexact\t2\none_inexact\t1\nmultiple_inexact\t1\ndistinct_umis\t3\n")
}

func TestSummarizeErrors(t *testing.T) {
	_, err := summarize(strings.NewReader("U1 G1 7 0\n"), feature.Gene, false)
	expect.NotNil(t, err)
	// Written without read indices, read with them.
	_, err = summarize(strings.NewReader("U1 G1 0 7\n"), feature.Gene, true)
	expect.NotNil(t, err)
}
