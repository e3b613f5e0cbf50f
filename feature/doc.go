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

/*
Package feature assigns aligned single-cell reads to countable features and
records them for downstream UMI deduplication.

For one feature type per pass, each read goes through three steps:

  1. Classify decides whether the read counts at all, and if so which gene,
     splice junctions, or transcript hits it counts toward. Rejections bump one
     of the Stats counters.

  2. Writer appends the record to a line-oriented intermediate stream. The
     fields are space separated:

       diagnostic      UMI [iRead] -1 cbMatch cbMatchString
       gene/velocyto   UMI [iRead] geneID cbMatch cbMatchString
       SJ (repeated)   UMI [iRead] sjStart sjEnd cbMatch cbMatchString
       Transcript3p    UMI [iRead] n (transcriptID distance)*n cbMatch cbMatchString

     iRead is present only when per-read info was requested. cbMatch is the
     barcode.MatchStatus code (0 exact, 1 one inexact, 2 multiple inexact).

  3. Counts adds the number of written lines to every whitelist candidate of the
     read's cell barcode, or to the barcode itself when there is no whitelist.

Recorder ties the three together. A Recorder is owned by a single goroutine;
Counts implementations are safe for concurrent use, so several Recorders, each
with its own stream, may share one Counts.
*/
package feature
