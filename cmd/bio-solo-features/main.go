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
bio-solo-features assigns the reads of an annotated single-cell BAM file to
genes, splice junctions, transcripts or velocyto categories, and writes the
per-read records and per-cell-barcode counts consumed by UMI deduplication.
See github.com/grailbio/solo/feature/doc.go.
*/
package main

import "github.com/grailbio/solo/cmd/bio-solo-features/cmd"

func main() {
	cmd.Run()
}
