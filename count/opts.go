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

package count

import (
	"fmt"
	"runtime"

	"github.com/grailbio/solo/feature"
)

// Opts configures Run.
type Opts struct {
	// BAMPath is the annotated BAM file.
	BAMPath string
	// WhitelistPath is the cell barcode whitelist. If empty, every distinct
	// barcode is counted separately.
	WhitelistPath string
	// JunctionDBPath optionally lists annotated splice junctions, for reads
	// without a jM tag.
	JunctionDBPath string
	// Types lists the feature types to record. Each type gets its own
	// stream and count table.
	Types []feature.Type
	// ReadInfo writes read indices and diagnostic lines for reads without a
	// feature.
	ReadInfo bool
	// OutputPrefix is prepended to the output file names.
	OutputPrefix string
	// Gzip compresses the record streams.
	Gzip bool
	// Parallelism is the number of worker goroutines. Zero means NumCPU.
	Parallelism int
	// BatchSize is the number of reads handed to a worker at a time.
	BatchSize int
	// TempDir holds the per-worker stream segments. Empty means the system
	// default.
	TempDir string
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	Types:       []feature.Type{feature.Gene},
	Parallelism: 0,
	BatchSize:   4096,
}

func (o *Opts) validate() error {
	if o.BAMPath == "" {
		return fmt.Errorf("count: BAM path is not set")
	}
	if o.OutputPrefix == "" {
		return fmt.Errorf("count: output prefix is not set")
	}
	if len(o.Types) == 0 {
		return fmt.Errorf("count: no feature type")
	}
	for _, t := range o.Types {
		if !t.Valid() {
			return fmt.Errorf("count: invalid feature type %v", t)
		}
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultOpts.BatchSize
	}
	return nil
}

// ReadsPath returns the path of the record stream for type t.
func (o *Opts) ReadsPath(t feature.Type) string {
	path := o.OutputPrefix + "." + t.String() + ".reads.txt"
	if o.Gzip {
		path += ".gz"
	}
	return path
}

// CountsPath returns the path of the per-barcode count table for type t.
func (o *Opts) CountsPath(t feature.Type) string {
	return o.OutputPrefix + "." + t.String() + ".counts.tsv"
}

// StatsPath returns the path of the rejection statistics table.
func (o *Opts) StatsPath() string {
	return o.OutputPrefix + ".stats.tsv"
}
