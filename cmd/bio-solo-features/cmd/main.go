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
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/solo/count"
	"github.com/grailbio/solo/feature"
	"v.io/x/lib/cmdline"
)

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Record the features of each read and count records per cell barcode",
		ArgsName: "bampath",
		Long: `
Count reads every primary record of an annotated BAM file, and for each
requested feature type writes

  <output>.<type>.reads.txt    one line per record, consumed by UMI deduplication
  <output>.<type>.counts.tsv   # of records per cell barcode

plus <output>.stats.tsv with the number of reads rejected per reason.
`,
	}
	opts := count.DefaultOpts
	typesFlag := cmd.Flags.String("features", "Gene", `Comma-separated list of feature types, among
Gene, GeneFull, SJ, Transcript3p, VelocytoSpliced, VelocytoUnspliced, VelocytoAmbiguous.`)
	cmd.Flags.StringVar(&opts.WhitelistPath, "whitelist", "", "Cell barcode whitelist, one barcode per line. If empty, every barcode is counted separately.")
	cmd.Flags.StringVar(&opts.JunctionDBPath, "sjdb", "", "Tab-separated list of annotated junctions (chrom, start, end, strand), used for reads without a jM tag.")
	cmd.Flags.StringVar(&opts.OutputPrefix, "output", "", "Output path prefix.")
	cmd.Flags.BoolVar(&opts.ReadInfo, "read-info", false, "Write read indices, and a diagnostic line for reads without a feature.")
	cmd.Flags.BoolVar(&opts.Gzip, "gzip", false, "Gzip the record streams.")
	cmd.Flags.IntVar(&opts.Parallelism, "parallelism", 0, "Number of worker goroutines. 0 means the number of CPUs.")
	cmd.Flags.IntVar(&opts.BatchSize, "batch-size", count.DefaultOpts.BatchSize, "Number of reads handed to a worker at a time.")
	cmd.Flags.StringVar(&opts.TempDir, "temp-dir", "", "Directory for temporary stream segments.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("count takes one BAM path, but got %v", argv)
		}
		types, err := feature.ParseTypes(*typesFlag)
		if err != nil {
			return err
		}
		opts.BAMPath = argv[0]
		opts.Types = types
		_, err = count.Run(vcontext.Background(), opts)
		return err
	})
	return cmd
}

func newCmdInspect() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "inspect",
		Short:    "Validate a record stream and print a summary",
		ArgsName: "path",
	}
	typeFlag := cmd.Flags.String("feature", "Gene", "Feature type the stream was written for.")
	readInfo := cmd.Flags.Bool("read-info", false, "The stream was written with -read-info.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("inspect takes one path, but got %v", argv)
		}
		t, err := feature.ParseType(*typeFlag)
		if err != nil {
			return err
		}
		if !t.Valid() {
			return fmt.Errorf("inspect: invalid feature type %q", *typeFlag)
		}
		summary, err := inspect(vcontext.Background(), argv[0], t, *readInfo)
		if err != nil {
			return err
		}
		summary.print(env.Stdout)
		return nil
	})
	return cmd
}

// Run is the entry point of bio-solo-features.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-solo-features",
			Short:    "Tools for single-cell feature counting",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCount(),
				newCmdInspect(),
			},
		})
}
