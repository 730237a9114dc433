// SPDX-License-Identifier: EPL-2.0

package main

import (
	"flag"
	"os"

	ear "github.com/ebu/ebu-adm-renderer"
)

type stringList []string

func (s *stringList) String() string { return "" }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func renderCommand(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)

	system := fs.String("s", "", "target output system, according to ITU-R BS.2051")
	speakersFile := fs.String("l", "", "layout config file")
	outputGainDB := fs.Float64("output-gain-db", 0, "output gain in dB")
	failOnOverload := fs.Bool("fail-on-overload", false, "fail if an overload condition is detected in the output")
	blockDurationFix := fs.Bool("enable-block-duration-fix", false, "automatically try to fix faulty block format durations")
	programme := fs.String("programme", "", "select an audioProgramme to render by ID")
	strict := fs.Bool("strict", false, "treat all warnings as errors")
	applyConversion := fs.String("apply-conversion", "", "convert Objects positions before rendering: to_cartesian or to_polar")

	var compObjects stringList
	fs.Var(&compObjects, "comp-object", "select an audioObject by ID from a complementary group")

	// accept the conventional argument order: render <in> <out> [options]
	var inPath, outPath string
	if len(args) >= 2 && args[0][0] != '-' && args[1][0] != '-' {
		inPath, outPath = args[0], args[1]
		args = args[2:]
	}

	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if inPath == "" {
		if fs.NArg() != 2 {
			return usageError{msg: "render needs an input file and an output file"}
		}
		inPath, outPath = fs.Arg(0), fs.Arg(1)
	} else if fs.NArg() != 0 {
		return usageError{msg: "unexpected extra arguments"}
	}
	if *system == "" {
		return usageError{msg: "render needs -s <target_layout>"}
	}

	switch *applyConversion {
	case "", "to_cartesian", "to_polar":
	default:
		return usageError{msg: "apply-conversion must be to_cartesian or to_polar"}
	}

	opts := ear.RenderOptions{
		TargetLayout:           *system,
		OutputGainDB:           *outputGainDB,
		FailOnOverload:         *failOnOverload,
		EnableBlockDurationFix: *blockDurationFix,
		Strict:                 *strict,
		ProgrammeID:            *programme,
		ComplementaryObjectIDs: compObjects,
		ApplyConversion:        *applyConversion,
	}

	if *speakersFile != "" {
		f, err := os.Open(*speakersFile)
		if err != nil {
			return err
		}
		defer f.Close()
		opts.SpeakersFile = f
	}

	return ear.RenderFile(inPath, outPath, opts)
}
