// SPDX-License-Identifier: EPL-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	ear "github.com/ebu/ebu-adm-renderer"
	"github.com/ebu/ebu-adm-renderer/bw64"
)

func utilsCommand(args []string) error {
	if len(args) < 1 {
		return usageError{msg: "utils needs a subcommand"}
	}

	switch args[0] {
	case "make_test_bwf":
		return makeTestBWFCommand(args[1:])
	case "ambix_to_bwf":
		return ambixToBWFCommand(args[1:])
	case "replace_axml":
		return replaceAXMLCommand(args[1:], false)
	case "regenerate":
		return replaceAXMLCommand(args[1:], true)
	case "dump_axml":
		return dumpAXMLCommand(args[1:])
	case "dump_chna":
		return dumpChnaCommand(args[1:])
	default:
		return usageError{msg: fmt.Sprintf("unknown utils subcommand %q", args[0])}
	}
}

func makeTestBWFCommand(args []string) error {
	fs := flag.NewFlagSet("make_test_bwf", flag.ContinueOnError)
	azimuthsArg := fs.String("azimuths", "0", "comma-separated object azimuths, one per input channel")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 2 {
		return usageError{msg: "make_test_bwf needs an input audio file and an output file"}
	}

	var azimuths []float64
	for _, part := range strings.Split(*azimuthsArg, ",") {
		az, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return usageError{msg: "invalid azimuth: " + part}
		}
		azimuths = append(azimuths, az)
	}

	return ear.MakeTestBWF(fs.Arg(0), fs.Arg(1), azimuths)
}

func ambixToBWFCommand(args []string) error {
	fs := flag.NewFlagSet("ambix_to_bwf", flag.ContinueOnError)
	norm := fs.String("norm", "SN3D", "normalization of the input file")
	nfcDist := fs.Float64("nfc-ref-dist", 0, "NFC reference distance")
	screenRef := fs.Bool("screenref", false, "mark the content as screen related")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 2 {
		return usageError{msg: "ambix_to_bwf needs an input ambiX file and an output file"}
	}

	return ear.AmbixToBWF(fs.Arg(0), fs.Arg(1), *norm, *nfcDist, *screenRef)
}

func replaceAXMLCommand(args []string, regenerate bool) error {
	fs := flag.NewFlagSet("replace_axml", flag.ContinueOnError)
	axmlFile := fs.String("a", "", "axml file to insert (default: reuse the input's axml)")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 2 {
		return usageError{msg: "needs an input file and an output file"}
	}

	var axml []byte
	if *axmlFile != "" {
		var err error
		if axml, err = os.ReadFile(*axmlFile); err != nil {
			return err
		}
	} else {
		reader, closeFile, err := openBW64(fs.Arg(0))
		if err != nil {
			return err
		}
		axml = reader.AXML()
		closeFile()
		if axml == nil {
			return fmt.Errorf("input has no axml chunk and no -a given")
		}
	}

	return ear.ReplaceAXML(fs.Arg(0), fs.Arg(1), axml, regenerate)
}

func openBW64(path string) (*bw64.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	reader, err := bw64.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return reader, func() { f.Close() }, nil
}

func dumpAXMLCommand(args []string) error {
	if len(args) != 1 {
		return usageError{msg: "dump_axml needs an input file"}
	}

	reader, closeFile, err := openBW64(args[0])
	if err != nil {
		return err
	}
	defer closeFile()

	os.Stdout.Write(reader.AXML())
	return nil
}

func dumpChnaCommand(args []string) error {
	if len(args) != 1 {
		return usageError{msg: "dump_chna needs an input file"}
	}

	reader, closeFile, err := openBW64(args[0])
	if err != nil {
		return err
	}
	defer closeFile()

	for _, entry := range reader.CHNA() {
		fmt.Printf("%d %s %s %s\n", entry.TrackIndex, entry.UID, entry.TrackOrChannelRef, entry.PackRef)
	}
	return nil
}
