// SPDX-License-Identifier: EPL-2.0

// Command ear renders BW64 files carrying ADM metadata to loudspeaker
// layouts, and provides utilities for working with such files.
//
// Usage:
//
//	ear render <in> <out> -s <target_layout> [options]
//	ear utils <subcommand> [options]
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	ear "github.com/ebu/ebu-adm-renderer"
	"github.com/ebu/ebu-adm-renderer/layout"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  ear render <in> <out> -s <target_layout> [options]
  ear utils {make_test_bwf|replace_axml|dump_axml|dump_chna|ambix_to_bwf|regenerate} [options]

available layouts: %s
`, strings.Join(layout.Names(), ", "))
	os.Exit(2)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = renderCommand(os.Args[2:])
	case "utils":
		err = utilsCommand(os.Args[2:])
	default:
		usage()
	}

	if err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, usageErr.Error())
			os.Exit(2)
		}

		logrus.Errorf("%s: %s", ear.Kind(err), err)
		os.Exit(1)
	}
}

// usageError distinguishes argument problems (exit code 2) from runtime
// errors (exit code 1).
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
