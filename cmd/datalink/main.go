// Command datalink runs selective repeat data link stations.
//
// Usage:
//
//	datalink [-v level] sim [options]
//	datalink [-v level] run [options]
//	datalink [-v level] dump [options] FILE
package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"
)

// command is a subcommand. args[0] is the command name.
type command func(logger *log.Logger, args []string) error

var commands = map[string]command{
	"sim":  simMain,
	"run":  runMain,
	"dump": dumpMain,
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "valid commands: sim, run, dump")
	getopt.PrintUsage(os.Stderr)
	os.Exit(0)
}

func main() {
	optVerbosity := getopt.Uint16Long("verbosity", 'v', uint16(4), "Verbosity level (1 to 5, 1 is lowest)")
	helpFlag := getopt.Bool('h', "Display help")
	getopt.SetParameters("command [options]")

	getopt.Parse()
	args := getopt.Args()

	if *helpFlag || len(args) < 1 {
		printUsage()
	}
	cmd, found := commands[args[0]]
	if !found {
		printUsage()
	}

	logger := newLogger(os.Stderr, *optVerbosity)
	if err := cmd(logger, args); err != nil {
		logger.WithError(err).Fatal(args[0])
	}
}
