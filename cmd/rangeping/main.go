// Command rangeping sweeps an IPv4 block with a reachability probe and
// keeps per-site history of the outcomes.
//
//	rangeping [sweep] -id north-hall -address 10.12.0.0/22 -save
//	rangeping range -id library -address 192.168.40.0 -mask 255.255.255.0
//	rangeping history -id north-hall
//	rangeping serve
//	rangeping backup -output nightly.tar.gz
//	rangeping restore -input nightly.tar.gz -force
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/rangeping/internal/version"
)

const usage = `usage: rangeping <command> [flags]

commands:
  sweep     probe every host of a range (default)
  range     resolve and cache a range without probing
  history   print a site's history, or list sites with history
  serve     run the HTTP API
  backup    archive the range cache and history files
  restore   unpack a backup archive
  version   print build information

Run "rangeping <command> -h" for the flags of a command.
`

func main() {
	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-version" || args[0] == "--version") {
		fmt.Println(version.Info())
		return
	}
	cmd := "sweep"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var code int
	switch cmd {
	case "sweep":
		code = runSweep(args)
	case "range":
		code = runRange(args)
	case "history":
		code = runHistory(args)
	case "serve":
		code = runServe(args)
	case "backup":
		code = runBackup(args)
	case "restore":
		code = runRestore(args)
	case "version":
		fmt.Println(version.Info())
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		code = 2
	}
	os.Exit(code)
}
