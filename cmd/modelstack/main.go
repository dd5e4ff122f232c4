// Command modelstack brings up, inspects, and tears down a local AI stack
// (inference server + application server) running under Docker Compose.
package main

import (
	"fmt"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "up":
		return runUp(rest)
	case "down":
		return runDown(rest)
	case "destroy":
		return runDestroy(rest)
	case "status":
		return runStatus(rest)
	case "logs":
		return runLogs(rest)
	case "serve":
		return runServe(rest)
	case "version":
		fmt.Printf("modelstack %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return ExitUsage
	}
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, `modelstack - local AI stack manager

Usage: modelstack <command> [flags]

Commands:
  up       Bring the stack up (preflight, start, wait for readiness)
  down     Stop the stack without removing containers
  destroy  Remove containers (and optionally data volumes)
  status   Show per-service container state and health
  logs     Dump recent service logs
  serve    Run the read-only status HTTP API
  version  Print version information

Common flags:
  -config <path>   Config file (YAML); MODELSTACK_* env vars override

Run "modelstack <command> -h" for command flags.
`)
}
