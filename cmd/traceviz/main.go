// traceviz compiles agent execution traces into positioned layout trees
// and serves them over HTTP, SSE, and MCP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rendis/traceviz/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "layout":
		err = runLayout(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "traceviz:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `traceviz - execution trace visualizer

Usage:
  traceviz layout  -f trace.json [-names names.json] [-filter expr] [-engine cel|expr|jq] [-diagnostics]
  traceviz render  -f trace.json -format mermaid|ascii|png [-o file]
  traceviz ingest  -f trace.json [-session id] [-name label]
  traceviz serve
  traceviz mcp
  traceviz version
`)
}

// newLogger builds the process logger with correlation attributes
// resolved from context.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
