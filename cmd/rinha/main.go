// Command rinha runs and inspects compiled Rinha programs. It never
// parses Rinha source text itself (§1 Non-goals: producing the AST
// from source is out of scope); every verb reads an already-built AST
// document in the JSON form ast.UnmarshalFile expects.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// defaultSourcePath is the deployment-default AST document location,
// mirroring the reference `rinha` CLI's fixed interpreter input path.
const defaultSourcePath = "/var/rinha/source.rinha.json"

// sourcePath resolves the AST document path a verb should read: the
// first positional argument, then the RINHA_SOURCE environment
// variable override, then the deployment default path.
func sourcePath(args []string) (string, bool) {
	if len(args) > 0 {
		return args[0], true
	}
	if p := os.Getenv("RINHA_SOURCE"); p != "" {
		return p, true
	}
	return defaultSourcePath, true
}
