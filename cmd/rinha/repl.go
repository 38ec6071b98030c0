package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"github.com/VFabricio/rinha-vm/ast"
	"github.com/VFabricio/rinha-vm/compiler"
	"github.com/VFabricio/rinha-vm/vm"
)

// replCmd runs an interactive session: each line is one JSON-encoded
// AST term (§1 Non-goals: there is no textual Rinha front-end here),
// compiled and run against a single VM instance kept alive for the
// whole session, so global bindings from one line are visible to the
// next.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "start an interactive session over JSON AST terms" }
func (*replCmd) Usage() string {
	return `repl:
  Read one JSON-encoded AST term per line and evaluate it against a
  persistent VM session.
`
}

func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New("rinha> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "repl: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	machine := vm.New(os.Stdout)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "repl: %v\n", err)
			return subcommands.ExitFailure
		}
		if line == "" {
			continue
		}

		term, err := ast.UnmarshalTerm([]byte(line))
		if err != nil {
			fmt.Fprintf(os.Stderr, "repl: %v\n", err)
			continue
		}

		instructions, err := compiler.Compile(term, machine)
		if err != nil {
			fmt.Fprintf(os.Stderr, "repl: %v\n", err)
			continue
		}

		result, err := machine.Run(instructions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "repl: %v\n", err)
			continue
		}
		fmt.Println(result.Display())
	}

	return subcommands.ExitSuccess
}
