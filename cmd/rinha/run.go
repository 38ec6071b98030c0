package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/VFabricio/rinha-vm/ast"
	"github.com/VFabricio/rinha-vm/compiler"
	"github.com/VFabricio/rinha-vm/vm"
)

// runCmd compiles and executes a Rinha AST document.
type runCmd struct {
	printResult bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "compile and execute a Rinha AST document" }
func (*runCmd) Usage() string {
	return `run [-print-result] <file.json>:
  Compile the given AST document and execute it. Falls back to the
  RINHA_SOURCE environment variable if no file is given.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.printResult, "print-result", false, "print the program's final value to stdout")
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, ok := sourcePath(f.Args())
	if !ok {
		fmt.Fprintln(os.Stderr, "run: no AST document given and RINHA_SOURCE is unset")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: reading %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	file, err := ast.UnmarshalFile(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: decoding %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	machine := vm.New(os.Stdout)
	instructions, err := compiler.Compile(file.Expression, machine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	result, err := machine.Run(instructions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	if r.printResult {
		fmt.Println(result.Display())
	}

	return subcommands.ExitSuccess
}
