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

// disasmCmd compiles a Rinha AST document and prints its bytecode
// without executing it, one block per function table entry plus the
// top-level block.
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "compile a Rinha AST document and print its bytecode" }
func (*disasmCmd) Usage() string {
	return `disasm <file.json>:
  Compile the given AST document and print its disassembled bytecode.
`
}

func (*disasmCmd) SetFlags(f *flag.FlagSet) {}

func (*disasmCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, ok := sourcePath(f.Args())
	if !ok {
		fmt.Fprintln(os.Stderr, "disasm: no AST document given and RINHA_SOURCE is unset")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "disasm: reading %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	file, err := ast.UnmarshalFile(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "disasm: decoding %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	machine := vm.New(os.Stdout)
	instructions, err := compiler.Compile(file.Expression, machine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "disasm: %s: %v\n", path, err)
		return subcommands.ExitFailure
	}

	fmt.Println("== top level ==")
	fmt.Print(instructions.String())

	for i, fn := range machine.Functions {
		fmt.Printf("== function %d (arity %d) ==\n", i, fn.Arity)
		fmt.Print(fn.Bytecode.String())
	}

	return subcommands.ExitSuccess
}
