// Command simple is the Simple language toolchain driver: it
// interprets source directly, compiles it to SML memory images, runs
// images on the built-in VM, and offers an interactive line-numbered
// shell when started without arguments on a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/goforj/godump"

	"gosimple/pkg/compiler"
	"gosimple/pkg/interp"
	"gosimple/pkg/vm"
)

type mode int

const (
	modeInterpret mode = iota
	modeCompile
	modeCompileRun
	modeExecute
)

func printUsage(program string) {
	fmt.Println("Simple Language Interpreter/Compiler")
	fmt.Printf("Usage: %s [options] <file.simple>\n", program)
	fmt.Println("Options:")
	fmt.Println("  -i, --interpret    Run in interpreter mode (default)")
	fmt.Println("  -c, --compile      Compile to SML and show generated code")
	fmt.Println("  -r, --run          Compile and run on SML VM")
	fmt.Println("  -x, --execute      Execute a .sml file directly")
	fmt.Println("      --debug        Dump compiler internals after -c")
	fmt.Println("  -h, --help         Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s examples/sum.simple           # interpret\n", program)
	fmt.Printf("  %s -c examples/sum.simple        # compile only\n", program)
	fmt.Printf("  %s -r examples/sum.simple        # compile and run\n", program)
	fmt.Printf("  %s -x program.sml                # run SML file\n", program)
}

func main() {
	if len(os.Args) < 2 {
		os.Exit(runInteractive())
	}

	m := modeInterpret
	filename := ""
	debug := false

	for _, arg := range os.Args[1:] {
		switch arg {
		case "-h", "--help":
			printUsage(os.Args[0])
			return
		case "-i", "--interpret":
			m = modeInterpret
		case "-c", "--compile":
			m = modeCompile
		case "-r", "--run":
			m = modeCompileRun
		case "-x", "--execute":
			m = modeExecute
		case "--debug":
			debug = true
		default:
			filename = arg
		}
	}

	if filename == "" {
		fmt.Fprintln(os.Stderr, "Error: No input file specified.")
		printUsage(os.Args[0])
		os.Exit(1)
	}

	switch m {
	case modeInterpret:
		os.Exit(runInterpreter(filename))
	case modeCompile:
		os.Exit(runCompiler(filename, debug))
	case modeCompileRun:
		os.Exit(runCompiled(filename))
	case modeExecute:
		os.Exit(runImage(filename))
	}
}

// runInterpreter executes filename directly.
func runInterpreter(filename string) int {
	in := interp.New()

	if err := in.LoadFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("=== Running %s ===\n", filename)

	if err := in.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime Error: %v\n", err)
		return 1
	}

	fmt.Println("=== Program finished ===")
	return 0
}

// runCompiler compiles filename, shows the symbol table and generated
// instructions, and writes <filename>.sml.
func runCompiler(filename string, debug bool) int {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open file: %s\n", filename)
		return 1
	}

	fmt.Printf("=== Compiling %s ===\n", filename)

	c := compiler.New()
	if err := c.Compile(source); err != nil {
		fmt.Fprintf(os.Stderr, "Compile Error: %v\n", err)
		return 1
	}

	fmt.Println("Compilation successful!")
	fmt.Println()

	c.DumpSymbols(os.Stdout)
	fmt.Println()
	c.DumpProgram(os.Stdout)

	if debug {
		godump.Dump(c.Symbols())
	}

	outputFile := filename + ".sml"
	if err := vm.WriteImageFile(outputFile, c.Image()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("\nSML program written to: %s\n", outputFile)
	return 0
}

// runCompiled compiles filename and immediately runs it on the VM.
func runCompiled(filename string) int {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open file: %s\n", filename)
		return 1
	}

	fmt.Printf("=== Compiling %s ===\n", filename)

	img, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile Error: %v\n", err)
		return 1
	}

	fmt.Println("Compilation successful! Running on SML VM...")
	fmt.Println()

	machine := vm.New()
	machine.Load(img)

	status := 0
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime Error: %v\n", err)
		status = 1
	}

	fmt.Printf("\n=== Program finished (cycles: %d) ===\n", machine.Cycles)
	return status
}

// runImage executes a prebuilt .sml file.
func runImage(filename string) int {
	machine := vm.New()
	if err := machine.LoadFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("=== Executing %s ===\n", filename)

	status := 0
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime Error: %v\n", err)
		status = 1
	}

	fmt.Println("=== Program finished ===")
	return status
}
