package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danswartzendruber/liner"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/term"

	"gosimple/pkg/compiler"
	"gosimple/pkg/interp"
)

// runInteractive is the line-numbered shell. Numbered input accumulates
// into a program buffer; commands operate on the buffer.
func runInteractive() int {
	// A piped stdin is a program, not a session.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runPiped()
	}

	fmt.Println("Simple Language Interpreter")
	fmt.Println("Enter 'run' to execute, 'list' to show code, 'clear' to reset, 'quit' to exit")
	fmt.Println()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	var program strings.Builder

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				break
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			break
		}

		input = strings.TrimSpace(input)

		switch input {
		case "":
			continue

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return 0

		case "run":
			runBuffer(program.String())
			continue

		case "compile":
			compileBuffer(program.String())
			continue

		case "list":
			if program.Len() == 0 {
				fmt.Println("(empty)")
			} else {
				fmt.Print(program.String())
			}
			continue

		case "clear":
			program.Reset()
			fmt.Println("Program cleared.")
			continue

		case "stats":
			printCPUStats()
			continue

		case "help":
			fmt.Println("Commands:")
			fmt.Println("  run     - Execute the program")
			fmt.Println("  compile - Show the SML code for the program")
			fmt.Println("  list    - Show current program")
			fmt.Println("  clear   - Clear the program")
			fmt.Println("  stats   - Show CPU time used by this session")
			fmt.Println("  quit    - Exit interpreter")
			fmt.Println()
			fmt.Println("Enter lines like:")
			fmt.Println("  10 input x")
			fmt.Println("  20 let y = x * 2")
			fmt.Println("  30 print y")
			fmt.Println("  40 end")
			continue
		}

		if input[0] >= '0' && input[0] <= '9' {
			program.WriteString(input)
			program.WriteByte('\n')
			line.AppendHistory(input)
		} else {
			fmt.Println("Lines must start with a line number (e.g., '10 print x')")
		}
	}

	fmt.Println("Goodbye!")
	return 0
}

// runPiped interprets a whole program read from stdin.
func runPiped() int {
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	in := interp.New()
	if err := in.Load(source); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := in.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime Error: %v\n", err)
		return 1
	}
	return 0
}

func runBuffer(source string) {
	if source == "" {
		fmt.Println("No program to run.")
		return
	}

	in := interp.New()
	if err := in.Load([]byte(source)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Println("--- Output ---")
	if err := in.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	fmt.Println("--------------")
}

func compileBuffer(source string) {
	if source == "" {
		fmt.Println("No program to compile.")
		return
	}

	c := compiler.New()
	if err := c.Compile([]byte(source)); err != nil {
		fmt.Fprintf(os.Stderr, "Compile Error: %v\n", err)
		return
	}

	c.DumpSymbols(os.Stdout)
	fmt.Println()
	c.DumpProgram(os.Stdout)
}

// printCPUStats reports this process's user/system CPU time from
// /proc/self/stat, scaled by the kernel clock tick.
func printCPUStats() {
	clktck, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || clktck <= 0 {
		fmt.Fprintf(os.Stderr, "stats unavailable: %v\n", err)
		return
	}

	contents, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats unavailable: %v\n", err)
		return
	}

	fields := strings.Fields(string(contents))
	if len(fields) < 15 {
		fmt.Fprintln(os.Stderr, "stats unavailable: short /proc/self/stat")
		return
	}

	utime, err := strconv.ParseInt(fields[13], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats unavailable: %v\n", err)
		return
	}
	stime, err := strconv.ParseInt(fields[14], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats unavailable: %v\n", err)
		return
	}

	fmt.Printf("CPU time: %.2fs user, %.2fs system\n",
		float64(utime)/float64(clktck), float64(stime)/float64(clktck))
}
