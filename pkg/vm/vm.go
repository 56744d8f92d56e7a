package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// SML opcodes. An instruction word encodes opcode*100 + operand; the
// operand is always a memory address in 0..99.
const (
	OpRead    = 10 // read an integer from input into Memory[operand]
	OpWrite   = 11 // write Memory[operand] to output
	OpNewline = 12 // write a line feed
	OpWrites  = 13 // write the length-prefixed string at Memory[operand]

	OpLoad  = 20 // AC = Memory[operand]
	OpStore = 21 // Memory[operand] = AC

	OpAdd = 30 // AC += Memory[operand]
	OpSub = 31 // AC -= Memory[operand]
	OpDiv = 32 // AC /= Memory[operand], integer division
	OpMul = 33 // AC *= Memory[operand]
	OpMod = 34 // AC %= Memory[operand]

	OpBranch     = 40 // PC = operand
	OpBranchNeg  = 41 // if AC < 0, PC = operand
	OpBranchZero = 42 // if AC == 0, PC = operand
	OpHalt       = 43 // stop execution
)

// MaxCycles caps a run; exceeding it stops the machine with an error.
const MaxCycles = 100000

var opNames = map[int]string{
	OpRead:       "READ",
	OpWrite:      "WRITE",
	OpNewline:    "NEWLINE",
	OpWrites:     "WRITES",
	OpLoad:       "LOAD",
	OpStore:      "STORE",
	OpAdd:        "ADD",
	OpSub:        "SUB",
	OpDiv:        "DIV",
	OpMul:        "MUL",
	OpMod:        "MOD",
	OpBranch:     "JMP",
	OpBranchNeg:  "JMPNEG",
	OpBranchZero: "JMPZERO",
	OpHalt:       "HALT",
}

// OpName returns the mnemonic for an opcode, or "???" for an unknown one.
func OpName(opcode int) string {
	if name, ok := opNames[opcode]; ok {
		return name
	}
	return "???"
}

// VM is a single-accumulator machine executing an SML memory image with
// a fetch-decode-execute loop.
type VM struct {
	Memory Image

	Accumulator         int
	InstructionCounter  int
	InstructionRegister int
	Opcode              int
	Operand             int

	Cycles  int
	Running bool

	// Input is where READ pulls integers from. If nil, os.Stdin is used.
	Input io.Reader
	// Output is where WRITE/NEWLINE/WRITES and READ prompts are sent.
	// If nil, os.Stdout is used.
	Output io.Writer

	in  *bufio.Reader
	err error
}

// New returns a zeroed, non-running VM.
func New() *VM {
	return &VM{}
}

// Load copies img into memory and resets the execution state.
func (v *VM) Load(img *Image) {
	v.Memory = *img
	v.InstructionCounter = 0
	v.Accumulator = 0
	v.InstructionRegister = 0
	v.Opcode = 0
	v.Operand = 0
	v.Cycles = 0
	v.Running = true
	v.err = nil
}

// LoadFile reads a .sml image from path and loads it.
func (v *VM) LoadFile(path string) error {
	img, err := ReadImageFile(path)
	if err != nil {
		v.err = err
		return err
	}
	v.Load(&img)
	return nil
}

// Err returns the error that stopped the machine, or nil after a clean
// halt.
func (v *VM) Err() error {
	return v.err
}

func (v *VM) fail(format string, args ...any) {
	v.err = fmt.Errorf(format, args...)
	v.Running = false
}

func (v *VM) output() io.Writer {
	if v.Output != nil {
		return v.Output
	}
	return os.Stdout
}

func (v *VM) input() *bufio.Reader {
	if v.in == nil {
		src := v.Input
		if src == nil {
			src = os.Stdin
		}
		v.in = bufio.NewReader(src)
	}
	return v.in
}

// Step executes one fetch-decode-execute cycle. It returns false when
// the machine has halted, faulted, or hit the cycle cap.
func (v *VM) Step() bool {
	if !v.Running {
		return false
	}

	if v.InstructionCounter < 0 || v.InstructionCounter >= MemorySize {
		v.fail("Invalid instruction counter: %d", v.InstructionCounter)
		return false
	}

	v.InstructionRegister = v.Memory[v.InstructionCounter]

	// Truncating division keeps negative words out of the legal opcode
	// range, so data stored as negative constants never executes.
	v.Opcode = v.InstructionRegister / 100
	v.Operand = v.InstructionRegister % 100

	if v.Operand < 0 || v.Operand >= MemorySize {
		v.fail("Invalid operand: %d at PC=%d", v.Operand, v.InstructionCounter)
		return false
	}

	nextPC := v.InstructionCounter + 1

	switch v.Opcode {
	case OpRead:
		fmt.Fprint(v.output(), "? ")
		var value int
		if _, err := fmt.Fscan(v.input(), &value); err != nil {
			v.fail("Invalid input")
			return false
		}
		v.Memory[v.Operand] = value

	case OpWrite:
		fmt.Fprintf(v.output(), "%d", v.Memory[v.Operand])

	case OpNewline:
		fmt.Fprintln(v.output())

	case OpWrites:
		// Length-prefixed string: the length word sits at the operand
		// address, characters follow at descending addresses.
		length := v.Memory[v.Operand]
		for i := 0; i < length; i++ {
			addr := v.Operand - 1 - i
			if addr < 0 {
				break
			}
			ch := v.Memory[addr]
			if ch >= 0 && ch < 256 {
				v.output().Write([]byte{byte(ch)})
			}
		}

	case OpLoad:
		v.Accumulator = v.Memory[v.Operand]

	case OpStore:
		v.Memory[v.Operand] = v.Accumulator

	case OpAdd:
		v.Accumulator += v.Memory[v.Operand]

	case OpSub:
		v.Accumulator -= v.Memory[v.Operand]

	case OpDiv:
		if v.Memory[v.Operand] == 0 {
			v.fail("Division by zero at PC=%d", v.InstructionCounter)
			return false
		}
		v.Accumulator /= v.Memory[v.Operand]

	case OpMul:
		v.Accumulator *= v.Memory[v.Operand]

	case OpMod:
		if v.Memory[v.Operand] == 0 {
			v.fail("Modulo by zero at PC=%d", v.InstructionCounter)
			return false
		}
		v.Accumulator %= v.Memory[v.Operand]

	case OpBranch:
		nextPC = v.Operand

	case OpBranchNeg:
		if v.Accumulator < 0 {
			nextPC = v.Operand
		}

	case OpBranchZero:
		if v.Accumulator == 0 {
			nextPC = v.Operand
		}

	case OpHalt:
		// The halt itself is a cycle; the PC stays on the HALT word.
		v.Running = false
		v.Cycles++
		return false

	default:
		v.fail("Unknown opcode %d at PC=%d", v.Opcode, v.InstructionCounter)
		return false
	}

	v.InstructionCounter = nextPC
	v.Cycles++

	if v.Cycles >= MaxCycles {
		v.fail("Exceeded maximum cycles (%d), possible infinite loop", MaxCycles)
		return false
	}

	return true
}

// Run steps the machine until it halts, faults, or exhausts the cycle
// cap, and returns the error that stopped it, if any.
func (v *VM) Run() error {
	for v.Running {
		if !v.Step() {
			break
		}
	}
	return v.err
}

// DumpRegisters writes the register state to w.
func (v *VM) DumpRegisters(w io.Writer) {
	fmt.Fprintln(w, "=== Registers ===")
	fmt.Fprintf(w, "  Accumulator:          %+05d\n", v.Accumulator)
	fmt.Fprintf(w, "  Instruction Counter:  %02d\n", v.InstructionCounter)
	fmt.Fprintf(w, "  Instruction Register: %+05d\n", v.InstructionRegister)
	fmt.Fprintf(w, "  Opcode:               %02d\n", v.Opcode)
	fmt.Fprintf(w, "  Operand:              %02d\n", v.Operand)
	fmt.Fprintf(w, "  Cycle Count:          %d\n", v.Cycles)
}

// DumpMemory writes all 100 cells to w as a 10x10 grid.
func (v *VM) DumpMemory(w io.Writer) {
	fmt.Fprintln(w, "=== Memory ===")
	fmt.Fprintln(w, "       0      1      2      3      4      5      6      7      8      9")
	for i := 0; i < MemorySize; i += 10 {
		fmt.Fprintf(w, "%2d ", i)
		for j := 0; j < 10; j++ {
			fmt.Fprintf(w, "%+05d  ", v.Memory[i+j])
		}
		fmt.Fprintln(w)
	}
}
