package vm

import (
	"bytes"
	"strings"
	"testing"
)

// loadWords builds a VM whose memory starts with the given words.
func loadWords(words ...int) *VM {
	var img Image
	copy(img[:], words)
	v := New()
	v.Load(&img)
	return v
}

func TestNegativeConstantStorage(t *testing.T) {
	v := loadWords(OpLoad*100 + 50, OpHalt*100) // +2050, +4300
	v.Memory[50] = -7

	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Accumulator != -7 {
		t.Errorf("AC: expected -7, got %d", v.Accumulator)
	}
	if v.Cycles != 2 {
		t.Errorf("cycles: expected 2, got %d", v.Cycles)
	}
	if v.Running {
		t.Errorf("expected the machine to be stopped")
	}
}

func TestLoadStore(t *testing.T) {
	v := loadWords(
		OpLoad*100+60,
		OpStore*100+61,
		OpHalt*100,
	)
	v.Memory[60] = 42

	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Memory[61] != 42 {
		t.Errorf("STORE: expected memory[61]=42, got %d", v.Memory[61])
	}
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name   string
		opcode int
		a, b   int
		want   int
	}{
		{"add", OpAdd, 10, 20, 30},
		{"sub", OpSub, 10, 20, -10},
		{"mul", OpMul, 6, 7, 42},
		{"div", OpDiv, 7, 2, 3},
		{"div negative", OpDiv, -7, 2, -3},
		{"mod", OpMod, 7, 3, 1},
	}

	for _, tc := range cases {
		v := loadWords(
			OpLoad*100+60,
			tc.opcode*100+61,
			OpHalt*100,
		)
		v.Memory[60] = tc.a
		v.Memory[61] = tc.b

		if err := v.Run(); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if v.Accumulator != tc.want {
			t.Errorf("%s: expected AC=%d, got %d", tc.name, tc.want, v.Accumulator)
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	v := loadWords(OpLoad*100+60, OpDiv*100+61, OpHalt*100)
	v.Memory[60] = 5

	err := v.Run()
	if err == nil || !strings.Contains(err.Error(), "Division by zero at PC=1") {
		t.Errorf("expected division-by-zero error, got %v", err)
	}
	if v.Accumulator != 5 {
		t.Errorf("AC must keep its pre-fault value, got %d", v.Accumulator)
	}
}

func TestModuloByZero(t *testing.T) {
	v := loadWords(OpLoad*100+60, OpMod*100+61, OpHalt*100)
	v.Memory[60] = 5

	err := v.Run()
	if err == nil || !strings.Contains(err.Error(), "Modulo by zero at PC=1") {
		t.Errorf("expected modulo-by-zero error, got %v", err)
	}
}

func TestBranches(t *testing.T) {
	// Unconditional branch skips the halt at 1.
	v := loadWords(
		OpBranch*100+2,
		OpHalt*100,
		OpLoad*100+60,
		OpHalt*100,
	)
	v.Memory[60] = 9
	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Accumulator != 9 {
		t.Errorf("JMP: expected AC=9, got %d", v.Accumulator)
	}

	// BRANCHNEG taken only for a negative accumulator.
	v = loadWords(
		OpLoad*100+60,
		OpBranchNeg*100+3,
		OpHalt*100,
		OpLoad*100+61,
		OpHalt*100,
	)
	v.Memory[60] = -1
	v.Memory[61] = 7
	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Accumulator != 7 {
		t.Errorf("JMPNEG taken: expected AC=7, got %d", v.Accumulator)
	}

	// BRANCHZERO not taken for a nonzero accumulator.
	v = loadWords(
		OpLoad*100+60,
		OpBranchZero*100+4,
		OpLoad*100+61,
		OpHalt*100,
		OpHalt*100,
	)
	v.Memory[60] = 5
	v.Memory[61] = 8
	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Accumulator != 8 {
		t.Errorf("JMPZERO not taken: expected AC=8, got %d", v.Accumulator)
	}
}

func TestReadWritesPromptAndStores(t *testing.T) {
	v := loadWords(
		OpRead*100+90,
		OpWrite*100+90,
		OpNewline*100,
		OpHalt*100,
	)
	var out bytes.Buffer
	v.Input = strings.NewReader("42\n")
	v.Output = &out

	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Memory[90] != 42 {
		t.Errorf("READ: expected memory[90]=42, got %d", v.Memory[90])
	}
	if out.String() != "? 42\n" {
		t.Errorf("output: expected %q, got %q", "? 42\n", out.String())
	}
}

func TestReadInvalidInput(t *testing.T) {
	v := loadWords(OpRead*100+90, OpHalt*100)
	v.Input = strings.NewReader("banana\n")
	v.Output = &bytes.Buffer{}

	err := v.Run()
	if err == nil || err.Error() != "Invalid input" {
		t.Errorf("expected invalid-input error, got %v", err)
	}
}

func TestWriteString(t *testing.T) {
	// "hi" stored length-prefixed at descending addresses from 99.
	v := loadWords(OpWrites*100+99, OpNewline*100, OpHalt*100)
	v.Memory[99] = 2
	v.Memory[98] = 'h'
	v.Memory[97] = 'i'

	var out bytes.Buffer
	v.Output = &out

	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("WRITES: expected %q, got %q", "hi\n", out.String())
	}
}

func TestWriteStringDropsNonByteCells(t *testing.T) {
	v := loadWords(OpWrites*100+99, OpHalt*100)
	v.Memory[99] = 3
	v.Memory[98] = 'a'
	v.Memory[97] = 999 // not a byte; silently dropped
	v.Memory[96] = 'b'

	var out bytes.Buffer
	v.Output = &out

	if err := v.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "ab" {
		t.Errorf("WRITES: expected %q, got %q", "ab", out.String())
	}
}

func TestInvalidOperand(t *testing.T) {
	v := loadWords(-7) // opcode 0, operand -7

	err := v.Run()
	if err == nil || err.Error() != "Invalid operand: -7 at PC=0" {
		t.Errorf("expected invalid-operand error, got %v", err)
	}
}

func TestUnknownOpcode(t *testing.T) {
	v := loadWords(9900)
	err := v.Run()
	if err == nil || err.Error() != "Unknown opcode 99 at PC=0" {
		t.Errorf("expected unknown-opcode error, got %v", err)
	}

	// A negative word whose operand digits happen to be 00 decodes to a
	// negative opcode, which is also unknown.
	v = loadWords(-4300)
	err = v.Run()
	if err == nil || err.Error() != "Unknown opcode -43 at PC=0" {
		t.Errorf("expected unknown-opcode error for negative word, got %v", err)
	}
}

func TestInvalidInstructionCounter(t *testing.T) {
	// All 100 cells are LOAD 0; the PC walks off the end.
	var img Image
	for i := range img {
		img[i] = OpLoad * 100
	}
	v := New()
	v.Load(&img)

	err := v.Run()
	if err == nil || err.Error() != "Invalid instruction counter: 100" {
		t.Errorf("expected invalid-PC error, got %v", err)
	}
}

func TestCycleCap(t *testing.T) {
	v := loadWords(OpBranch * 100) // jump to self forever

	err := v.Run()
	if err == nil || !strings.Contains(err.Error(), "Exceeded maximum cycles (100000)") {
		t.Errorf("expected cycle-cap error, got %v", err)
	}
	if v.Cycles < MaxCycles {
		t.Errorf("expected at least %d cycles, got %d", MaxCycles, v.Cycles)
	}
}

func TestStepAfterHaltDoesNothing(t *testing.T) {
	v := loadWords(OpHalt * 100)
	v.Run()

	cycles := v.Cycles
	if v.Step() {
		t.Errorf("Step on a halted machine must return false")
	}
	if v.Cycles != cycles {
		t.Errorf("Step on a halted machine must not consume cycles")
	}
}
