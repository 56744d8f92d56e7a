package compiler

import (
	"fmt"
	"strings"
	"testing"

	"gosimple/pkg/vm"
)

// mustCompile compiles src and fails the test on error.
func mustCompile(t *testing.T, src string) *Compiler {
	t.Helper()
	c := New()
	if err := c.Compile([]byte(src)); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return c
}

// compileErr compiles src and returns the expected failure.
func compileErr(t *testing.T, src string) error {
	t.Helper()
	c := New()
	err := c.Compile([]byte(src))
	if err == nil {
		t.Fatalf("expected a compile error")
	}
	return err
}

// findSym scans the public symbol table for (kind, key).
func findSym(c *Compiler, kind SymbolKind, key int) *Symbol {
	for i, sym := range c.Symbols() {
		if sym.Kind == kind && sym.Key == key {
			return &c.Symbols()[i]
		}
	}
	return nil
}

const sumProgram = `10 let s = 0
20 for i = 1 to 5
30 let s = s + i
40 next i
50 print s
60 end
`

func TestSumProgramSymbols(t *testing.T) {
	c := mustCompile(t, sumProgram)

	for _, line := range []int{10, 20, 30, 40, 50, 60} {
		if findSym(c, SymLine, line) == nil {
			t.Errorf("missing LINE symbol for %d", line)
		}
	}
	for _, v := range []byte{'s', 'i'} {
		if findSym(c, SymVariable, int(v-'a')) == nil {
			t.Errorf("missing VARIABLE symbol for %q", v)
		}
	}
	for _, value := range []int{0, 1, 5} {
		if findSym(c, SymConstant, value) == nil {
			t.Errorf("missing CONSTANT symbol for %d", value)
		}
	}
}

func TestSymbolsAreUniquePerKindAndKey(t *testing.T) {
	c := mustCompile(t, sumProgram)

	seen := map[[2]int]bool{}
	for _, sym := range c.Symbols() {
		key := [2]int{int(sym.Kind), sym.Key}
		if sym.Kind != SymString && seen[key] {
			t.Errorf("duplicate symbol entry: %v %d", sym.Kind, sym.Key)
		}
		seen[key] = true
	}
}

func TestForwardGotoResolved(t *testing.T) {
	c := mustCompile(t, "10 goto 30\n20 let x = 1\n30 end\n")

	target := findSym(c, SymLine, 30)
	if target == nil {
		t.Fatalf("missing LINE symbol for 30")
	}

	img := c.Image()
	want := vm.OpBranch*100 + target.Location
	if img[0] != want {
		t.Errorf("instruction 0: expected %+05d, got %+05d", want, img[0])
	}
}

func TestBranchOperandsAddressLineSymbols(t *testing.T) {
	c := mustCompile(t, "10 let x = 0\n20 if x == 0 goto 40\n30 goto 10\n40 end\n")

	lineLocs := map[int]bool{}
	for _, sym := range c.Symbols() {
		if sym.Kind == SymLine {
			lineLocs[sym.Location] = true
		}
	}

	img := c.Image()
	for addr := 0; addr < c.instructionCounter; addr++ {
		opcode := img[addr] / 100
		operand := img[addr] % 100
		switch opcode {
		case vm.OpBranch, vm.OpBranchNeg, vm.OpBranchZero:
			if !lineLocs[operand] {
				t.Errorf("branch at %d targets %d, which is no LINE address", addr, operand)
			}
		}
	}
}

func TestConstantInterning(t *testing.T) {
	c := mustCompile(t, "10 let x = 7\n20 let y = 7\n30 end\n")

	count := 0
	for _, sym := range c.Symbols() {
		if sym.Kind == SymConstant && sym.Key == 7 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("constant 7 interned %d times, want 1", count)
	}
}

func TestStringInterning(t *testing.T) {
	c := mustCompile(t, "10 print \"hi\"\n20 print \"hi\"\n30 end\n")

	var locs []int
	for _, sym := range c.Symbols() {
		if sym.Kind == SymString {
			locs = append(locs, sym.Location)
		}
	}
	if len(locs) != 1 {
		t.Fatalf("string interned %d times, want 1", len(locs))
	}

	// Both WRITES instructions must address the single copy.
	img := c.Image()
	for addr := 0; addr < c.instructionCounter; addr++ {
		if img[addr]/100 == vm.OpWrites && img[addr]%100 != locs[0] {
			t.Errorf("WRITES at %d addresses %d, want %d", addr, img[addr]%100, locs[0])
		}
	}
}

func TestStringStorageLayout(t *testing.T) {
	c := mustCompile(t, "10 print \"hi\"\n20 end\n")

	sym := c.Symbols()
	var str *Symbol
	for i := range sym {
		if sym[i].Kind == SymString {
			str = &sym[i]
		}
	}
	if str == nil {
		t.Fatalf("missing string symbol")
	}

	img := c.Image()
	if img[str.Location] != 2 {
		t.Errorf("length word: expected 2, got %d", img[str.Location])
	}
	if img[str.Location-1] != 'h' || img[str.Location-2] != 'i' {
		t.Errorf("characters: expected 'h','i' at descending addresses, got %d,%d",
			img[str.Location-1], img[str.Location-2])
	}
}

func TestArrayDefaultSize(t *testing.T) {
	c := mustCompile(t, "10 let a(0) = 1\n20 end\n")

	arr := findSym(c, SymArray, 0)
	if arr == nil {
		t.Fatalf("missing array symbol")
	}
	if arr.Size != 10 {
		t.Errorf("default array size: expected 10, got %d", arr.Size)
	}
	if arr.Location != 99 {
		t.Errorf("array base: expected 99, got %d", arr.Location)
	}
}

func TestArraySizeFromFirstUse(t *testing.T) {
	c := mustCompile(t, "10 let a(12) = 1\n20 end\n")

	arr := findSym(c, SymArray, 0)
	if arr == nil {
		t.Fatalf("missing array symbol")
	}
	if arr.Size != 13 {
		t.Errorf("array size: expected 13, got %d", arr.Size)
	}
}

func TestArrayElementAddressing(t *testing.T) {
	c := mustCompile(t, "10 let a(3) = 1\n20 end\n")

	arr := findSym(c, SymArray, 0)
	img := c.Image()

	// The store targets base-3.
	found := false
	for addr := 0; addr < c.instructionCounter; addr++ {
		if img[addr] == vm.OpStore*100+(arr.Location-3) {
			found = true
		}
	}
	if !found {
		t.Errorf("no STORE to a(3)'s cell %d", arr.Location-3)
	}
}

func TestArrayIndexOutOfBounds(t *testing.T) {
	err := compileErr(t, "10 let a(0) = 1\n20 let a(15) = 2\n30 end\n")
	if err.Error() != "Array index 15 out of bounds (0-9)" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestArrayIndexMustBeConstant(t *testing.T) {
	err := compileErr(t, "10 let x = 1\n20 let a(x) = 2\n30 end\n")
	if err.Error() != "Array index must be a constant (SML limitation)" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestStepMustBeConstant(t *testing.T) {
	err := compileErr(t, "10 let x = 2\n20 for i = 1 to 10 step x\n30 next i\n40 end\n")
	if err.Error() != "Step must be a constant number" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestNextVariableMismatch(t *testing.T) {
	err := compileErr(t, "10 for i = 1 to 3\n20 next j\n30 end\n")
	if err.Error() != "next variable mismatch: expected 'i', got 'j'" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestNextWithoutFor(t *testing.T) {
	err := compileErr(t, "10 next i\n20 end\n")
	if err.Error() != "next without for" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestForNestedTooDeep(t *testing.T) {
	var sb strings.Builder
	line := 10
	for i := 0; i < MaxForDepth+1; i++ {
		fmt.Fprintf(&sb, "%d for %c = 1 to 2\n", line, 'a'+i)
		line += 10
	}

	err := compileErr(t, sb.String())
	if err.Error() != "For loop nested too deep" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestUndefinedLineNumber(t *testing.T) {
	err := compileErr(t, "10 goto 99\n20 end\n")
	if err.Error() != "Undefined line number: 99" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestUnknownStatement(t *testing.T) {
	err := compileErr(t, "10 foo 1\n")
	if err.Error() != "Line 10: Unknown statement: foo" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestMemoryOverflow(t *testing.T) {
	// Every print of a fresh constant burns four instruction cells and
	// two data cells; 25 of them cannot fit in 100 cells.
	var sb strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, "%d print %d\n", (i+1)*10, 100+i)
	}

	err := compileErr(t, sb.String())
	if err.Error() != "Memory overflow: code and data collision" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestSymbolTableOverflow(t *testing.T) {
	// Line symbols cost no memory cells, so the symbol table fills
	// before anything else does.
	var sb strings.Builder
	for i := 0; i < MaxSymbols+1; i++ {
		fmt.Fprintf(&sb, "%d rem filler\n", (i+1)*10)
	}

	err := compileErr(t, sb.String())
	if err.Error() != "Symbol table overflow" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestEndEmitsHalt(t *testing.T) {
	c := mustCompile(t, "10 end\n")
	if c.Image()[0] != vm.OpHalt*100 {
		t.Errorf("expected HALT at 0, got %+05d", c.Image()[0])
	}
}

func TestLexicalErrorBecomesCompileError(t *testing.T) {
	err := compileErr(t, "10 let x = 1 ! 2\n")
	if !strings.Contains(err.Error(), "Expected '=' after '!'") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestDumpSymbolsKeepsInsertionOrder(t *testing.T) {
	c := mustCompile(t, "10 let z = 3\n20 let a = 4\n30 end\n")

	var sb strings.Builder
	c.DumpSymbols(&sb)
	out := sb.String()

	zPos := strings.Index(out, "'z'")
	aPos := strings.Index(out, "'a'")
	if zPos < 0 || aPos < 0 {
		t.Fatalf("dump missing variables:\n%s", out)
	}
	if zPos > aPos {
		t.Errorf("dump must keep insertion order (z before a):\n%s", out)
	}
}
