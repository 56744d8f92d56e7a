// Package compiler translates Simple source into SML memory images for
// the accumulator VM. It runs two passes over the source: pass one
// emits instructions and interns symbols, leaving branches to not-yet
// seen line numbers flagged with a zero operand; pass two patches every
// flagged cell from the completed symbol table.
package compiler

import (
	"fmt"

	"gosimple/pkg/lexer"
	"gosimple/pkg/vm"
)

const (
	MaxSymbols  = 100 // symbol table capacity
	MaxFlags    = 100 // unresolved forward references
	MaxStrings  = 50  // interned string literals
	MaxForDepth = 10  // for-loop nesting
)

// unresolvedRef marks a branch emitted before its target line was seen.
type unresolvedRef struct {
	instructionLocation int
	targetLine          int
}

// forFrame is the compile-time state of one active for loop.
type forFrame struct {
	variable     byte
	varLocation  int
	endLocation  int
	stepLocation int
	stepNegative bool
	loopStart    int // instruction address of the first body cell
}

// Compiler holds all state for one compilation. Instructions grow from
// address 0 upward, data from address 99 downward; the two counters
// must never cross.
type Compiler struct {
	src []byte
	lex *lexer.Lexer
	tok lexer.Token

	memory             vm.Image
	instructionCounter int
	dataCounter        int

	symbols     []Symbol
	flags       []unresolvedRef
	stringCount int

	forStack [MaxForDepth]forFrame
	forDepth int

	currentLine int
	err         error
}

// New returns a compiler with an empty image.
func New() *Compiler {
	return &Compiler{dataCounter: vm.MemorySize - 1}
}

// Compile translates source and returns the finalized memory image.
func Compile(source []byte) (*vm.Image, error) {
	c := New()
	if err := c.Compile(source); err != nil {
		return nil, err
	}
	return c.Image(), nil
}

// Image returns the emitted memory image.
func (c *Compiler) Image() *vm.Image {
	img := c.memory
	return &img
}

// Err returns the first error hit during compilation, if any.
func (c *Compiler) Err() error {
	return c.err
}

// varIndex maps a variable name to its index (a=0 .. z=25, either
// case), or -1 for anything else.
func varIndex(b byte) int {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	if b >= 'a' && b <= 'z' {
		return int(b - 'a')
	}
	return -1
}

// setError records the first error; everything after it is a no-op.
func (c *Compiler) setError(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

// advance pulls the next token, converting lexical errors into compile
// errors.
func (c *Compiler) advance() {
	c.tok = c.lex.Next()
	if c.tok.Type == lexer.ERROR {
		c.setError("Line %d: %s", c.currentLine, c.tok.Text)
	}
}

// emit writes one instruction at the instruction counter.
func (c *Compiler) emit(instruction int) {
	if c.err != nil {
		return
	}
	if c.instructionCounter >= c.dataCounter {
		c.setError("Memory overflow: code and data collision")
		return
	}
	c.memory[c.instructionCounter] = instruction
	c.instructionCounter++
}

// allocData grabs the next free data cell, moving downward. Returns -1
// once code and data would collide.
func (c *Compiler) allocData() int {
	if c.err != nil {
		return -1
	}
	if c.dataCounter <= c.instructionCounter {
		c.setError("Memory overflow: code and data collision")
		return -1
	}
	loc := c.dataCounter
	c.dataCounter--
	return loc
}

// addFlag records a branch cell whose operand must be patched in pass
// two.
func (c *Compiler) addFlag(instructionLocation, targetLine int) {
	if len(c.flags) >= MaxFlags {
		c.setError("Too many unresolved references")
		return
	}
	c.flags = append(c.flags, unresolvedRef{instructionLocation, targetLine})
}

// Compile runs both passes over source. On error the image must not be
// used.
func (c *Compiler) Compile(source []byte) error {
	c.src = source
	c.lex = lexer.New(c.src)

	// Pass one: emit line by line.
	offset := 0
	for offset < len(c.src) {
		for offset < len(c.src) && (c.src[offset] == ' ' || c.src[offset] == '\t') {
			offset++
		}

		if offset < len(c.src) && c.src[offset] != '\n' {
			c.compileLine(offset)
			if c.err != nil {
				return c.err
			}
		}

		for offset < len(c.src) && c.src[offset] != '\n' {
			offset++
		}
		if offset < len(c.src) {
			offset++ // the line feed itself
		}
	}

	// Pass two: patch forward references.
	c.resolveFlags()

	return c.err
}

// compileLine compiles the single source line starting at offset.
func (c *Compiler) compileLine(offset int) {
	c.lex.ResetTo(offset)
	c.advance()

	// Lines without a leading number are skipped, as are blanks.
	if c.tok.Type != lexer.NUMBER {
		return
	}
	c.currentLine = int(c.tok.Value)

	c.addSymbol(SymLine, c.currentLine, c.instructionCounter)

	c.advance()

	switch c.tok.Type {
	case lexer.REM:
		// comments compile to nothing
	case lexer.INPUT:
		c.compileInput()
	case lexer.PRINT:
		c.compilePrint()
	case lexer.LET:
		c.compileLet()
	case lexer.GOTO:
		c.compileGoto()
	case lexer.IF:
		c.compileIf()
	case lexer.FOR:
		c.compileFor()
	case lexer.NEXT:
		c.compileNext()
	case lexer.END:
		c.emit(vm.OpHalt*100 + 0)
	case lexer.NEWLINE, lexer.EOF:
		// a bare line number
	default:
		c.setError("Line %d: Unknown statement: %s", c.currentLine, c.tok.Text)
	}
}

// resolveFlags walks the unresolved-reference list and overwrites each
// flagged cell's operand with the now-known instruction address.
func (c *Compiler) resolveFlags() {
	for _, f := range c.flags {
		sym := c.findSymbol(SymLine, f.targetLine)
		if sym == nil {
			c.setError("Undefined line number: %d", f.targetLine)
			return
		}
		opcode := c.memory[f.instructionLocation] / 100
		c.memory[f.instructionLocation] = opcode*100 + sym.Location
	}
}
