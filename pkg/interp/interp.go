// Package interp executes Simple source directly, line by line. Unlike
// the compiler it evaluates in floating point, allows dynamic array
// indices, and is not bound by the 100-cell SML memory.
package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/danswartzendruber/avl"

	"gosimple/pkg/lexer"
)

const (
	MaxVariables = 26   // scalar slots, a-z
	MaxArraySize = 100  // elements per array
	MaxLines     = 1000 // indexed program lines
	MaxForDepth  = 10   // for-loop nesting
)

// lineEntry indexes one numbered source line. Entries live both in the
// file-order slice (execution order) and, via the embedded node, in an
// AVL tree keyed by line number for goto/if target lookup.
type lineEntry struct {
	avl    avl.AvlNode
	number int
	start  int // byte offset of the line in the source buffer
	index  int // position in the file-order slice
}

func cmpLineKey(key any, node any) int {
	return cmpLineNumbers(key.(int), node.(*lineEntry).number)
}

func cmpLineNodes(a, b any) int {
	return cmpLineNumbers(a.(*lineEntry).number, b.(*lineEntry).number)
}

func cmpLineNumbers(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type scalar struct {
	value       float64
	initialized bool
}

type array struct {
	values      [MaxArraySize]float64
	initialized bool
}

// forState is the runtime state of one active for loop.
type forState struct {
	variable byte
	end      float64
	step     float64
	body     int // index of the first body line (the line after the for)
}

// Interpreter owns one loaded program and its runtime store.
type Interpreter struct {
	src []byte
	lex *lexer.Lexer
	tok lexer.Token

	lines []*lineEntry
	tree  *avl.AvlNode

	variables [MaxVariables]scalar
	arrays    [MaxVariables]array

	forStack [MaxForDepth]forState
	forDepth int

	current int // index of the executing line
	next    int // index the main loop moves to afterwards

	running bool
	err     error

	// Input feeds input statements; nil means os.Stdin.
	Input io.Reader
	// Output receives print output and input prompts; nil means os.Stdout.
	Output io.Writer

	in *bufio.Reader
}

// New returns an empty interpreter.
func New() *Interpreter {
	return &Interpreter{tree: nil}
}

// Err returns the error that stopped the last load or run, if any.
func (i *Interpreter) Err() error {
	return i.err
}

func (i *Interpreter) setError(format string, args ...any) {
	if i.err == nil {
		i.err = fmt.Errorf(format, args...)
	}
	i.running = false
}

func (i *Interpreter) output() io.Writer {
	if i.Output != nil {
		return i.Output
	}
	return os.Stdout
}

func (i *Interpreter) input() *bufio.Reader {
	if i.in == nil {
		src := i.Input
		if src == nil {
			src = os.Stdin
		}
		i.in = bufio.NewReader(src)
	}
	return i.in
}

// advance pulls the next token, converting lexical errors into runtime
// errors.
func (i *Interpreter) advance() {
	i.tok = i.lex.Next()
	if i.tok.Type == lexer.ERROR {
		i.setError("%s", i.tok.Text)
	}
}

// expect verifies the current token type without consuming it.
func (i *Interpreter) expect(tt lexer.TokenType) bool {
	if i.tok.Type != tt {
		i.setError("Line %d: Expected %s, got %s",
			i.lines[i.current].number, tt, i.tok.Type)
		return false
	}
	return true
}

// varIndex maps a variable name to its slot (a=0 .. z=25, either case),
// or -1 for anything else.
func varIndex(b byte) int {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	if b >= 'a' && b <= 'z' {
		return int(b - 'a')
	}
	return -1
}

// findLine looks a line number up in the AVL index.
func (i *Interpreter) findLine(number int) *lineEntry {
	p := avl.AvlTreeLookup(i.tree, number, cmpLineKey)
	if p == nil {
		return nil
	}
	return p.(*lineEntry)
}

// Load copies source and builds the line index: one entry per non-blank
// line whose first token is a number, in file order. Line numbers are
// expected to be increasing; the behavior for out-of-order numbering is
// undefined and the file order is kept either way.
func (i *Interpreter) Load(source []byte) error {
	i.src = append([]byte(nil), source...)
	i.lex = lexer.New(i.src)
	i.lines = nil
	i.tree = nil
	i.err = nil

	offset := 0
	for offset < len(i.src) {
		for offset < len(i.src) && (i.src[offset] == ' ' || i.src[offset] == '\t') {
			offset++
		}

		if offset >= len(i.src) {
			break
		}
		if i.src[offset] == '\n' {
			offset++
			continue
		}

		i.lex.ResetTo(offset)
		tok := i.lex.Next()

		if tok.Type == lexer.NUMBER {
			if len(i.lines) >= MaxLines {
				i.setError("Too many lines")
				return i.err
			}
			entry := &lineEntry{
				number: int(tok.Value),
				start:  offset,
				index:  len(i.lines),
			}
			i.lines = append(i.lines, entry)
			// Duplicate line numbers keep the first entry as the jump
			// target; later ones still execute in file order.
			avl.AvlTreeInsert(&i.tree, &entry.avl, entry, cmpLineNodes)
		}

		for offset < len(i.src) && i.src[offset] != '\n' {
			offset++
		}
		if offset < len(i.src) {
			offset++
		}
	}

	return nil
}

// LoadFile reads path and loads it.
func (i *Interpreter) LoadFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		i.err = fmt.Errorf("cannot open file: %s", path)
		return i.err
	}
	return i.Load(source)
}

// Run executes the loaded program from its first indexed line.
func (i *Interpreter) Run() error {
	i.running = true
	i.err = nil
	i.current = 0
	i.forDepth = 0

	for i.running && i.current < len(i.lines) {
		i.next = i.current + 1
		i.executeLine()

		if i.err != nil {
			return i.err
		}

		i.current = i.next
	}

	return nil
}

// executeLine re-lexes the current line and dispatches on its keyword.
func (i *Interpreter) executeLine() {
	line := i.lines[i.current]

	i.lex.ResetTo(line.start)
	i.advance()

	if i.tok.Type == lexer.NUMBER {
		i.advance()
	}

	switch i.tok.Type {
	case lexer.REM:
		// comment; skip the rest of the line
	case lexer.INPUT:
		i.execInput()
	case lexer.PRINT:
		i.execPrint()
	case lexer.LET:
		i.execLet()
	case lexer.GOTO:
		i.execGoto()
	case lexer.IF:
		i.execIf()
	case lexer.FOR:
		i.execFor()
	case lexer.NEXT:
		i.execNext()
	case lexer.END:
		i.running = false
	case lexer.NEWLINE, lexer.EOF:
		// blank statement
	default:
		i.setError("Unknown statement: %s", i.tok.Text)
	}
}
