package interp

import (
	"fmt"
	"math"
	"strconv"

	"gosimple/pkg/lexer"
)

// storeValue writes value into a scalar slot or an array element and
// marks the target initialized.
func (i *Interpreter) storeValue(idx int, isArray bool, arrayIdx int, value float64) {
	if isArray {
		i.arrays[idx].values[arrayIdx] = value
		i.arrays[idx].initialized = true
	} else {
		i.variables[idx].value = value
		i.variables[idx].initialized = true
	}
}

// execInput reads one value per comma-separated target, prompting with
// "? " each time.
func (i *Interpreter) execInput() {
	i.advance()

	for {
		if i.tok.Type == lexer.COMMA {
			i.advance()
		}

		if i.tok.Type != lexer.IDENT {
			i.setError("Expected variable name after 'input'")
			return
		}

		idx := varIndex(i.tok.Text[0])
		if idx < 0 {
			i.setError("Invalid variable: %s", i.tok.Text)
			return
		}
		i.advance()

		isArray := false
		arrayIdx := 0
		if i.tok.Type == lexer.LPAREN {
			i.advance()
			isArray = true
			arrayIdx = int(i.parseExpression())
			if i.err != nil {
				return
			}
			if !i.expect(lexer.RPAREN) {
				return
			}
			i.advance()

			if arrayIdx < 0 || arrayIdx >= MaxArraySize {
				i.setError("Array index out of bounds")
				return
			}
		}

		fmt.Fprint(i.output(), "? ")
		var value float64
		if _, err := fmt.Fscan(i.input(), &value); err != nil {
			i.setError("Invalid input")
			return
		}

		i.storeValue(idx, isArray, arrayIdx, value)

		if i.tok.Type != lexer.COMMA {
			return
		}
	}
}

// formatValue prints a float the way print does: as an integer when the
// value equals its truncation, otherwise in shortest round-trip form.
func formatValue(value float64) string {
	if value == math.Trunc(value) && !math.IsInf(value, 0) {
		return strconv.Itoa(int(value))
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// execPrint writes each comma-separated item with single spaces between
// items and one trailing newline. A bare print emits just the newline.
func (i *Interpreter) execPrint() {
	i.advance()

	first := true
	for {
		if i.tok.Type == lexer.COMMA {
			i.advance()
			first = false
		}

		if !first {
			fmt.Fprint(i.output(), " ")
		}
		first = false

		if i.tok.Type == lexer.STRING {
			text := i.tok.Text
			if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
				text = text[1 : len(text)-1]
			}
			fmt.Fprint(i.output(), text)
			i.advance()
		} else if i.tok.Type == lexer.NEWLINE || i.tok.Type == lexer.EOF {
			break
		} else {
			value := i.parseExpression()
			if i.err != nil {
				return
			}
			fmt.Fprint(i.output(), formatValue(value))
		}

		if i.tok.Type != lexer.COMMA {
			break
		}
	}

	fmt.Fprintln(i.output())
}

// execLet assigns an expression to a scalar or an array element with a
// dynamic index.
func (i *Interpreter) execLet() {
	i.advance()

	if i.tok.Type != lexer.IDENT {
		i.setError("Expected variable name after 'let'")
		return
	}

	idx := varIndex(i.tok.Text[0])
	if idx < 0 {
		i.setError("Invalid variable: %s", i.tok.Text)
		return
	}
	i.advance()

	isArray := false
	arrayIdx := 0
	if i.tok.Type == lexer.LPAREN {
		i.advance()
		isArray = true
		arrayIdx = int(i.parseExpression())
		if i.err != nil {
			return
		}
		if !i.expect(lexer.RPAREN) {
			return
		}
		i.advance()

		if arrayIdx < 0 || arrayIdx >= MaxArraySize {
			i.setError("Array index out of bounds: %d", arrayIdx)
			return
		}
	}

	if !i.expect(lexer.ASSIGN) {
		return
	}
	i.advance()

	value := i.parseExpression()
	if i.err != nil {
		return
	}

	i.storeValue(idx, isArray, arrayIdx, value)
}

// execGoto jumps to the indexed line with the given number.
func (i *Interpreter) execGoto() {
	i.advance()

	if i.tok.Type != lexer.NUMBER {
		i.setError("Expected line number after 'goto'")
		return
	}

	targetLine := int(i.tok.Value)
	entry := i.findLine(targetLine)
	if entry == nil {
		i.setError("Line %d not found", targetLine)
		return
	}

	i.next = entry.index
}

// execIf jumps iff the condition holds.
func (i *Interpreter) execIf() {
	i.advance()

	condition := i.parseCondition()
	if i.err != nil {
		return
	}

	if i.tok.Type != lexer.GOTO {
		i.setError("Expected 'goto' in if statement")
		return
	}
	i.advance()

	if i.tok.Type != lexer.NUMBER {
		i.setError("Expected line number after 'goto'")
		return
	}

	if condition {
		targetLine := int(i.tok.Value)
		entry := i.findLine(targetLine)
		if entry == nil {
			i.setError("Line %d not found", targetLine)
			return
		}
		i.next = entry.index
	}
}

// execFor initializes the loop variable and pushes a loop frame when
// the range admits at least one iteration; otherwise it skips forward
// past the matching next, honoring nesting.
func (i *Interpreter) execFor() {
	i.advance()

	if i.tok.Type != lexer.IDENT {
		i.setError("Expected variable after 'for'")
		return
	}
	loopVar := i.tok.Text[0]
	idx := varIndex(loopVar)
	if idx < 0 {
		i.setError("Invalid loop variable")
		return
	}
	i.advance()

	if !i.expect(lexer.ASSIGN) {
		return
	}
	i.advance()

	start := i.parseExpression()
	if i.err != nil {
		return
	}

	if i.tok.Type != lexer.TO {
		i.setError("Expected 'to' in for statement")
		return
	}
	i.advance()

	end := i.parseExpression()
	if i.err != nil {
		return
	}

	step := 1.0
	if i.tok.Type == lexer.STEP {
		i.advance()
		step = i.parseExpression()
		if i.err != nil {
			return
		}
	}

	i.variables[idx].value = start
	i.variables[idx].initialized = true

	var shouldLoop bool
	if step > 0 {
		shouldLoop = start <= end
	} else {
		shouldLoop = start >= end
	}

	if shouldLoop {
		if i.forDepth >= MaxForDepth {
			i.setError("For loop nested too deep")
			return
		}
		i.forStack[i.forDepth] = forState{
			variable: loopVar,
			end:      end,
			step:     step,
			body:     i.current + 1,
		}
		i.forDepth++
		return
	}

	// Zero iterations: scan forward for the matching next, counting
	// nested for/next pairs, and resume after it.
	depth := 1
	for j := i.current + 1; j < len(i.lines) && depth > 0; j++ {
		i.lex.ResetTo(i.lines[j].start)
		i.advance()
		if i.tok.Type == lexer.NUMBER {
			i.advance()
		}

		if i.tok.Type == lexer.FOR {
			depth++
		} else if i.tok.Type == lexer.NEXT {
			depth--
			if depth == 0 {
				i.next = j + 1
				break
			}
		}
	}
}

// execNext steps the innermost loop and jumps back to its body while
// the variable stays in range.
func (i *Interpreter) execNext() {
	i.advance()

	if i.tok.Type != lexer.IDENT {
		i.setError("Expected variable after 'next'")
		return
	}
	loopVar := i.tok.Text[0]
	idx := varIndex(loopVar)

	if i.forDepth == 0 {
		i.setError("next without for")
		return
	}

	frame := &i.forStack[i.forDepth-1]
	if frame.variable != loopVar {
		i.setError("next variable mismatch")
		return
	}

	i.variables[idx].value += frame.step
	current := i.variables[idx].value

	var shouldContinue bool
	if frame.step > 0 {
		shouldContinue = current <= frame.end
	} else {
		shouldContinue = current >= frame.end
	}

	if shouldContinue {
		i.next = frame.body
	} else {
		i.forDepth--
	}
}
