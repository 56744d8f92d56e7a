package compiler

import (
	"gosimple/pkg/lexer"
	"gosimple/pkg/vm"
)

// Expression compilation is stack-free and accumulator-centric: every
// fragment leaves its result in AC. Binary operators spill both sides
// into freshly allocated data cells; no temp reuse is attempted.

// compilePrimary handles numbers, variables, constant-indexed array
// elements, and parenthesized expressions.
func (c *Compiler) compilePrimary() {
	tok := c.tok

	switch {
	case tok.Type == lexer.NUMBER || tok.Type == lexer.FLOAT:
		// FLOAT literals truncate toward zero; SML only has integers.
		value := int(tok.Value)
		loc := c.getOrCreateConstant(value)
		c.emit(vm.OpLoad*100 + loc)
		c.advance()

	case tok.Type == lexer.IDENT:
		idx := varIndex(tok.Text[0])
		if idx < 0 {
			c.setError("Invalid variable: %s", tok.Text)
			return
		}
		c.advance()

		if c.tok.Type == lexer.LPAREN {
			loc := c.compileArrayElement(idx)
			if c.err != nil {
				return
			}
			c.emit(vm.OpLoad*100 + loc)
		} else {
			loc := c.getOrCreateVariable(idx)
			c.emit(vm.OpLoad*100 + loc)
		}

	case tok.Type == lexer.LPAREN:
		c.advance()
		c.compileExpression()
		if c.tok.Type != lexer.RPAREN {
			c.setError("Expected ')'")
			return
		}
		c.advance()

	default:
		c.setError("Unexpected token in expression: %s", tok.Text)
	}
}

// compileArrayElement parses "(index)" after an array name and returns
// the element's cell address. SML has no indirect addressing, so the
// index must be an integer literal.
func (c *Compiler) compileArrayElement(varIdx int) int {
	c.advance() // consume '('

	if c.tok.Type != lexer.NUMBER {
		c.setError("Array index must be a constant (SML limitation)")
		return -1
	}
	arrayIdx := int(c.tok.Value)
	c.advance()

	if c.tok.Type != lexer.RPAREN {
		c.setError("Expected ')' after array index")
		return -1
	}
	c.advance()

	arr := c.findSymbol(SymArray, varIdx)
	if arr == nil {
		size := arrayIdx + 1
		if size < 10 {
			size = 10
		}
		c.getOrCreateArray(varIdx, size)
		arr = c.findSymbol(SymArray, varIdx)
	}
	if arr == nil {
		c.setError("Failed to create array")
		return -1
	}

	if arrayIdx < 0 || arrayIdx >= arr.Size {
		c.setError("Array index %d out of bounds (0-%d)", arrayIdx, arr.Size-1)
		return -1
	}

	// Arrays grow downward from their base.
	return arr.Location - arrayIdx
}

// compileUnary lowers unary minus as 0 - value; unary plus is a no-op.
func (c *Compiler) compileUnary() {
	if c.tok.Type == lexer.MINUS {
		c.advance()
		c.compileUnary()

		zeroLoc := c.getOrCreateConstant(0)
		temp := c.allocData()
		c.emit(vm.OpStore*100 + temp)
		c.emit(vm.OpLoad*100 + zeroLoc)
		c.emit(vm.OpSub*100 + temp)
		return
	}
	if c.tok.Type == lexer.PLUS {
		c.advance()
		c.compileUnary()
		return
	}
	c.compilePrimary()
}

// compilePower lowers a ^ b as a bounded repeated-multiplication loop.
// The exponent side recurses, so chains associate to the right like the
// interpreter. Non-integer or negative exponents are not supported.
func (c *Compiler) compilePower() {
	c.compileUnary()

	if c.err == nil && c.tok.Type == lexer.CARET {
		c.advance()

		baseLoc := c.allocData()
		c.emit(vm.OpStore*100 + baseLoc)

		c.compilePower()
		expLoc := c.allocData()
		c.emit(vm.OpStore*100 + expLoc)

		resultLoc := c.allocData()
		oneLoc := c.getOrCreateConstant(1)
		c.emit(vm.OpLoad*100 + oneLoc)
		c.emit(vm.OpStore*100 + resultLoc)

		loopStart := c.instructionCounter

		// while exp > 0
		c.emit(vm.OpLoad*100 + expLoc)
		branchLoc := c.instructionCounter
		c.emit(vm.OpBranchZero*100 + 0) // patched below
		c.emit(vm.OpBranchNeg*100 + 0)  // patched below

		// result *= base
		c.emit(vm.OpLoad*100 + resultLoc)
		c.emit(vm.OpMul*100 + baseLoc)
		c.emit(vm.OpStore*100 + resultLoc)

		// exp--
		c.emit(vm.OpLoad*100 + expLoc)
		c.emit(vm.OpSub*100 + oneLoc)
		c.emit(vm.OpStore*100 + expLoc)

		c.emit(vm.OpBranch*100 + loopStart)

		if c.err != nil {
			return
		}
		loopEnd := c.instructionCounter
		c.memory[branchLoc] = vm.OpBranchZero*100 + loopEnd
		c.memory[branchLoc+1] = vm.OpBranchNeg*100 + loopEnd

		c.emit(vm.OpLoad*100 + resultLoc)
	}
}

// compileTerm handles *, / and %.
func (c *Compiler) compileTerm() {
	c.compilePower()

	for c.err == nil &&
		(c.tok.Type == lexer.STAR || c.tok.Type == lexer.SLASH || c.tok.Type == lexer.PERCENT) {
		op := c.tok.Type
		c.advance()

		temp := c.allocData()
		c.emit(vm.OpStore*100 + temp)

		c.compilePower()

		temp2 := c.allocData()
		c.emit(vm.OpStore*100 + temp2)
		c.emit(vm.OpLoad*100 + temp)

		switch op {
		case lexer.STAR:
			c.emit(vm.OpMul*100 + temp2)
		case lexer.SLASH:
			c.emit(vm.OpDiv*100 + temp2)
		default:
			c.emit(vm.OpMod*100 + temp2)
		}
	}
}

// compileExpression handles + and -.
func (c *Compiler) compileExpression() {
	c.compileTerm()

	for c.err == nil && (c.tok.Type == lexer.PLUS || c.tok.Type == lexer.MINUS) {
		op := c.tok.Type
		c.advance()

		temp := c.allocData()
		c.emit(vm.OpStore*100 + temp)

		c.compileTerm()

		temp2 := c.allocData()
		c.emit(vm.OpStore*100 + temp2)
		c.emit(vm.OpLoad*100 + temp)

		if op == lexer.PLUS {
			c.emit(vm.OpAdd*100 + temp2)
		} else {
			c.emit(vm.OpSub*100 + temp2)
		}
	}
}
