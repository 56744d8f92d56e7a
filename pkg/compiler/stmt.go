package compiler

import (
	"gosimple/pkg/lexer"
	"gosimple/pkg/vm"
)

// compileInput emits a READ for each comma-separated variable.
func (c *Compiler) compileInput() {
	c.advance()

	for {
		if c.tok.Type == lexer.COMMA {
			c.advance()
		}

		if c.tok.Type != lexer.IDENT {
			c.setError("Expected variable after 'input'")
			return
		}

		idx := varIndex(c.tok.Text[0])
		if idx < 0 {
			c.setError("Invalid variable: %s", c.tok.Text)
			return
		}

		loc := c.getOrCreateVariable(idx)
		c.emit(vm.OpRead*100 + loc)
		c.advance()

		if c.tok.Type != lexer.COMMA {
			return
		}
	}
}

// compilePrint emits WRITES for string items and a store+WRITE pair for
// expression items, then a trailing NEWLINE. A bare print is just the
// newline.
func (c *Compiler) compilePrint() {
	c.advance()

	if c.tok.Type == lexer.NEWLINE || c.tok.Type == lexer.EOF {
		c.emit(vm.OpNewline*100 + 0)
		return
	}

	for {
		if c.tok.Type == lexer.COMMA {
			c.advance()
		}

		if c.tok.Type == lexer.STRING {
			strLoc := c.storeString(c.tok.Text)
			if strLoc >= 0 {
				c.emit(vm.OpWrites*100 + strLoc)
			}
			c.advance()
		} else if c.tok.Type != lexer.NEWLINE && c.tok.Type != lexer.EOF &&
			c.tok.Type != lexer.COMMA {
			c.compileExpression()
			if c.err != nil {
				return
			}

			temp := c.allocData()
			c.emit(vm.OpStore*100 + temp)
			c.emit(vm.OpWrite*100 + temp)
		}

		if c.tok.Type != lexer.COMMA {
			break
		}
	}

	c.emit(vm.OpNewline*100 + 0)
}

// compileLet evaluates the right side into AC and stores it at the
// target's cell.
func (c *Compiler) compileLet() {
	c.advance()

	if c.tok.Type != lexer.IDENT {
		c.setError("Expected variable after 'let'")
		return
	}

	idx := varIndex(c.tok.Text[0])
	if idx < 0 {
		c.setError("Invalid variable: %s", c.tok.Text)
		return
	}
	c.advance()

	var loc int
	if c.tok.Type == lexer.LPAREN {
		loc = c.compileArrayElement(idx)
		if c.err != nil {
			return
		}
	} else {
		loc = c.getOrCreateVariable(idx)
	}

	if c.tok.Type != lexer.ASSIGN {
		c.setError("Expected '=' in let statement")
		return
	}
	c.advance()

	c.compileExpression()
	if c.err != nil {
		return
	}

	c.emit(vm.OpStore*100 + loc)
}

// compileGoto emits an unconditional branch, flagging it when the
// target line has not been seen yet.
func (c *Compiler) compileGoto() {
	c.advance()

	if c.tok.Type != lexer.NUMBER {
		c.setError("Expected line number after 'goto'")
		return
	}

	targetLine := int(c.tok.Value)
	if sym := c.findSymbol(SymLine, targetLine); sym != nil {
		c.emit(vm.OpBranch*100 + sym.Location)
	} else {
		c.addFlag(c.instructionCounter, targetLine)
		c.emit(vm.OpBranch*100 + 0)
	}
	c.advance()
}

// compileIf lowers "if left op right goto N". The VM only offers
// BRANCHZERO and BRANCHNEG, so every comparison reduces to the sign of
// left-right (and right-left for the reversed cases).
func (c *Compiler) compileIf() {
	c.advance()

	c.compileExpression()
	if c.err != nil {
		return
	}
	tempLeft := c.allocData()
	c.emit(vm.OpStore*100 + tempLeft)

	op := c.tok.Type
	switch op {
	case lexer.EQ, lexer.NE, lexer.LT, lexer.GT, lexer.LE, lexer.GE:
	default:
		c.setError("Expected comparison operator in if statement")
		return
	}
	c.advance()

	c.compileExpression()
	if c.err != nil {
		return
	}
	tempRight := c.allocData()
	c.emit(vm.OpStore*100 + tempRight)

	c.emit(vm.OpLoad*100 + tempLeft)
	c.emit(vm.OpSub*100 + tempRight)

	if c.tok.Type != lexer.GOTO {
		c.setError("Expected 'goto' in if statement")
		return
	}
	c.advance()

	if c.tok.Type != lexer.NUMBER {
		c.setError("Expected line number after 'goto'")
		return
	}

	targetLine := int(c.tok.Value)
	sym := c.findSymbol(SymLine, targetLine)
	targetLoc := 0
	if sym != nil {
		targetLoc = sym.Location
	}
	flagIfUnresolved := func() {
		if sym == nil {
			c.addFlag(c.instructionCounter, targetLine)
		}
	}

	switch op {
	case lexer.EQ: // left - right == 0
		flagIfUnresolved()
		c.emit(vm.OpBranchZero*100 + targetLoc)

	case lexer.LT: // left - right < 0
		flagIfUnresolved()
		c.emit(vm.OpBranchNeg*100 + targetLoc)

	case lexer.GT: // right - left < 0
		c.emit(vm.OpLoad*100 + tempRight)
		c.emit(vm.OpSub*100 + tempLeft)
		flagIfUnresolved()
		c.emit(vm.OpBranchNeg*100 + targetLoc)

	case lexer.LE: // left - right <= 0
		flagIfUnresolved()
		c.emit(vm.OpBranchNeg*100 + targetLoc)
		flagIfUnresolved()
		c.emit(vm.OpBranchZero*100 + targetLoc)

	case lexer.GE: // left - right == 0, or right - left < 0
		flagIfUnresolved()
		c.emit(vm.OpBranchZero*100 + targetLoc)
		c.emit(vm.OpLoad*100 + tempRight)
		c.emit(vm.OpSub*100 + tempLeft)
		flagIfUnresolved()
		c.emit(vm.OpBranchNeg*100 + targetLoc)

	case lexer.NE: // negative in either direction
		flagIfUnresolved()
		c.emit(vm.OpBranchNeg*100 + targetLoc)
		c.emit(vm.OpLoad*100 + tempRight)
		c.emit(vm.OpSub*100 + tempLeft)
		flagIfUnresolved()
		c.emit(vm.OpBranchNeg*100 + targetLoc)
	}

	c.advance()
}

// compileFor emits the init code and pushes a loop frame; the matching
// next emits the increment and back-branch.
func (c *Compiler) compileFor() {
	c.advance()

	if c.tok.Type != lexer.IDENT {
		c.setError("Expected variable after 'for'")
		return
	}
	loopVar := c.tok.Text[0]
	idx := varIndex(loopVar)
	if idx < 0 {
		c.setError("Invalid loop variable")
		return
	}
	varLoc := c.getOrCreateVariable(idx)
	c.advance()

	if c.tok.Type != lexer.ASSIGN {
		c.setError("Expected '=' in for statement")
		return
	}
	c.advance()

	c.compileExpression()
	if c.err != nil {
		return
	}
	c.emit(vm.OpStore*100 + varLoc)

	if c.tok.Type != lexer.TO {
		c.setError("Expected 'to' in for statement")
		return
	}
	c.advance()

	c.compileExpression()
	if c.err != nil {
		return
	}
	endLoc := c.allocData()
	c.emit(vm.OpStore*100 + endLoc)

	// The step must be a literal so its sign is known at compile time;
	// the loop-exit test direction depends on it.
	stepLoc := 0
	stepNegative := false
	if c.tok.Type == lexer.STEP {
		c.advance()

		switch {
		case c.tok.Type == lexer.MINUS:
			c.advance()
			if c.tok.Type != lexer.NUMBER {
				c.setError("Step must be a constant number")
				return
			}
			stepLoc = c.getOrCreateConstant(-int(c.tok.Value))
			stepNegative = true
			c.advance()
		case c.tok.Type == lexer.NUMBER:
			stepVal := int(c.tok.Value)
			stepLoc = c.getOrCreateConstant(stepVal)
			stepNegative = stepVal < 0
			c.advance()
		default:
			c.setError("Step must be a constant number")
			return
		}
	} else {
		stepLoc = c.getOrCreateConstant(1)
	}

	if c.forDepth >= MaxForDepth {
		c.setError("For loop nested too deep")
		return
	}
	c.forStack[c.forDepth] = forFrame{
		variable:     loopVar,
		varLocation:  varLoc,
		endLocation:  endLoc,
		stepLocation: stepLoc,
		stepNegative: stepNegative,
		loopStart:    c.instructionCounter,
	}
	c.forDepth++
}

// compileNext pops the matching frame, steps the loop variable and
// branches back while it is still in range.
func (c *Compiler) compileNext() {
	c.advance()

	if c.tok.Type != lexer.IDENT {
		c.setError("Expected variable after 'next'")
		return
	}
	loopVar := c.tok.Text[0]
	c.advance()

	if c.forDepth == 0 {
		c.setError("next without for")
		return
	}

	frame := &c.forStack[c.forDepth-1]
	if frame.variable != loopVar {
		c.setError("next variable mismatch: expected '%c', got '%c'",
			frame.variable, loopVar)
		return
	}

	// var += step
	c.emit(vm.OpLoad*100 + frame.varLocation)
	c.emit(vm.OpAdd*100 + frame.stepLocation)
	c.emit(vm.OpStore*100 + frame.varLocation)

	// Continue while var has not passed end, in the step's direction.
	if frame.stepNegative {
		c.emit(vm.OpLoad*100 + frame.endLocation)
		c.emit(vm.OpSub*100 + frame.varLocation)
	} else {
		c.emit(vm.OpLoad*100 + frame.varLocation)
		c.emit(vm.OpSub*100 + frame.endLocation)
	}
	c.emit(vm.OpBranchNeg*100 + frame.loopStart)
	c.emit(vm.OpBranchZero*100 + frame.loopStart)

	c.forDepth--
}
