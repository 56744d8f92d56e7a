package interp

import (
	"math"

	"gosimple/pkg/lexer"
)

// Recursive-descent evaluator with the usual precedence ladder:
//
//	parseExpression   + -
//	parseTerm         * / %
//	parsePower        ^ (right associative)
//	parseUnary        unary - +
//	parsePrimary      literals, variables, a(expr), (expr)

func (i *Interpreter) parseExpression() float64 {
	result := i.parseTerm()

	for i.err == nil &&
		(i.tok.Type == lexer.PLUS || i.tok.Type == lexer.MINUS) {
		op := i.tok.Type
		i.advance()

		right := i.parseTerm()

		if op == lexer.PLUS {
			result += right
		} else {
			result -= right
		}
	}

	return result
}

func (i *Interpreter) parseTerm() float64 {
	result := i.parsePower()

	for i.err == nil &&
		(i.tok.Type == lexer.STAR || i.tok.Type == lexer.SLASH || i.tok.Type == lexer.PERCENT) {
		op := i.tok.Type
		i.advance()

		right := i.parsePower()

		switch op {
		case lexer.STAR:
			result *= right
		case lexer.SLASH:
			if right == 0 {
				i.setError("Division by zero")
				return 0
			}
			result /= right
		default:
			if right == 0 {
				i.setError("Modulo by zero")
				return 0
			}
			result = math.Mod(result, right)
		}
	}

	return result
}

func (i *Interpreter) parsePower() float64 {
	result := i.parseUnary()

	// Right associative: 2^3^2 is 2^(3^2), hence the recursion.
	if i.err == nil && i.tok.Type == lexer.CARET {
		i.advance()
		right := i.parsePower()
		result = math.Pow(result, right)
	}

	return result
}

func (i *Interpreter) parseUnary() float64 {
	if i.tok.Type == lexer.MINUS {
		i.advance()
		return -i.parseUnary()
	}
	if i.tok.Type == lexer.PLUS {
		i.advance()
		return i.parseUnary()
	}
	return i.parsePrimary()
}

func (i *Interpreter) parsePrimary() float64 {
	tok := i.tok

	if tok.Type == lexer.NUMBER || tok.Type == lexer.FLOAT {
		i.advance()
		return tok.Value
	}

	if tok.Type == lexer.IDENT {
		idx := varIndex(tok.Text[0])
		if idx < 0 {
			i.setError("Invalid variable: %s", tok.Text)
			return 0
		}
		i.advance()

		// Array element with a dynamic index; this is where the
		// interpreter outgrows the compiler.
		if i.tok.Type == lexer.LPAREN {
			i.advance()

			arrayIdx := int(i.parseExpression())
			if i.err != nil {
				return 0
			}
			if !i.expect(lexer.RPAREN) {
				return 0
			}
			i.advance()

			if arrayIdx < 0 || arrayIdx >= MaxArraySize {
				i.setError("Array index out of bounds: %d", arrayIdx)
				return 0
			}
			if !i.arrays[idx].initialized {
				i.setError("Uninitialized variable: %c", 'a'+idx)
				return 0
			}
			return i.arrays[idx].values[arrayIdx]
		}

		if !i.variables[idx].initialized {
			i.setError("Uninitialized variable: %c", 'a'+idx)
			return 0
		}
		return i.variables[idx].value
	}

	if tok.Type == lexer.LPAREN {
		i.advance()

		result := i.parseExpression()

		if !i.expect(lexer.RPAREN) {
			return 0
		}
		i.advance()

		return result
	}

	i.setError("Unexpected token in expression: %s", tok.Text)
	return 0
}

// parseCondition evaluates "expr relop expr" as a boolean. Float
// comparison is exact; no tolerance is applied.
func (i *Interpreter) parseCondition() bool {
	left := i.parseExpression()
	if i.err != nil {
		return false
	}

	op := i.tok.Type
	switch op {
	case lexer.EQ, lexer.NE, lexer.LT, lexer.GT, lexer.LE, lexer.GE:
	default:
		i.setError("Expected comparison operator")
		return false
	}
	i.advance()

	right := i.parseExpression()
	if i.err != nil {
		return false
	}

	switch op {
	case lexer.EQ:
		return left == right
	case lexer.NE:
		return left != right
	case lexer.LT:
		return left < right
	case lexer.GT:
		return left > right
	case lexer.LE:
		return left <= right
	default:
		return left >= right
	}
}
