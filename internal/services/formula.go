package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pim-service/internal/models"
)

// CalculationError is the sentinel shown in place of a calculated value when
// the formula is malformed or evaluation fails. Formula problems never
// propagate as errors to callers rendering values.
const CalculationError = "error in calculation"

// EvaluateFormula evaluates a calculated-field formula against a product
// record. The grammar is deliberately small: numeric literals, {attributeId}
// references, + - * / and parentheses. References missing from the record
// evaluate to 0; string values are numerically coerced. Division yielding a
// non-finite result is an error.
func EvaluateFormula(formula string, record models.ProductRecord) (float64, error) {
	return runFormula(formula, func(id string) (float64, error) {
		return coerceNumeric(record[id])
	})
}

// ValidateFormula checks a formula against the grammar without evaluating it
// against real data; every reference resolves to 1 so that structure, not
// values, determines validity.
func ValidateFormula(formula string) error {
	_, err := runFormula(formula, func(string) (float64, error) { return 1, nil })
	return err
}

func runFormula(formula string, resolve func(string) (float64, error)) (float64, error) {
	p := &formulaParser{input: formula, resolve: resolve}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

// EvaluateFormulaDisplay evaluates a formula and renders it for display,
// substituting the sentinel on any failure. The value is rounded to nine
// decimal places first so sums of decimal inputs display as decimals
// (12.50 + 24.99 renders "37.49", not the raw float64 "37.489999999999995").
func EvaluateFormulaDisplay(formula string, record models.ProductRecord) string {
	v, err := EvaluateFormula(formula, record)
	if err != nil {
		return CalculationError
	}
	rounded := math.Round(v*1e9) / 1e9
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// formulaParser is a recursive-descent evaluator over the formula grammar:
//
//	expr   = term (('+' | '-') term)*
//	term   = factor (('*' | '/') factor)*
//	factor = number | '{' id '}' | '(' expr ')' | '-' factor
type formulaParser struct {
	input   string
	pos     int
	resolve func(string) (float64, error)
}

func (p *formulaParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *formulaParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *formulaParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *formulaParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *formulaParser) parseFactor() (float64, error) {
	switch c := p.peek(); {
	case c == 0:
		return 0, fmt.Errorf("unexpected end of formula")
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case c == '{':
		return p.parseReference()
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *formulaParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *formulaParser) parseReference() (float64, error) {
	p.pos++ // consume '{'
	end := strings.IndexByte(p.input[p.pos:], '}')
	if end < 0 {
		return 0, fmt.Errorf("unterminated attribute reference")
	}
	id := strings.TrimSpace(p.input[p.pos : p.pos+end])
	p.pos += end + 1
	if id == "" {
		return 0, fmt.Errorf("empty attribute reference")
	}
	return p.resolve(id)
}

// coerceNumeric converts a product record value to a number. Absent values
// substitute as 0 per the calculated-field contract.
func coerceNumeric(v interface{}) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}
