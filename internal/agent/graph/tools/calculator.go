package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/cloudwego/eino/components/tool"
)

/*
Arithmetic grammar evaluated by the calculator tool:

Expression := Term ( ("+" | "-") Term )*
Term       := Unary ( ("*" | "/" | "%") Unary )*
Unary      := "-" Unary | Power
Power      := Primary ( "^" Unary )?
Primary    := <number> | "(" Expression ")"

Exponentiation is right-associative and binds tighter than unary minus,
so -2^2 is -4.
*/

var (
	calcParser = participle.MustBuild[Expression](participle.UseLookahead(2))

	ErrDivisionByZero = errors.New("division by zero")
)

const calculatorDesc = "Evaluate an arithmetic expression. Supports + - * / % ^ parentheses decimals and unary minus."

type Expression struct {
	Left  *Term     `@@`
	Right []*OpTerm `@@*`
}

type OpTerm struct {
	Op   string `@("+" | "-")`
	Term *Term  `@@`
}

type Term struct {
	Left  *Unary      `@@`
	Right []*OpFactor `@@*`
}

type OpFactor struct {
	Op    string `@("*" | "/" | "%")`
	Unary *Unary `@@`
}

type Unary struct {
	Negated *Unary `  "-" @@`
	Power   *Power `| @@`
}

type Power struct {
	Base     *Primary `@@`
	Exponent *Unary   `( "^" @@ )?`
}

type Primary struct {
	Number *float64    `  @(Float | Int)`
	Sub    *Expression `| "(" @@ ")"`
}

func (e *Expression) Eval() (float64, error) {
	v, err := e.Left.Eval()
	if err != nil {
		return 0, err
	}
	for _, r := range e.Right {
		rv, err := r.Term.Eval()
		if err != nil {
			return 0, err
		}
		if r.Op == "+" {
			v += rv
		} else {
			v -= rv
		}
	}
	return v, nil
}

func (t *Term) Eval() (float64, error) {
	v, err := t.Left.Eval()
	if err != nil {
		return 0, err
	}
	for _, r := range t.Right {
		rv, err := r.Unary.Eval()
		if err != nil {
			return 0, err
		}
		switch r.Op {
		case "*":
			v *= rv
		case "/":
			if rv == 0 {
				return 0, ErrDivisionByZero
			}
			v /= rv
		case "%":
			if rv == 0 {
				return 0, ErrDivisionByZero
			}
			v = math.Mod(v, rv)
		}
	}
	return v, nil
}

func (u *Unary) Eval() (float64, error) {
	if u.Negated != nil {
		v, err := u.Negated.Eval()
		return -v, err
	}
	return u.Power.Eval()
}

func (p *Power) Eval() (float64, error) {
	base, err := p.Base.Eval()
	if err != nil {
		return 0, err
	}
	if p.Exponent == nil {
		return base, nil
	}
	exp, err := p.Exponent.Eval()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *Primary) Eval() (float64, error) {
	if p.Number != nil {
		return *p.Number, nil
	}
	return p.Sub.Eval()
}

// Evaluate parses and evaluates an arithmetic expression.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, errors.New("empty expression")
	}
	ast, err := calcParser.ParseString("", expr)
	if err != nil {
		return 0, fmt.Errorf("error parsing expression '%s': %w", expr, err)
	}
	v, err := ast.Eval()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("expression '%s' has no finite result", expr)
	}
	return v, nil
}

// FormatNumber renders a result without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type CalculatorInput struct {
	Expression string `json:"expression" jsonschema:"description=Arithmetic expression such as (2+3)*4^2"`
}

type CalculatorOutput struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	Formatted  string  `json:"formatted,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func newCalculatorTool(Deps) (tool.InvokableTool, error) {
	return infer(ToolCalculator, calculatorDesc, calculate)
}

func calculate(_ context.Context, in *CalculatorInput) (*CalculatorOutput, error) {
	out := &CalculatorOutput{Expression: in.Expression}
	v, err := Evaluate(in.Expression)
	if err != nil {
		out.Error = err.Error()
		return out, nil
	}
	out.Result = v
	out.Formatted = FormatNumber(v)
	return out, nil
}
