package arith

import (
	"math"
	"testing"

	"github.com/statpatch/statpatch/doc"
)

func testDoc() *doc.Doc {
	return doc.FromMap(map[string]any{
		"hp":   float64(100),
		"mp":   float64(30),
		"name": "aria",
		"nums": []any{float64(1), float64(2), float64(3)},
		"deep": map[string]any{"bonus": float64(5)},
	})
}

func TestEval(t *testing.T) {
	d := testDoc()
	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"literal", "42", 42},
		{"decimal literal passes through", "2.5 * 2", 5},
		{"identifier", "hp - 30", 70},
		{"two identifiers", "hp + mp", 130},
		{"dotted name", "deep.bonus * 2", 10},
		{"dotted index", "nums.1 * 10", 20},
		{"missing resolves to zero", "hp + ghost", 100},
		{"non-numeric resolves to zero", "hp + name", 100},
		{"parens and precedence", "(hp + 10) * 2 - mp", 190},
		{"modulo", "hp % 7", 2},
		{"unary minus", "-hp + 10", -90},
		{"whitespace", "  hp\t- 30 ", 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Eval(d, tt.expr)
			if !ok {
				t.Fatalf("Eval(%q) failed", tt.expr)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvalIEEE(t *testing.T) {
	d := testDoc()

	got, ok := Eval(d, "hp / 0")
	if !ok {
		t.Fatal("hp / 0 failed")
	}
	if !math.IsInf(got, 1) {
		t.Errorf("hp / 0 = %v, want +Inf", got)
	}

	got, ok = Eval(d, "0 / 0")
	if !ok {
		t.Fatal("0 / 0 failed")
	}
	if !math.IsNaN(got) {
		t.Errorf("0 / 0 = %v, want NaN", got)
	}
}

func TestEvalFailClosed(t *testing.T) {
	d := testDoc()
	exprs := []string{
		"hp; 1",
		"hp + alert(1)", // parens survive, but only around numbers
		"hp | 1",
		"hp & 1",
		`"x" + hp`,
		"hp = 5",
		"2 ** 3", // characters pass, operator is outside the closed set
		"1 +",
		"",
	}
	for _, e := range exprs {
		if _, ok := Eval(d, e); ok {
			t.Errorf("Eval(%q) succeeded, want fail-closed", e)
		}
	}
}

func TestSubstitute(t *testing.T) {
	d := testDoc()
	tests := []struct {
		in   string
		want string
	}{
		{"hp - 30", "100 - 30"},
		{"ghost + 1", "0 + 1"},
		{"2.5 + hp", "2.5 + 100"},
		{"2e3", "2e3"}, // digit-led literal is not an identifier
	}
	for _, tt := range tests {
		if got := Substitute(d, tt.in); got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
