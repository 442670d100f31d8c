package runtime_test

import (
	"testing"

	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name     string
		actual   domain.Value
		op       domain.Operator
		expected domain.Value
		want     bool
	}{
		{"is_true on true", domain.Bool(true), domain.OpIsTrue, domain.Null(), true},
		{"is_true on null", domain.Null(), domain.OpIsTrue, domain.Null(), false},
		{"is_false on null", domain.Null(), domain.OpIsFalse, domain.Null(), true},
		{"is_false on text", domain.Text("x"), domain.OpIsFalse, domain.Null(), false},

		{"eq bool", domain.Bool(true), domain.OpEq, domain.Bool(true), true},
		{"eq bool mismatch", domain.Bool(false), domain.OpEq, domain.Bool(true), false},
		{"eq null actual", domain.Null(), domain.OpEq, domain.Bool(false), false},
		{"eq null expected", domain.Text("a"), domain.OpEq, domain.Null(), false},
		{"eq numeric", domain.Number(3), domain.OpEq, domain.Number(3.0), true},
		{"eq numeric text actual", domain.Text("3"), domain.OpEq, domain.Number(3), true},
		{"eq numeric unparsable", domain.Text("three"), domain.OpEq, domain.Number(3), false},
		{"eq option", domain.Choice("go"), domain.OpEq, domain.Text("go"), true},
		{"ne option", domain.Choice("go"), domain.OpNe, domain.Text("py"), true},

		{"gt number", domain.Number(5), domain.OpGt, domain.Number(3), true},
		{"gt text number", domain.Text("2"), domain.OpGt, domain.Number(3), false},
		{"gte equal", domain.Number(3), domain.OpGte, domain.Number(3), true},
		{"lt unparsable", domain.Text("abc"), domain.OpLt, domain.Number(3), false},
		{"lte null", domain.Null(), domain.OpLte, domain.Number(3), false},
		{"gt dates", domain.Date("2024-03-01"), domain.OpGt, domain.Text("2024-02-28"), true},
		{"lt datetime vs date", domain.Date("2024-01-01T10:00:00Z"), domain.OpLt, domain.Date("2024-01-02"), true},

		{"in csv", domain.Choice("go"), domain.OpIn, domain.Text("py, go"), true},
		{"in list", domain.Choice("js"), domain.OpIn, domain.List("py", "go"), false},
		{"in list actual", domain.List("a", "b"), domain.OpIn, domain.List("b"), true},
		{"in null", domain.Null(), domain.OpIn, domain.List("a"), false},
		{"not_in", domain.Choice("js"), domain.OpNotIn, domain.List("py", "go"), true},
		{"not_in null", domain.Null(), domain.OpNotIn, domain.List("py"), false},

		{"like prefix", domain.Text("golang"), domain.OpLike, domain.Text("go%"), true},
		{"like middle", domain.Text("hello"), domain.OpLike, domain.Text("h%o"), true},
		{"like single", domain.Text("cat"), domain.OpLike, domain.Text("c_t"), true},
		{"like case", domain.Text("GoLang"), domain.OpLike, domain.Text("go%"), false},
		{"ilike case", domain.Text("GoLang"), domain.OpIlike, domain.Text("go%"), true},
		{"like escape", domain.Text("50%"), domain.OpLike, domain.Text(`50\%`), true},
		{"like escape literal", domain.Text("500"), domain.OpLike, domain.Text(`50\%`), false},
		{"like null", domain.Null(), domain.OpLike, domain.Text("%"), false},

		{"is_empty null", domain.Null(), domain.OpIsEmpty, domain.Null(), true},
		{"is_empty blank", domain.Text(""), domain.OpIsEmpty, domain.Null(), true},
		{"is_empty empty list", domain.List(), domain.OpIsEmpty, domain.Null(), true},
		{"is_empty zero", domain.Number(0), domain.OpIsEmpty, domain.Null(), false},
		{"not_empty option", domain.Choice("go"), domain.OpNotEmpty, domain.Null(), true},

		{"unknown operator", domain.Text("a"), domain.Operator("regex"), domain.Text("a"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runtime.EvaluateCondition(tt.actual, tt.op, tt.expected))
		})
	}
}
