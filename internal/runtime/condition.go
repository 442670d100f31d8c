package runtime

import (
	"strings"
	"unicode/utf8"

	"github.com/aretw0/formflow/pkg/domain"
)

// EvaluateCondition applies op to the recorded answer and the resolved operand.
// Evaluation is total: a value that cannot be coerced makes the condition false.
func EvaluateCondition(actual domain.Value, op domain.Operator, expected domain.Value) bool {
	switch op {
	case domain.OpIsTrue:
		return actual.Truthy()
	case domain.OpIsFalse:
		return !actual.Truthy()
	case domain.OpEq:
		return equals(actual, expected)
	case domain.OpNe:
		return !equals(actual, expected)
	case domain.OpGt:
		c, ok := compare(actual, expected)
		return ok && c > 0
	case domain.OpGte:
		c, ok := compare(actual, expected)
		return ok && c >= 0
	case domain.OpLt:
		c, ok := compare(actual, expected)
		return ok && c < 0
	case domain.OpLte:
		c, ok := compare(actual, expected)
		return ok && c <= 0
	case domain.OpIn:
		return member(actual, expected)
	case domain.OpNotIn:
		return !actual.IsNull() && !member(actual, expected)
	case domain.OpLike:
		return like(actual, expected, false)
	case domain.OpIlike:
		return like(actual, expected, true)
	case domain.OpIsEmpty:
		return isEmpty(actual)
	case domain.OpNotEmpty:
		return !isEmpty(actual)
	}
	return false
}

// equals dispatches on the operand's kind: boolean, then numeric, then string.
func equals(actual, expected domain.Value) bool {
	if actual.IsNull() || expected.IsNull() {
		return false
	}
	switch expected.Kind() {
	case domain.ValueBool:
		return actual.Truthy() == expected.Truthy()
	case domain.ValueNumber:
		a, ok := actual.Float()
		if !ok {
			return false
		}
		e, _ := expected.Float()
		return a == e
	}
	a, ok := actual.AsString()
	if !ok {
		return false
	}
	e, _ := expected.AsString()
	return a == e
}

// compare orders dates chronologically when both sides parse as dates, numbers otherwise.
func compare(actual, expected domain.Value) (int, bool) {
	if at, ok := actual.AsTime(); ok {
		if et, ok := expected.AsTime(); ok {
			return at.Compare(et), true
		}
	}
	a, ok := actual.Float()
	if !ok {
		return 0, false
	}
	e, ok := expected.Float()
	if !ok {
		return 0, false
	}
	switch {
	case a < e:
		return -1, true
	case a > e:
		return 1, true
	}
	return 0, true
}

// member reports whether actual (or any element of a list actual) belongs to the operand set.
// The set is a list operand or comma-separated text.
func member(actual, expected domain.Value) bool {
	if actual.IsNull() {
		return false
	}
	set := make(map[string]struct{})
	if expected.Kind() == domain.ValueList {
		for _, item := range expected.Items() {
			set[item] = struct{}{}
		}
	} else if s, ok := expected.AsString(); ok {
		for _, item := range strings.Split(s, ",") {
			set[strings.TrimSpace(item)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return false
	}

	if actual.Kind() == domain.ValueList {
		for _, item := range actual.Items() {
			if _, ok := set[item]; ok {
				return true
			}
		}
		return false
	}
	s, _ := actual.AsString()
	_, ok := set[s]
	return ok
}

func isEmpty(v domain.Value) bool {
	switch v.Kind() {
	case domain.ValueNull:
		return true
	case domain.ValueList:
		return len(v.Items()) == 0
	case domain.ValueText, domain.ValueOption, domain.ValueDate:
		s, _ := v.AsString()
		return s == ""
	}
	return false
}

func like(actual, expected domain.Value, fold bool) bool {
	s, ok := actual.AsString()
	if !ok {
		return false
	}
	pattern, ok := expected.AsString()
	if !ok {
		return false
	}
	if fold {
		s, pattern = strings.ToLower(s), strings.ToLower(pattern)
	}
	return matchLike(s, compileLike(pattern))
}

type likeToken struct {
	any bool // '%'
	one bool // '_'
	r   rune
}

func compileLike(pattern string) []likeToken {
	var tokens []likeToken
	for i := 0; i < len(pattern); {
		r, size := utf8.DecodeRuneInString(pattern[i:])
		i += size
		switch r {
		case '%':
			tokens = append(tokens, likeToken{any: true})
		case '_':
			tokens = append(tokens, likeToken{one: true})
		case '\\':
			if i < len(pattern) {
				r, size = utf8.DecodeRuneInString(pattern[i:])
				i += size
			}
			tokens = append(tokens, likeToken{r: r})
		default:
			tokens = append(tokens, likeToken{r: r})
		}
	}
	return tokens
}

// matchLike is the usual single-star backtracking wildcard match over runes.
func matchLike(s string, tokens []likeToken) bool {
	runes := []rune(s)
	si, ti := 0, 0
	star, mark := -1, 0
	for si < len(runes) {
		switch {
		case ti < len(tokens) && !tokens[ti].any && (tokens[ti].one || tokens[ti].r == runes[si]):
			si++
			ti++
		case ti < len(tokens) && tokens[ti].any:
			star, mark = ti, si
			ti++
		case star >= 0:
			ti = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for ti < len(tokens) && tokens[ti].any {
		ti++
	}
	return ti == len(tokens)
}
