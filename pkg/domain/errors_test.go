package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := domain.NotFoundf("load form", "form %d not found", 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "load form: form 7 not found", err.Error())

	wrapped := fmt.Errorf("start instance: %w", err)
	assert.ErrorIs(t, wrapped, domain.ErrNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(wrapped))
	assert.Equal(t, "form 7 not found", domain.DetailOf(wrapped))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want domain.Kind
	}{
		{domain.Conflictf("op", "dup"), domain.KindConflict},
		{domain.Forbiddenf("op", "no"), domain.KindForbidden},
		{domain.Invalidf("op", "bad"), domain.KindValidation},
		{domain.Stuckf("op", "stuck"), domain.KindStuck},
		{fmt.Errorf("wrap: %w", domain.ErrNotFound), domain.KindNotFound},
		{errors.New("boom"), domain.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.KindOf(tt.err))
		})
	}
}

func TestError_UnwrapCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &domain.Error{Kind: domain.KindInternal, Op: "save", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save: disk full", err.Error())
}

func TestParseEnums(t *testing.T) {
	_, err := domain.ParseOperator("between")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	op, err := domain.ParseOperator("not_in")
	assert.NoError(t, err)
	assert.Equal(t, domain.OpNotIn, op)

	logic, err := domain.ParseLogicOp("")
	assert.NoError(t, err)
	assert.Equal(t, domain.LogicAnd, logic)

	_, err = domain.ParseLogicOp("XOR")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = domain.ParseDataType("money")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = domain.ParseInstanceStatus("paused")
	assert.NoError(t, err)

	assert.True(t, domain.InputMultiselect.IsChoice())
	assert.False(t, domain.InputCheckbox.IsChoice())
	assert.True(t, domain.OpIsEmpty.Unary())
	assert.Len(t, domain.Operators, 14)
}
