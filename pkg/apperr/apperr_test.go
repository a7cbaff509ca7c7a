package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/pkg/apperr"
)

func TestStatusOf(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:        http.StatusBadRequest,
		apperr.KindInsufficientStock: http.StatusBadRequest,
		apperr.KindInvalidTransition: http.StatusBadRequest,
		apperr.KindPlanFull:          http.StatusBadRequest,
		apperr.KindUnauthorized:      http.StatusUnauthorized,
		apperr.KindForbidden:         http.StatusForbidden,
		apperr.KindNotFound:          http.StatusNotFound,
		apperr.KindConflict:          http.StatusConflict,
		apperr.KindStoreFailure:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.StatusOf(kind), kind)
	}
}

func TestIsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("create order: %w", apperr.NotFound("product_not_found", "product %d not found", 7))

	assert.True(t, errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}))
	assert.True(t, errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound, Code: "product_not_found"}))
	assert.False(t, errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound, Code: "plan_not_found"}))
	assert.False(t, errors.Is(err, &apperr.Error{Kind: apperr.KindConflict}))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestFromClassifiesUnknownErrors(t *testing.T) {
	assert.Nil(t, apperr.From(nil))
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(nil))

	raw := errors.New("connection reset")
	e := apperr.From(raw)
	require.NotNil(t, e)
	assert.Equal(t, apperr.KindStoreFailure, e.Kind)
	assert.ErrorIs(t, e, raw)
	assert.Equal(t, "internal store failure", e.Message)
}

func TestWithDoesNotMutateOriginal(t *testing.T) {
	base := apperr.Validation("invalid_quantity", "quantity must be positive")
	extended := base.With("line", 2)

	assert.Nil(t, base.Details)
	assert.Equal(t, 2, extended.Details["line"])
	assert.Equal(t, base.Code, extended.Code)
}

func TestDetailPayloads(t *testing.T) {
	stock := apperr.InsufficientStock(3, "Kettlebell", 2, 5)
	assert.Equal(t, 3, stock.Details["shortfall"])
	assert.Contains(t, stock.Error(), "Kettlebell")

	tr := apperr.InvalidTransition("delivered", "pending", nil)
	assert.Equal(t, []string{}, tr.Details["allowed"])

	full := apperr.PlanFull(9, 10, 10)
	assert.Equal(t, apperr.KindPlanFull, full.Kind)
	assert.Equal(t, uint(9), full.Details["planId"])

	fields := apperr.Fields(map[string]string{"email": "is required"})
	assert.Equal(t, "invalid_fields", fields.Code)
	assert.Equal(t, "is required", fields.Details["email"])
}
