package validate_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/pkg/validate"
)

type registerInput struct {
	Name     string `json:"name"     validate:"required,min=2,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"     validate:"nullable,in=customer,trainer"`
	Website  string `json:"website"  validate:"nullable,url"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(registerInput{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "secret123",
		Role:     "trainer",
	})
	assert.False(t, validate.HasErrors(errs), "unexpected errors: %v", errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(registerInput{})
	require.True(t, validate.HasErrors(errs))
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.NotContains(t, errs, "role", "nullable field must be skipped when empty")
}

func TestInRule(t *testing.T) {
	errs := validate.Struct(registerInput{Name: "Jo", Email: "jo@example.com", Password: "password1", Role: "admin"})
	assert.Equal(t, "The selected role is invalid.", errs["role"])
}

func TestEmailAndURL(t *testing.T) {
	errs := validate.Struct(registerInput{Name: "Jo", Email: "nope", Password: "password1", Website: "ftp://x"})
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "website")
}

type cartItem struct {
	ProductID uint `json:"productId" validate:"required"`
	Quantity  int  `json:"quantity"  validate:"required,gte=1,lte=100"`
}

type address struct {
	City    string `json:"city"    validate:"required"`
	Country string `json:"country" validate:"required"`
}

type orderInput struct {
	Items    []cartItem `json:"items"    validate:"required,dive"`
	Shipping address    `json:"shipping"`
	Billing  *address   `json:"billing"  validate:"nullable"`
}

func TestDiveIntoSlices(t *testing.T) {
	errs := validate.Struct(orderInput{
		Items:    []cartItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 0}},
		Shipping: address{City: "Austin", Country: "US"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs, "items[1].quantity")
}

func TestNestedStructPaths(t *testing.T) {
	errs := validate.Struct(&orderInput{
		Items:   []cartItem{{ProductID: 1, Quantity: 1}},
		Billing: &address{City: "Austin"},
	})
	assert.Contains(t, errs, "shipping.city")
	assert.Contains(t, errs, "shipping.country")
	assert.Contains(t, errs, "billing.country")
	assert.NotContains(t, errs, "billing.city")
}

func TestEmptySliceIsRequired(t *testing.T) {
	errs := validate.Struct(orderInput{Shipping: address{City: "a", Country: "b"}})
	assert.Contains(t, errs, "items")
}

func TestDecimalRules(t *testing.T) {
	type priced struct {
		Price decimal.Decimal `json:"price" validate:"gte=0"`
	}
	assert.Empty(t, validate.Struct(priced{Price: decimal.NewFromFloat(19.99)}))
	assert.Contains(t, validate.Struct(priced{Price: decimal.NewFromInt(-1)}), "price")
}

func TestMinMaxNumbers(t *testing.T) {
	type rating struct {
		Rating int `json:"rating" validate:"required,min=1,max=5"`
	}
	assert.Contains(t, validate.Struct(rating{Rating: 6}), "rating")
	assert.Contains(t, validate.Struct(rating{}), "rating")
	assert.Empty(t, validate.Struct(rating{Rating: 5}))
}
