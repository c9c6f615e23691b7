package blink

import (
	"testing"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() *Form {
	return &Form{
		Title:       "Help the shelter",
		ImageURL:    "https://example.com/cat.png",
		Description: "Food and blankets",
		Label:       "Donate",
		Amount: []AmountInput{
			{Value: decimal.RequireFromString("0.1")},
			{Value: decimal.RequireFromString("1")},
		},
	}
}

func fieldPaths(t *testing.T, err error) []string {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)

	paths := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		paths[i] = f.Path
	}
	return paths
}

func TestValidate(t *testing.T) {
	v := NewValidator(decimal.RequireFromString("0.1"))

	tests := []struct {
		name   string
		mutate func(f *Form)
		paths  []string
	}{
		{"valid", func(f *Form) {}, nil},
		{"missing title", func(f *Form) { f.Title = "" }, []string{"title"}},
		{"missing description", func(f *Form) { f.Description = "" }, []string{"description"}},
		{"missing label", func(f *Form) { f.Label = "" }, []string{"label"}},
		{"missing image", func(f *Form) { f.ImageURL = "" }, []string{"image_url"}},
		{"relative image", func(f *Form) { f.ImageURL = "/images/cat.png" }, []string{"image_url"}},
		{"no amounts", func(f *Form) { f.Amount = nil }, []string{"amount"}},
		{"amount below minimum", func(f *Form) {
			f.Amount = append(f.Amount, AmountInput{Value: decimal.RequireFromString("0.05")})
		}, []string{"amount.2.value"}},
		{"zero amount", func(f *Form) { f.Amount[0].Value = decimal.Zero }, []string{"amount.0.value"}},
		{"amount beyond column range", func(f *Form) {
			f.Amount[1].Value = decimal.RequireFromString("100000000000")
		}, []string{"amount.1.value"}},
		{"amount with sub-lamport precision", func(f *Form) {
			f.Amount[0].Value = decimal.RequireFromString("0.1234567891")
		}, []string{"amount.0.value"}},
		{"everything wrong", func(f *Form) { *f = Form{} }, []string{"title", "image_url", "description", "label", "amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(f)

			err := v.Validate(f)
			if tt.paths == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.paths, fieldPaths(t, err))
		})
	}
}

func TestValidate_MinimumIsInclusive(t *testing.T) {
	v := NewValidator(decimal.RequireFromString("0.1"))
	f := validForm()
	f.Amount = []AmountInput{{Value: decimal.RequireFromString("0.1")}}
	assert.NoError(t, v.Validate(f))
}

func TestValidate_AmountBounds(t *testing.T) {
	v := NewValidator(decimal.RequireFromString("0.1"))

	for _, ok := range []string{"99999999999.999999999", "0.123456789", "1.0000000000"} {
		f := validForm()
		f.Amount = []AmountInput{{Value: decimal.RequireFromString(ok)}}
		assert.NoError(t, v.Validate(f), ok)
	}

	f := validForm()
	f.Amount = []AmountInput{{Value: decimal.RequireFromString("1e12")}}
	err := v.Validate(f)
	require.Error(t, err)
	e, _ := apperr.As(err)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "Amount must be less than 100000000000", e.Fields[0].Message)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "rejected before reaching storage")
}

func TestDecode(t *testing.T) {
	body := `{
		"title": "t",
		"image_url": "https://example.com/x.png",
		"description": "d",
		"label": "l",
		"amount": [{"value": 0.5}, {"value": 2}]
	}`

	form, err := Decode([]byte(body))
	require.NoError(t, err)
	assert.False(t, form.IsCustomInput, "isCustomInput defaults to false")
	require.Len(t, form.Amount, 2)
	assert.Equal(t, "0.5", form.Amount[0].Value.String())

	params := form.Params("user-1")
	assert.Equal(t, "user-1", params.UserID)
	assert.Equal(t, "https://example.com/x.png", params.ImageURL)
	assert.Len(t, params.Amounts, 2)
}

func TestDecode_TypeMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"title": 5}`))
	require.Error(t, err)
	assert.Equal(t, []string{"title"}, fieldPaths(t, err))

	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
