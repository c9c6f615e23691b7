// Package blink validates blink creation requests.
package blink

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/db"
	"github.com/shopspring/decimal"
)

// AmountInput is one preset amount in a creation request.
type AmountInput struct {
	Value decimal.Decimal `json:"value"`
}

// Form is the body of a blink creation request.
type Form struct {
	Title         string        `json:"title"`
	ImageURL      string        `json:"image_url"`
	Description   string        `json:"description"`
	Label         string        `json:"label"`
	Amount        []AmountInput `json:"amount"`
	IsCustomInput bool          `json:"isCustomInput"`
}

// Validator checks forms against the configured minimum amount.
type Validator struct {
	minAmount decimal.Decimal
}

// NewValidator creates a Validator rejecting amounts below minAmount.
func NewValidator(minAmount decimal.Decimal) *Validator {
	return &Validator{minAmount: minAmount}
}

// Decode parses a JSON form. Type mismatches are reported as validation errors.
func Decode(data []byte) (*Form, error) {
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		field := ""
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field = typeErr.Field
		}
		return nil, apperr.Validation("Validation error", apperr.FieldError{Path: field, Message: err.Error()})
	}
	return &form, nil
}

// Validate returns an itemized validation error, or nil when the form is acceptable.
func (v *Validator) Validate(form *Form) error {
	var fields []apperr.FieldError
	add := func(path, msg string) {
		fields = append(fields, apperr.FieldError{Path: path, Message: msg})
	}

	if strings.TrimSpace(form.Title) == "" {
		add("title", "Title is required")
	}
	if form.ImageURL == "" {
		add("image_url", "Image URL is required")
	} else if !isAbsoluteURL(form.ImageURL) {
		add("image_url", "Invalid url")
	}
	if strings.TrimSpace(form.Description) == "" {
		add("description", "Description is required")
	}
	if strings.TrimSpace(form.Label) == "" {
		add("label", "Label is required")
	}

	if len(form.Amount) == 0 {
		add("amount", "At least one amount is required")
	}
	for i, a := range form.Amount {
		path := fmt.Sprintf("amount.%d.value", i)
		switch {
		case a.Value.LessThan(v.minAmount):
			add(path, fmt.Sprintf("Amount must be at least %s", v.minAmount.String()))
		case a.Value.GreaterThanOrEqual(db.MaxAmount):
			add(path, fmt.Sprintf("Amount must be less than %s", db.MaxAmount.String()))
		case !a.Value.Equal(a.Value.Truncate(db.AmountScale)):
			add(path, fmt.Sprintf("Amount supports at most %d decimal places", db.AmountScale))
		}
	}

	if len(fields) > 0 {
		return apperr.Validation("Validation error", fields...)
	}
	return nil
}

// Params converts a validated form into store parameters for the owner.
func (f *Form) Params(userID string) db.CreateBlinkParams {
	amounts := make([]decimal.Decimal, len(f.Amount))
	for i, a := range f.Amount {
		amounts[i] = a.Value
	}
	return db.CreateBlinkParams{
		Title:         f.Title,
		Description:   f.Description,
		Label:         f.Label,
		ImageURL:      f.ImageURL,
		IsCustomInput: f.IsCustomInput,
		UserID:        userID,
		Amounts:       amounts,
	}
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
