// Package validation checks the shape of API requests before they reach
// the services. Amount rules and other business checks stay in the
// services, which report them as domain errors.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNoteLength    = 500
	MaxReasonLength  = 255
	MaxOrderIDLength = 100
)

var (
	currencyRegex    = regexp.MustCompile(`^[a-zA-Z]{3}$`)
	referenceRegex   = regexp.MustCompile(`^[A-Za-z0-9]{2,8}-[A-Za-z0-9]{6}$`)
	processorIDRegex = regexp.MustCompile(`^[a-z]+_[A-Za-z0-9]+$`)
)

// Validator collects field errors. The zero value is not usable; call New.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

func (v *Validator) RequiredID(field string, id uint) {
	v.Check(id != 0, field, "must be provided")
}

// MaxLength counts runes, not bytes.
func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(utf8.RuneCountInString(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Currency accepts an empty value; the service applies its default.
func (v *Validator) Currency(field, value string) {
	if value == "" {
		return
	}
	v.Check(currencyRegex.MatchString(value), field, "must be a three letter ISO currency code")
}

func (v *Validator) ProcessorID(field, value, prefix string) {
	v.Check(processorIDRegex.MatchString(value) && strings.HasPrefix(value, prefix+"_"), field,
		fmt.Sprintf("must be a %s_ identifier", prefix))
}

func (v *Validator) Reference(field, value string) {
	v.Check(referenceRegex.MatchString(value), field, "must look like TRX-7KQ2MX")
}
