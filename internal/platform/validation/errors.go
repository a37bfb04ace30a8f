// Package validation holds the error type returned by domain validators and
// workflow preconditions, and its HTTP rendering.
package validation

import (
	"errors"
	"sort"
	"strings"
)

// Kind separates input that is invalid from input that is valid but not
// allowed in the current state of the records.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindPrecondition Kind = "precondition"
)

const MsgRequired = "This field is required."

// Errors collects field and non-field messages. The zero value is empty and
// ready to use.
type Errors struct {
	Kind     Kind
	Fields   map[string][]string
	NonField []string
}

func New() *Errors {
	return &Errors{Kind: KindValidation}
}

// Precondition returns a workflow precondition failure with one non-field
// message.
func Precondition(msg string) *Errors {
	return &Errors{Kind: KindPrecondition, NonField: []string{msg}}
}

// Field returns an error with a single message on field.
func Field(field, msg string) *Errors {
	e := New()
	e.Add(field, msg)
	return e
}

func (e *Errors) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *Errors) AddNonField(msg string) {
	e.NonField = append(e.NonField, msg)
}

// Required adds MsgRequired on field when missing is true.
func (e *Errors) Required(field string, missing bool) {
	if missing {
		e.Add(field, MsgRequired)
	}
}

// OneOf adds an invalid-choice message when value is set and not allowed.
func (e *Errors) OneOf(field, value string, allowed map[string]bool) {
	if value != "" && !allowed[value] {
		e.Add(field, "Select a valid choice. "+value+" is not one of the available choices.")
	}
}

func (e *Errors) Empty() bool {
	return e == nil || (len(e.Fields) == 0 && len(e.NonField) == 0)
}

// Err returns e as an error, or nil when nothing was collected.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	if e.Kind == "" {
		e.Kind = KindValidation
	}
	return e
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.Fields)+len(e.NonField))
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		parts = append(parts, f+": "+strings.Join(e.Fields[f], " "))
	}
	parts = append(parts, e.NonField...)
	return string(e.Kind) + " failed: " + strings.Join(parts, "; ")
}

// As extracts *Errors from err.
func As(err error) (*Errors, bool) {
	var ve *Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
