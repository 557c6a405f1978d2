// Package form models the fields of a page form as the client submits them.
package form

import (
	"net/http"
	"strings"
)

// FieldType mirrors the HTML input types the client cares about.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPassword FieldType = "password"
	FieldSelect   FieldType = "select"
	FieldHidden   FieldType = "hidden"
)

// Field is one named input. Password fields carry an encryption mark that is
// set once their value has been replaced by ciphertext.
type Field struct {
	Name  string
	Type  FieldType
	Label string

	value     string
	encrypted bool
}

// NewField builds a field with an initial value.
func NewField(name string, typ FieldType, label, value string) *Field {
	return &Field{Name: name, Type: typ, Label: label, value: value}
}

// Value returns the current field value.
func (f *Field) Value() string {
	return f.value
}

// SetValue stores user input. Changing the value of an encrypted field clears
// its mark: the new content is plaintext again.
func (f *Field) SetValue(v string) {
	if v == f.value {
		return
	}
	f.value = v
	f.encrypted = false
}

// SetCiphertext replaces the value with ciphertext and marks the field.
func (f *Field) SetCiphertext(ct string) {
	f.value = ct
	f.encrypted = true
}

// Encrypted reports whether the field already holds ciphertext.
func (f *Field) Encrypted() bool {
	return f.encrypted
}

// IsPassword reports whether the field is a password input.
func (f *Field) IsPassword() bool {
	return f.Type == FieldPassword
}

// Value is one submitted name/value pair.
type Value struct {
	Name  string
	Value string
}

// Form is an ordered set of fields plus the declared submit target.
type Form struct {
	Name   string
	Action string
	method string
	fields []*Field
}

// New creates a form. An empty method defaults to POST.
func New(name, action, method string, fields ...*Field) *Form {
	return &Form{
		Name:   name,
		Action: action,
		method: strings.ToUpper(strings.TrimSpace(method)),
		fields: fields,
	}
}

// Method returns the declared HTTP method, POST when none was declared.
func (f *Form) Method() string {
	if f.method == "" {
		return http.MethodPost
	}
	return f.method
}

// Add appends fields in document order.
func (f *Form) Add(fields ...*Field) {
	f.fields = append(f.fields, fields...)
}

// Fields returns every field in document order.
func (f *Form) Fields() []*Field {
	return append([]*Field(nil), f.fields...)
}

// Field returns the first field named name.
func (f *Form) Field(name string) (*Field, bool) {
	for _, field := range f.fields {
		if field.Name == name {
			return field, true
		}
	}
	return nil, false
}

// PasswordFields returns the password inputs in document order.
func (f *Form) PasswordFields() []*Field {
	var out []*Field
	for _, field := range f.fields {
		if field.IsPassword() {
			out = append(out, field)
		}
	}
	return out
}

// Values collects the submitted name/value pairs in document order.
func (f *Form) Values() []Value {
	out := make([]Value, 0, len(f.fields))
	for _, field := range f.fields {
		if field.Name == "" {
			continue
		}
		out = append(out, Value{Name: field.Name, Value: field.value})
	}
	return out
}

// Snapshot returns the current value of every field keyed by name.
func (f *Form) Snapshot() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		out[field.Name] = field.value
	}
	return out
}
