// Package validation checks the structure of account input before it
// reaches the services.  It never touches the database: uniqueness of the
// email is left to the store's unique index.
package validation

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSpecialChars is the special-character class a password must draw
// from when no other set is configured.
const DefaultSpecialChars = "@$!%*#?&"

const (
	minNameLen     = 2
	maxNameLen     = 255
	maxEmailLen    = 255
	minPasswordLen = 12
	// bcrypt only looks at the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72
)

// FieldError is a named validation failure with one or more messages.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// Errors is the ordered list of failed fields.  A nil Errors means the
// input passed.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+strings.Join(fe.Messages, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Map returns the errors keyed by field name.
func (e Errors) Map() map[string][]string {
	m := make(map[string][]string, len(e))
	for _, fe := range e {
		m[fe.Field] = append(m[fe.Field], fe.Messages...)
	}
	return m
}

// Has reports whether field failed.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// collector accumulates messages per field while keeping field order.
type collector struct {
	order []string
	msgs  map[string][]string
}

func (c *collector) add(field, msg string) {
	if c.msgs == nil {
		c.msgs = make(map[string][]string)
	}
	if _, ok := c.msgs[field]; !ok {
		c.order = append(c.order, field)
	}
	c.msgs[field] = append(c.msgs[field], msg)
}

func (c *collector) result() Errors {
	if len(c.order) == 0 {
		return nil
	}
	out := make(Errors, 0, len(c.order))
	for _, f := range c.order {
		out = append(out, FieldError{Field: f, Messages: c.msgs[f]})
	}
	return out
}

// CredentialValidator enforces the structural rules on registration, login
// and update input.
type CredentialValidator struct {
	specialChars string
}

// NewCredentialValidator returns a validator using specialChars as the
// required special-character class; empty means DefaultSpecialChars.
func NewCredentialValidator(specialChars string) *CredentialValidator {
	if specialChars == "" {
		specialChars = DefaultSpecialChars
	}
	return &CredentialValidator{specialChars: specialChars}
}

// SpecialChars returns the configured special-character class.
func (v *CredentialValidator) SpecialChars() string { return v.specialChars }

// ValidateRegistration checks every field and reports all violated rules.
func (v *CredentialValidator) ValidateRegistration(name, email, password string) Errors {
	var c collector
	v.checkName(&c, name)
	v.checkEmail(&c, email)
	v.checkPassword(&c, password)
	return c.result()
}

// ValidateLogin checks that both fields are present and the email is well
// formed.  Password complexity was enforced at registration and is not
// re-checked here.
func (v *CredentialValidator) ValidateLogin(email, password string) Errors {
	var c collector
	v.checkEmail(&c, email)
	if password == "" {
		c.add("password", "The password field is required.")
	}
	return c.result()
}

// ValidateUpdate applies the registration rule of every supplied field.
// At least one field must be supplied.
func (v *CredentialValidator) ValidateUpdate(name, email, password *string) Errors {
	var c collector
	if name == nil && email == nil && password == nil {
		c.add("body", "At least one of name, email or password must be provided.")
		return c.result()
	}
	if name != nil {
		v.checkName(&c, *name)
	}
	if email != nil {
		v.checkEmail(&c, *email)
	}
	if password != nil {
		v.checkPassword(&c, *password)
	}
	return c.result()
}

func (v *CredentialValidator) checkName(c *collector, name string) {
	if strings.TrimSpace(name) == "" {
		c.add("name", "The name field is required.")
		return
	}
	n := utf8.RuneCountInString(name)
	if n < minNameLen {
		c.add("name", "The name must be at least 2 characters.")
	}
	if n > maxNameLen {
		c.add("name", "The name may not be greater than 255 characters.")
	}
}

func (v *CredentialValidator) checkEmail(c *collector, email string) {
	if strings.TrimSpace(email) == "" {
		c.add("email", "The email field is required.")
		return
	}
	if !IsEmail(email) {
		c.add("email", "The email must be a valid email address.")
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		c.add("email", "The email may not be greater than 255 characters.")
	}
}

func (v *CredentialValidator) checkPassword(c *collector, password string) {
	if password == "" {
		c.add("password", "The password field is required.")
		return
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		c.add("password", "The password must be at least 12 characters.")
	}
	if len(password) > maxPasswordBytes {
		c.add("password", "The password may not be greater than 72 bytes.")
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
		if strings.ContainsRune(v.specialChars, r) {
			special = true
		}
	}
	if !lower {
		c.add("password", "The password must contain at least one lowercase letter.")
	}
	if !upper {
		c.add("password", "The password must contain at least one uppercase letter.")
	}
	if !digit {
		c.add("password", "The password must contain at least one digit.")
	}
	if !special {
		c.add("password", "The password must contain at least one special character ("+v.specialChars+").")
	}
}

// IsEmail reports whether s is a bare addr-spec with a domain that has at
// least one dot-separated label on each side.  Display names ("Ada
// <ada@example.com>") and surrounding whitespace are rejected.
func IsEmail(s string) bool {
	if s != strings.TrimSpace(s) {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return !strings.Contains(domain, "..")
}
