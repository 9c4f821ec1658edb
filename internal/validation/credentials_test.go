package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

func TestValidateRegistration_Valid(t *testing.T) {
	v := validation.NewCredentialValidator("")

	errs := v.ValidateRegistration("Ada Lovelace", "ada@example.com", "Str0ngPass!23")
	assert.Nil(t, errs)
}

func TestValidateRegistration_PasswordRules(t *testing.T) {
	v := validation.NewCredentialValidator("")

	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"too short", "Sh0rt!pw", "at least 12 characters"},
		{"no lowercase", "STR0NGPASS!23", "lowercase"},
		{"no uppercase", "str0ngpass!23", "uppercase"},
		{"no digit", "StrongPass!xy", "digit"},
		{"no special", "Str0ngPass123", "special character"},
		{"special outside set", "Str0ngPass^23", "special character"},
		{"empty", "", "required"},
		{"longer than bcrypt accepts", "Aa1!" + strings.Repeat("x", 70), "72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateRegistration("Ada Lovelace", "ada@example.com", tt.password)
			require.True(t, errs.Has("password"), "expected password error, got %v", errs)
			assert.False(t, errs.Has("name"))
			assert.False(t, errs.Has("email"))

			msgs := errs.Map()["password"]
			assert.True(t, containsSubstring(msgs, tt.wantMsg), "messages %v should mention %q", msgs, tt.wantMsg)
		})
	}
}

func TestValidateRegistration_AccumulatesPerField(t *testing.T) {
	v := validation.NewCredentialValidator("")

	// short, no uppercase, no digit, no special: four rules on one field
	errs := v.ValidateRegistration("Ada", "ada@example.com", "abc")
	require.Len(t, errs, 1)
	assert.Equal(t, "password", errs[0].Field)
	assert.Len(t, errs[0].Messages, 4)
}

func TestValidateRegistration_ReportsEveryField(t *testing.T) {
	v := validation.NewCredentialValidator("")

	errs := v.ValidateRegistration("A", "not-an-email", "weak")
	require.Len(t, errs, 3)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "email", errs[1].Field)
	assert.Equal(t, "password", errs[2].Field)
	assert.Contains(t, errs.Error(), "validation failed")
}

func TestValidateRegistration_NameBounds(t *testing.T) {
	v := validation.NewCredentialValidator("")
	pw := "Str0ngPass!23"

	assert.True(t, v.ValidateRegistration("", "ada@example.com", pw).Has("name"))
	assert.True(t, v.ValidateRegistration("   ", "ada@example.com", pw).Has("name"))
	assert.True(t, v.ValidateRegistration("A", "ada@example.com", pw).Has("name"))
	assert.Nil(t, v.ValidateRegistration("Al", "ada@example.com", pw))
	assert.Nil(t, v.ValidateRegistration(strings.Repeat("é", 255), "ada@example.com", pw))
	assert.True(t, v.ValidateRegistration(strings.Repeat("a", 256), "ada@example.com", pw).Has("name"))
}

func TestValidateRegistration_EmailRules(t *testing.T) {
	v := validation.NewCredentialValidator("")
	pw := "Str0ngPass!23"

	long := strings.Repeat("a", 250) + "@example.com"
	bad := []string{
		"",
		"plainaddress",
		"@example.com",
		"ada@",
		"ada@example",
		"ada@.example.com",
		"ada@example..com",
		"Ada <ada@example.com>",
		" ada@example.com",
		long,
	}
	for _, email := range bad {
		assert.True(t, v.ValidateRegistration("Ada", email, pw).Has("email"), "expected %q to be rejected", email)
	}

	good := []string{"ada@example.com", "ada.lovelace+test@mail.example.org", "a_b@sub.example.co.uk"}
	for _, email := range good {
		assert.Nil(t, v.ValidateRegistration("Ada", email, pw), "expected %q to be accepted", email)
	}
}

func TestValidateLogin(t *testing.T) {
	v := validation.NewCredentialValidator("")

	assert.Nil(t, v.ValidateLogin("ada@example.com", "anything"))

	errs := v.ValidateLogin("", "")
	assert.True(t, errs.Has("email"))
	assert.True(t, errs.Has("password"))

	errs = v.ValidateLogin("nope", "x")
	assert.True(t, errs.Has("email"))
	assert.False(t, errs.Has("password"), "login must not re-check complexity")
}

func TestValidateUpdate(t *testing.T) {
	v := validation.NewCredentialValidator("")
	name := "Grace Hopper"
	badEmail := "grace"
	weak := "weak"

	errs := v.ValidateUpdate(nil, nil, nil)
	assert.True(t, errs.Has("body"))

	assert.Nil(t, v.ValidateUpdate(&name, nil, nil))

	errs = v.ValidateUpdate(&name, &badEmail, &weak)
	assert.False(t, errs.Has("name"))
	assert.True(t, errs.Has("email"))
	assert.True(t, errs.Has("password"))
}

func TestCustomSpecialChars(t *testing.T) {
	v := validation.NewCredentialValidator("^~")
	assert.Equal(t, "^~", v.SpecialChars())

	assert.Nil(t, v.ValidateRegistration("Ada", "ada@example.com", "Str0ngPass^23"))
	assert.True(t, v.ValidateRegistration("Ada", "ada@example.com", "Str0ngPass!23").Has("password"))
}

func containsSubstring(msgs []string, sub string) bool {
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}
