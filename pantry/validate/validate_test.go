package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name    string   `json:"name" validate:"required,max=10"`
	Email   string   `json:"email" validate:"required,email"`
	Home    string   `json:"home" validate:"omitempty,personalemail"`
	Work    string   `json:"work" validate:"omitempty,businessemail"`
	Plan    string   `json:"plan" validate:"omitempty,oneof=free pro"`
	Invites []string `json:"invites" validate:"max=2,dive,email"`
}

func validSignup() signup {
	return signup{
		Name:    "Ada",
		Email:   "ada@example.com",
		Home:    "ada@gmail.com",
		Work:    "ada@analytical.engineering",
		Plan:    "pro",
		Invites: []string{"charles@example.org"},
	}
}

func TestStruct_Valid(t *testing.T) {
	s := validSignup()
	assert.NoError(t, New().Struct(s))
	assert.NoError(t, New().Struct(&s))
}

func TestStruct_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*signup)
		field  string
		rule   string
	}{
		{"missing name", func(s *signup) { s.Name = "  " }, "name", "required"},
		{"long name", func(s *signup) { s.Name = "Ada Lovelace King" }, "name", "max"},
		{"bad email", func(s *signup) { s.Email = "ada@@example.com" }, "email", "email"},
		{"business address as home", func(s *signup) { s.Home = "ada@example.com" }, "home", "personalemail"},
		{"personal address as work", func(s *signup) { s.Work = "ada@outlook.com" }, "work", "businessemail"},
		{"malformed work", func(s *signup) { s.Work = "ada@example" }, "work", "businessemail"},
		{"unknown plan", func(s *signup) { s.Plan = "gold" }, "plan", "oneof"},
		{"too many invites", func(s *signup) { s.Invites = []string{"a@b.co", "c@d.co", "e@f.co"} }, "invites", "max"},
		{"bad invite", func(s *signup) { s.Invites = []string{"a@b.co", "nope"} }, "invites[1]", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSignup()
			tt.mutate(&s)

			err := New().Struct(s)
			require.Error(t, err)

			var errs Errors
			require.True(t, errors.As(err, &errs))
			fe := errs.FieldErrors(tt.field)
			require.Len(t, fe, 1, "errors: %v", errs.ToMap())
			assert.Equal(t, tt.rule, fe[0].Rule)
		})
	}
}

func TestStruct_NotAStruct(t *testing.T) {
	assert.Error(t, New().Struct("hello"))
}

func TestStruct_StopOnFirst(t *testing.T) {
	s := signup{}
	err := New(WithStopOnFirstError()).Struct(s)
	require.Error(t, err)
	assert.Len(t, err.(Errors), 1)
}

func TestStruct_Nested(t *testing.T) {
	type contact struct {
		Address string `json:"address" validate:"required,email"`
	}
	type account struct {
		Primary contact  `json:"primary"`
		Backup  *contact `json:"backup"`
	}

	err := New().Struct(account{
		Primary: contact{Address: "ok@example.com"},
		Backup:  &contact{Address: "broken"},
	})
	require.Error(t, err)
	assert.Contains(t, err.(Errors).ToMap(), "backup.address")
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("user@example.com", "required,email"))
	assert.Error(t, Var("user@example", "required,email"))
	assert.Error(t, Var("", "required,email"))
	assert.NoError(t, Var("", "email"))

	assert.NoError(t, Var([]string{"a", "b"}, "required,max=2"))
	assert.Error(t, Var([]string{"a", "b", "c"}, "required,max=2"))
	assert.Error(t, Var([]string{"ok", ""}, "dive,required"))
}

func TestVarField(t *testing.T) {
	err := New().VarField([]string{"a", "b", "c"}, "emails", "max=2")
	require.Error(t, err)
	errs := err.(Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, "emails", errs[0].Field)
	assert.Equal(t, "emails must be at most 2", errs[0].Message)
}

func TestRegisterRuleFunc(t *testing.T) {
	v := New()
	v.RegisterRuleFunc("gmailonly", func(value any) bool {
		name, _ := value.(string)
		return name == "" || len(name) > 10 && name[len(name)-10:] == "@gmail.com"
	}, "gmailonly")

	assert.NoError(t, v.Var("someone@gmail.com", "gmailonly"))
	err := v.Var("someone@yahoo.com", "gmailonly")
	require.Error(t, err)
	assert.Equal(t, "gmailonly validation failed for value", err.Error())
}

func TestLocalizedMessages(t *testing.T) {
	err := New(WithLocale("es")).Var("nope", "email")
	require.Error(t, err)
	assert.Equal(t, "value debe ser una dirección de correo válida", err.Error())

	err = New(WithLocale("xx")).Var("nope", "email")
	require.Error(t, err)
	assert.Equal(t, "value must be a valid email address", err.Error())
}

func TestWithTagName(t *testing.T) {
	type contact struct {
		Email string `json:"email" check:"required,email"`
		Note  string `json:"note" validate:"required"`
	}

	v := New(WithTagName("check"))
	assert.NoError(t, v.Struct(contact{Email: "ops@example.com"}))

	err := v.Struct(contact{Email: "ops@"})
	require.Error(t, err)
	errs := err.(Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "email", errs[0].Rule)

	// The default tag is ignored once another name is set.
	assert.Error(t, New().Struct(contact{Email: "ops@example.com"}))
}

func TestWithMessages(t *testing.T) {
	m := NewMessageProvider()
	m.RegisterLocale("en", map[string]string{"required": "{field} needed"})
	m.AddMessage("nl", "email", "{field} is geen geldig adres")

	v := New(WithMessages(m))
	err := v.VarField("", "contact", "required")
	require.Error(t, err)
	assert.Equal(t, "contact needed", err.Error())

	// Keys the provider lacks fall back to the generic message.
	err = v.VarField("nope", "contact", "email")
	require.Error(t, err)
	assert.Equal(t, "email validation failed for contact", err.Error())

	m.SetLocale("nl")
	err = v.VarField("nope", "contact", "email")
	require.Error(t, err)
	assert.Equal(t, "contact is geen geldig adres", err.Error())
}

func TestMatchLocale(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"es-MX,es;q=0.9,en;q=0.8", "es"},
		{"fr-CA", "fr"},
		{"de", "de"},
		{"ja-JP", "en"},
		{"en-GB;q=0.5,de;q=0.9", "de"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchLocale(tt.header), "MatchLocale(%q)", tt.header)
	}
}
