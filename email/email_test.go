package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		// Accepted shapes
		{"minimum length", "a@b.co", true},
		{"simple", "user@example.com", true},
		{"dotted local and subdomain", "first.last@sub.example.org", true},
		{"plus tag", "user+tag@example.com", true},
		{"apostrophe", "o'brien@example.ie", true},
		{"every special character", "x!#$%&'*+-/=?^_`{|}~@example.com", true},
		{"hyphen inside label", "user@my-domain.com", true},
		{"numeric label", "user@123.example.com", true},
		{"upper case", "USER@EXAMPLE.COM", true},
		{"surrounding whitespace", "  user@example.com\n", true},
		{"tabs and CRLF", "\t\r\nuser@example.com\r\n\t", true},
		{"ten labels", "u@a.b.c.d.e.f.g.h.i.com", true},

		// Length
		{"empty", "", false},
		{"whitespace only", " \t\n ", false},
		{"below minimum", "a@b.c", false},
		{"below minimum after trim", "  a@b.c  ", false},

		// Separator
		{"no at", "plainaddress", false},
		{"leading at", "@example.com", false},
		{"double at", "user@@example.com", false},
		{"two separators", "user@exam@ple.com", false},

		// Local part
		{"leading dot local", ".user@example.com", false},
		{"trailing dot local", "user.@example.com", false},
		{"consecutive dots local", "us..er@example.com", false},
		{"space in local", "user name@example.com", false},
		{"space before at", "user @example.com", false},
		{"non-ascii local", "usér@example.com", false},
		{"comma in local", "us,er@example.com", false},
		{"quoted local", `"user"@example.com`, false},

		// Domain
		{"trailing dot domain", "user@example.", false},
		{"empty first label", "user@.com", false},
		{"consecutive dots domain", "user@exam..ple.com", false},
		{"single letter tld", "user@example.c", false},
		{"digit in tld", "user@example.c0m", false},
		{"hyphen in tld", "user@example.c-m", false},
		{"leading hyphen label", "user@-example.com", false},
		{"trailing hyphen label", "user@example-.com", false},
		{"trailing hyphen inner label", "user@mail-.example.com", false},
		{"single label", "user@localhost", false},
		{"eleven labels", "u@a.b.c.d.e.f.g.h.i.j.com", false},
		{"space after at", "user@ example.com", false},
		{"space inside domain", "user@exa mple.com", false},
		{"underscore in label", "user@ex_ample.com", false},
		{"non-ascii domain", "user@exämple.com", false},
		{"ip literal", "user@[192.168.0.1]", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input), "Valid(%q)", tt.input)
		})
	}
}

func TestValid_LocalLength(t *testing.T) {
	assert.True(t, Valid(strings.Repeat("a", 64)+"@example.com"), "64-character local part")
	assert.False(t, Valid(strings.Repeat("a", 65)+"@example.com"), "65-character local part")
}

func TestValid_LabelLength(t *testing.T) {
	assert.True(t, Valid("u@"+strings.Repeat("a", 63)+".com"), "63-character label")
	assert.False(t, Valid("u@"+strings.Repeat("a", 64)+".com"), "64-character label")
}

func TestValid_TotalLength(t *testing.T) {
	local := strings.Repeat("l", 64)
	base := strings.Repeat("a", 63) + "." + strings.Repeat("b", 63) + "."

	// 64 + 1 + 189 = 254: every part is within its own bound.
	fits := local + "@" + base + strings.Repeat("c", 57) + ".com"
	assert.Len(t, fits, MaxLength)
	assert.True(t, Valid(fits))

	// 64 + 1 + 190 = 255: still within the part bounds, over the total.
	over := local + "@" + base + strings.Repeat("c", 58) + ".com"
	assert.Len(t, over, MaxLength+1)
	assert.False(t, Valid(over))
}

func TestValid_DomainLength(t *testing.T) {
	labels := make([]string, 0, 6)
	for i := 0; i < 5; i++ {
		labels = append(labels, strings.Repeat("d", 60))
	}
	labels = append(labels, "com")
	domain := strings.Join(labels, ".")
	assert.Greater(t, len(domain), MaxDomainLength)

	assert.False(t, Valid("a@"+domain))
}

func TestValid_NonUTF8(t *testing.T) {
	assert.False(t, Valid("user\xff@example.com"))
	assert.False(t, Valid("user@exa\xffmple.com"))
	assert.False(t, Valid("\xff\xfe\xfd\xfc\xfb\xfa"))
}
