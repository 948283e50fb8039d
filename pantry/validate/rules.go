package validate

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/dalemusser/mailcheck/email"
)

// registerBuiltinRules registers all built-in validation rules.
func (v *Validator) registerBuiltinRules() {
	v.rules["required"] = ruleRequired

	// Address rules
	v.rules["email"] = ruleEmail
	v.rules["personalemail"] = rulePersonalEmail
	v.rules["businessemail"] = ruleBusinessEmail

	// Length/size
	v.rules["min"] = ruleMin
	v.rules["max"] = ruleMax
	v.rules["len"] = ruleLen

	v.rules["oneof"] = ruleOneOf
}

func ruleRequired(value any, param string, sv reflect.Value) string {
	if value == nil {
		return "required"
	}

	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.String:
		if strings.TrimSpace(val.String()) == "" {
			return "required"
		}
	case reflect.Slice, reflect.Map, reflect.Array:
		if val.Len() == 0 {
			return "required"
		}
	case reflect.Ptr, reflect.Interface:
		if val.IsNil() {
			return "required"
		}
	}
	// Zero numbers and false are values, not absences.
	return ""
}

// Address rules skip empty values; pair them with required when needed.

func ruleEmail(value any, param string, sv reflect.Value) string {
	s := toString(value)
	if s == "" {
		return ""
	}
	if !email.Valid(s) {
		return "email"
	}
	return ""
}

func rulePersonalEmail(value any, param string, sv reflect.Value) string {
	s := toString(value)
	if s == "" {
		return ""
	}
	if !email.Valid(s) {
		return "email"
	}
	if !email.IsPersonalProvider(s) {
		return "personalemail"
	}
	return ""
}

func ruleBusinessEmail(value any, param string, sv reflect.Value) string {
	s := toString(value)
	if s == "" {
		return ""
	}
	if !email.Valid(s) {
		return "email"
	}
	if email.IsPersonalProvider(s) {
		return "businessemail"
	}
	return ""
}

func ruleMin(value any, param string, sv reflect.Value) string {
	min, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return ""
	}
	if n, ok := size(value); ok && n < min {
		return "min"
	}
	return ""
}

func ruleMax(value any, param string, sv reflect.Value) string {
	max, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return ""
	}
	if n, ok := size(value); ok && n > max {
		return "max"
	}
	return ""
}

func ruleLen(value any, param string, sv reflect.Value) string {
	length, err := strconv.Atoi(param)
	if err != nil || value == nil {
		return ""
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		if n, _ := size(value); int(n) != length {
			return "len"
		}
	}
	return ""
}

func ruleOneOf(value any, param string, sv reflect.Value) string {
	s := toString(value)
	if s == "" {
		return ""
	}
	for _, opt := range strings.Fields(param) {
		if s == opt {
			return ""
		}
	}
	return "oneof"
}
