// Package validate provides struct validation using struct tags, with
// rules built on the mailcheck email grammar and localized messages.
//
// Basic usage:
//
//	type Signup struct {
//	    Name    string   `json:"name" validate:"required,max=80"`
//	    Email   string   `json:"email" validate:"required,email"`
//	    Work    string   `json:"work" validate:"omitempty,businessemail"`
//	    Invites []string `json:"invites" validate:"max=20,dive,email"`
//	}
//
//	v := validate.New()
//	if err := v.Struct(signup); err != nil {
//	    for _, e := range err.(validate.Errors) {
//	        fmt.Printf("%s: %s\n", e.Field, e.Message)
//	    }
//	}
package validate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Validator validates struct fields using tags.
type Validator struct {
	tagName     string
	rules       map[string]RuleFunc
	messages    *MessageProvider
	mu          sync.RWMutex
	stopOnFirst bool
}

// RuleFunc is a validation rule function.
// It receives the field value, the parameter (if any), and the enclosing
// struct. It returns a message key if validation fails, "" if valid.
type RuleFunc func(value any, param string, structValue reflect.Value) string

// Option configures the validator.
type Option func(*Validator)

// New creates a validator with the built-in rules registered.
func New(opts ...Option) *Validator {
	v := &Validator{
		tagName:  "validate",
		rules:    make(map[string]RuleFunc),
		messages: DefaultMessages(),
	}
	v.registerBuiltinRules()

	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithTagName sets a custom tag name (default: "validate").
func WithTagName(name string) Option {
	return func(v *Validator) {
		v.tagName = name
	}
}

// WithMessages sets a custom message provider.
func WithMessages(m *MessageProvider) Option {
	return func(v *Validator) {
		v.messages = m
	}
}

// WithLocale uses the built-in messages for locale.
func WithLocale(locale string) Option {
	return func(v *Validator) {
		v.messages = MessagesForLocale(locale)
	}
}

// WithStopOnFirstError stops validation after the first error.
func WithStopOnFirstError() Option {
	return func(v *Validator) {
		v.stopOnFirst = true
	}
}

// RegisterRule registers a custom validation rule, replacing any rule
// with the same name.
func (v *Validator) RegisterRule(name string, fn RuleFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[name] = fn
}

// RegisterRuleFunc registers a predicate as a rule that fails with
// messageKey.
func (v *Validator) RegisterRuleFunc(name string, fn func(value any) bool, messageKey string) {
	v.RegisterRule(name, func(value any, param string, sv reflect.Value) string {
		if fn(value) {
			return ""
		}
		return messageKey
	})
}

// Struct validates a struct (or pointer to struct) using its tags.
func (v *Validator) Struct(s any) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate: expected struct, got %s", val.Kind())
	}

	if errs := v.validateStruct(val, ""); len(errs) > 0 {
		return errs
	}
	return nil
}

// Var validates a single value against a tag such as "required,email".
// Messages refer to the value as "value".
func (v *Validator) Var(value any, tag string) error {
	return v.VarField(value, "", tag)
}

// VarField is Var with the field name used in errors and messages.
func (v *Validator) VarField(value any, field, tag string) error {
	if errs := v.validateValue(reflect.ValueOf(value), field, tag, reflect.Value{}); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) validateStruct(val reflect.Value, prefix string) Errors {
	var errs Errors
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldVal := val.Field(i)

		name := fieldName(field)
		if prefix != "" {
			name = prefix + "." + name
		}

		errs = append(errs, v.validateValue(fieldVal, name, field.Tag.Get(v.tagName), val)...)
		if v.stopOnFirst && len(errs) > 0 {
			return errs
		}

		switch {
		case fieldVal.Kind() == reflect.Struct:
			errs = append(errs, v.validateStruct(fieldVal, name)...)
		case fieldVal.Kind() == reflect.Ptr && !fieldVal.IsNil() && fieldVal.Elem().Kind() == reflect.Struct:
			errs = append(errs, v.validateStruct(fieldVal.Elem(), name)...)
		}
		if v.stopOnFirst && len(errs) > 0 {
			return errs
		}
	}

	return errs
}

// fieldName prefers the json name so errors line up with request bodies.
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// validateValue applies the rules in tag to val. Rules after "dive" are
// applied to each element of a slice or array instead of val itself.
func (v *Validator) validateValue(val reflect.Value, field, tag string, structVal reflect.Value) Errors {
	if tag == "" || tag == "-" {
		return nil
	}

	rules, elemRules := splitDive(parseTag(tag))

	for _, r := range rules {
		if r.name == "omitempty" && isEmpty(val) {
			return nil
		}
	}

	var value any
	if val.IsValid() && val.CanInterface() {
		value = val.Interface()
	}

	var errs Errors
	v.mu.RLock()
	for _, r := range rules {
		if r.name == "omitempty" {
			continue
		}
		fn, ok := v.rules[r.name]
		if !ok {
			continue
		}
		if key := fn(value, r.param, structVal); key != "" {
			errs = append(errs, &Error{
				Field:   field,
				Rule:    r.name,
				Param:   r.param,
				Value:   value,
				Message: v.messages.Get(key, displayName(field), r.param),
			})
			if v.stopOnFirst {
				v.mu.RUnlock()
				return errs
			}
		}
	}
	v.mu.RUnlock()

	if elemRules == "" || !val.IsValid() {
		return errs
	}
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return errs
	}
	for i := 0; i < val.Len(); i++ {
		name := field + "[" + strconv.Itoa(i) + "]"
		errs = append(errs, v.validateValue(val.Index(i), name, elemRules, structVal)...)
		if v.stopOnFirst && len(errs) > 0 {
			return errs
		}
	}
	return errs
}

func displayName(field string) string {
	if field == "" {
		return "value"
	}
	return field
}

// rule represents a parsed validation rule.
type rule struct {
	name  string
	param string
}

// parseTag parses a validation tag into rules.
func parseTag(tag string) []rule {
	var rules []rule
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r := rule{name: part}
		if idx := strings.Index(part, "="); idx != -1 {
			r.name = part[:idx]
			r.param = part[idx+1:]
		}
		rules = append(rules, r)
	}
	return rules
}

// splitDive separates the rules before the first "dive" from the tag
// that applies to elements.
func splitDive(rules []rule) ([]rule, string) {
	for i, r := range rules {
		if r.name != "dive" {
			continue
		}
		var parts []string
		for _, er := range rules[i+1:] {
			if er.param != "" {
				parts = append(parts, er.name+"="+er.param)
			} else {
				parts = append(parts, er.name)
			}
		}
		return rules[:i], strings.Join(parts, ",")
	}
	return rules, ""
}

// isEmpty checks if a value is its zero value.
func isEmpty(val reflect.Value) bool {
	if !val.IsValid() {
		return true
	}
	switch val.Kind() {
	case reflect.String:
		return val.String() == ""
	case reflect.Bool:
		return !val.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return val.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return val.Float() == 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return val.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return val.IsNil()
	}
	return false
}

// Error is a single failed rule.
type Error struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Value   any    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errors is a collection of validation errors.
type Errors []*Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}

// FieldErrors returns all errors for a specific field.
func (e Errors) FieldErrors(field string) Errors {
	var result Errors
	for _, err := range e {
		if err.Field == field {
			result = append(result, err)
		}
	}
	return result
}

// ToMap converts errors to a map of field -> messages.
func (e Errors) ToMap() map[string][]string {
	result := make(map[string][]string)
	for _, err := range e {
		result[err.Field] = append(result[err.Field], err.Message)
	}
	return result
}

// First returns the first error or nil.
func (e Errors) First() *Error {
	if len(e) > 0 {
		return e[0]
	}
	return nil
}

var defaultValidator = New()

// Struct validates a struct using the default validator.
func Struct(s any) error {
	return defaultValidator.Struct(s)
}

// Var validates a variable using the default validator.
func Var(value any, tag string) error {
	return defaultValidator.Var(value, tag)
}

// toString converts a value to string.
func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// size returns the rune count of strings and the length of collections.
// Numbers report their value. ok is false for any other kind.
func size(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.String:
		return float64(utf8.RuneCountInString(val.String())), true
	case reflect.Slice, reflect.Map, reflect.Array:
		return float64(val.Len()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(val.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(val.Uint()), true
	case reflect.Float32, reflect.Float64:
		return val.Float(), true
	}
	return 0, false
}
