package catalog

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Option is a selectable value rendered in a form select.
type Option struct {
	Value    string `yaml:"value"`
	LabelKey string `yaml:"label_key"`
}

// Catalog lists the selectable uniform options and the native field constraints of the design form.
type Catalog struct {
	Sports          []Option              `yaml:"sports"`
	Styles          []Option              `yaml:"styles"`
	NameStyles      []Option              `yaml:"name_styles"`
	NamePositions   []Option              `yaml:"name_positions"`
	NumberSizes     []Option              `yaml:"number_sizes"`
	NumberPositions []Option              `yaml:"number_positions"`
	Constraints     map[string]Constraint `yaml:"constraints"`
}

// Violation mirrors the browser ValidityState flag that failed.
type Violation string

const (
	ValueMissing    Violation = "valueMissing"
	TooLong         Violation = "tooLong"
	TooShort        Violation = "tooShort"
	PatternMismatch Violation = "patternMismatch"
	RangeUnderflow  Violation = "rangeUnderflow"
	RangeOverflow   Violation = "rangeOverflow"
)

// Constraint declares the native constraints of a single input field.
type Constraint struct {
	Required  bool   `yaml:"required"`
	MinLength int    `yaml:"min_length"`
	MaxLength int    `yaml:"max_length"`
	Pattern   string `yaml:"pattern"`
	Min       *int   `yaml:"min"`
	Max       *int   `yaml:"max"`

	re *regexp.Regexp
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics when the embedded file is malformed.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(embedded)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCat
}

// Parse decodes a catalog document and compiles its constraint patterns.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for name, cons := range c.Constraints {
		if cons.Pattern != "" {
			re, err := regexp.Compile(cons.Pattern)
			if err != nil {
				return nil, fmt.Errorf("catalog: constraint %s: %w", name, err)
			}
			cons.re = re
		}
		c.Constraints[name] = cons
	}
	return &c, nil
}

// Constraint returns the constraint declared for field, or an empty constraint.
func (c *Catalog) Constraint(field string) Constraint {
	if c == nil {
		return Constraint{}
	}
	return c.Constraints[field]
}

// Check validates value the way a browser evaluates checkValidity on the field.
// An empty value only fails when the field is required.
func (c Constraint) Check(value string) (Violation, bool) {
	if value == "" {
		if c.Required {
			return ValueMissing, false
		}
		return "", true
	}
	n := utf8.RuneCountInString(value)
	if c.MaxLength > 0 && n > c.MaxLength {
		return TooLong, false
	}
	if c.MinLength > 0 && n < c.MinLength {
		return TooShort, false
	}
	// Number inputs report the range before anything else; browsers skip
	// the pattern on them, so it only guards what the range lets through.
	if c.Numeric() {
		num, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return PatternMismatch, false
		}
		if c.Min != nil && num < *c.Min {
			return RangeUnderflow, false
		}
		if c.Max != nil && num > *c.Max {
			return RangeOverflow, false
		}
	}
	if c.re != nil && !c.re.MatchString(value) {
		return PatternMismatch, false
	}
	return "", true
}

// Numeric reports whether the field is rendered as a number input.
func (c Constraint) Numeric() bool {
	return c.Min != nil || c.Max != nil
}

// HTMLPattern returns the pattern in the form of an input pattern attribute,
// which the browser anchors itself. Number inputs take no pattern attribute.
func (c Constraint) HTMLPattern() string {
	if c.Numeric() {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(c.Pattern, "^"), "$")
}

// Message returns the default browser-style validation message for a violation.
func (c Constraint) Message(v Violation) string {
	switch v {
	case ValueMissing:
		return "Please fill out this field."
	case TooLong:
		return fmt.Sprintf("Please shorten this text to %d characters or less.", c.MaxLength)
	case TooShort:
		return fmt.Sprintf("Please lengthen this text to %d characters or more.", c.MinLength)
	case PatternMismatch:
		return "Please match the requested format."
	case RangeUnderflow:
		if c.Min != nil {
			return fmt.Sprintf("Value must be greater than or equal to %d.", *c.Min)
		}
	case RangeOverflow:
		if c.Max != nil {
			return fmt.Sprintf("Value must be less than or equal to %d.", *c.Max)
		}
	}
	return "Please enter a valid value."
}

// Has reports whether value is one of the options.
func Has(options []Option, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
