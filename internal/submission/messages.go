package submission

import (
	"strings"

	"finitefield.org/uniform-studio/internal/i18n"
	"finitefield.org/uniform-studio/internal/uniform"
)

// Messages holds the caption texts shown by the workflow.
type Messages struct {
	Prompt     string
	Generating string
	Success    string
	Failure    string
	Retry      string
	Busy       string
	// ErrorFormat contains an {error} placeholder for the server detail.
	ErrorFormat string
	// Validity maps constraint violations to field messages.
	Validity map[string]string
}

// DefaultMessages returns the English captions.
func DefaultMessages() Messages {
	return Messages{
		Prompt:      "Please enter a keyword!",
		Generating:  "Generating image... please wait a moment.",
		Success:     "Here is your generated design!",
		Failure:     "image generation failed",
		Retry:       "Image generation failed. Please try again.",
		Busy:        "A design is still being generated. Please wait for it to finish.",
		ErrorFormat: "Error: {error}",
	}
}

// MessagesFor loads the captions for lang from the bundle.
func MessagesFor(b *i18n.Bundle, lang string) Messages {
	if b == nil {
		return DefaultMessages()
	}
	m := Messages{
		Prompt:      b.T(lang, "caption.prompt"),
		Generating:  b.T(lang, "caption.generating"),
		Success:     b.T(lang, "caption.success"),
		Failure:     b.T(lang, "caption.failure"),
		Retry:       b.T(lang, "caption.retry"),
		Busy:        b.T(lang, "caption.busy"),
		ErrorFormat: b.T(lang, "caption.error"),
		Validity:    map[string]string{},
	}
	for _, v := range []string{"valueMissing", "tooLong", "tooShort", "patternMismatch", "rangeUnderflow", "rangeOverflow"} {
		m.Validity[v] = b.T(lang, "validity."+v)
	}
	return m
}

func (m Messages) errorCaption(detail string) string {
	format := m.ErrorFormat
	if !strings.Contains(format, "{error}") {
		format = "Error: {error}"
	}
	return strings.ReplaceAll(format, "{error}", detail)
}

func (m Messages) validity(fe *uniform.FieldError) string {
	if msg, ok := m.Validity[string(fe.Violation)]; ok && msg != "" {
		return msg
	}
	return fe.Message
}
