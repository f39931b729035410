// Package suggestion defines the correction suggestions consumed by the
// reconciliation engine and the vocabulary used to report what happened to
// each of them.
//
// Suggestions are produced out of band (typically by an LLM analysis pass)
// and are treated as untrusted input: [Suggestion.Validate] rejects malformed
// entries, and [Decode] tolerates the payload shapes analysis jobs emit.
package suggestion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Severity ranks how important the upstream producer considers a suggestion.
// It is used as a scheduling tie-breaker.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; unknown or empty severities rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Suggestion is a single text correction proposed for a transcript.
// Suggestions are immutable input; the engine never modifies them.
type Suggestion struct {
	// ID identifies the suggestion in reports. See [AssignIDs].
	ID string `json:"id,omitempty"`

	// OriginalText is the text the producer wants replaced.
	OriginalText string `json:"originalText" validate:"required"`

	// SuggestedText replaces OriginalText.
	SuggestedText string `json:"suggestedText" validate:"required"`

	// Confidence is the producer's confidence in [0, 1].
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`

	// From and To optionally claim the rune span [From, To) of the flattened
	// document text. They are hints: prior edits may have shifted them.
	From *int `json:"from,omitempty" validate:"omitnil,gte=0"`
	To   *int `json:"to,omitempty" validate:"omitnil,gte=0"`

	// SegmentIndex optionally names the segment the producer analysed.
	SegmentIndex *int `json:"segmentIndex,omitempty" validate:"omitnil,gte=0"`

	// AutoApply is honoured when the caller does not request "apply all".
	// Nil means true.
	AutoApply *bool `json:"autoApply,omitempty"`

	Severity    Severity `json:"severity,omitempty" validate:"omitempty,oneof=low medium high"`
	Type        string   `json:"type,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// HasPosition reports whether the suggestion carries an explicit span.
func (s Suggestion) HasPosition() bool {
	return s.From != nil && s.To != nil
}

// ShouldAutoApply reports the effective auto-apply flag.
func (s Suggestion) ShouldAutoApply() bool {
	return s.AutoApply == nil || *s.AutoApply
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks that the suggestion is well formed. It returns a joined
// error describing every problem found.
func (s Suggestion) Validate() error {
	var errs []error

	if err := structValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, formatFieldError(fe))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if s.OriginalText != "" && strings.TrimSpace(s.OriginalText) == "" {
		errs = append(errs, errors.New("originalText is blank"))
	}
	if s.SuggestedText != "" && strings.TrimSpace(s.SuggestedText) == "" {
		errs = append(errs, errors.New("suggestedText is blank"))
	}
	if (s.From == nil) != (s.To == nil) {
		errs = append(errs, errors.New("from and to must be set together"))
	}
	if s.HasPosition() && *s.From > *s.To {
		errs = append(errs, fmt.Errorf("from %d is after to %d", *s.From, *s.To))
	}

	return errors.Join(errs...)
}

// formatFieldError renders a validator field error the way the HTTP layer
// reports it.
func formatFieldError(fe validator.FieldError) error {
	if fe.Param() != "" {
		return fmt.Errorf("field %q failed on the %q tag (value: %s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("field %q failed on the %q tag", fe.Field(), fe.Tag())
}
