package question

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/antzucaro/matchr"

	"github.com/quotevox/quotevox/pkg/types"
)

// Normalize applies load-time defaults and caps: missing input types become
// text, variant lists are truncated to MaxVariants. Loaders and stores call
// it after decoding a flow from any source, before Validate.
func (f *Flow) Normalize() {
	for i := range f.Questions {
		q := &f.Questions[i]
		if q.InputType == "" {
			q.InputType = types.InputText
		}
		if len(q.Variants) > MaxVariants {
			slog.Warn("question has too many variants, extra ones dropped",
				"flow", f.ID,
				"question", q.ID,
				"kept", MaxVariants,
				"dropped", len(q.Variants)-MaxVariants)
			q.Variants = q.Variants[:MaxVariants]
		}
	}
}

// Validate checks the flow for configuration errors. All violations are
// collected and reported in one joined error.
func (f *Flow) Validate() error {
	var errs []error
	if f.ID == "" {
		errs = append(errs, errors.New("flow id is required"))
	}
	if len(f.Questions) == 0 {
		errs = append(errs, errors.New("flow has no questions"))
	}

	ids := make(map[string]bool, len(f.Questions))
	for i := range f.Questions {
		q := &f.Questions[i]
		if q.ID == "" {
			errs = append(errs, fmt.Errorf("question at index %d: id is required", i))
			continue
		}
		if ids[q.ID] {
			errs = append(errs, fmt.Errorf("question %q: duplicate id", q.ID))
		}
		ids[q.ID] = true

		if q.Text == "" {
			errs = append(errs, fmt.Errorf("question %q: text is required", q.ID))
		}
		if !q.InputType.IsValid() {
			errs = append(errs, fmt.Errorf("question %q: unknown input type %q", q.ID, q.InputType))
		}
		if q.DateComponent != "" {
			if q.InputType != types.InputDate {
				errs = append(errs, fmt.Errorf("question %q: date_component set on %s question", q.ID, q.InputType))
			} else if !q.DateComponent.IsValid() {
				errs = append(errs, fmt.Errorf("question %q: unknown date component %q", q.ID, q.DateComponent))
			}
		}
		if q.NumericSpelling && q.InputType != types.InputSpelling {
			errs = append(errs, fmt.Errorf("question %q: numeric_spelling set on %s question", q.ID, q.InputType))
		}
		if q.InputType == types.InputSelect &&
			len(q.Options) == 0 && len(q.OptionsByParent) == 0 && q.ParentID == "" {
			errs = append(errs, fmt.Errorf("question %q: select question has no options", q.ID))
		}

		errs = append(errs, validateOptions(q.ID, q.Options)...)
		for parent, opts := range q.OptionsByParent {
			if parent == "" {
				errs = append(errs, fmt.Errorf("question %q: options_by_parent has an empty parent value", q.ID))
			}
			errs = append(errs, validateOptions(q.ID, opts)...)
		}
		if len(q.OptionsByParent) > 0 && q.ParentID == "" {
			errs = append(errs, fmt.Errorf("question %q: options_by_parent requires parent_id", q.ID))
		}
	}

	for i := range f.Questions {
		q := &f.Questions[i]
		switch {
		case q.ParentID == "":
		case q.ParentID == q.ID:
			errs = append(errs, fmt.Errorf("question %q: parent_id references itself", q.ID))
		case !ids[q.ParentID]:
			errs = append(errs, fmt.Errorf("question %q: parent_id %q not in flow", q.ID, q.ParentID))
		}
	}

	return errors.Join(errs...)
}

func validateOptions(questionID string, opts []types.AnswerOption) []error {
	var errs []error
	for _, opt := range opts {
		if opt.Value == "" {
			errs = append(errs, fmt.Errorf("question %q: option %q has no value", questionID, opt.Label))
		}
	}
	return errs
}

// Collision pairs two option labels of one question that share a phonetic
// encoding and are therefore hard to tell apart over voice.
type Collision struct {
	QuestionID string
	LabelA     string
	LabelB     string
}

// PhoneticCollisions returns the Double Metaphone collisions between option
// labels within each select question. Collisions are advisory; adding
// aliases or phonetic forms to the options usually resolves them.
func (f *Flow) PhoneticCollisions() []Collision {
	var out []Collision
	for i := range f.Questions {
		q := &f.Questions[i]
		if q.InputType != types.InputSelect {
			continue
		}
		seen := make(map[string]string, len(q.Options))
		for _, opt := range q.Options {
			if opt.Label == "" {
				continue
			}
			primary, _ := matchr.DoubleMetaphone(opt.Label)
			if primary == "" {
				continue
			}
			if prev, ok := seen[primary]; ok {
				out = append(out, Collision{QuestionID: q.ID, LabelA: prev, LabelB: opt.Label})
				continue
			}
			seen[primary] = opt.Label
		}
	}
	return out
}
