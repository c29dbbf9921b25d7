// Package question models the quote dialogue flow: ordered questions, their
// spoken phrasing variants, and the answer options select questions offer.
// Flows load from YAML files, Postgres, or the quote backend; stores serve
// them to the dialogue layer behind one interface.
package question

import (
	"context"
	"errors"

	"github.com/quotevox/quotevox/internal/interpret/spokendate"
	"github.com/quotevox/quotevox/pkg/types"
)

// MaxVariants is the number of phrasing variants kept per question. Extra
// variants are dropped at load time.
const MaxVariants = 4

// ErrNotFound is returned by stores when a flow or question does not exist.
var ErrNotFound = errors.New("not found")

// Question is one step of a quote dialogue.
type Question struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`

	// Variants are alternate phrasings cycled when the caller stays
	// silent, at most MaxVariants.
	Variants []string `yaml:"variants,omitempty" json:"variants,omitempty"`

	InputType types.InputType `yaml:"input_type" json:"input_type"`

	// DateComponent narrows a date question to one component such as
	// "year" or "month_year". Empty means a full date.
	DateComponent spokendate.Component `yaml:"date_component,omitempty" json:"date_component,omitempty"`

	// NumericSpelling switches a spelling question to the digit alphabet,
	// for policy and phone numbers.
	NumericSpelling bool `yaml:"numeric_spelling,omitempty" json:"numeric_spelling,omitempty"`

	Options []types.AnswerOption `yaml:"options,omitempty" json:"options,omitempty"`

	// OptionsByParent holds cascading option lists keyed by the parent
	// question's answer value. Stores may serve these lazily instead.
	OptionsByParent map[string][]types.AnswerOption `yaml:"options_by_parent,omitempty" json:"options_by_parent,omitempty"`

	// ParentID declares a cascading dependency: the option list is
	// re-fetched whenever the parent question's answer changes.
	ParentID string `yaml:"parent_id,omitempty" json:"parent_id,omitempty"`
}

// Variant returns the phrasing at index i, wrapping modulo the variant
// count. A question with no variants repeats its base text.
func (q *Question) Variant(i int) string {
	if len(q.Variants) == 0 {
		return q.Text
	}
	return q.Variants[i%len(q.Variants)]
}

// VariantCount returns the number of distinct phrasings, at least 1.
func (q *Question) VariantCount() int {
	if len(q.Variants) == 0 {
		return 1
	}
	return len(q.Variants)
}

// Flow is an ordered list of questions forming one quote dialogue.
type Flow struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name,omitempty" json:"name,omitempty"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// QuestionByID returns the flow's question with the given ID, or nil.
func (f *Flow) QuestionByID(id string) *Question {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i]
		}
	}
	return nil
}

// OptionSource serves cascading option lists for select questions whose
// options depend on an earlier answer.
type OptionSource interface {
	// OptionsFor returns the option list for questionID given the parent
	// question's answer value. Implementations fall back to the question's
	// base options when no list is bound to parentValue, and return
	// ErrNotFound for unknown questions.
	OptionsFor(ctx context.Context, questionID, parentValue string) ([]types.AnswerOption, error)
}

// Store provides flows to the dialogue layer.
type Store interface {
	// Flow returns the flow with the given ID, or ErrNotFound.
	Flow(ctx context.Context, id string) (*Flow, error)

	OptionSource
}
