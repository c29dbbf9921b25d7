// Package options resolves a spoken or typed utterance against a finite list
// of answer options. Matching runs through ordered tiers from strict to
// loose; tier order is the tie-break when several tiers could claim
// different options. Recognizers frequently mis-transcribe domain vocabulary,
// so per-option aliases and phonetic forms are consulted before any generic
// fuzzy matching.
package options

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quotevox/quotevox/internal/observe"
	"github.com/quotevox/quotevox/pkg/match"
	"github.com/quotevox/quotevox/pkg/types"
)

// tier is one named matching strategy. Tiers are evaluated in order over the
// whole option list; the first tier that claims an option wins.
type tier struct {
	name string
	fn   func(query string, options []types.AnswerOption) *types.AnswerOption
}

var tiers = []tier{
	{name: "exact", fn: tierExact},
	{name: "alias", fn: tierAlias},
	{name: "phonetic", fn: tierPhonetic},
	{name: "substring", fn: tierSubstring},
	{name: "word-overlap", fn: tierWordOverlap},
}

// Resolve matches transcript against options and returns the claimed option,
// or nil when nothing matches so the caller can fall back to the raw
// transcript. Edit-distance matching runs last, after every stricter tier
// has passed on the whole list.
func Resolve(transcript string, options []types.AnswerOption) *types.AnswerOption {
	query := strings.TrimSpace(strings.ToLower(transcript))
	if query == "" || len(options) == 0 {
		return nil
	}

	for _, t := range tiers {
		if opt := t.fn(query, options); opt != nil {
			slog.Debug("option resolved", "tier", t.name, "value", opt.Value)
			observe.DefaultMetrics().RecordResolverMatch(context.Background(), t.name)
			return opt
		}
	}

	if res := match.Best(query, options); res.Option != nil {
		slog.Debug("option resolved",
			"tier", "edit-distance",
			"value", res.Option.Value,
			"confidence", res.Confidence)
		observe.DefaultMetrics().RecordResolverMatch(context.Background(), "edit-distance")
		return res.Option
	}
	return nil
}

func tierExact(query string, options []types.AnswerOption) *types.AnswerOption {
	for i, opt := range options {
		if query == strings.ToLower(opt.Label) || query == strings.ToLower(opt.Value) {
			return &options[i]
		}
	}
	return nil
}

func tierAlias(query string, options []types.AnswerOption) *types.AnswerOption {
	return tierSpokenForms(query, options, func(opt *types.AnswerOption) []string {
		return opt.Aliases
	})
}

func tierPhonetic(query string, options []types.AnswerOption) *types.AnswerOption {
	return tierSpokenForms(query, options, func(opt *types.AnswerOption) []string {
		return opt.Phonetics
	})
}

// tierSpokenForms claims an option when the query equals or contains one of
// its alternate spoken forms.
func tierSpokenForms(query string, options []types.AnswerOption, forms func(*types.AnswerOption) []string) *types.AnswerOption {
	for i := range options {
		for _, form := range forms(&options[i]) {
			form = strings.TrimSpace(strings.ToLower(form))
			if form == "" {
				continue
			}
			if strings.Contains(query, form) {
				return &options[i]
			}
		}
	}
	return nil
}

// tierSubstring claims an option when query and label contain one another in
// either direction. Labels of three characters or fewer are accepted only
// when they make up at least half the query, which keeps single letters from
// latching onto long utterances.
func tierSubstring(query string, options []types.AnswerOption) *types.AnswerOption {
	queryLen := utf8.RuneCountInString(query)
	for i, opt := range options {
		label := strings.ToLower(opt.Label)
		if label == "" {
			continue
		}
		if !strings.Contains(query, label) && !strings.Contains(label, query) {
			continue
		}
		if utf8.RuneCountInString(label) > 3 || 2*utf8.RuneCountInString(label) >= queryLen {
			return &options[i]
		}
	}
	return nil
}

// tierWordOverlap claims an option when at least half of its label's words
// have a containment relationship with some query word, in either direction.
func tierWordOverlap(query string, options []types.AnswerOption) *types.AnswerOption {
	queryWords := strings.Fields(query)
	if len(queryWords) == 0 {
		return nil
	}
	for i, opt := range options {
		labelWords := strings.Fields(strings.ToLower(opt.Label))
		if len(labelWords) == 0 {
			continue
		}
		matched := 0
		for _, lw := range labelWords {
			for _, qw := range queryWords {
				if strings.Contains(qw, lw) || strings.Contains(lw, qw) {
					matched++
					break
				}
			}
		}
		if matched*2 >= len(labelWords) {
			return &options[i]
		}
	}
	return nil
}
