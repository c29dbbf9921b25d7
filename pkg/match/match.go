// Package match provides the generic fuzzy best-match utility used as the
// final tier of answer-option resolution.
//
// Matching runs tiers in strict priority order and the first tier that
// produces a hit wins: exact equality, prefix, substring, then normalized
// Levenshtein distance. The tier order is deliberate — looser tiers must
// never shadow a stricter hit on a different option.
package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/quotevox/quotevox/pkg/types"
)

// Confidence assigned by each tier. Shared variants apply when more than one
// option triggers the same tier, in which case the runners-up are reported
// as alternatives.
const (
	confExact          = 1.0
	confPrefixUnique   = 0.9
	confPrefixShared   = 0.8
	confContainsUnique = 0.75
	confContainsShared = 0.7
)

// acceptThreshold is the minimum edit-distance confidence for the fallback
// tier to accept a match. Below it the result carries no option, only the
// closest candidates.
const acceptThreshold = 0.5

// maxAlternatives caps the candidates reported alongside a result, for
// disambiguation prompts.
const maxAlternatives = 5

// Result is the outcome of one Best call.
type Result struct {
	// Option is the winning option. Nil when no tier produced an acceptable
	// match; the caller then falls back to the raw transcript.
	Option *types.AnswerOption

	// Confidence is the match confidence in [0,1]. Zero when Option is nil.
	Confidence float64

	// Alternatives holds the next-closest candidates in ranking order,
	// at most five.
	Alternatives []types.AnswerOption
}

// Best matches query against options and returns the closest option with a
// tiered confidence score. Matching is case-insensitive over both labels and
// values. Pure function: options are never mutated.
//
// An empty query or empty option list yields the zero Result.
func Best(query string, options []types.AnswerOption) Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(options) == 0 {
		return Result{}
	}

	if r, ok := exactTier(query, options); ok {
		return r
	}
	if r, ok := affixTier(query, options, strings.HasPrefix, confPrefixUnique, confPrefixShared); ok {
		return r
	}
	if r, ok := affixTier(query, options, strings.Contains, confContainsUnique, confContainsShared); ok {
		return r
	}
	return editDistanceTier(query, options)
}

// exactTier matches query against label or value exactly.
func exactTier(query string, options []types.AnswerOption) (Result, bool) {
	for i := range options {
		if strings.ToLower(options[i].Label) == query || strings.ToLower(options[i].Value) == query {
			return Result{Option: &options[i], Confidence: confExact}, true
		}
	}
	return Result{}, false
}

// affixTier collects every option whose label or value relates to query via
// rel (prefix or substring). A unique hit scores confUnique; multiple hits
// score confShared with the remaining candidates, in original option order,
// as alternatives.
func affixTier(query string, options []types.AnswerOption, rel func(s, substr string) bool, confUnique, confShared float64) (Result, bool) {
	var hits []int
	for i := range options {
		if rel(strings.ToLower(options[i].Label), query) || rel(strings.ToLower(options[i].Value), query) {
			hits = append(hits, i)
		}
	}
	switch len(hits) {
	case 0:
		return Result{}, false
	case 1:
		return Result{Option: &options[hits[0]], Confidence: confUnique}, true
	}
	alts := make([]types.AnswerOption, 0, maxAlternatives)
	for _, i := range hits[1:] {
		if len(alts) == maxAlternatives {
			break
		}
		alts = append(alts, options[i])
	}
	return Result{Option: &options[hits[0]], Confidence: confShared, Alternatives: alts}, true
}

// editDistanceTier ranks every option by the smaller of the Levenshtein
// distances to its label and value, normalizes the best distance into a
// confidence, and accepts only above the threshold. Sorting is stable so
// equidistant options keep their configured order.
func editDistanceTier(query string, options []types.AnswerOption) Result {
	type candidate struct {
		index      int
		distance   int
		confidence float64
	}

	cands := make([]candidate, 0, len(options))
	for i := range options {
		label := strings.ToLower(options[i].Label)
		value := strings.ToLower(options[i].Value)
		dist := matchr.Levenshtein(query, label)
		if d := matchr.Levenshtein(query, value); d < dist {
			dist = d
		}
		denom := utf8.RuneCountInString(query)
		if n := utf8.RuneCountInString(label); n > denom {
			denom = n
		}
		conf := 0.0
		if denom > 0 {
			conf = 1.0 - float64(dist)/float64(denom)
			if conf < 0 {
				conf = 0
			}
		}
		cands = append(cands, candidate{index: i, distance: dist, confidence: conf})
	}

	sort.SliceStable(cands, func(a, b int) bool { return cands[a].distance < cands[b].distance })

	alts := func(from int) []types.AnswerOption {
		out := make([]types.AnswerOption, 0, maxAlternatives)
		for _, c := range cands[from:] {
			if len(out) == maxAlternatives {
				break
			}
			out = append(out, options[c.index])
		}
		return out
	}

	best := cands[0]
	if best.confidence > acceptThreshold {
		return Result{
			Option:       &options[best.index],
			Confidence:   best.confidence,
			Alternatives: alts(1),
		}
	}
	return Result{Alternatives: alts(0)}
}
