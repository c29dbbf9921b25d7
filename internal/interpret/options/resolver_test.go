package options_test

import (
	"testing"

	"github.com/quotevox/quotevox/internal/interpret/options"
	"github.com/quotevox/quotevox/pkg/types"
)

func fuelOptions() []types.AnswerOption {
	return []types.AnswerOption{
		{Label: "Petrol", Value: "petrol", Aliases: []string{"benzine", "gasoline"}},
		{Label: "Diesel", Value: "diesel"},
		{Label: "Electric", Value: "electric", Phonetics: []string{"a lectric"}},
	}
}

func coverOptions() []types.AnswerOption {
	return []types.AnswerOption{
		{Label: "Comprehensive", Value: "comprehensive"},
		{Label: "Third Party Fire and Theft", Value: "tpft"},
		{Label: "Income Protection", Value: "income_protection"},
	}
}

func TestResolve_ExactLabel(t *testing.T) {
	t.Parallel()

	got := options.Resolve("PETROL", fuelOptions())
	if got == nil || got.Value != "petrol" {
		t.Fatalf("Resolve() = %+v, want petrol", got)
	}
}

func TestResolve_ExactValue(t *testing.T) {
	t.Parallel()

	got := options.Resolve("tpft", coverOptions())
	if got == nil || got.Value != "tpft" {
		t.Fatalf("Resolve() = %+v, want tpft", got)
	}
}

func TestResolve_Alias(t *testing.T) {
	t.Parallel()

	got := options.Resolve("benzine", fuelOptions())
	if got == nil || got.Value != "petrol" {
		t.Fatalf("Resolve() = %+v, want petrol", got)
	}
}

func TestResolve_AliasWithinUtterance(t *testing.T) {
	t.Parallel()

	got := options.Resolve("i would like benzine please", fuelOptions())
	if got == nil || got.Value != "petrol" {
		t.Fatalf("Resolve() = %+v, want petrol", got)
	}
}

func TestResolve_Phonetic(t *testing.T) {
	t.Parallel()

	got := options.Resolve("a lectric", fuelOptions())
	if got == nil || got.Value != "electric" {
		t.Fatalf("Resolve() = %+v, want electric", got)
	}
}

func TestResolve_AliasBeatsSubstring(t *testing.T) {
	t.Parallel()

	// "Benzine Deluxe" would claim the transcript at the substring tier,
	// but the alias tier runs first and claims it for petrol.
	opts := []types.AnswerOption{
		{Label: "Benzine Deluxe", Value: "deluxe"},
		{Label: "Petrol", Value: "petrol", Aliases: []string{"benzine"}},
	}
	got := options.Resolve("benzine", opts)
	if got == nil || got.Value != "petrol" {
		t.Fatalf("Resolve() = %+v, want petrol", got)
	}
}

func TestResolve_SubstringLabelContainsQuery(t *testing.T) {
	t.Parallel()

	got := options.Resolve("income", coverOptions())
	if got == nil || got.Value != "income_protection" {
		t.Fatalf("Resolve() = %+v, want income_protection", got)
	}
}

func TestResolve_SubstringQueryContainsLabel(t *testing.T) {
	t.Parallel()

	got := options.Resolve("comprehensive cover please", coverOptions())
	if got == nil || got.Value != "comprehensive" {
		t.Fatalf("Resolve() = %+v, want comprehensive", got)
	}
}

func TestResolve_WordOverlap(t *testing.T) {
	t.Parallel()

	// No containment in either direction for the whole strings, but every
	// label word appears somewhere in the transcript.
	got := options.Resolve("fire theft and third party", coverOptions())
	if got == nil || got.Value != "tpft" {
		t.Fatalf("Resolve() = %+v, want tpft", got)
	}
}

func TestResolve_WordOverlapReordered(t *testing.T) {
	t.Parallel()

	got := options.Resolve("protection income", coverOptions())
	if got == nil || got.Value != "income_protection" {
		t.Fatalf("Resolve() = %+v, want income_protection", got)
	}
}

func TestResolve_EditDistanceFallback(t *testing.T) {
	t.Parallel()

	got := options.Resolve("toyata", []types.AnswerOption{
		{Label: "Toyota", Value: "toyota"},
		{Label: "Mazda", Value: "mazda"},
	})
	if got == nil || got.Value != "toyota" {
		t.Fatalf("Resolve() = %+v, want toyota", got)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	t.Parallel()

	if got := options.Resolve("quantum physics lecture", fuelOptions()); got != nil {
		t.Errorf("Resolve() = %+v, want nil", got)
	}
}

func TestResolve_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := options.Resolve("", fuelOptions()); got != nil {
		t.Errorf("Resolve(empty transcript) = %+v, want nil", got)
	}
	if got := options.Resolve("petrol", nil); got != nil {
		t.Errorf("Resolve(no options) = %+v, want nil", got)
	}
}
