// Package spokendate extracts calendar date components from spoken natural
// language, as produced by a speech recognizer ("twenty-third of april
// twenty twenty-four"). Extraction is total: malformed input yields no
// result, never an error, so the caller can fall back to the raw transcript.
package spokendate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Component selects which part of a date to extract.
type Component string

const (
	// ComponentFull extracts day, month, and year ("dd/mm/yyyy").
	ComponentFull Component = "full"

	// ComponentDay extracts the day of the month ("dd").
	ComponentDay Component = "day"

	// ComponentMonth extracts the calendar month ("mm").
	ComponentMonth Component = "month"

	// ComponentYear extracts a four-digit year ("yyyy").
	ComponentYear Component = "year"

	// ComponentMonthYear extracts month and year ("mm/yyyy").
	ComponentMonthYear Component = "month_year"
)

// IsValid reports whether c is a known component selector.
func (c Component) IsValid() bool {
	switch c {
	case ComponentFull, ComponentDay, ComponentMonth, ComponentYear, ComponentMonthYear:
		return true
	}
	return false
}

// Year bounds accepted by extraction and validation.
const (
	minYear = 1900
	maxYear = 2099
)

var (
	digitOrdinalRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	dayNumeralRe   = regexp.MustCompile(`\b(\d{1,2})\b`)
	yearNumeralRe  = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	yearTwoDigitRe = regexp.MustCompile(`\b(\d{2})\b`)
)

// Extract parses transcript for the requested date component and returns the
// zero-padded result ("09", "04/2024", "23/04/2024"). The boolean is false
// when any required component is missing or, for ComponentFull, when the
// three components do not form a valid calendar date.
func Extract(transcript string, component Component) (string, bool) {
	text := strings.ToLower(strings.TrimSpace(transcript))
	if text == "" || !component.IsValid() {
		return "", false
	}
	tokens := tokenize(text)

	switch component {
	case ComponentDay:
		if day, ok := extractDay(text, tokens); ok {
			return fmt.Sprintf("%02d", day), true
		}
	case ComponentMonth:
		if month, ok := extractMonth(text, tokens); ok {
			return fmt.Sprintf("%02d", month), true
		}
	case ComponentYear:
		if year, ok := extractYear(text, tokens); ok {
			return fmt.Sprintf("%04d", year), true
		}
	case ComponentMonthYear:
		month, ok := extractMonth(text, tokens)
		if !ok {
			return "", false
		}
		year, ok := extractYear(text, tokens)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%02d/%04d", month, year), true
	case ComponentFull:
		day, ok := extractDay(text, tokens)
		if !ok {
			return "", false
		}
		month, ok := extractMonth(text, tokens)
		if !ok {
			return "", false
		}
		year, ok := extractYear(text, tokens)
		if !ok {
			return "", false
		}
		if !ValidateDate(day, month, year) {
			return "", false
		}
		return fmt.Sprintf("%02d/%02d/%04d", day, month, year), true
	}
	return "", false
}

// ValidateDate reports whether the triple forms a real calendar date:
// month 1–12, year within bounds, and day within the month's leap-aware
// day count.
func ValidateDate(day, month, year int) bool {
	if month < 1 || month > 12 || year < minYear || year > maxYear {
		return false
	}
	return day >= 1 && day <= daysInMonth(month, year)
}

// daysInMonth returns the day count of month in year. Day zero of the
// following month is the last day of this one.
func daysInMonth(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// extractDay attempts, in order: spoken ordinals ("twenty third",
// "thirtieth") and digit ordinals ("23rd"); tens+unit or oh+unit compounds
// ("twenty three", "oh nine"); a single number word; a bare one or two digit
// numeral. Values outside 1–31 are rejected per strategy.
func extractDay(text string, tokens []string) (int, bool) {
	if v, ok := ordinalFromTokens(tokens); ok && inRange(v, 1, 31) {
		return v, true
	}
	if v, ok := digitOrdinal(text); ok && inRange(v, 1, 31) {
		return v, true
	}
	if v, ok := compoundFromTokens(tokens); ok && inRange(v, 1, 31) {
		return v, true
	}
	if v, ok := singleNumberWord(tokens); ok && inRange(v, 1, 31) {
		return v, true
	}
	if m := dayNumeralRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && inRange(v, 1, 31) {
			return v, true
		}
	}
	return 0, false
}

// extractMonth checks month names as substrings first (full names, then
// abbreviations, in calendar order), then reuses the day strategies
// restricted to 1–12.
func extractMonth(text string, tokens []string) (int, bool) {
	for _, m := range monthNames {
		if strings.Contains(text, m.name) {
			return m.month, true
		}
	}
	for _, m := range monthAbbrevs {
		if strings.Contains(text, m.name) {
			return m.month, true
		}
	}
	if v, ok := ordinalFromTokens(tokens); ok && inRange(v, 1, 12) {
		return v, true
	}
	if v, ok := digitOrdinal(text); ok && inRange(v, 1, 12) {
		return v, true
	}
	if v, ok := singleNumberWord(tokens); ok && inRange(v, 1, 12) {
		return v, true
	}
	if m := dayNumeralRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && inRange(v, 1, 12) {
			return v, true
		}
	}
	return 0, false
}

// extractYear attempts, in order: a century word ("nineteen"/"twenty")
// followed by a spoken two-digit value ("twenty twenty four" → 2024); a bare
// four-digit numeral in 19xx/20xx; a bare two-digit numeral with century
// inference; a spoken two-digit value alone with the same inference.
func extractYear(text string, tokens []string) (int, bool) {
	for i, tok := range tokens {
		var century int
		switch tok {
		case "nineteen":
			century = 1900
		case "twenty":
			century = 2000
		default:
			continue
		}
		if v, ok := twoDigitFromTokens(tokens[i+1:]); ok {
			return century + v, true
		}
	}
	if m := yearNumeralRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	if m := yearTwoDigitRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return inferCentury(v), true
		}
	}
	if v, ok := twoDigitWordValue(tokens); ok {
		return inferCentury(v), true
	}
	return 0, false
}

// inferCentury places a two-digit year: 50 and above in the 1900s, the rest
// in the 2000s.
func inferCentury(v int) int {
	if v >= 50 {
		return 1900 + v
	}
	return 2000 + v
}

// ordinalFromTokens finds the first spoken ordinal, either a tens word
// followed by an ordinal unit ("twenty third") or a standalone ordinal.
func ordinalFromTokens(tokens []string) (int, bool) {
	for i, tok := range tokens {
		if tens, ok := tensWords[tok]; ok && i+1 < len(tokens) {
			if unit, ok := unitOrdinals[tokens[i+1]]; ok {
				return tens + unit, true
			}
		}
		if v, ok := ordinalWords[tok]; ok {
			return v, true
		}
	}
	return 0, false
}

// digitOrdinal finds a digit ordinal such as "1st" or "23rd".
func digitOrdinal(text string) (int, bool) {
	m := digitOrdinalRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// compoundFromTokens finds the first two-token cardinal compound: a tens
// word plus a unit ("twenty three") or a spoken zero plus a unit ("oh nine").
func compoundFromTokens(tokens []string) (int, bool) {
	for i, tok := range tokens {
		if i+1 >= len(tokens) {
			break
		}
		unit, unitOK := unitWords[tokens[i+1]]
		if !unitOK {
			continue
		}
		if zeroWords[tok] {
			return unit, true
		}
		if tens, ok := tensWords[tok]; ok {
			return tens + unit, true
		}
	}
	return 0, false
}

// singleNumberWord finds the first standalone number word.
func singleNumberWord(tokens []string) (int, bool) {
	for _, tok := range tokens {
		if v, ok := unitWords[tok]; ok {
			return v, true
		}
		if v, ok := teenWords[tok]; ok {
			return v, true
		}
		if v, ok := tensWords[tok]; ok {
			return v, true
		}
	}
	return 0, false
}

// twoDigitFromTokens parses the leading tokens as a spoken two-digit value:
// tens+unit compound, tens alone, a teen, or oh+unit ("oh five" → 05).
// A bare unit is not accepted — "twenty one" is the number 21, while the
// year 2001 is spoken "twenty oh one".
func twoDigitFromTokens(tokens []string) (int, bool) {
	if len(tokens) == 0 {
		return 0, false
	}
	if tens, ok := tensWords[tokens[0]]; ok {
		if len(tokens) > 1 {
			if unit, ok := unitWords[tokens[1]]; ok {
				return tens + unit, true
			}
		}
		return tens, true
	}
	if v, ok := teenWords[tokens[0]]; ok {
		return v, true
	}
	if zeroWords[tokens[0]] && len(tokens) > 1 {
		if unit, ok := unitWords[tokens[1]]; ok {
			return unit, true
		}
	}
	return 0, false
}

// twoDigitWordValue finds the first spoken value 10–99 anywhere in tokens,
// for bare two-digit years ("ninety five" → 95, "twelve" → 12). A tens word
// followed by an ordinal unit belongs to a day ("twenty third") and is
// skipped rather than read as the year 2020.
func twoDigitWordValue(tokens []string) (int, bool) {
	for i, tok := range tokens {
		if tens, ok := tensWords[tok]; ok {
			if i+1 < len(tokens) {
				if _, isOrdinal := unitOrdinals[tokens[i+1]]; isOrdinal {
					continue
				}
				if unit, ok := unitWords[tokens[i+1]]; ok {
					return tens + unit, true
				}
			}
			return tens, true
		}
		if v, ok := teenWords[tok]; ok {
			return v, true
		}
	}
	return 0, false
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

// tokenize lowercases text and splits it into alphanumeric tokens; hyphens
// and punctuation become separators so "twenty-third" yields two tokens.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, text)
	return strings.Fields(cleaned)
}
