package spelling

import "regexp"

// Voice-command grammars. Each grammar is a named rule compiled once, kept
// separate from the decoder's word loop so the capture semantics can be
// tested on their own. The verb alternations include forms recognizers
// commonly substitute for the intended command word.

// rule pairs a compiled grammar with a stable name for diagnostics.
type rule struct {
	name string
	re   *regexp.Regexp
}

// correctionRule matches a whole-transcript replacement command:
//
//	[change|swap|...] [the]? [first|last]? <letter> [for|to|with|of|off] [a|an]? <letter>
//
// Captures: position (may be empty), source word, target word.
var correctionRule = rule{
	name: "replace-letter",
	re: regexp.MustCompile(`^(?:change|changed|chains|swap|swapped|switch|replace)\s+` +
		`(?:the\s+)?(?:(first|last)\s+)?([a-z]+)\s+` +
		`(?:for|to|with|of|off)\s+(?:an?\s+)?([a-z]+)$`),
}

// insertRule matches a whole-transcript insertion command:
//
//	[insert|add|put] [a|an]? <letter> at [the]? [beginning|start|front|end|back]
//
// Captures: letter word, position word.
var insertRule = rule{
	name: "insert-letter",
	re: regexp.MustCompile(`^(?:insert|inserted|add|put)\s+(?:an?\s+)?([a-z]+)\s+` +
		`at\s+(?:the\s+)?(beginning|start|front|end|back)$`),
}

// CorrectionCommand is a parsed replacement command.
type CorrectionCommand struct {
	// Position is "first", "last", or empty to replace all occurrences.
	Position string

	// Source is the letter to replace.
	Source rune

	// Target is the replacement letter.
	Target rune
}

// parseCorrection matches text against the correction grammar. Both letters
// must resolve through the phonetic table (canonical word, alias, or bare
// letter); otherwise the text is not a command and falls through to the
// word loop.
func parseCorrection(text string) (CorrectionCommand, bool) {
	m := correctionRule.re.FindStringSubmatch(text)
	if m == nil {
		return CorrectionCommand{}, false
	}
	source, ok := resolveLetter(m[2])
	if !ok {
		return CorrectionCommand{}, false
	}
	target, ok := resolveLetter(m[3])
	if !ok {
		return CorrectionCommand{}, false
	}
	return CorrectionCommand{Position: m[1], Source: source, Target: target}, true
}

// InsertCommand is a parsed insertion command.
type InsertCommand struct {
	// Letter is the letter to insert.
	Letter rune

	// AtFront places the letter at the start of the buffer instead of the
	// end.
	AtFront bool
}

// parseInsert matches text against the insert grammar.
func parseInsert(text string) (InsertCommand, bool) {
	m := insertRule.re.FindStringSubmatch(text)
	if m == nil {
		return InsertCommand{}, false
	}
	letter, ok := resolveLetter(m[1])
	if !ok {
		return InsertCommand{}, false
	}
	front := m[2] == "beginning" || m[2] == "start" || m[2] == "front"
	return InsertCommand{Letter: letter, AtFront: front}, true
}
