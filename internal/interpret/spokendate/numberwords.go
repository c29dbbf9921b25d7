package spokendate

// Immutable lookup tables for spoken number parsing. Built once at package
// init and never mutated afterwards; all extractors share them.

// unitWords maps spoken units to their values.
var unitWords = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
	"six":   6,
	"seven": 7,
	"eight": 8,
	"nine":  9,
}

// teenWords maps the spoken values ten through nineteen.
var teenWords = map[string]int{
	"ten":       10,
	"eleven":    11,
	"twelve":    12,
	"thirteen":  13,
	"fourteen":  14,
	"fifteen":   15,
	"sixteen":   16,
	"seventeen": 17,
	"eighteen":  18,
	"nineteen":  19,
}

// tensWords maps the spoken multiples of ten. Values above thirty only occur
// in year parsing; day and month extraction rejects them by range.
var tensWords = map[string]int{
	"twenty":  20,
	"thirty":  30,
	"forty":   40,
	"fifty":   50,
	"sixty":   60,
	"seventy": 70,
	"eighty":  80,
	"ninety":  90,
}

// zeroWords are the spoken forms of a leading zero, as in "oh nine" for the
// ninth.
var zeroWords = map[string]bool{
	"oh":   true,
	"zero": true,
}

// ordinalWords maps standalone spoken ordinals. Compound ordinals
// ("twenty third") are assembled from tensWords plus unitOrdinals.
var ordinalWords = map[string]int{
	"first":       1,
	"second":      2,
	"third":       3,
	"fourth":      4,
	"fifth":       5,
	"sixth":       6,
	"seventh":     7,
	"eighth":      8,
	"ninth":       9,
	"tenth":       10,
	"eleventh":    11,
	"twelfth":     12,
	"thirteenth":  13,
	"fourteenth":  14,
	"fifteenth":   15,
	"sixteenth":   16,
	"seventeenth": 17,
	"eighteenth":  18,
	"nineteenth":  19,
	"twentieth":   20,
	"thirtieth":   30,
}

// unitOrdinals are the ordinal units that combine with a tens word.
var unitOrdinals = map[string]int{
	"first":   1,
	"second":  2,
	"third":   3,
	"fourth":  4,
	"fifth":   5,
	"sixth":   6,
	"seventh": 7,
	"eighth":  8,
	"ninth":   9,
}

// monthEntry pairs a spoken month form with its calendar number.
type monthEntry struct {
	name  string
	month int
}

// monthNames are the full month names, checked as substrings in calendar
// order before any numeric strategy runs.
var monthNames = []monthEntry{
	{"january", 1},
	{"february", 2},
	{"march", 3},
	{"april", 4},
	{"may", 5},
	{"june", 6},
	{"july", 7},
	{"august", 8},
	{"september", 9},
	{"october", 10},
	{"november", 11},
	{"december", 12},
}

// monthAbbrevs are the common abbreviated forms, checked after full names.
var monthAbbrevs = []monthEntry{
	{"jan", 1},
	{"feb", 2},
	{"mar", 3},
	{"apr", 4},
	{"jun", 6},
	{"jul", 7},
	{"aug", 8},
	{"sep", 9},
	{"oct", 10},
	{"nov", 11},
	{"dec", 12},
}
