package spelling

// Immutable phonetic tables, built once at package init. letterWords maps
// every accepted spoken form to its letter: the NATO alphabet plus the
// spellings and mishearings recognizers actually produce for those words.

// natoWords is the canonical word for each letter, used when reading a
// buffer back to the user.
var natoWords = map[rune]string{
	'a': "alpha",
	'b': "bravo",
	'c': "charlie",
	'd': "delta",
	'e': "echo",
	'f': "foxtrot",
	'g': "golf",
	'h': "hotel",
	'i': "india",
	'j': "juliett",
	'k': "kilo",
	'l': "lima",
	'm': "mike",
	'n': "november",
	'o': "oscar",
	'p': "papa",
	'q': "quebec",
	'r': "romeo",
	's': "sierra",
	't': "tango",
	'u': "uniform",
	'v': "victor",
	'w': "whiskey",
	'x': "xray",
	'y': "yankee",
	'z': "zulu",
}

// wordAliases are alternate spellings and common recognizer outputs for the
// canonical words. The ICAO spelling "alfa" and the single-t "juliet" show
// up constantly in transcripts.
var wordAliases = map[string]rune{
	"alfa":   'a',
	"juliet": 'j',
	"oskar":  'o',
	"pappa":  'p',
	"wiskey": 'w',
	"whisky": 'w',
	"exray":  'x',
	"yankey": 'y',
	"zoolu":  'z',
}

// letterWords is the full spoken-form lookup, canonical words plus aliases.
// Built in init and read-only afterwards.
var letterWords = make(map[string]rune, 2*len(natoWords))

// digitWords maps spoken digits for numeric spelling fields. "niner" is the
// radio convention and recognizers emit it.
var digitWords = map[string]rune{
	"zero":  '0',
	"oh":    '0',
	"one":   '1',
	"two":   '2',
	"three": '3',
	"four":  '4',
	"five":  '5',
	"six":   '6',
	"seven": '7',
	"eight": '8',
	"nine":  '9',
	"niner": '9',
}

// similarityGroups are letters commonly confused with each other
// acoustically. The big group is the "ee" rhyme set. Used only to pick a
// plausible correction source when the spoken one is absent from the buffer.
var similarityGroups = [][]rune{
	{'b', 'c', 'd', 'e', 'g', 'p', 't', 'v', 'z'},
	{'a', 'j', 'k'},
	{'m', 'n'},
	{'f', 's', 'x'},
	{'i', 'y'},
	{'q', 'u'},
}

// similarLetters maps a letter to its confusion group, derived from
// similarityGroups in init.
var similarLetters = make(map[rune][]rune, 26)

func init() {
	for letter, word := range natoWords {
		letterWords[word] = letter
	}
	for word, letter := range wordAliases {
		letterWords[word] = letter
	}
	for _, group := range similarityGroups {
		for _, letter := range group {
			others := make([]rune, 0, len(group)-1)
			for _, other := range group {
				if other != letter {
					others = append(others, other)
				}
			}
			similarLetters[letter] = others
		}
	}
}

// resolveLetter maps a normalized token to a letter: a bare single letter or
// any recognized spoken form.
func resolveLetter(word string) (rune, bool) {
	if len(word) == 1 && word[0] >= 'a' && word[0] <= 'z' {
		return rune(word[0]), true
	}
	if letter, ok := letterWords[word]; ok {
		return letter, true
	}
	return 0, false
}

// resolveDigit maps a normalized token to a digit: a bare numeral or a
// spoken digit word.
func resolveDigit(word string) (rune, bool) {
	if len(word) == 1 && word[0] >= '0' && word[0] <= '9' {
		return rune(word[0]), true
	}
	if digit, ok := digitWords[word]; ok {
		return digit, true
	}
	return 0, false
}

// Word returns the canonical spoken word for a letter, for prompting the
// user ("did you mean victor?"). Falls back to the letter itself.
func Word(letter rune) string {
	if w, ok := natoWords[toLower(letter)]; ok {
		return w
	}
	return string(letter)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
