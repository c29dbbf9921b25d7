package spelling

import "testing"

func TestParseCorrection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want CorrectionCommand
	}{
		{
			name: "first occurrence with article",
			text: "change the first b for v",
			want: CorrectionCommand{Position: "first", Source: 'b', Target: 'v'},
		},
		{
			name: "phonetic words",
			text: "change bravo to victor",
			want: CorrectionCommand{Source: 'b', Target: 'v'},
		},
		{
			name: "last occurrence",
			text: "swap the last pappa with tango",
			want: CorrectionCommand{Position: "last", Source: 'p', Target: 't'},
		},
		{
			name: "misheard separator of",
			text: "replace delta of echo",
			want: CorrectionCommand{Source: 'd', Target: 'e'},
		},
		{
			name: "misheard verb chains",
			text: "chains b for v",
			want: CorrectionCommand{Source: 'b', Target: 'v'},
		},
		{
			name: "switch verb",
			text: "switch x to y",
			want: CorrectionCommand{Source: 'x', Target: 'y'},
		},
		{
			name: "target with article an",
			text: "change b to an a",
			want: CorrectionCommand{Source: 'b', Target: 'a'},
		},
		{
			name: "bare letter a as target",
			text: "change b to a",
			want: CorrectionCommand{Source: 'b', Target: 'a'},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := parseCorrection(tc.text)
			if !ok {
				t.Fatalf("parseCorrection(%q) not recognized", tc.text)
			}
			if got != tc.want {
				t.Errorf("parseCorrection(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseCorrection_NotACommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "unresolvable source", text: "change oil to synthetic"},
		{name: "leading words", text: "please change b to v"},
		{name: "trailing words", text: "change b to v thanks"},
		{name: "insert command", text: "insert v at the beginning"},
		{name: "plain spelling", text: "victor india november"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got, ok := parseCorrection(tc.text); ok {
				t.Errorf("parseCorrection(%q) = %+v, want no match", tc.text, got)
			}
		})
	}
}

func TestParseInsert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want InsertCommand
	}{
		{
			name: "phonetic word at beginning",
			text: "insert victor at the beginning",
			want: InsertCommand{Letter: 'v', AtFront: true},
		},
		{
			name: "article and end",
			text: "add an s at the end",
			want: InsertCommand{Letter: 's'},
		},
		{
			name: "bare letter at back",
			text: "put x at the back",
			want: InsertCommand{Letter: 'x'},
		},
		{
			name: "letter a at start",
			text: "insert a at start",
			want: InsertCommand{Letter: 'a', AtFront: true},
		},
		{
			name: "misheard verb inserted",
			text: "inserted t at the front",
			want: InsertCommand{Letter: 't', AtFront: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := parseInsert(tc.text)
			if !ok {
				t.Fatalf("parseInsert(%q) not recognized", tc.text)
			}
			if got != tc.want {
				t.Errorf("parseInsert(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseInsert_NotACommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "unresolvable letter", text: "add more detail at the end"},
		{name: "missing position", text: "insert victor"},
		{name: "correction command", text: "change b to v"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got, ok := parseInsert(tc.text); ok {
				t.Errorf("parseInsert(%q) = %+v, want no match", tc.text, got)
			}
		})
	}
}

func TestResolveLetter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word string
		want rune
	}{
		{word: "alpha", want: 'a'},
		{word: "alfa", want: 'a'},
		{word: "juliett", want: 'j'},
		{word: "juliet", want: 'j'},
		{word: "wiskey", want: 'w'},
		{word: "exray", want: 'x'},
		{word: "xray", want: 'x'},
		{word: "zulu", want: 'z'},
		{word: "q", want: 'q'},
	}

	for _, tc := range tests {
		t.Run(tc.word, func(t *testing.T) {
			t.Parallel()
			got, ok := resolveLetter(tc.word)
			if !ok {
				t.Fatalf("resolveLetter(%q) not recognized", tc.word)
			}
			if got != tc.want {
				t.Errorf("resolveLetter(%q) = %q, want %q", tc.word, got, tc.want)
			}
		})
	}

	for _, word := range []string{"hello", "ab", "", "7"} {
		if got, ok := resolveLetter(word); ok {
			t.Errorf("resolveLetter(%q) = %q, want no match", word, got)
		}
	}
}
