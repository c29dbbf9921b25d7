package spokendate_test

import (
	"testing"

	"github.com/quotevox/quotevox/internal/interpret/spokendate"
)

func TestExtract_FullDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{"spoken ordinal and spoken year", "twenty-third of april twenty twenty-four", "23/04/2024"},
		{"digit ordinal", "the 3rd of may 1999", "03/05/1999"},
		{"plain numerals", "12 june 2001", "12/06/2001"},
		{"compound day", "twenty one september nineteen eighty six", "21/09/1986"},
		{"leap day accepted", "29th of february twenty twenty four", "29/02/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := spokendate.Extract(tt.transcript, spokendate.ComponentFull)
			if !ok {
				t.Fatalf("Extract(%q, full): ok=false, want %q", tt.transcript, tt.want)
			}
			if got != tt.want {
				t.Errorf("Extract(%q, full) = %q, want %q", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestExtract_FullDateRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		transcript string
	}{
		{"missing year", "twenty-third of april"},
		{"missing day", "april 2024"},
		{"invalid calendar date", "thirty-first of february twenty twenty"},
		{"leap day in non-leap year", "29th of february 1900"},
		{"empty", ""},
		{"no date content", "please call me back later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got, ok := spokendate.Extract(tt.transcript, spokendate.ComponentFull); ok {
				t.Errorf("Extract(%q, full) = %q, want no result", tt.transcript, got)
			}
		})
	}
}

func TestExtract_Day(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transcript string
		want       string
	}{
		{"oh nine", "09"},
		{"twenty-third", "23"},
		{"twenty third", "23"},
		{"23rd", "23"},
		{"the first", "01"},
		{"thirtieth", "30"},
		{"thirty one", "31"},
		{"twenty three", "23"},
		{"fifteen", "15"},
		{"7", "07"},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			got, ok := spokendate.Extract(tt.transcript, spokendate.ComponentDay)
			if !ok {
				t.Fatalf("Extract(%q, day): ok=false, want %q", tt.transcript, tt.want)
			}
			if got != tt.want {
				t.Errorf("Extract(%q, day) = %q, want %q", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestExtract_DayRejected(t *testing.T) {
	t.Parallel()

	for _, transcript := range []string{"sixty", "99", "zero", "next tuesday"} {
		if got, ok := spokendate.Extract(transcript, spokendate.ComponentDay); ok {
			t.Errorf("Extract(%q, day) = %q, want no result", transcript, got)
		}
	}
}

func TestExtract_Month(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transcript string
		want       string
	}{
		{"april", "04"},
		{"in september please", "09"},
		{"sept", "09"},
		{"dec", "12"},
		{"twelve", "12"},
		{"the third", "03"},
		{"month 11", "11"},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			got, ok := spokendate.Extract(tt.transcript, spokendate.ComponentMonth)
			if !ok {
				t.Fatalf("Extract(%q, month): ok=false, want %q", tt.transcript, tt.want)
			}
			if got != tt.want {
				t.Errorf("Extract(%q, month) = %q, want %q", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestExtract_Year(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transcript string
		want       string
	}{
		{"twenty twenty-four", "2024"},
		{"nineteen ninety nine", "1999"},
		{"nineteen eighty", "1980"},
		{"twenty oh five", "2005"},
		{"2024", "2024"},
		{"1987", "1987"},
		{"99", "1999"},
		{"07", "2007"},
		{"ninety five", "1995"},
		{"twelve", "2012"},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			got, ok := spokendate.Extract(tt.transcript, spokendate.ComponentYear)
			if !ok {
				t.Fatalf("Extract(%q, year): ok=false, want %q", tt.transcript, tt.want)
			}
			if got != tt.want {
				t.Errorf("Extract(%q, year) = %q, want %q", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestExtract_MonthYear(t *testing.T) {
	t.Parallel()

	got, ok := spokendate.Extract("april twenty twenty-four", spokendate.ComponentMonthYear)
	if !ok {
		t.Fatal("Extract(month_year): ok=false")
	}
	if got != "04/2024" {
		t.Errorf("Extract(month_year) = %q, want %q", got, "04/2024")
	}

	if got, ok := spokendate.Extract("just april", spokendate.ComponentMonthYear); ok {
		t.Errorf("Extract(month_year without year) = %q, want no result", got)
	}
}

func TestExtract_InvalidComponent(t *testing.T) {
	t.Parallel()

	if got, ok := spokendate.Extract("april", spokendate.Component("week")); ok {
		t.Errorf("Extract(invalid component) = %q, want no result", got)
	}
}

func TestValidateDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		day   int
		month int
		year  int
		want  bool
	}{
		{"leap day in leap century year", 29, 2, 2000, true},
		{"leap day in non-leap century year", 29, 2, 1900, false},
		{"leap day in regular leap year", 29, 2, 2024, true},
		{"february 30 never valid", 30, 2, 2024, false},
		{"april has 30 days", 30, 4, 2023, true},
		{"april has no 31st", 31, 4, 2023, false},
		{"december 31", 31, 12, 1999, true},
		{"day zero", 0, 1, 2000, false},
		{"month zero", 15, 0, 2000, false},
		{"month thirteen", 15, 13, 2000, false},
		{"year below range", 1, 1, 1899, false},
		{"year above range", 1, 1, 2100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := spokendate.ValidateDate(tt.day, tt.month, tt.year); got != tt.want {
				t.Errorf("ValidateDate(%d, %d, %d) = %v, want %v", tt.day, tt.month, tt.year, got, tt.want)
			}
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	const transcript = "twenty-third of april twenty twenty-four"
	first, ok1 := spokendate.Extract(transcript, spokendate.ComponentFull)
	second, ok2 := spokendate.Extract(transcript, spokendate.ComponentFull)
	if ok1 != ok2 || first != second {
		t.Errorf("repeated extraction differs: %q/%v vs %q/%v", first, ok1, second, ok2)
	}
}
