package month

import (
	"errors"
	"testing"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser(2025)

	tests := []struct {
		text string
		want string
	}{
		{"3月", "2025-03"},
		{"３月", "2025-03"},
		{"三月", "2025-03"},
		{"十一月", "2025-11"},
		{"十二月", "2025-12"},
		{"１２月", "2025-12"},
		{" 7 月\n", "2025-07"},
		{"11月", "2025-11"},
		{"2025年4月", "2025-04"},
		{"x9月y", "2025-09"},
		{"7", "2025-07"},
		{"07", "2025-07"},
		{"１１", "2025-11"},
		{"10", "2025-10"},
		{"1O", "2025-10"},
		{"IO", "2025-10"},
		{"lo", "2025-10"},
		{"lO", "2025-10"},
		{"lO月", "2025-10"},
		{"2024-06", "2024-06"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := p.Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.text, err)
			}
			if got.String() != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestParser_Rejects(t *testing.T) {
	p := NewParser(2025)

	tests := []struct {
		text       string
		outOfRange bool
	}{
		{"", false},
		{"   ", false},
		{"abc", false},
		{"月", false},
		{"X月", false},
		{"13月", true},
		{"１３月", true},
		{"0月", true},
		{"0", true},
		{"42", true},
		{"2025-13", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := p.Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse(%q) = %s, want error", tt.text, got)
			}
			if !errors.Is(err, ErrUnresolved) {
				t.Errorf("error %v does not wrap ErrUnresolved", err)
			}
			if errors.Is(err, ErrOutOfRange) != tt.outOfRange {
				t.Errorf("Parse(%q) ErrOutOfRange = %v, want %v", tt.text, !tt.outOfRange, tt.outOfRange)
			}
		})
	}
}

func TestParser_TenCorrectionsAgree(t *testing.T) {
	p := NewParser(2025)
	want, err := p.Parse("10")
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"1O", "IO", "lo", "lO"} {
		got, err := p.Parse(text)
		if err != nil || got != want {
			t.Errorf("Parse(%q) = %v, %v; want %v", text, got, err, want)
		}
	}
}

func TestParser_Idempotent(t *testing.T) {
	p := NewParser(2025)
	inputs := []string{"1月", "２月", "三月", "4", "5月", "六月", "7", "８月", "9月", "1O", "十一月", "12"}

	for _, in := range inputs {
		first, err := p.Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		// Strip the year and parse the month part again.
		again, err := p.Parse(first.String()[5:])
		if err != nil {
			t.Fatalf("reparse of %s: %v", first, err)
		}
		if again != first {
			t.Errorf("%q: %v then %v", in, first, again)
		}
		if whole, err := p.Parse(first.String()); err != nil || whole != first {
			t.Errorf("canonical %s reparsed as %v, %v", first, whole, err)
		}
	}
}

func TestParser_ReferenceYear(t *testing.T) {
	p := NewParser(2031)
	got, err := p.Parse("5月")
	if err != nil {
		t.Fatal(err)
	}
	if got != (Canonical{Year: 2031, Month: 5}) || p.Year() != 2031 {
		t.Errorf("got %v", got)
	}
}
