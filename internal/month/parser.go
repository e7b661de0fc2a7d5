package month

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Unit is the month glyph that follows a month number in Japanese.
const Unit = "月"

// kanjiNumerals are the native-script forms of 1 through 12.
var kanjiNumerals = [12]string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十", "十一", "十二"}

// tenCorrections are common misreadings of "10" in handwriting.
var tenCorrections = map[string]bool{"10": true, "1O": true, "IO": true, "lo": true, "lO": true}

type label struct {
	text  string
	month int
}

// Parser turns recognized text into a Canonical month.
//
// Text is tried against, in order:
//  1. the label table ("3月", "３月", "三月" and so on for 1-12), exactly and
//     then by containment, longest label first
//  2. a number followed by 月
//  3. a bare number
//  4. the "10" correction table ("1O", "IO", "lo", "lO")
//
// The first rule that matches decides. A number outside 1-12 is rejected
// with ErrOutOfRange rather than clamped. A canonical YYYY-MM string parses
// to itself.
type Parser struct {
	year   int
	labels []label
	exact  map[string]int
}

// NewParser creates a parser that qualifies months with referenceYear.
func NewParser(referenceYear int) *Parser {
	p := &Parser{year: referenceYear, exact: make(map[string]int)}
	for m := 1; m <= 12; m++ {
		ascii := strconv.Itoa(m)
		for _, form := range []string{ascii, width.Widen.String(ascii), kanjiNumerals[m-1]} {
			text := form + Unit
			p.labels = append(p.labels, label{text: text, month: m})
			p.exact[text] = m
		}
	}
	sort.SliceStable(p.labels, func(i, j int) bool {
		return len(p.labels[i].text) > len(p.labels[j].text)
	})
	return p
}

// Year returns the reference year.
func (p *Parser) Year() int {
	return p.year
}

// Parse returns the month named by text.
func (p *Parser) Parse(text string) (Canonical, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if s == "" {
		return Canonical{}, fmt.Errorf("%w: empty text", ErrUnresolved)
	}

	if c, ok := p.canonical(s); ok {
		return c, nil
	}

	if m, ok := p.exact[s]; ok {
		return New(p.year, m)
	}
	if m, ok := p.contained(s); ok {
		return New(p.year, m)
	}

	narrow := width.Narrow.String(s)
	if stem, ok := strings.CutSuffix(narrow, Unit); ok && isDigits(stem) {
		if n, err := strconv.Atoi(stem); err == nil {
			return New(p.year, n)
		}
	}
	if isDigits(narrow) {
		n, err := strconv.Atoi(narrow)
		if err != nil {
			return Canonical{}, fmt.Errorf("%w: %q", ErrUnresolved, text)
		}
		return New(p.year, n)
	}
	if tenCorrections[strings.TrimSuffix(narrow, Unit)] {
		return New(p.year, 10)
	}
	return Canonical{}, fmt.Errorf("%w: %q", ErrUnresolved, text)
}

// canonical accepts text already in YYYY-MM form.
func (p *Parser) canonical(s string) (Canonical, bool) {
	if len(s) != 7 || s[4] != '-' || !isDigits(s[:4]) || !isDigits(s[5:]) {
		return Canonical{}, false
	}
	year, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[5:])
	c, err := New(year, m)
	return c, err == nil
}

// contained finds the longest label inside s that is not the tail of a
// longer number, so "13月" does not read as March.
func (p *Parser) contained(s string) (int, bool) {
	for _, l := range p.labels {
		i := strings.Index(s, l.text)
		for i >= 0 {
			if i == 0 || !isNumeral(lastRune(s[:i])) {
				return l.month, true
			}
			next := strings.Index(s[i+1:], l.text)
			if next < 0 {
				break
			}
			i += 1 + next
		}
	}
	return 0, false
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

func isNumeral(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	for _, k := range kanjiNumerals[:10] {
		if string(r) == k {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
