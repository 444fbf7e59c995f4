// Package period models the (month, year) label identifying one earnings
// cycle's transcript, and the heuristics that recover it from page labels,
// document locations, and filenames.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var fullMonthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Fiscal quarters map to their calendar end month: Q1=Apr-Jun, Q2=Jul-Sep,
// Q3=Oct-Dec, Q4=Jan-Mar.
var quarterEndMonth = map[int]string{1: "Jun", 2: "Sep", 3: "Dec", 4: "Mar"}

var (
	labelRe    = regexp.MustCompile(`^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{4})$`)
	locationRe = regexp.MustCompile(`(\d{4})[/-](\d{2})[/-](\d{2})`)
	filenameRe = regexp.MustCompile(`(\d{4})[-_](\d{2})[-_](\d{2})`)
	yearRe     = regexp.MustCompile(`20(1[5-9]|2[0-6])`)
	quarterRe  = regexp.MustCompile(`q([1-4])`)
)

// Period identifies one earnings cycle. Month is a three-letter English label
// ("Jan".."Dec") or "Unknown"; Year is the calendar year or zero when
// unresolved.
type Period struct {
	Month string
	Year  int
}

// Unknown is the zero-value period for unresolved documents.
var Unknown = Period{Month: "Unknown"}

// IsZero reports whether the period carries no usable date at all.
func (p Period) IsZero() bool {
	return p.Year == 0 && (p.Month == "" || p.Month == "Unknown")
}

// Resolved reports whether both month and year were recovered.
func (p Period) Resolved() bool {
	return p.Year != 0 && p.MonthNumber() != 0
}

// Key renders the canonical ledger/result key half, e.g. "Jan 2024". Partially
// resolved periods keep what they have ("Unknown 2021") so distinct documents
// do not collapse onto one key.
func (p Period) Key() string {
	if p.IsZero() {
		return "Unknown"
	}
	month := p.Month
	if month == "" {
		month = "Unknown"
	}
	if p.Year == 0 {
		return month
	}
	return fmt.Sprintf("%s %d", month, p.Year)
}

func (p Period) String() string { return p.Key() }

// MonthNumber returns 1..12, or 0 for unresolved months.
func (p Period) MonthNumber() int {
	for i, name := range monthNames {
		if name == p.Month {
			return i + 1
		}
	}
	return 0
}

// SortKey orders periods chronologically; higher is more recent.
func (p Period) SortKey() int {
	return p.Year*100 + p.MonthNumber()
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Period, bool) {
	return ParseLabel(key)
}

// ParseLabel parses a "Mon YYYY" shaped label, as found in the text preceding
// transcript links on an entity's document index page.
func ParseLabel(text string) (Period, bool) {
	m := labelRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Unknown, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return Unknown, false
	}
	return Period{Month: m[1], Year: year}, true
}

// FromLocation extracts a period from a YYYY-MM-DD or YYYY/MM/DD shaped
// substring of a document URL or path.
func FromLocation(location string) (Period, bool) {
	m := locationRe.FindStringSubmatch(location)
	if m == nil {
		return Unknown, false
	}
	year, _ := strconv.Atoi(m[1])
	monthNum, _ := strconv.Atoi(m[2])
	if monthNum < 1 || monthNum > 12 {
		return Unknown, false
	}
	return Period{Month: monthNames[monthNum-1], Year: year}, true
}

// FromFilename infers a period from a transcript filename. Priority order:
// full month name, abbreviated month name, YYYY-MM-DD date pattern, fiscal
// quarter code. fallbackYear fills in when the filename yields no year
// (typically the enclosing year folder).
func FromFilename(filename string, fallbackYear int) Period {
	fn := strings.ToLower(filename)

	month := ""
	for i, full := range fullMonthNames {
		if strings.Contains(fn, full) {
			month = monthNames[i]
			break
		}
	}
	if month == "" {
		for _, abbr := range monthNames {
			if strings.Contains(fn, strings.ToLower(abbr)) {
				month = abbr
				break
			}
		}
	}

	year := 0
	if m := yearRe.FindString(fn); m != "" {
		year, _ = strconv.Atoi(m)
	}

	if month == "" && year != 0 {
		if m := filenameRe.FindStringSubmatch(fn); m != nil {
			monthNum, _ := strconv.Atoi(m[2])
			if monthNum >= 1 && monthNum <= 12 {
				month = monthNames[monthNum-1]
			}
		}
	}

	if month == "" {
		if m := quarterRe.FindStringSubmatch(fn); m != nil {
			quarter, _ := strconv.Atoi(m[1])
			month = quarterEndMonth[quarter]
		}
	}

	if year == 0 {
		year = fallbackYear
	}
	if month == "" {
		month = "Unknown"
	}
	return Period{Month: month, Year: year}
}
