package availability

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

var localizedDatePattern = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)

// ExtractDate normalizes a raw date cell to "YYYY-MM-DD".
//
// Text is matched against the localized "YYYY年M月D日" pattern anywhere in the
// string; typed dates use their calendar fields in loc (or their own location
// when loc is nil). Anything else is unparseable and reported with ok=false.
func ExtractDate(raw any, loc *time.Location) (string, bool) {
	switch v := raw.(type) {
	case string:
		return extractFromText(v)
	case *string:
		if v == nil {
			return "", false
		}
		return extractFromText(*v)
	case time.Time:
		return extractFromTime(v, loc)
	case *time.Time:
		if v == nil {
			return "", false
		}
		return extractFromTime(*v, loc)
	default:
		return "", false
	}
}

func extractFromText(s string) (string, bool) {
	m := localizedDatePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	day, err := strconv.Atoi(m[3])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day), true
}

func extractFromTime(t time.Time, loc *time.Location) (string, bool) {
	if t.IsZero() {
		return "", false
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02"), true
}

// CountByDate builds a fresh index from rows. Rows whose date cannot be
// extracted are skipped.
func CountByDate(rows []Row, loc *time.Location) (CountIndex, int) {
	index := make(CountIndex)
	skipped := 0
	for _, row := range rows {
		if row.Date == nil {
			skipped++
			continue
		}
		date, ok := ExtractDate(row.Date, loc)
		if !ok {
			skipped++
			continue
		}
		index[date]++
	}
	return index, skipped
}

// FullyBooked returns the dates whose count is at or above threshold, sorted
// ascending.
func FullyBooked(index CountIndex, threshold int) []string {
	dates := make([]string, 0)
	for date, count := range index {
		if count >= threshold {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}
