// Calendar dates are carried as literal ISO strings ("YYYY-MM-DD"), never as
// time.Time: a generated obligation may land on day 31 of a 30-day month and
// the literal string must survive without clamping or rollover. Month identity
// is the 7-character "YYYY-MM" prefix.
package core

import (
	"fmt"
	"strconv"
	"time"
)

// MonthKey returns the month identity string for a year/month pair.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// DateString builds a zero-padded ISO date string without calendar
// normalization.
func DateString(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// ValidDateString reports whether s has the "YYYY-MM-DD" shape with month
// 1-12 and day 1-31. Day overflow against the month length is allowed.
func ValidDateString(s string) bool {
	_, m, d, ok := SplitDate(s)
	return ok && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// ValidMonthKey reports whether s has the "YYYY-MM" shape with month 1-12.
func ValidMonthKey(s string) bool {
	_, m, ok := SplitMonthKey(s)
	return ok && m >= 1 && m <= 12
}

// SplitDate parses a "YYYY-MM-DD" string into its numeric parts.
func SplitDate(s string) (year, month, day int, ok bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, false
	}
	year, errY := strconv.Atoi(s[:4])
	month, errM := strconv.Atoi(s[5:7])
	day, errD := strconv.Atoi(s[8:])
	if errY != nil || errM != nil || errD != nil {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// SplitMonthKey parses a "YYYY-MM" string into year and month.
func SplitMonthKey(s string) (year, month int, ok bool) {
	if len(s) != 7 || s[4] != '-' {
		return 0, 0, false
	}
	year, errY := strconv.Atoi(s[:4])
	month, errM := strconv.Atoi(s[5:])
	if errY != nil || errM != nil {
		return 0, 0, false
	}
	return year, month, true
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// InMonth reports whether an ISO date string falls in the given month,
// matched on the month-identity prefix.
func InMonth(date string, year, month int) bool {
	return len(date) >= 7 && date[:7] == MonthKey(year, month)
}
