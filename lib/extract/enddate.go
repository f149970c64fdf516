package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"carpulse-backend/lib/timezone"
)

var (
	relDaysHours   = regexp.MustCompile(`(?i)ends in\s+(\d+)\s+days?(?:,\s*(\d+)\s+hours?)?`)
	relHoursMins   = regexp.MustCompile(`(?i)ends in\s+(\d+)\s+hours?(?:,\s*(\d+)\s+minutes?)?`)
	relMinutes     = regexp.MustCompile(`(?i)ends in\s+(\d+)\s+minutes?`)
	absoluteEnding = regexp.MustCompile(`(?i)(?:ended|sold on|ends)\s+([A-Za-z]+ \d{1,2}, \d{4})`)
	// "Sold for $61,500 on 3/4/25"
	numericEnding = regexp.MustCompile(`(?i)(?:sold|ended|ends).*?\bon\s+(\d{1,2})/(\d{1,2})/(\d{2,4})`)
)

// ParseEndDate recognizes both relative countdowns ("Ends in 2 days, 3
// hours") and absolute phrasings ("Ended March 26, 2025"). Relative
// conversions are snapshots anchored on `now`; the result does not keep
// counting down, so never serve a stale cached value as live.
func ParseEndDate(text string, now time.Time) (time.Time, bool) {
	if groups := relDaysHours.FindStringSubmatch(text); groups != nil {
		days, _ := strconv.Atoi(groups[1])
		hours := 0
		if groups[2] != "" {
			hours, _ = strconv.Atoi(groups[2])
		}
		return now.Add(time.Duration(days)*24*time.Hour + time.Duration(hours)*time.Hour), true
	}

	if groups := relHoursMins.FindStringSubmatch(text); groups != nil {
		hours, _ := strconv.Atoi(groups[1])
		minutes := 0
		if groups[2] != "" {
			minutes, _ = strconv.Atoi(groups[2])
		}
		return now.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), true
	}

	if groups := relMinutes.FindStringSubmatch(text); groups != nil {
		minutes, _ := strconv.Atoi(groups[1])
		return now.Add(time.Duration(minutes) * time.Minute), true
	}

	if groups := absoluteEnding.FindStringSubmatch(text); groups != nil {
		parsed, err := time.ParseInLocation("January 2, 2006", normalizeMonth(groups[1]), timezone.Location)
		if err == nil {
			return parsed, true
		}
	}

	if groups := numericEnding.FindStringSubmatch(text); groups != nil {
		month, _ := strconv.Atoi(groups[1])
		day, _ := strconv.Atoi(groups[2])
		year, _ := strconv.Atoi(groups[3])
		if year < 100 {
			year += 2000
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, timezone.Location), true
		}
	}

	return time.Time{}, false
}

// sources abbreviate months inconsistently ("Mar 26, 2025")
func normalizeMonth(date string) string {
	fields := strings.Fields(date)
	if len(fields) == 0 {
		return date
	}
	for month := time.January; month <= time.December; month++ {
		name := month.String()
		if strings.EqualFold(fields[0], name) || strings.EqualFold(fields[0], name[:3]) {
			fields[0] = name
			return strings.Join(fields, " ")
		}
	}
	return date
}
