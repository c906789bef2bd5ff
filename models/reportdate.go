package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReportDate wraps time.Time so we can control both JSON un/marshaling and
// SQL driver encoding for the date formats field loggers actually write.
type ReportDate time.Time

// reportDateLayouts are tried in order. Field reports carry dotted or slashed
// day-first dates; API clients send ISO dates.
var reportDateLayouts = []string{
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	time.RFC3339,
}

// ParseReportDate parses a date string from a report header. Returns nil for
// empty or unreadable values — a bad date is a review finding, not an error.
func ParseReportDate(s string) *ReportDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := ReportDate(t)
			return &d
		}
	}
	return nil
}

func (d *ReportDate) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		return nil
	}
	if parsed := ParseReportDate(s); parsed != nil {
		*d = *parsed
		return nil
	}
	return fmt.Errorf("ReportDate.UnmarshalJSON: cannot parse %q", s)
}

// MarshalJSON always emits the ISO date form.
func (d ReportDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format("2006-01-02"))
}

// Value implements driver.Valuer so GORM can bind ReportDate as a DATE.
func (d ReportDate) Value() (driver.Value, error) {
	return time.Time(d), nil
}

// Scan implements sql.Scanner.
func (d *ReportDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = ReportDate(v)
		return nil
	case []byte:
		if parsed := ParseReportDate(string(v)); parsed != nil {
			*d = *parsed
			return nil
		}
	case string:
		if parsed := ParseReportDate(v); parsed != nil {
			*d = *parsed
			return nil
		}
	}
	return fmt.Errorf("ReportDate.Scan: unsupported value %v", value)
}
