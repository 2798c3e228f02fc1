package http

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// dateLayouts are accepted for startDate, endDate and the form date.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
}

type rangeQuery struct {
	UserID     string
	Start, End time.Time
}

// parseRangeQuery reads userId, startDate and endDate. Missing dates leave
// the range open on that side.
func parseRangeQuery(q url.Values) (rangeQuery, error) {
	rq := rangeQuery{UserID: sanitizeInput(q.Get("userId"))}
	var err error
	if rq.Start, err = parseDate(q.Get("startDate")); err != nil {
		return rq, err
	}
	if rq.End, err = parseDate(q.Get("endDate")); err != nil {
		return rq, err
	}
	if !rq.Start.IsZero() && !rq.End.IsZero() && rq.End.Before(rq.Start) {
		return rq, fmt.Errorf("endDate before startDate")
	}
	return rq, nil
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

var (
	spreadsheetPathRe  = regexp.MustCompile(`^/spreadsheets/d/([A-Za-z0-9_-]+)`)
	errInvalidSheetURL = errors.New("invalid Google Sheets URL")
)

// spreadsheetIDFromURL extracts the id from a
// https://docs.google.com/spreadsheets/d/{id}/... link.
func spreadsheetIDFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host != "docs.google.com" {
		return "", errInvalidSheetURL
	}
	m := spreadsheetPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", errInvalidSheetURL
	}
	return m[1], nil
}
