package portal

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/luejerry/autoclocker/internal/timecalc"
)

var (
	custIDPattern     = regexp.MustCompile(`var _custID = '(\w*)'`)
	empIDPattern      = regexp.MustCompile(`var _employeeId = '(\w*)'`)
	serverTimePattern = regexp.MustCompile(`var sDate = ['"]([^'"]+)['"]`)
	clockInPattern    = regexp.MustCompile(`In(\d{2}/\d{2}/\d{4} \d{2}:\d{2} (?:AM|PM))`)
	clockOutPattern   = regexp.MustCompile(`Out(\d{2}/\d{2}/\d{4} \d{2}:\d{2} (?:AM|PM))`)
)

const (
	serverTimeLayout = "January 2, 2006 15:04:05"
	punchTimeLayout  = "01/02/2006 03:04 PM"
)

// parseIDs scrapes the customer (employer) and employee IDs from the web
// application page. These accompany every clock-in/out request.
func parseIDs(page string) (custID, empID string, err error) {
	custMatch := custIDPattern.FindStringSubmatch(page)
	empMatch := empIDPattern.FindStringSubmatch(page)
	if custMatch == nil || empMatch == nil {
		return "", "", &ParseError{
			Message: "customer or employee ID not found on page",
			Snippet: snippet(page),
		}
	}
	return custMatch[1], empMatch[1], nil
}

// parseDay scrapes today's punches and the server time from the web
// application page. Punch times are interpreted in the machine-local zone,
// same as the portal displays them.
func parseDay(page string) (*Day, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, &ParseError{Message: "page is not parseable HTML", Snippet: snippet(page)}
	}

	activities := doc.Find("#divActivities")
	if activities.Length() == 0 || activities.Children().Length() == 0 {
		if doc.Find("#mainLoginWrapper").Length() > 0 {
			return nil, ErrSessionExpired
		}
		return nil, &ParseError{
			Message: "timesheet section not found; login may be incorrect",
			Snippet: snippet(page),
		}
	}

	timeMatch := serverTimePattern.FindStringSubmatch(page)
	if timeMatch == nil {
		return nil, &ParseError{
			Message: "server time not found; the portal application may have changed",
			Snippet: snippet(page),
		}
	}
	serverNow, err := time.ParseInLocation(serverTimeLayout, timeMatch[1], time.Local)
	if err != nil {
		return nil, &ParseError{Message: "unparseable server time: " + timeMatch[1]}
	}

	activitiesText := activities.Children().First().Text()
	ins, err := parsePunches(clockInPattern, activitiesText)
	if err != nil {
		return nil, err
	}
	outs, err := parsePunches(clockOutPattern, activitiesText)
	if err != nil {
		return nil, err
	}

	intervals, err := pairPunches(ins, outs)
	if err != nil {
		return nil, err
	}
	return &Day{Intervals: intervals, ServerNow: serverNow}, nil
}

func parsePunches(pattern *regexp.Regexp, text string) ([]time.Time, error) {
	var punches []time.Time
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		t, err := time.ParseInLocation(punchTimeLayout, match[1], time.Local)
		if err != nil {
			return nil, &ParseError{Message: "unparseable punch time: " + match[1]}
		}
		punches = append(punches, t)
	}
	return punches, nil
}

// pairPunches zips clock-in and clock-out punches into intervals. One
// trailing unmatched clock-in is the shift still in progress.
func pairPunches(ins, outs []time.Time) ([]timecalc.Interval, error) {
	if len(outs) > len(ins) {
		return nil, &ParseError{Message: "more clock-outs than clock-ins on timesheet"}
	}
	if len(ins) > len(outs)+1 {
		return nil, &ParseError{Message: "multiple unmatched clock-ins on timesheet"}
	}
	intervals := make([]timecalc.Interval, 0, len(ins))
	for i, in := range ins {
		iv := timecalc.Interval{Start: in}
		if i < len(outs) {
			out := outs[i]
			iv.End = &out
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}
