// Package portal is a thin client for the ADP WorkforceNow timekeeping
// portal. It logs in with the user's portal credentials, scrapes today's
// timesheet from the web application page, and can send clock-in/out
// requests. The markup is treated as opaque beyond the handful of elements
// scraped here; any structural change surfaces as a ParseError.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/luejerry/autoclocker/internal/timecalc"
)

const (
	myTimePath = "/ezLaborManagerNet/UI4/WFN/Portlet/MyTime.aspx"
	loginPath  = "/siteminderagent/forms/login.fcc"
	clockPath  = "/ezLaborManagerNet/UI4/Common/TLMRevitServices.asmx/ProcessClockFunctionAndReturnMsg"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Session holds the portal identifiers scraped from an authenticated page.
// The authentication cookies themselves live in the client's cookie jar.
type Session struct {
	CustID string
	EmpID  string
}

func New(baseURL string, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		log: log,
	}, nil
}

// Login authenticates with the portal. The portal answers a bad login with a
// login page rather than an error status, so failure is detected by the
// absence of the scraped IDs.
func (c *Client) Login(ctx context.Context, user, password string) (*Session, error) {
	form := url.Values{
		"target":   {c.baseURL + myTimePath},
		"USER":     {user},
		"PASSWORD": {password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug().Str("user", user).Msg("logging in to portal")
	page, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("portal login: %w", err)
	}

	custID, empID, err := parseIDs(page)
	if err != nil {
		return nil, ErrInvalidLogin
	}
	c.log.Debug().Str("custID", custID).Msg("portal login ok")
	return &Session{CustID: custID, EmpID: empID}, nil
}

// Day is today's timesheet as scraped from the portal, along with the
// server's idea of the current time.
type Day struct {
	Intervals []timecalc.Interval
	ServerNow time.Time
}

// FetchToday re-fetches the web application page and scrapes today's shift
// intervals. Returns ErrSessionExpired if the portal bounced the session back
// to the login page.
func (c *Client) FetchToday(ctx context.Context, sess *Session) (*Day, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+myTimePath, nil)
	if err != nil {
		return nil, err
	}
	page, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("portal fetch: %w", err)
	}
	day, err := parseDay(page)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Int("intervals", len(day.Intervals)).
		Time("serverNow", day.ServerNow).
		Msg("fetched today's timesheet")
	return day, nil
}

// ClockIn punches the user in on the portal.
func (c *Client) ClockIn(ctx context.Context, sess *Session) error {
	return c.clock(ctx, sess, "IN")
}

// ClockOut punches the user out on the portal.
func (c *Client) ClockOut(ctx context.Context, sess *Session) error {
	return c.clock(ctx, sess, "OUT")
}

func (c *Client) clock(ctx context.Context, sess *Session, event string) error {
	payload, err := json.Marshal(map[string]string{
		"iCustID":     sess.CustID,
		"sEmployeeID": sess.EmpID,
		"sEvent":      event,
		"sCulture":    "en-US",
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+clockPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("event", event).Msg("sending clock request")
	body, err := c.do(req)
	if err != nil {
		return fmt.Errorf("portal clock %s: %w", event, err)
	}
	if !strings.Contains(body, "Operation Successful") {
		return &ParseError{
			Message: fmt.Sprintf("portal did not confirm clock %s", event),
			Snippet: snippet(body),
		}
	}
	return nil
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
