// Package gcal reads calendar events from the Google Calendar API and
// overlays them onto another source.Directory.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/linnemanlabs/sift/internal/source"
)

// Client fetches events from one named Google calendar.
type Client struct {
	srv        *calendar.Service
	calendarID string
}

// New builds a Client from an OAuth credentials file and a previously
// obtained token file, then resolves the calendar ID by its display name.
func New(ctx context.Context, credentialsFile, tokenFile, calendarName string) (*Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", credentialsFile, err)
	}
	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file %s: %w", tokenFile, err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	var calendarID string
	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			calendarID = item.Id
			break
		}
	}
	if calendarID == "" {
		return nil, fmt.Errorf("calendar %q not found", calendarName)
	}

	return &Client{srv: srv, calendarID: calendarID}, nil
}

// Events fetches single events starting inside [from, to), soonest first.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]source.CalendarEvent, error) {
	resp, err := c.srv.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var out []source.CalendarEvent
	for _, item := range resp.Items {
		e, ok, err := MapEvent(item)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// MapEvent converts an API event to a source record. All-day events carry a
// date instead of a datetime and are skipped.
func MapEvent(item *calendar.Event) (source.CalendarEvent, bool, error) {
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return source.CalendarEvent{}, false, nil
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return source.CalendarEvent{}, false, fmt.Errorf("parse event %s start: %w", item.Id, err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return source.CalendarEvent{}, false, fmt.Errorf("parse event %s end: %w", item.Id, err)
	}

	e := source.CalendarEvent{
		ID:       item.Id,
		Title:    item.Summary,
		Location: item.Location,
		StartAt:  start,
		EndAt:    end,
	}
	if item.Created != "" {
		if created, err := time.Parse(time.RFC3339, item.Created); err == nil {
			e.CreatedAt = created
		}
	}
	return e, true, nil
}

// Directory overlays Google calendar events onto another Directory. All other
// record kinds pass through to the inner Directory.
type Directory struct {
	source.Directory
	client *Client
}

// Wrap returns a Directory whose CalendarEvents come from Google.
func Wrap(inner source.Directory, c *Client) *Directory {
	return &Directory{Directory: inner, client: c}
}

// CalendarEvents fetches events from the Google calendar. The owner is
// ignored: the client is bound to one calendar.
func (d *Directory) CalendarEvents(ctx context.Context, _ string, from, to time.Time) ([]source.CalendarEvent, error) {
	return d.client.Events(ctx, from, to)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}
