package dto

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Deadline parses the deadline body field from either an epoch in
// milliseconds (JSON number, or a numeric string) or a datetime string.
// Date-only is stored as start of that day in UTC.
type Deadline struct{ t *time.Time }

func (d *Deadline) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		d.t = nil
		return nil
	case float64:
		// Zero is falsy for the clients this mirrors, so it means unset
		// rather than the 1970 epoch.
		if v == 0 {
			d.t = nil
			return nil
		}
		ts := time.UnixMilli(int64(v)).UTC()
		d.t = &ts
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			d.t = nil
			return nil
		}
		// Numeric strings are epoch millis too, matching the permissive
		// number-first coercion of the original clients.
		if ms, err := strconv.ParseFloat(s, 64); err == nil && ms != 0 {
			ts := time.UnixMilli(int64(ms)).UTC()
			d.t = &ts
			return nil
		}
		return d.parseLayouts(s)
	default:
		d.t = nil
		return nil
	}
}

func (d *Deadline) parseLayouts(s string) error {
	layouts := []string{
		"2006-01-02",     // date only
		time.RFC3339,     // 2006-01-02T15:04:05Z07:00
		time.RFC3339Nano, // with nanoseconds
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			// If it was date-only (no time component), use start of day UTC
			if layout == "2006-01-02" {
				parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			}
			d.t = &parsed
			return nil
		}
	}
	d.t = nil
	return nil
}

// Ptr returns *time.Time for use in service/domain.
func (d Deadline) Ptr() *time.Time { return d.t }

// Completed parses the completed body field as a boolean or as the
// case-insensitive string "true"; every other shape means false.
type Completed bool

func (c *Completed) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*c = Completed(v)
	case string:
		*c = Completed(strings.EqualFold(strings.TrimSpace(v), "true"))
	default:
		*c = false
	}
	return nil
}

// TaskRequest is the JSON body for POST /tasks and PUT /tasks/:id.
// Required-field rules differ between the two and live in the service.
type TaskRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Deadline     Deadline  `json:"deadline"`
	Completed    Completed `json:"completed"`
	AssignedUser string    `json:"assignedUser"`
}

// TaskResponse is the wire form of a task document.
type TaskResponse struct {
	ID               string     `json:"_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Deadline         *time.Time `json:"deadline"`
	Completed        bool       `json:"completed"`
	AssignedUser     string     `json:"assignedUser"`
	AssignedUserName string     `json:"assignedUserName"`
}
