package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// TaskIDList parses the pendingTasks body field from any of three shapes:
// a JSON array, a JSON-encoded string holding an array, or a
// comma-separated string. Anything unparseable degrades to empty, never an
// error.
type TaskIDList []string

func (l *TaskIDList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case []any:
		*l = stringify(v)
	case string:
		var nested any
		if err := json.Unmarshal([]byte(v), &nested); err == nil {
			arr, ok := nested.([]any)
			if !ok {
				*l = nil
				return nil
			}
			*l = stringify(arr)
			return nil
		}
		var ids TaskIDList
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				ids = append(ids, part)
			}
		}
		*l = ids
	default:
		*l = nil
	}
	return nil
}

func stringify(items []any) TaskIDList {
	ids := make(TaskIDList, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			ids = append(ids, v)
		case float64:
			ids = append(ids, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			ids = append(ids, fmt.Sprint(v))
		}
	}
	return ids
}

// UserRequest is the JSON body for POST /users and PUT /users/:id.
// pendingTasks only matters on update; create always starts empty.
type UserRequest struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PendingTasks TaskIDList `json:"pendingTasks"`
}

// UserResponse is the wire form of a user document.
type UserResponse struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PendingTasks []string `json:"pendingTasks"`
}
