package handlers

import (
	"encoding/json"

	"tasktrack/internal/dto"
	"tasktrack/internal/query"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dto.Envelope{Message: message, Data: data})
}

// projectDoc renders v through its JSON form and applies a Mongo-style
// include/exclude projection. With no projection v is returned unchanged.
func projectDoc(proj map[string]any, v any) any {
	if len(proj) == 0 {
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return v
	}
	return query.ApplyProjection(proj, m)
}

func projectDocs[T any](proj map[string]any, items []T) []any {
	out := make([]any, len(items))
	for i := range items {
		out[i] = projectDoc(proj, items[i])
	}
	return out
}
