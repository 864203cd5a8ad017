package notifications

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Notification struct {
	ID         string          `json:"id"`
	Kind       string          `json:"type"`
	EmployeeID string          `json:"employeeId,omitempty"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	ReadAt     *time.Time      `json:"readAt,omitempty"`
}

func render(kind string, fields map[string]any) (string, string) {
	tpl, ok := templates[kind]
	if !ok {
		return kind, ""
	}
	body := tpl.body
	for key, value := range fields {
		body = strings.ReplaceAll(body, "{"+key+"}", fmt.Sprint(value))
	}
	return tpl.title, body
}
