// Package mailer talks to the email relay: the wire format both sides
// share, a JSON client, template rendering and the order notifications.
package mailer

import (
	"encoding/json"
	"fmt"
	"time"
)

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment is fetched from URL, or decoded from base64 Content.
type Attachment struct {
	URL      string `json:"url,omitempty"`
	Content  string `json:"content,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
}

// Recipients accepts either a single address or a list.
type Recipients []string

func (r *Recipients) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*r = nil
			return nil
		}
		*r = Recipients{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("to must be a string or a list of strings")
	}
	*r = many
	return nil
}

type Message struct {
	To          Recipients   `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent,omitempty"`
	TextContent string       `json:"textContent,omitempty"`
	From        *Address     `json:"from,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type SendResult struct {
	MessageID string    `json:"messageId"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sentAt"`
	Attempts  int       `json:"attempts"`
}

// Response is the relay's reply envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *SendResult `json:"data,omitempty"`
}
