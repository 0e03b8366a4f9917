package mail

import "time"

// Message is a retrieved mail message
type Message struct {
	UID       uint32    `json:"uid"`
	MessageID string    `json:"message_id,omitempty"`
	From      []string  `json:"from"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Date      time.Time `json:"date"`
	Seen      bool      `json:"seen"`
}

// Envelope is an outgoing message
type Envelope struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	HTML    bool     `json:"html"`
}
