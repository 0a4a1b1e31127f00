// Package mail composes registration notifications and delivers them to
// the configured SMTP relay.
package mail

import "strings"

// Attachment references an uploaded document by its spooled location. A
// blank ContentType falls back to application/octet-stream when rendered,
// leaving the real type for the recipient client to infer.
type Attachment struct {
	Filename    string
	Path        string
	ContentType string
}

// Message is a fully composed notification. It is built once, before
// dispatch, and never mutated afterward.
type Message struct {
	From        string
	FromName    string
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Config carries the operator-supplied sender and recipient addresses.
type Config struct {
	FromAddress string
	ToAddress   string
}

const (
	fromDisplayName = "Business Registration"
	subjectPrefix   = "New Business Registration: "
	unknownBusiness = "Unknown"
	bodyPreamble    = "A new business registration was submitted:"
)

// Compose builds the notification from the canonical field lines and the
// collected attachments. The subject falls back to "Unknown" when no
// business name was submitted.
func Compose(cfg Config, businessName string, lines []string, attachments []Attachment) Message {
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = unknownBusiness
	}

	var body strings.Builder
	body.WriteString(bodyPreamble)
	body.WriteString("\n\n")
	body.WriteString(strings.Join(lines, "\n"))
	body.WriteString("\n")

	return Message{
		From:        cfg.FromAddress,
		FromName:    fromDisplayName,
		To:          cfg.ToAddress,
		Subject:     subjectPrefix + name,
		Body:        body.String(),
		Attachments: attachments,
	}
}
