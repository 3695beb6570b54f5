package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/c360studio/expense-tracker/store"
)

// decodeMessage turns a full-format Gmail message into a raw email row.
// The first text/plain part wins; when none exists the first text/html
// part is converted to text and also kept verbatim as body_html.
func decodeMessage(msg *gmailapi.Message, conv *htmlConverter) store.RawEmail {
	email := store.RawEmail{
		MessageID: msg.Id,
		FetchedAt: time.Now().UTC(),
	}

	if msg.Payload != nil {
		email.From = header(msg.Payload, "From")
		email.Subject = header(msg.Payload, "Subject")
		email.Date = parseDate(header(msg.Payload, "Date"), msg.InternalDate)

		plain := firstPart(msg.Payload, "text/plain")
		htmlBody := firstPart(msg.Payload, "text/html")
		if plain != "" {
			email.BodyText = plain
			email.BodyHTML = htmlBody
		} else if htmlBody != "" {
			email.BodyText = conv.ToText(htmlBody)
			email.BodyHTML = htmlBody
		}
	}

	if email.BodyText == "" && msg.Snippet != "" {
		email.BodyText = msg.Snippet
	}

	return email
}

// header returns a named header from the payload, empty when absent.
func header(payload *gmailapi.MessagePart, name string) string {
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// firstPart walks the MIME tree depth-first and returns the decoded body
// of the first part with the given media type.
func firstPart(part *gmailapi.MessagePart, mimeType string) string {
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, child := range part.Parts {
		if body := firstPart(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodeBody decodes the base64url body data. Gmail omits padding; some
// intermediaries add it back, so both alphabets are tried.
func decodeBody(data string) string {
	if raw, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(raw)
	}
	if raw, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(raw)
	}
	return ""
}

// parseDate parses the Date header, falling back to the provider's
// internal receive time (milliseconds since epoch).
func parseDate(dateHeader string, internalMs int64) time.Time {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t.UTC()
		}
		for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
			if t, err := time.Parse(layout, dateHeader); err == nil {
				return t.UTC()
			}
		}
	}
	if internalMs > 0 {
		return time.UnixMilli(internalMs).UTC()
	}
	return time.Now().UTC()
}

// fromAddress extracts the bare address from a From header value.
func fromAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(from))
}
