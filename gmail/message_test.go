package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecodeMessagePrefersPlainText(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "msg-1",
		InternalDate: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "HDFC Bank <alerts@hdfcbank.net>"},
				{Name: "Subject", Value: "Transaction alert"},
				{Name: "Date", Value: "Tue, 01 Jul 2025 15:30:00 +0530"},
			},
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: b64("Rs. 500.00 debited from a/c **1234")},
				},
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: b64("<p>Rs. 500.00 debited</p>")},
				},
			},
		},
	}

	email := decodeMessage(msg, newHTMLConverter())

	assert.Equal(t, "msg-1", email.MessageID)
	assert.Equal(t, "HDFC Bank <alerts@hdfcbank.net>", email.From)
	assert.Equal(t, "Transaction alert", email.Subject)
	assert.Equal(t, "Rs. 500.00 debited from a/c **1234", email.BodyText)
	assert.Equal(t, "<p>Rs. 500.00 debited</p>", email.BodyHTML)
	assert.Equal(t, time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC), email.Date)
}

func TestDecodeMessageHTMLOnly(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-2",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/html",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "alerts@icicibank.com"},
				{Name: "Date", Value: "Tue, 01 Jul 2025 10:00:00 +0000"},
			},
			Body: &gmailapi.MessagePartBody{
				Data: b64("<html><body><p>INR 1,200.00 spent on your card</p></body></html>"),
			},
		},
	}

	email := decodeMessage(msg, newHTMLConverter())

	require.NotEmpty(t, email.BodyText)
	assert.Contains(t, email.BodyText, "INR 1,200.00 spent on your card")
	assert.Contains(t, email.BodyHTML, "<html>")
}

func TestDecodeMessageNestedParts(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-3",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmailapi.MessagePartBody{Data: b64("nested body")},
						},
					},
				},
			},
		},
	}

	email := decodeMessage(msg, newHTMLConverter())
	assert.Equal(t, "nested body", email.BodyText)
}

func TestDecodeMessageFallsBackToSnippet(t *testing.T) {
	msg := &gmailapi.Message{
		Id:      "msg-4",
		Snippet: "Rs. 250 debited",
		Payload: &gmailapi.MessagePart{MimeType: "text/plain"},
	}

	email := decodeMessage(msg, newHTMLConverter())
	assert.Equal(t, "Rs. 250 debited", email.BodyText)
}

func TestParseDate(t *testing.T) {
	internal := time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name   string
		header string
		want   time.Time
	}{
		{
			name:   "rfc5322 with zone offset",
			header: "Tue, 01 Jul 2025 15:30:00 +0530",
			want:   time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "unparseable header falls back to internal date",
			header: "not a date",
			want:   time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "missing header falls back to internal date",
			want: time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDate(tt.header, internal)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBodyHandlesPadding(t *testing.T) {
	assert.Equal(t, "hello", decodeBody(base64.RawURLEncoding.EncodeToString([]byte("hello"))))
	assert.Equal(t, "hell", decodeBody(base64.URLEncoding.EncodeToString([]byte("hell"))))
	assert.Equal(t, "", decodeBody("!!not base64!!"))
}

func TestFromAddress(t *testing.T) {
	assert.Equal(t, "alerts@hdfcbank.net", fromAddress("HDFC Bank <Alerts@hdfcbank.net>"))
	assert.Equal(t, "alerts@sbicard.com", fromAddress("alerts@sbicard.com"))
}
