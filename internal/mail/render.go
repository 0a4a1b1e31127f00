package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
)

const mimeBoundary = "RegistrationRelayBoundary"

// Bytes renders the message as an RFC 2045 payload: plain text when there
// are no attachments, multipart/mixed with base64-encoded file parts
// otherwise. Attachment content is streamed from the spooled temp files.
func (m Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %q <%s>\r\n", sanitizeHeader(m.FromName), m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", sanitizeHeader(m.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(m.Attachments) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(m.Body)
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mimeBoundary)
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(m.Body)
	buf.WriteString("\r\n")

	for _, attachment := range m.Attachments {
		if err := writeAttachment(&buf, attachment); err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(&buf, "--%s--", mimeBoundary)
	return buf.Bytes(), nil
}

func writeAttachment(buf *bytes.Buffer, attachment Attachment) error {
	file, err := os.Open(attachment.Path)
	if err != nil {
		return fmt.Errorf("open attachment %s: %w", attachment.Filename, err)
	}
	defer file.Close()

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fmt.Fprintf(buf, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(buf, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(buf, "Content-Disposition: attachment; filename=%q\r\n", sanitizeHeader(attachment.Filename))
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("\r\n")

	encoder := base64.NewEncoder(base64.StdEncoding, &lineWrapper{dst: buf})
	if _, err := io.Copy(encoder, file); err != nil {
		return fmt.Errorf("encode attachment %s: %w", attachment.Filename, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encode attachment %s: %w", attachment.Filename, err)
	}
	buf.WriteString("\r\n")
	return nil
}

// lineWrapper folds base64 output at 76 columns per RFC 2045.
type lineWrapper struct {
	dst     *bytes.Buffer
	written int
}

func (w *lineWrapper) Write(p []byte) (int, error) {
	const maxLine = 76
	for _, b := range p {
		if w.written == maxLine {
			w.dst.WriteString("\r\n")
			w.written = 0
		}
		w.dst.WriteByte(b)
		w.written++
	}
	return len(p), nil
}

// sanitizeHeader strips CR, LF, and other control characters so uploaded
// filenames cannot inject additional headers.
func sanitizeHeader(value string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
}
