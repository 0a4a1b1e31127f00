package mail

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jivahealth/registration-relay/internal/form"
)

func TestComposeSubjectAndBody(t *testing.T) {
	cfg := Config{FromAddress: "relay@example.com", ToAddress: "registrations@example.com"}
	lines := []string{"First Name: Ada", "Business Name: Acme Distribution"}

	message := Compose(cfg, "Acme Distribution", lines, nil)

	if message.Subject != "New Business Registration: Acme Distribution" {
		t.Fatalf("unexpected subject: %q", message.Subject)
	}
	want := "A new business registration was submitted:\n\nFirst Name: Ada\nBusiness Name: Acme Distribution\n"
	if message.Body != want {
		t.Fatalf("unexpected body:\ngot  %q\nwant %q", message.Body, want)
	}
	if message.From != cfg.FromAddress || message.To != cfg.ToAddress {
		t.Fatalf("unexpected addressing: from=%q to=%q", message.From, message.To)
	}
	if message.FromName != "Business Registration" {
		t.Fatalf("unexpected display name: %q", message.FromName)
	}
}

func TestComposeSubjectFallsBackToUnknown(t *testing.T) {
	for _, businessName := range []string{"", "   "} {
		message := Compose(Config{}, businessName, nil, nil)
		if message.Subject != "New Business Registration: Unknown" {
			t.Fatalf("expected Unknown fallback for %q, got %q", businessName, message.Subject)
		}
	}
}

func decodeSubmission(t *testing.T, build func(writer *multipart.Writer)) *form.Data {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	build(writer)
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, "/api/register", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())

	data, err := form.Decode(request, form.DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	t.Cleanup(func() { data.Cleanup() })
	return data
}

func writeUpload(t *testing.T, writer *multipart.Writer, field, filename, contentType string, payload []byte) {
	t.Helper()
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create upload part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write upload part: %v", err)
	}
}

func TestCollectAttachmentsKeepsFixedFieldOrder(t *testing.T) {
	data := decodeSubmission(t, func(writer *multipart.Writer) {
		writeUpload(t, writer, "gov_id", "id.jpg", "image/jpeg", []byte("img"))
		writeUpload(t, writer, "fein_license", "fein.pdf", "application/pdf", []byte("doc"))
	})

	attachments := CollectAttachments(data)
	if len(attachments) != 2 {
		t.Fatalf("expected two attachments, got %d", len(attachments))
	}
	if attachments[0].Filename != "fein.pdf" || attachments[1].Filename != "id.jpg" {
		t.Fatalf("expected fixed field ordering, got %v", attachments)
	}
}

func TestCollectAttachmentsIgnoresUnrecognizedFields(t *testing.T) {
	data := decodeSubmission(t, func(writer *multipart.Writer) {
		writeUpload(t, writer, "random_upload", "notes.pdf", "application/pdf", []byte("doc"))
	})

	if attachments := CollectAttachments(data); attachments != nil {
		t.Fatalf("expected unrecognized file field ignored, got %v", attachments)
	}
}

func TestCollectAttachmentsSupportsMultipleFilesPerField(t *testing.T) {
	data := decodeSubmission(t, func(writer *multipart.Writer) {
		writeUpload(t, writer, "state_tax_id", "front.png", "image/png", []byte("a"))
		writeUpload(t, writer, "state_tax_id", "back.png", "image/png", []byte("b"))
	})

	attachments := CollectAttachments(data)
	if len(attachments) != 2 || attachments[0].Filename != "front.png" || attachments[1].Filename != "back.png" {
		t.Fatalf("unexpected attachments: %v", attachments)
	}
}

func TestBytesWithoutAttachments(t *testing.T) {
	message := Compose(Config{FromAddress: "from@example.com", ToAddress: "to@example.com"}, "Acme", []string{"Email: a@b.c"}, nil)

	payload, err := message.Bytes()
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	rendered := string(payload)
	if !strings.Contains(rendered, "Content-Type: text/plain") {
		t.Fatalf("expected plain text content type")
	}
	if strings.Contains(rendered, "multipart/mixed") {
		t.Fatalf("did not expect multipart headers")
	}
	if !strings.Contains(rendered, `From: "Business Registration" <from@example.com>`) {
		t.Fatalf("expected display name in From header:\n%s", rendered)
	}
	if !strings.Contains(rendered, "Email: a@b.c") {
		t.Fatalf("expected body content")
	}
}

func TestBytesWithAttachments(t *testing.T) {
	content := []byte("hello world")
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	message := Compose(Config{FromAddress: "from@example.com", ToAddress: "to@example.com"}, "Acme", []string{"Email: a@b.c"}, []Attachment{
		{Filename: "data.txt", Path: path, ContentType: "text/plain"},
	})

	payload, err := message.Bytes()
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	rendered := string(payload)
	if !strings.Contains(rendered, "multipart/mixed") {
		t.Fatalf("expected multipart content type")
	}
	if !strings.Contains(rendered, `Content-Disposition: attachment; filename="data.txt"`) {
		t.Fatalf("expected content disposition header")
	}
	if !strings.Contains(rendered, "Content-Transfer-Encoding: base64") {
		t.Fatalf("expected base64 encoding header")
	}
	expectedPayload := base64.StdEncoding.EncodeToString(content)
	if !strings.Contains(rendered, expectedPayload) {
		t.Fatalf("expected base64 content in body")
	}
	if !strings.Contains(rendered, "--RegistrationRelayBoundary") {
		t.Fatalf("expected MIME boundary markers")
	}
	if !strings.HasSuffix(strings.TrimSpace(rendered), "--") {
		t.Fatalf("expected closing boundary terminator")
	}
}

func TestBytesDefaultsAttachmentContentType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan")
	if err := os.WriteFile(path, []byte("raw"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	message := Compose(Config{}, "Acme", nil, []Attachment{{Filename: "scan", Path: path}})
	payload, err := message.Bytes()
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !strings.Contains(string(payload), "Content-Type: application/octet-stream") {
		t.Fatalf("expected octet-stream fallback")
	}
}

func TestBytesStripsHeaderInjectionFromFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload")
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	injected := "invoice.pdf\r\nBcc:spam@example.com"
	message := Compose(Config{}, "Acme", nil, []Attachment{
		{Filename: injected, Path: path, ContentType: "application/pdf"},
	})

	payload, err := message.Bytes()
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	rendered := string(payload)
	if strings.Contains(rendered, "\r\nBcc:") || strings.Contains(rendered, "\nBcc:") {
		t.Fatalf("expected header injection attempt to be stripped")
	}
	if !strings.Contains(rendered, `filename="invoice.pdfBcc:spam@example.com"`) {
		t.Fatalf("expected sanitized filename without control characters")
	}
}

func TestBytesWrapsBase64Lines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 600), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	message := Compose(Config{}, "Acme", nil, []Attachment{{Filename: "big.bin", Path: path, ContentType: "application/pdf"}})
	payload, err := message.Bytes()
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	inAttachment := false
	for _, line := range strings.Split(string(payload), "\r\n") {
		if strings.HasPrefix(line, "Content-Transfer-Encoding") {
			inAttachment = true
			continue
		}
		if inAttachment && len(line) > 76 {
			t.Fatalf("base64 line exceeds 76 columns: %d", len(line))
		}
	}
}

func TestBytesFailsWhenAttachmentFileMissing(t *testing.T) {
	message := Compose(Config{}, "Acme", nil, []Attachment{
		{Filename: "gone.pdf", Path: filepath.Join(t.TempDir(), "missing"), ContentType: "application/pdf"},
	})
	if _, err := message.Bytes(); err == nil {
		t.Fatalf("expected error for missing attachment file")
	}
}
