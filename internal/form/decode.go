package form

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
)

const (
	// DefaultMaxFileBytes caps each uploaded file at 15 MiB.
	DefaultMaxFileBytes = 15 << 20
	// DefaultMaxFieldBytes caps each text field value.
	DefaultMaxFieldBytes = 1 << 20
)

var (
	ErrFileTooLarge  = errors.New("form: file exceeds size limit")
	ErrFieldTooLarge = errors.New("form: field exceeds size limit")
	ErrContentType   = errors.New("form: file content type not allowed")
)

// Limits bounds a single decode. AllowedTypes is a media-type allow-list
// for file parts; a part declaring no type is permitted.
type Limits struct {
	MaxFileBytes  int64
	MaxFieldBytes int64
	AllowedTypes  []string
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:  DefaultMaxFileBytes,
		MaxFieldBytes: DefaultMaxFieldBytes,
		AllowedTypes:  []string{"application/pdf", "image/jpeg", "image/png"},
	}
}

func (l Limits) typeAllowed(declared string) bool {
	if strings.TrimSpace(declared) == "" {
		// unknown type, permit
		return true
	}
	mediaType := normalizeType(declared)
	for _, allowed := range l.AllowedTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

func normalizeType(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mediaType
}

// Decode streams the request body into a Data. File parts are spooled to
// temp files as they arrive; the per-file size cap and the content-type
// allow-list are enforced per part, the latter before anything is written
// to disk. Any fault removes everything spooled so far and fails the whole
// decode - no partial submission survives.
func Decode(request *http.Request, limits Limits) (*Data, error) {
	reader, err := request.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("form: read multipart body: %w", err)
	}

	data := newData()
	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			data.Cleanup()
			return nil, fmt.Errorf("form: read multipart part: %w", nextErr)
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		if part.FileName() == "" {
			value, fieldErr := readFieldValue(part, limits.MaxFieldBytes)
			part.Close()
			if fieldErr != nil {
				data.Cleanup()
				return nil, fieldErr
			}
			data.addField(name, value)
			continue
		}

		filePart, fileErr := spoolFilePart(part, limits)
		part.Close()
		if fileErr != nil {
			data.Cleanup()
			return nil, fileErr
		}
		data.addFile(name, filePart)
	}
	return data, nil
}

func readFieldValue(part io.Reader, maxBytes int64) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("form: read field: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return "", ErrFieldTooLarge
	}
	return string(raw), nil
}

func spoolFilePart(part *multipart.Part, limits Limits) (FilePart, error) {
	declared := part.Header.Get("Content-Type")
	if !limits.typeAllowed(declared) {
		return FilePart{}, fmt.Errorf("%w: %s", ErrContentType, normalizeType(declared))
	}

	tmp, err := os.CreateTemp("", "registration-upload-*")
	if err != nil {
		return FilePart{}, fmt.Errorf("form: create temp file: %w", err)
	}

	written, copyErr := io.Copy(tmp, io.LimitReader(part, limits.MaxFileBytes+1))
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tmp.Name())
		return FilePart{}, fmt.Errorf("form: spool file part: %w", copyErr)
	}
	if written > limits.MaxFileBytes {
		os.Remove(tmp.Name())
		return FilePart{}, fmt.Errorf("%w: %s", ErrFileTooLarge, part.FileName())
	}

	contentType := ""
	if strings.TrimSpace(declared) != "" {
		contentType = normalizeType(declared)
	}
	return FilePart{
		TempPath:    tmp.Name(),
		Filename:    part.FileName(),
		ContentType: contentType,
		Size:        written,
	}, nil
}
