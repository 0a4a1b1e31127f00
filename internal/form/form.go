// Package form decodes multipart business-registration submissions into an
// ordered field bag and renders the canonical line listing used as the
// notification body.
package form

import (
	"errors"
	"fmt"
	"os"
)

// FilePart describes one uploaded file after it has been spooled to
// temporary storage.
type FilePart struct {
	TempPath    string
	Filename    string
	ContentType string
	Size        int64
}

// Data is the decoded submission: text fields and file parts, each an
// ordered multimap keyed by part name. Built once by Decode and read-only
// afterward; the caller owns temp file cleanup via Cleanup.
type Data struct {
	fieldOrder []string
	fields     map[string][]string
	fileOrder  []string
	files      map[string][]FilePart
}

func newData() *Data {
	return &Data{
		fields: make(map[string][]string),
		files:  make(map[string][]FilePart),
	}
}

func (d *Data) addField(name, value string) {
	if _, seen := d.fields[name]; !seen {
		d.fieldOrder = append(d.fieldOrder, name)
	}
	d.fields[name] = append(d.fields[name], value)
}

func (d *Data) addFile(name string, part FilePart) {
	if _, seen := d.files[name]; !seen {
		d.fileOrder = append(d.fileOrder, name)
	}
	d.files[name] = append(d.files[name], part)
}

// Has reports whether the field was present in the submission at all,
// including with a blank value.
func (d *Data) Has(name string) bool {
	_, present := d.fields[name]
	return present
}

// Field returns the first submitted value for name, or "" when absent.
func (d *Data) Field(name string) string {
	values := d.fields[name]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns every submitted value for name in encounter order.
func (d *Data) Values(name string) []string {
	return d.fields[name]
}

// FieldKeys returns field names in the order they first appeared.
func (d *Data) FieldKeys() []string {
	return d.fieldOrder
}

// Files returns the file parts uploaded under name in encounter order.
func (d *Data) Files(name string) []FilePart {
	return d.files[name]
}

// FileKeys returns file field names in the order they first appeared.
func (d *Data) FileKeys() []string {
	return d.fileOrder
}

// Cleanup removes every spooled temp file. Safe to call more than once.
func (d *Data) Cleanup() error {
	var cleanupErr error
	for _, name := range d.fileOrder {
		for _, part := range d.files[name] {
			if part.TempPath == "" {
				continue
			}
			if removeErr := os.Remove(part.TempPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				cleanupErr = errors.Join(cleanupErr, fmt.Errorf("remove %s: %w", part.TempPath, removeErr))
			}
		}
	}
	return cleanupErr
}
