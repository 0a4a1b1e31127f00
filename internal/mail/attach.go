package mail

import "github.com/jivahealth/registration-relay/internal/form"

// attachmentFields are the only file fields that become attachments, in
// the order they appear on the outbound message. Uploads under any other
// name are decoded and validated but deliberately never attached.
var attachmentFields = []string{
	"fein_license",
	"tobacco_license",
	"state_tax_id",
	"gov_id",
}

// CollectAttachments maps the recognized file fields to attachments.
// Parts missing either a spooled path or an original filename are skipped
// without error.
func CollectAttachments(data *form.Data) []Attachment {
	var attachments []Attachment
	for _, field := range attachmentFields {
		for _, part := range data.Files(field) {
			if part.TempPath == "" || part.Filename == "" {
				continue
			}
			attachments = append(attachments, Attachment{
				Filename:    part.Filename,
				Path:        part.TempPath,
				ContentType: part.ContentType,
			})
		}
	}
	return attachments
}
