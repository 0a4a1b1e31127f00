package form

import "strings"

// RedirectField carries the post-submit redirect target. It is consumed by
// response routing and never rendered into the notification body.
const RedirectField = "redirect"

type knownField struct {
	key     string
	label   string
	aliases []string
}

// knownFields fixes the rendering order and labels for the recognized
// registration keys. ein is accepted as an alias for fein.
var knownFields = []knownField{
	{key: "first_name", label: "First Name"},
	{key: "last_name", label: "Last Name"},
	{key: "email", label: "Email"},
	{key: "phone", label: "Phone"},
	{key: "business_name", label: "Business Name"},
	{key: "address", label: "Address"},
	{key: "city", label: "City"},
	{key: "state", label: "State"},
	{key: "zip", label: "ZIP"},
	{key: "country", label: "Country"},
	{key: "business_type", label: "Business Type"},
	{key: "account_type", label: "Account Type"},
	{key: "fein", label: "EIN/FEIN", aliases: []string{"ein"}},
}

// CanonicalLines renders the submission as one line per field: known keys
// first in fixed order, then every remaining key in encounter order. A key
// that is absent from the submission produces no line; a present-but-blank
// value still renders as "Label: ". Multiple values join with ", ".
func CanonicalLines(data *Data) []string {
	lines := make([]string, 0, len(data.fieldOrder))
	consumed := map[string]bool{RedirectField: true}

	for _, field := range knownFields {
		key := field.key
		if !data.Has(key) {
			for _, alias := range field.aliases {
				if data.Has(alias) {
					key = alias
					break
				}
			}
		}
		consumed[field.key] = true
		for _, alias := range field.aliases {
			consumed[alias] = true
		}
		if !data.Has(key) {
			continue
		}
		lines = append(lines, field.label+": "+strings.Join(data.Values(key), ", "))
	}

	for _, key := range data.fieldOrder {
		if consumed[key] {
			continue
		}
		lines = append(lines, key+": "+strings.Join(data.Values(key), ", "))
	}
	return lines
}
