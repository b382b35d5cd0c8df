package openproject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Formattable is a rich text field. The API sends it as a plain JSON
// string, as null, or as an object {format, raw, html}.
type Formattable struct {
	Format string
	Raw    string
	HTML   string

	plain string
	set   bool
}

var textPolicy = bluemonday.StrictPolicy()

func (f *Formattable) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*f = Formattable{}
	case trimmed[0] == '"':
		var plain string
		if err := json.Unmarshal(trimmed, &plain); err != nil {
			return fmt.Errorf("decoding formattable string: %w", err)
		}
		*f = Formattable{plain: plain, set: true}
	case trimmed[0] == '{':
		var obj struct {
			Format string `json:"format"`
			Raw    string `json:"raw"`
			HTML   string `json:"html"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("decoding formattable object: %w", err)
		}
		*f = Formattable{Format: obj.Format, Raw: obj.Raw, HTML: obj.HTML, set: true}
	default:
		return fmt.Errorf("decoding formattable: unexpected JSON %s", trimmed)
	}
	return nil
}

// Text is the display text: raw, else html with tags stripped, else the
// plain string, else "".
func (f Formattable) Text() string {
	if f.Raw != "" {
		return f.Raw
	}
	if f.HTML != "" {
		return stripHTML(f.HTML)
	}
	return f.plain
}

// IsNull reports whether the field was absent or null.
func (f Formattable) IsNull() bool {
	return !f.set
}

func stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// formattableInput is the envelope the API expects for rich text writes.
type formattableInput struct {
	Format string `json:"format"`
	Raw    string `json:"raw"`
}

func textInput(s string) *formattableInput {
	return &formattableInput{Format: "text", Raw: s}
}
