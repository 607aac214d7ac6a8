// Package forms handles report form field maps: serialization for the
// outbox, date normalization to the server's canonical format, and
// re-applying a saved draft onto a form including boolean coercion for
// checkbox-like stored values.
package forms

import (
	"regexp"
	"strings"
)

// CSRFField is dropped during serialization; it must never end up in a
// draft or an outbox payload.
const CSRFField = "csrfmiddlewaretoken"

var (
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dottedDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
)

// NormalizeDate converts DD.MM.YYYY to YYYY-MM-DD. Values already in
// canonical form, and values in neither format, pass through unchanged.
func NormalizeDate(value string) string {
	s := strings.TrimSpace(value)
	if s == "" || isoDate.MatchString(s) {
		return s
	}
	m := dottedDate.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	dd, mm := m[1], m[2]
	if len(dd) == 1 {
		dd = "0" + dd
	}
	if len(mm) == 1 {
		mm = "0" + mm
	}
	return m[3] + "-" + mm + "-" + dd
}

// IsDateField reports whether a field name carries a date by the form
// convention: the name is "date" or ends in "_date".
func IsDateField(name string) bool {
	return name == "date" || strings.HasSuffix(name, "_date")
}

// NormalizeDateFields rewrites every date-valued field of a serialized
// field map to the canonical form. With all=false only the service
// report's report_date is touched; with all=true every field matching
// the date naming convention is.
func NormalizeDateFields(fields map[string]any, all bool) {
	for name, value := range fields {
		if !all && name != "report_date" {
			continue
		}
		if all && !IsDateField(name) {
			continue
		}
		if s, ok := value.(string); ok {
			fields[name] = NormalizeDate(s)
		}
	}
}

// CoerceBool interprets the boolean-like values that end up in stored
// field maps: a real bool, a checkbox's "on", "true"/"1", or numeric 1.
func CoerceBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "on" || v == "true" || v == "1"
	case float64:
		return v == 1
	case int:
		return v == 1
	default:
		return false
	}
}
