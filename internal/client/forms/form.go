package forms

// FieldType mirrors the input kinds that need coercion when a draft is
// re-applied.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
)

// Field is one declared form input.
type Field struct {
	Name    string
	Type    FieldType
	Options []string // radio only

	Value   string // text/date/radio
	Checked bool   // checkbox
}

// Form is a declared field set with current values, the client-side
// stand-in for the rendered report form.
type Form struct {
	Fields []Field
}

func (f *Form) field(name string) *Field {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i]
		}
	}
	return nil
}

// Serialize produces the field map persisted in drafts and outbox
// payloads. Unchecked checkboxes are omitted (as form encoding would),
// checked ones serialize as "on". The CSRF field is dropped.
func (f *Form) Serialize() map[string]any {
	out := make(map[string]any, len(f.Fields))
	for _, fld := range f.Fields {
		if fld.Name == CSRFField {
			continue
		}
		if fld.Type == FieldCheckbox {
			if fld.Checked {
				out[fld.Name] = "on"
			}
			continue
		}
		out[fld.Name] = fld.Value
	}
	return out
}

// Apply re-applies a stored field map onto the form: checkboxes through
// boolean coercion, radios by option match, dates through
// normalization. Fields absent from the map keep their current value;
// stored checkbox fields always overwrite the checked state.
func (f *Form) Apply(fields map[string]any) {
	for name, value := range fields {
		fld := f.field(name)
		if fld == nil {
			continue
		}
		switch fld.Type {
		case FieldCheckbox:
			fld.Checked = CoerceBool(value)
		case FieldRadio:
			s, ok := value.(string)
			if !ok {
				continue
			}
			for _, opt := range fld.Options {
				if opt == s {
					fld.Value = s
					break
				}
			}
		case FieldDate:
			if s, ok := value.(string); ok {
				fld.Value = NormalizeDate(s)
			}
		default:
			if s, ok := value.(string); ok {
				fld.Value = s
			}
		}
	}
	// Checkboxes omitted from the stored map were unchecked at save
	// time.
	for i := range f.Fields {
		fld := &f.Fields[i]
		if fld.Type != FieldCheckbox {
			continue
		}
		if _, ok := fields[fld.Name]; !ok {
			fld.Checked = false
		}
	}
}
