package template

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// PayloadField is one rendered output field.
type PayloadField struct {
	Name  string
	Value any
}

// Payload is the rendered JSON value tree. It marshals its fields in
// insertion order, which encoding/json maps would not.
type Payload struct {
	fields []PayloadField
}

// MarshalJSON writes the payload as a JSON object in field order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value of a named field.
func (p *Payload) Get(name string) (any, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Fields returns the rendered fields in payload order.
func (p *Payload) Fields() []PayloadField {
	out := make([]PayloadField, len(p.fields))
	copy(out, p.fields)
	return out
}

// Len reports the number of rendered fields.
func (p *Payload) Len() int { return len(p.fields) }

func (p *Payload) set(name string, value any) {
	for i, f := range p.fields {
		if f.Name == name {
			p.fields[i].Value = value
			return
		}
	}
	p.fields = append(p.fields, PayloadField{Name: name, Value: value})
}

// Renderer turns a template plus a message event into a payload, merging in
// the process-wide custom fields.
type Renderer struct {
	customFields       map[string]any
	includeEmptyFields bool
}

// NewRenderer creates a renderer. customFields are merged into every payload
// verbatim and are never templated or dropped.
func NewRenderer(customFields map[string]any, includeEmptyFields bool) *Renderer {
	return &Renderer{
		customFields:       customFields,
		includeEmptyFields: includeEmptyFields,
	}
}

// Render is deterministic: the same (template, event) pair always produces
// the same ordered payload. Missing event attributes render as empty
// strings; rendering never fails.
func (r *Renderer) Render(tmpl *Template, evt domain.MessageEvent) *Payload {
	p := &Payload{}

	for _, field := range tmpl.Fields {
		value := renderSpec(field.Spec, evt)
		if !r.includeEmptyFields && isEmptyValue(value) {
			continue
		}
		p.set(field.Name, value)
	}

	// Custom fields merge last. Map order is unspecified in Go, so sort the
	// keys to keep payloads deterministic.
	names := make([]string, 0, len(r.customFields))
	for name := range r.customFields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.set(name, r.customFields[name])
	}

	return p
}

// renderSpec substitutes placeholders in string specs; other values are
// literals. A spec that is exactly {timestamp} keeps its numeric form.
func renderSpec(spec any, evt domain.MessageEvent) any {
	s, ok := spec.(string)
	if !ok {
		return spec
	}
	if !placeholderRe.MatchString(s) {
		return s
	}
	if s == "{timestamp}" {
		return evt.Timestamp
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		value, _ := evt.Attribute(name)
		return value
	})
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
