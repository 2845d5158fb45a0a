package template

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

// Field is one template entry: an output field name and its value spec.
// A string spec containing {placeholder} tokens is substituted from the
// event; any other spec passes through as a literal.
type Field struct {
	Name string
	Spec any
}

// Template is an ordered field mapping. Declaration order is payload order.
type Template struct {
	Fields []Field
}

// New builds a template from already-ordered fields (the configured default).
func New(fields []Field) *Template {
	return &Template{Fields: fields}
}

// Parse reads a JSON object as a template, preserving the declaration order
// of its keys. Anything other than a single JSON object fails with
// domain.ErrInvalidTemplate.
func Parse(text string) (*Template, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: template must be a JSON object", domain.ErrInvalidTemplate)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string key", domain.ErrInvalidTemplate)
		}

		var spec any
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
		}
		fields = append(fields, Field{Name: key, Spec: spec})
	}

	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after template object", domain.ErrInvalidTemplate)
	}

	return &Template{Fields: fields}, nil
}
