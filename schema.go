package sysconf

import (
	"fmt"
	"math"
	"strings"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flat option descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents an OpenAPI-compatible JSON Schema object.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema alongside its format.
// Document is always JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
	Locked   bool
}

// FieldDescriptor describes one option for a presentation layer.
type FieldDescriptor struct {
	Option      string `json:"option"`
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Length      int    `json:"length,omitempty"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Rule        string `json:"rule,omitempty"`
	DerivedKey  string `json:"derived_key,omitempty"`
	ReadOnly    bool   `json:"read_only,omitempty"`
}

// Schema returns the option descriptors. Every field is read-only when the
// controller is locked.
func (c *Controller) Schema() (SchemaDocument, error) {
	descriptors := make([]FieldDescriptor, 0, len(c.entries))
	for _, e := range c.entries {
		descriptors = append(descriptors, describeOption(e.option, c.locked))
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
		Locked:   c.locked,
	}, nil
}

// OpenAPISchema returns the option set as a JSON Schema object keyed by
// option id, suitable for embedding in an OpenAPI document.
func (c *Controller) OpenAPISchema() (SchemaDocument, error) {
	properties := make(map[string]any, len(c.entries))
	required := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		prop, err := openAPIProperty(e.option)
		if err != nil {
			return SchemaDocument{}, err
		}
		if c.locked {
			prop["readOnly"] = true
		}
		properties[string(e.option.ID)] = prop
		required = append(required, string(e.option.ID))
	}
	return SchemaDocument{
		Format: SchemaFormatOpenAPI,
		Document: map[string]any{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		},
		Locked: c.locked,
	}, nil
}

func describeOption(opt Option, locked bool) FieldDescriptor {
	d := FieldDescriptor{
		Option:      string(opt.ID),
		Key:         opt.Key,
		Kind:        opt.Kind.String(),
		Label:       opt.Label,
		Description: opt.Description,
		Rule:        strings.TrimSpace(opt.Rule),
		ReadOnly:    locked,
	}
	if opt.Kind == KindBytes {
		d.Length = opt.Length
	}
	if opt.Derived != nil {
		d.DerivedKey = opt.Derived.Key
	}
	return d
}

func openAPIProperty(opt Option) (map[string]any, error) {
	prop := map[string]any{"x-sysconf-key": opt.Key}
	switch opt.Kind {
	case KindBool:
		prop["type"] = "boolean"
	case KindU8:
		prop["type"] = "integer"
		prop["minimum"] = 0
		prop["maximum"] = math.MaxUint8
	case KindU32:
		prop["type"] = "integer"
		prop["format"] = "int64"
		prop["minimum"] = 0
		prop["maximum"] = int64(math.MaxUint32)
	case KindBytes:
		prop["type"] = "array"
		prop["items"] = map[string]any{"type": "integer", "minimum": 0, "maximum": math.MaxUint8}
		prop["minItems"] = opt.Length
		prop["maxItems"] = opt.Length
	default:
		return nil, fmt.Errorf("%w: option %s: unsupported kind %s", ErrInvalidOption, opt.ID, opt.Kind)
	}
	if opt.Label != "" {
		prop["title"] = opt.Label
	}
	if opt.Description != "" {
		prop["description"] = opt.Description
	}
	if rule := strings.TrimSpace(opt.Rule); rule != "" {
		prop["x-sysconf-rule"] = rule
	}
	return prop, nil
}
