package jira

import (
	"sort"

	"github.com/seaward/assetctl/errors"
)

// Mapper translates between human-readable attribute names with typed
// values and the attribute-ID keyed wire format. All translation is driven
// by a schema snapshot, so one call sees one consistent schema view.
type Mapper struct{}

// ToWire converts name-keyed raw values into a wire payload for the given
// schema. Names are processed in sorted order so payloads are deterministic.
// An unknown attribute name fails the whole conversion: a partial update
// that silently drops attributes is worse than no update.
//
// An empty string value becomes an attribute entry with no values, which is
// the wire form of an explicit clear.
func (m Mapper) ToWire(schema *ObjectTypeSchema, values map[string]string) ([]WireAttribute, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]WireAttribute, 0, len(names))
	for _, name := range names {
		def, ok := schema.Attribute(name)
		if !ok {
			return nil, errors.NewInvalidUpdateError(
				"unknown attribute %q for object type %q", name, schema.Name)
		}
		wire, err := m.coerceToWire(def, values[name])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, wire)
	}
	return attrs, nil
}

// coerceToWire validates and canonicalizes one raw value by the attribute's
// declared type.
func (m Mapper) coerceToWire(def *AttributeDefinition, raw string) (WireAttribute, error) {
	attr := WireAttribute{ObjectTypeAttributeID: def.ID, Values: []WireValue{}}
	if raw == "" {
		return attr, nil
	}

	switch def.Type {
	case TypeNumber:
		n, ok := parseNumber(raw)
		if !ok {
			return WireAttribute{}, errors.NewInvalidUpdateError(
				"attribute %q expects a number, got %q", def.Name, raw)
		}
		attr.Values = append(attr.Values, WireValue{Value: n.String()})
	case TypeDate:
		t, ok := parseDate(raw)
		if !ok {
			return WireAttribute{}, errors.NewInvalidUpdateError(
				"attribute %q expects a date (%s), got %q", def.Name, DateLayout, raw)
		}
		attr.Values = append(attr.Values, WireValue{Value: t.Format(DateLayout)})
	case TypeBool:
		switch raw {
		case "true", "false":
			attr.Values = append(attr.Values, WireValue{Value: raw})
		default:
			return WireAttribute{}, errors.NewInvalidUpdateError(
				"attribute %q expects true or false, got %q", def.Name, raw)
		}
	default:
		attr.Values = append(attr.Values, WireValue{Value: raw})
	}
	return attr, nil
}

// typedValue parses a raw string into the typed value model for diffing
// against current attribute values.
func (m Mapper) typedValue(def *AttributeDefinition, raw string) Value {
	if raw == "" {
		return Null()
	}
	switch def.Type {
	case TypeNumber:
		if n, ok := parseNumber(raw); ok {
			return NumberValue(n)
		}
	case TypeDate, TypeDateTime:
		if t, ok := parseDate(raw); ok {
			v := DateValue(t)
			v.Type = def.Type
			v.Date = t
			return v
		}
	}
	return TextValue(raw)
}
