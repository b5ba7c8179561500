package jira

// Asset is a materialized asset record: identity plus attribute values keyed
// by human-readable attribute name.
type Asset struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	ObjectKey string `json:"object_key"`

	TypeID   string `json:"type_id"`
	TypeName string `json:"type_name"`
	SchemaID string `json:"schema_id"`

	Attributes map[string]Value `json:"attributes"`

	schema *ObjectTypeSchema
}

// Attribute returns the named attribute's value; absent attributes read as
// null.
func (a *Asset) Attribute(name string) Value {
	return a.Attributes[name]
}

// Schema returns the object type schema the asset was materialized against.
func (a *Asset) Schema() *ObjectTypeSchema {
	return a.schema
}

// materializeAsset converts a wire object into an Asset using the cached
// schema, overlaid with any attribute definitions inlined in the payload
// itself. Attribute IDs that resolve nowhere keep a synthetic "attr:<id>"
// name rather than being dropped, so no remote data goes silently missing.
func materializeAsset(obj *wireObject, schema *ObjectTypeSchema) *Asset {
	asset := &Asset{
		ID:         obj.ID.String(),
		Label:      obj.Label,
		ObjectKey:  obj.ObjectKey,
		TypeID:     obj.ObjectType.ID.String(),
		TypeName:   obj.ObjectType.Name,
		SchemaID:   obj.ObjectType.ObjectSchemaID.String(),
		Attributes: make(map[string]Value, len(obj.Attributes)),
		schema:     schema,
	}
	if asset.Label == "" {
		asset.Label = obj.Name
	}

	for i := range obj.Attributes {
		wa := &obj.Attributes[i]
		def := resolveDefinition(wa, schema)
		name := "attr:" + wa.ObjectTypeAttributeID.String()
		if def != nil {
			name = def.Name
		}
		asset.Attributes[name] = materializeValue(wa, def)
	}
	return asset
}

// resolveDefinition finds the attribute definition for a wire attribute,
// preferring the cached schema and falling back to the inline definition
// some endpoints embed.
func resolveDefinition(wa *wireObjectAttribute, schema *ObjectTypeSchema) *AttributeDefinition {
	if schema != nil {
		if def, ok := schema.AttributeByID(wa.ObjectTypeAttributeID.String()); ok {
			return def
		}
	}
	if wa.ObjectTypeAttribute != nil {
		def := wa.ObjectTypeAttribute.definition()
		if def.ID == "" {
			def.ID = wa.ObjectTypeAttributeID.String()
		}
		return &def
	}
	return nil
}

// materializeValue coerces the wire values to the declared type. Values that
// fail coercion stay text rather than erroring: retrieval must surface what
// the remote holds, and only updates enforce types strictly.
func materializeValue(wa *wireObjectAttribute, def *AttributeDefinition) Value {
	if len(wa.Values) == 0 {
		return Null()
	}

	coerce := func(wv *wireAttributeValue) Value {
		text := wv.text()
		if def == nil {
			return TextValue(text)
		}
		switch def.Type {
		case TypeNumber:
			if n, ok := parseNumber(text); ok {
				return NumberValue(n)
			}
		case TypeDate, TypeDateTime:
			if t, ok := parseDate(text); ok {
				v := DateValue(t)
				v.Type = def.Type
				v.Date = t
				return v
			}
		}
		return TextValue(text)
	}

	if len(wa.Values) == 1 && (def == nil || !def.IsArray) {
		return coerce(&wa.Values[0])
	}

	elems := make([]Value, 0, len(wa.Values))
	for i := range wa.Values {
		elems = append(elems, coerce(&wa.Values[i]))
	}
	return ListValue(elems)
}
