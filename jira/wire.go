package jira

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexID decodes identifiers the remote service serializes inconsistently:
// sometimes JSON strings, sometimes bare numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// wireObjectType is the objectType block attached to objects and schemas.
type wireObjectType struct {
	ID             flexID `json:"id"`
	Name           string `json:"name"`
	ObjectSchemaID flexID `json:"objectSchemaId"`
}

// wireAttributeDef is an attribute definition as the schema-discovery and
// object endpoints report it.
type wireAttributeDef struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Type        int    `json:"type"`
	DefaultType *struct {
		ID   flexID `json:"id"`
		Name string `json:"name"`
	} `json:"defaultType"`
	MaximumCardinality int `json:"maximumCardinality"`
}

// Attribute type discriminators used by the remote service.
const (
	wireAttrTypeDefault   = 0
	wireAttrTypeReference = 1
	wireAttrTypeUser      = 2
	wireAttrTypeStatus    = 7
)

// valueType maps a wire attribute definition to our value model.
func (d *wireAttributeDef) valueType() ValueType {
	switch d.Type {
	case wireAttrTypeReference:
		return TypeReference
	case wireAttrTypeUser:
		return TypeUser
	case wireAttrTypeStatus:
		return TypeStatus
	}
	if d.DefaultType == nil {
		return TypeText
	}
	switch strings.ToLower(d.DefaultType.Name) {
	case "integer", "double", "float":
		return TypeNumber
	case "date":
		return TypeDate
	case "datetime":
		return TypeDateTime
	case "boolean":
		return TypeBool
	default:
		return TypeText
	}
}

func (d *wireAttributeDef) definition() AttributeDefinition {
	return AttributeDefinition{
		ID:      d.ID.String(),
		Name:    d.Name,
		Type:    d.valueType(),
		IsArray: d.MaximumCardinality != 1,
	}
}

// wireAttributeValue is one value inside objectAttributeValues.
type wireAttributeValue struct {
	Value            string `json:"value,omitempty"`
	DisplayValue     string `json:"displayValue,omitempty"`
	SearchValue      string `json:"searchValue,omitempty"`
	ReferencedObject *struct {
		ID   flexID `json:"id"`
		Name string `json:"name"`
	} `json:"referencedObject,omitempty"`
	Status *struct {
		ID   flexID `json:"id"`
		Name string `json:"name"`
	} `json:"status,omitempty"`
}

// text extracts the displayable string from a value object, preferring the
// referenced entity's name where one exists.
func (v *wireAttributeValue) text() string {
	if v.ReferencedObject != nil {
		return v.ReferencedObject.Name
	}
	if v.Status != nil {
		return v.Status.Name
	}
	if v.Value != "" {
		return v.Value
	}
	if v.DisplayValue != "" {
		return v.DisplayValue
	}
	return v.SearchValue
}

// wireObjectAttribute is one attribute entry on a retrieved object.
type wireObjectAttribute struct {
	ObjectTypeAttributeID flexID               `json:"objectTypeAttributeId"`
	ObjectTypeAttribute   *wireAttributeDef    `json:"objectTypeAttribute,omitempty"`
	Values                []wireAttributeValue `json:"objectAttributeValues"`
}

// wireObject is a full asset record on the wire.
type wireObject struct {
	ID         flexID                `json:"id"`
	Label      string                `json:"label"`
	ObjectKey  string                `json:"objectKey"`
	Name       string                `json:"name"`
	Created    string                `json:"created"`
	Updated    string                `json:"updated"`
	ObjectType wireObjectType        `json:"objectType"`
	Attributes []wireObjectAttribute `json:"attributes"`
}

// wirePage is the envelope of paged endpoints (AQL, workspace listing).
type wirePage struct {
	StartAt              int                `json:"startAt"`
	MaxResults           int                `json:"maxResults"`
	Total                int                `json:"total"`
	IsLast               bool               `json:"isLast"`
	Values               []json.RawMessage  `json:"values"`
	ObjectTypeAttributes []wireAttributeDef `json:"objectTypeAttributes"`
}

// wireError is the error envelope the remote service returns on 4xx.
type wireError struct {
	ErrorMessage string            `json:"errorMessage"`
	Message      string            `json:"message"`
	Errors       map[string]string `json:"errors"`
}

func (e *wireError) text() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	if e.Message != "" {
		return e.Message
	}
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for field, msg := range e.Errors {
			parts = append(parts, field+": "+msg)
		}
		return strings.Join(parts, " | ")
	}
	return ""
}

// updatePayload is the attribute-id keyed body of update and create calls.
type updatePayload struct {
	ObjectTypeID string          `json:"objectTypeId"`
	Attributes   []WireAttribute `json:"attributes"`
}

// WireAttribute is one attribute entry in an update or create payload.
// An empty Values slice is the explicit "clear this attribute" form.
type WireAttribute struct {
	ObjectTypeAttributeID string      `json:"objectTypeAttributeId"`
	Values                []WireValue `json:"objectAttributeValues"`
}

// WireValue wraps a single outbound attribute value.
type WireValue struct {
	Value string `json:"value"`
}

func itoa(n int) string { return strconv.Itoa(n) }
