package jira

import (
	"context"

	"github.com/seaward/assetctl/errors"
)

// UpdateObject applies name-keyed attribute changes to an asset. The whole
// change set is validated against the object type's schema before anything
// is sent, and only attributes whose value actually differs from the
// current one go into the payload. When nothing differs, no write happens
// at all and the current asset is returned with changed=false.
func (c *Client) UpdateObject(ctx context.Context, id string, changes map[string]string) (*Asset, bool, error) {
	current, err := c.GetObject(ctx, id)
	if err != nil {
		return nil, false, err
	}
	schema := current.Schema()

	// Validate every name and value up front; a payload that writes some
	// attributes and rejects others would leave the asset half-updated.
	wireAttrs, err := c.mapper.ToWire(schema, changes)
	if err != nil {
		return nil, false, err
	}

	diff := make([]WireAttribute, 0, len(wireAttrs))
	for _, wa := range wireAttrs {
		def, ok := schema.AttributeByID(wa.ObjectTypeAttributeID)
		if !ok {
			continue
		}
		desired := c.mapper.typedValue(def, changes[def.Name])
		if desired.Equal(current.Attribute(def.Name)) {
			continue
		}
		diff = append(diff, wa)
	}

	if len(diff) == 0 {
		c.logger.Debugw("No attribute changes, skipping update", "asset_id", id)
		return current, false, nil
	}

	payload := updatePayload{ObjectTypeID: current.TypeID, Attributes: diff}
	var obj wireObject
	if err := c.transport.Execute(ctx, "PUT", "object/"+id, nil, payload, &obj); err != nil {
		return nil, false, errors.Wrapf(err, "failed to update asset %s", id)
	}

	c.logger.Infow("Updated asset", "asset_id", id, "attributes", len(diff))
	updated, err := c.materialize(ctx, &obj)
	if err != nil {
		return nil, true, err
	}
	return updated, true, nil
}

// CreateObject creates a new asset of the named object type. The type is
// resolved against the configured schema and all values are validated
// before the create call is issued.
func (c *Client) CreateObject(ctx context.Context, typeName string, values map[string]string) (*Asset, error) {
	schema, err := c.schemas.ResolveObjectType(ctx, typeName)
	if err != nil {
		return nil, err
	}

	wireAttrs, err := c.mapper.ToWire(schema, values)
	if err != nil {
		return nil, err
	}

	payload := updatePayload{ObjectTypeID: schema.ID, Attributes: wireAttrs}
	var obj wireObject
	if err := c.transport.Execute(ctx, "POST", "object/create", nil, payload, &obj); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s asset", typeName)
	}

	c.logger.Infow("Created asset", "asset_id", obj.ID.String(), "object_type", typeName)
	return c.materialize(ctx, &obj)
}
