package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/seaward/assetctl/errors"
)

const defaultPageSize = 50

// GetObject retrieves and materializes a single asset by ID. An asset that
// belongs to a different object schema than the configured one is an error,
// not a silent success.
func (c *Client) GetObject(ctx context.Context, id string) (*Asset, error) {
	if _, err := c.schemas.Workspace(ctx); err != nil {
		return nil, err
	}
	var obj wireObject
	if err := c.transport.Execute(ctx, "GET", "object/"+id, nil, nil, &obj); err != nil {
		return nil, errors.Wrapf(err, "failed to retrieve asset %s", id)
	}
	return c.materialize(ctx, &obj)
}

// AssetResult is one entry of a batch retrieval: either the asset or the
// error that kept it from loading.
type AssetResult struct {
	ID    string
	Asset *Asset
	Err   error
}

// GetObjects retrieves a batch of assets by ID. Results come back in input
// order, one per requested ID; a failure on one ID is recorded in its slot
// and never blocks the others. The one exception is an authentication
// failure, which is fatal for the whole credential: remaining IDs are not
// attempted and carry the same error.
func (c *Client) GetObjects(ctx context.Context, ids []string) []AssetResult {
	results := make([]AssetResult, len(ids))
	for i, id := range ids {
		asset, err := c.GetObject(ctx, id)
		results[i] = AssetResult{ID: id, Asset: asset, Err: err}
		if err != nil && errors.IsAuthError(err) {
			for j := i + 1; j < len(ids); j++ {
				results[j] = AssetResult{ID: ids[j], Err: err}
			}
			break
		}
	}
	return results
}

// QueryIterator walks AQL query results page by page, in the style of
// sql.Rows:
//
//	it := client.Query(ctx, `objectType = "Laptops"`, 0)
//	for it.Next() {
//	    asset := it.Asset()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// Paging is transparent; an invalid query surfaces on the first Next call.
type QueryIterator struct {
	ctx      context.Context
	client   *Client
	query    string
	pageSize int

	startAt int
	isLast  bool
	buffer  []json.RawMessage
	idx     int

	cur *Asset
	err error
}

// Query starts an AQL query against the configured object schema. When the
// filter does not itself name a schema, it is constrained to the configured
// one, so queries never leak across schemas. pageSize <= 0 uses the
// default.
func (c *Client) Query(ctx context.Context, aql string, pageSize int) *QueryIterator {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &QueryIterator{
		ctx:      ctx,
		client:   c,
		query:    aql,
		pageSize: pageSize,
	}
}

// Next advances to the next asset, fetching pages as needed. It returns
// false at the end of the results or on error; Err distinguishes the two.
func (it *QueryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.idx >= len(it.buffer) {
		if it.isLast && it.startAt > 0 {
			it.cur = nil
			return false
		}
		if !it.fetchPage() {
			return false
		}
	}

	var obj wireObject
	if err := json.Unmarshal(it.buffer[it.idx], &obj); err != nil {
		it.err = errors.Wrap(err, "malformed object in query results")
		return false
	}
	it.idx++

	asset, err := it.client.materialize(it.ctx, &obj)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = asset
	return true
}

// Asset returns the asset the iterator currently points at.
func (it *QueryIterator) Asset() *Asset {
	return it.cur
}

// Err returns the error that ended iteration, if any.
func (it *QueryIterator) Err() error {
	return it.err
}

// Restart rewinds the iterator to the first page. The next Next call
// re-issues the query from the start.
func (it *QueryIterator) Restart() {
	it.startAt = 0
	it.isLast = false
	it.buffer = nil
	it.idx = 0
	it.cur = nil
	it.err = nil
}

// fetchPage issues the next page request. Returns false when there is
// nothing further to read or the request failed.
func (it *QueryIterator) fetchPage() bool {
	constrained, err := it.client.constrainQuery(it.ctx, it.query)
	if err != nil {
		it.err = err
		return false
	}

	query := url.Values{}
	query.Set("startAt", itoa(it.startAt))
	query.Set("maxResults", itoa(it.pageSize))

	var page wirePage
	body := map[string]string{"qlQuery": constrained}
	if err := it.client.transport.Execute(it.ctx, "POST", "object/aql", query, body, &page); err != nil {
		it.err = errors.Wrap(err, "query failed")
		return false
	}

	it.buffer = page.Values
	it.idx = 0
	it.isLast = page.IsLast || len(page.Values) == 0
	it.startAt += len(page.Values)
	if len(page.Values) == 0 {
		it.cur = nil
		it.isLast = true
		return false
	}
	return true
}

// constrainQuery scopes an AQL filter to the configured object schema
// unless the filter already names one.
func (c *Client) constrainQuery(ctx context.Context, aql string) (string, error) {
	schemaID, err := c.schemas.SchemaID(ctx)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(aql)
	if trimmed == "" {
		return fmt.Sprintf("objectSchemaId = %s", schemaID), nil
	}
	if strings.Contains(strings.ToLower(trimmed), "objectschemaid") {
		return trimmed, nil
	}
	return fmt.Sprintf("(%s) AND objectSchemaId = %s", trimmed, schemaID), nil
}

// materialize resolves the object's type schema and converts the wire
// payload, enforcing schema membership.
func (c *Client) materialize(ctx context.Context, obj *wireObject) (*Asset, error) {
	schemaID, err := c.schemas.SchemaID(ctx)
	if err != nil {
		return nil, err
	}
	objSchemaID := obj.ObjectType.ObjectSchemaID.String()
	if objSchemaID != "" && objSchemaID != schemaID {
		return nil, errors.NewSchemaError(
			"asset %s belongs to object schema %s, not the configured schema %s",
			obj.ID, objSchemaID, schemaID)
	}

	schema, err := c.schemas.ResolveObjectTypeByID(ctx, obj.ObjectType.ID.String(), obj.ObjectType.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve schema for asset %s", obj.ID)
	}
	return materializeAsset(obj, schema), nil
}
