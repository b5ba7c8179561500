package jira

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seaward/assetctl/errors"
)

// AttributeDefinition describes one attribute of an object type. Immutable
// once fetched.
type AttributeDefinition struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Type    ValueType `json:"type"`
	IsArray bool      `json:"is_array"`
}

// ObjectTypeSchema is the resolved schema of one object type: its identity
// plus the ordered attribute definitions. A schema is an immutable snapshot;
// refreshing a type builds a new one and swaps it in atomically, so callers
// holding a pointer keep a consistent view for the duration of their
// operation.
type ObjectTypeSchema struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Attributes []AttributeDefinition `json:"attributes"`

	// Generation is the cache generation this snapshot was built at.
	Generation uint64 `json:"generation"`

	byName map[string]*AttributeDefinition
	byID   map[string]*AttributeDefinition
}

// newObjectTypeSchema builds the lookup indexes. Attribute name matching is
// case-sensitive and exact, mirroring the remote schema.
func newObjectTypeSchema(id, name string, attrs []AttributeDefinition, generation uint64) *ObjectTypeSchema {
	s := &ObjectTypeSchema{
		ID:         id,
		Name:       name,
		Attributes: attrs,
		Generation: generation,
		byName:     make(map[string]*AttributeDefinition, len(attrs)),
		byID:       make(map[string]*AttributeDefinition, len(attrs)),
	}
	for i := range s.Attributes {
		def := &s.Attributes[i]
		s.byName[def.Name] = def
		s.byID[def.ID] = def
	}
	return s
}

// Attribute looks up an attribute definition by exact name.
func (s *ObjectTypeSchema) Attribute(name string) (*AttributeDefinition, bool) {
	def, ok := s.byName[name]
	return def, ok
}

// AttributeByID looks up an attribute definition by its wire identifier.
func (s *ObjectTypeSchema) AttributeByID(id string) (*AttributeDefinition, bool) {
	def, ok := s.byID[id]
	return def, ok
}

// AttributeNames returns the sorted attribute names, for error messages.
func (s *ObjectTypeSchema) AttributeNames() []string {
	names := make([]string, 0, len(s.Attributes))
	for _, def := range s.Attributes {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}

// SchemaCache discovers and caches the remote schema directory: the
// workspace, the object schema, its object types and their attribute
// definitions. It is safe for concurrent use. Refreshes are exclusive per
// object type (single-flight) and replace the cached snapshot atomically.
type SchemaCache struct {
	transport  *Transport
	site       string
	schemaName string
	snapshots  *SnapshotStore // optional warm-start store, may be nil
	logger     *zap.SugaredLogger

	mu            sync.RWMutex
	workspaceID   string
	schemaID      string
	typeIDsByName map[string]string            // object type name -> type ID
	schemas       map[string]*ObjectTypeSchema // keyed by type ID
	generation    uint64

	group singleflight.Group
}

// NewSchemaCache creates a schema cache over the given transport. site is
// the configured Jira site (with or without the atlassian.net suffix) and
// schemaName names the object schema holding the assets. snapshots may be
// nil to disable the on-disk warm start.
func NewSchemaCache(transport *Transport, site, schemaName string, snapshots *SnapshotStore, logger *zap.SugaredLogger) *SchemaCache {
	return &SchemaCache{
		transport:     transport,
		site:          site,
		schemaName:    schemaName,
		snapshots:     snapshots,
		logger:        logger,
		typeIDsByName: make(map[string]string),
		schemas:       make(map[string]*ObjectTypeSchema),
	}
}

// Generation returns the current cache generation. It increments on every
// refresh, letting tests distinguish stale from fresh snapshots without
// wall-clock games.
func (c *SchemaCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Workspace resolves the workspace identifier for the configured site,
// discovering it on first use and binding the transport's base URL to the
// workspace's asset endpoints.
func (c *SchemaCache) Workspace(ctx context.Context) (string, error) {
	c.mu.RLock()
	id := c.workspaceID
	c.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	v, err, _ := c.group.Do("workspace", func() (interface{}, error) {
		site := c.site
		if !strings.HasSuffix(site, "atlassian.net") {
			site += ".atlassian.net"
		}
		var page struct {
			Values []struct {
				WorkspaceID string `json:"workspaceId"`
			} `json:"values"`
		}
		discoveryURL := fmt.Sprintf("https://%s/rest/servicedeskapi/assets/workspace", site)
		if err := c.transport.Execute(ctx, "GET", discoveryURL, nil, nil, &page); err != nil {
			return nil, errors.Wrap(err, "workspace discovery failed")
		}
		if len(page.Values) == 0 {
			return nil, errors.NewSchemaError("no assets workspace found for site %q", c.site)
		}
		id := page.Values[0].WorkspaceID

		c.mu.Lock()
		c.workspaceID = id
		c.mu.Unlock()
		c.transport.SetBaseURL(fmt.Sprintf("https://api.atlassian.com/jsm/assets/workspace/%s/v1", id))
		c.logger.Debugw("Discovered workspace", "workspace_id", id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ensureDirectory loads the object schema ID and the name->ID directory of
// its object types.
func (c *SchemaCache) ensureDirectory(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.schemaID != ""
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	if _, err := c.Workspace(ctx); err != nil {
		return err
	}

	_, err, _ := c.group.Do("directory", func() (interface{}, error) {
		var schemas struct {
			Values []struct {
				ID   flexID `json:"id"`
				Name string `json:"name"`
			} `json:"values"`
		}
		if err := c.transport.Execute(ctx, "GET", "objectschema/list", nil, nil, &schemas); err != nil {
			return nil, errors.Wrap(err, "schema discovery failed")
		}

		schemaID := ""
		available := make([]string, 0, len(schemas.Values))
		for _, s := range schemas.Values {
			available = append(available, fmt.Sprintf("%s (ID: %s)", s.Name, s.ID))
			if s.Name == c.schemaName {
				schemaID = s.ID.String()
			}
		}
		if schemaID == "" {
			return nil, errors.NewSchemaError("object schema %q not found; available schemas: %s",
				c.schemaName, strings.Join(available, ", "))
		}

		var types []struct {
			ID   flexID `json:"id"`
			Name string `json:"name"`
		}
		path := fmt.Sprintf("objectschema/%s/objecttypes/flat", schemaID)
		if err := c.transport.Execute(ctx, "GET", path, nil, nil, &types); err != nil {
			return nil, errors.Wrap(err, "object type discovery failed")
		}

		directory := make(map[string]string, len(types))
		for _, t := range types {
			if t.Name != "" {
				directory[t.Name] = t.ID.String()
			}
		}

		c.mu.Lock()
		c.schemaID = schemaID
		c.typeIDsByName = directory
		c.mu.Unlock()

		c.logger.Debugw("Loaded schema directory",
			"schema_id", schemaID,
			"object_types", len(directory))
		return nil, nil
	})
	return err
}

// SchemaID returns the resolved object schema identifier, discovering the
// directory if needed.
func (c *SchemaCache) SchemaID(ctx context.Context) (string, error) {
	if err := c.ensureDirectory(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schemaID, nil
}

// ResolveObjectType returns the schema snapshot for the named object type.
// The name match is exact and case-sensitive; an unknown name is a
// SchemaError listing what is available, since a renamed type is an
// operational scenario worth reporting clearly.
func (c *SchemaCache) ResolveObjectType(ctx context.Context, name string) (*ObjectTypeSchema, error) {
	if err := c.ensureDirectory(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	typeID, ok := c.typeIDsByName[name]
	c.mu.RUnlock()
	if !ok {
		names := c.objectTypeNames()
		return nil, errors.NewSchemaError("unknown object type %q; available types: %s",
			name, strings.Join(names, ", "))
	}
	return c.loadType(ctx, typeID, name)
}

// ResolveObjectTypeByID returns the schema snapshot for an object type ID,
// used when materializing retrieved assets by their own type.
func (c *SchemaCache) ResolveObjectTypeByID(ctx context.Context, typeID, typeName string) (*ObjectTypeSchema, error) {
	return c.loadType(ctx, typeID, typeName)
}

// ResolveAttribute looks up an attribute definition within the resolved
// schema of the given object type. The name must match exactly.
func (c *SchemaCache) ResolveAttribute(ctx context.Context, typeID, attributeName string) (*AttributeDefinition, error) {
	schema, err := c.loadType(ctx, typeID, "")
	if err != nil {
		return nil, err
	}
	def, ok := schema.Attribute(attributeName)
	if !ok {
		return nil, errors.NewSchemaError("unknown attribute %q for object type %q; available attributes: %s",
			attributeName, schema.Name, strings.Join(schema.AttributeNames(), ", "))
	}
	return def, nil
}

// Refresh forces a full re-fetch of the named object type's schema,
// atomically replacing the cached snapshot and bumping the cache
// generation. In-flight readers keep the snapshot they already hold.
func (c *SchemaCache) Refresh(ctx context.Context, name string) error {
	if err := c.ensureDirectory(ctx); err != nil {
		return err
	}
	c.mu.RLock()
	typeID, ok := c.typeIDsByName[name]
	c.mu.RUnlock()
	if !ok {
		return errors.NewSchemaError("unknown object type %q", name)
	}
	_, err := c.fetchType(ctx, typeID, name)
	return err
}

// loadType returns the cached snapshot for typeID, trying the on-disk
// snapshot store on a cold cache before reaching for the network.
func (c *SchemaCache) loadType(ctx context.Context, typeID, typeName string) (*ObjectTypeSchema, error) {
	c.mu.RLock()
	schema, ok := c.schemas[typeID]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	if c.snapshots != nil {
		c.mu.RLock()
		workspace := c.workspaceID
		c.mu.RUnlock()
		if workspace != "" {
			if snap, ok := c.snapshots.Load(workspace, typeID); ok {
				c.mu.Lock()
				c.generation++
				restored := newObjectTypeSchema(snap.ID, snap.Name, snap.Attributes, c.generation)
				c.schemas[typeID] = restored
				c.mu.Unlock()
				c.logger.Debugw("Restored schema from snapshot",
					"object_type", restored.Name, "attributes", len(restored.Attributes))
				return restored, nil
			}
		}
	}

	return c.fetchType(ctx, typeID, typeName)
}

// fetchType fetches attribute definitions from the remote service. Fetches
// for the same type are single-flighted: concurrent resolvers wait for the
// one in progress instead of issuing duplicate requests.
func (c *SchemaCache) fetchType(ctx context.Context, typeID, typeName string) (*ObjectTypeSchema, error) {
	v, err, _ := c.group.Do("type:"+typeID, func() (interface{}, error) {
		query := url.Values{}
		query.Set("expand", "objectTypeAttributes")

		var defs []wireAttributeDef
		path := fmt.Sprintf("objecttype/%s/attributes", typeID)
		if err := c.transport.Execute(ctx, "GET", path, query, nil, &defs); err != nil {
			return nil, errors.Wrapf(err, "attribute discovery failed for object type %s", typeID)
		}

		attrs := make([]AttributeDefinition, 0, len(defs))
		for i := range defs {
			attrs = append(attrs, defs[i].definition())
		}

		name := typeName
		if name == "" {
			name = c.nameForTypeID(typeID)
		}

		c.mu.Lock()
		c.generation++
		schema := newObjectTypeSchema(typeID, name, attrs, c.generation)
		c.schemas[typeID] = schema
		workspace := c.workspaceID
		c.mu.Unlock()

		if c.snapshots != nil && workspace != "" {
			if err := c.snapshots.Save(workspace, schema); err != nil {
				c.logger.Warnw("Failed to persist schema snapshot",
					"object_type", name, "error", err)
			}
		}

		c.logger.Debugw("Fetched object type schema",
			"object_type", name,
			"attributes", len(attrs),
			"generation", schema.Generation)
		return schema, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ObjectTypeSchema), nil
}

func (c *SchemaCache) nameForTypeID(typeID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, id := range c.typeIDsByName {
		if id == typeID {
			return name
		}
	}
	return ""
}

func (c *SchemaCache) objectTypeNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.typeIDsByName))
	for name := range c.typeIDsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// staleAfterDefault is the snapshot staleness ceiling when the config does
// not override it.
const staleAfterDefault = 24 * time.Hour
