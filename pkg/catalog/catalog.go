package catalog

import (
	"sync"

	json "github.com/goccy/go-json"

	htaperrors "github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/persist"
)

// Backend is the subset of pkg/persist.Store the catalog needs, so it can be
// unit tested against a minimal stub without pulling in pebble.
type Backend interface {
	Put(table string, key, value []byte) error
	Delete(table string, key []byte) error
	Scan(table string, startKey, endKey []byte, fn func(persist.KV) error) error
}

// Catalog is the in-memory, persistence-backed registry of table schemas
// and indexes. Reads never touch the backend; writes go through the
// backend first so a crash between the two never leaves memory ahead of
// disk.
type Catalog struct {
	store Backend

	mu      sync.RWMutex
	schemas map[string]*SchemaMeta
	indexes map[string]*IndexMeta
}

// Open loads the catalog's current state from store.
func Open(store Backend) (*Catalog, error) {
	c := &Catalog{
		store:   store,
		schemas: make(map[string]*SchemaMeta),
		indexes: make(map[string]*IndexMeta),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) load() error {
	err := c.store.Scan(SchemasTable, nil, nil, func(kv persist.KV) error {
		var meta SchemaMeta
		if err := json.Unmarshal(kv.Value, &meta); err != nil {
			return htaperrors.WrapStorage(err)
		}
		c.schemas[meta.TableName] = &meta
		return nil
	})
	if err != nil {
		return err
	}

	return c.store.Scan(IndexesTable, nil, nil, func(kv persist.KV) error {
		var meta IndexMeta
		if err := json.Unmarshal(kv.Value, &meta); err != nil {
			return htaperrors.WrapStorage(err)
		}
		c.indexes[meta.IndexName] = &meta
		return nil
	})
}

// CreateTable registers a new table schema, rejecting a name already in use.
func (c *Catalog) CreateTable(meta SchemaMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.schemas[meta.TableName]; exists {
		return &htaperrors.TableAlreadyExistsError{Name: meta.TableName}
	}
	for _, f := range meta.Fields {
		if _, ok := f.LogicalType(); !ok {
			return &htaperrors.SchemaError{Message: "unknown data type: " + f.DataType}
		}
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return htaperrors.WrapStorage(err)
	}
	if err := c.store.Put(SchemasTable, []byte(meta.TableName), encoded); err != nil {
		return err
	}

	stored := meta
	c.schemas[meta.TableName] = &stored
	return nil
}

// DropTable removes a table's schema and every index defined over it. If
// ifExists is false, dropping an unknown table is an error; per the engine's
// DDL semantics, dropping the table namespace's actual row data is a
// separate compaction concern, not performed here.
func (c *Catalog) DropTable(name string, ifExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.schemas[name]; !exists {
		if ifExists {
			return nil
		}
		return &htaperrors.TableNotFoundError{Name: name}
	}

	if err := c.store.Delete(SchemasTable, []byte(name)); err != nil {
		return err
	}
	delete(c.schemas, name)

	for idxName, idx := range c.indexes {
		if idx.TableName == name {
			if err := c.store.Delete(IndexesTable, []byte(idxName)); err != nil {
				return err
			}
			delete(c.indexes, idxName)
		}
	}
	return nil
}

// AlterTable applies one ADD COLUMN / DROP COLUMN / RENAME COLUMN change to
// a registered schema and persists the updated descriptor under the same
// key CreateTable used, so a reload sees the altered shape.
func (c *Catalog) AlterTable(name string, kind AlterKind, column FieldMeta, columnName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, exists := c.schemas[name]
	if !exists {
		return &htaperrors.TableNotFoundError{Name: name}
	}

	updated := *meta
	updated.Fields = append([]FieldMeta{}, meta.Fields...)

	switch kind {
	case AlterAddColumn:
		if _, ok := updated.FieldByName(column.Name); ok {
			return &htaperrors.SchemaError{Message: "column already exists: " + column.Name}
		}
		if _, ok := column.LogicalType(); !ok {
			return &htaperrors.SchemaError{Message: "unknown data type: " + column.DataType}
		}
		updated.Fields = append(updated.Fields, column)
	case AlterDropColumn:
		idx := -1
		for i, f := range updated.Fields {
			if equalFold(f.Name, columnName) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &htaperrors.SchemaError{Message: "unknown column: " + columnName}
		}
		updated.Fields = append(updated.Fields[:idx], updated.Fields[idx+1:]...)
	case AlterRenameColumn:
		found := false
		for i, f := range updated.Fields {
			if equalFold(f.Name, columnName) {
				updated.Fields[i].Name = newName
				found = true
				break
			}
		}
		if !found {
			return &htaperrors.SchemaError{Message: "unknown column: " + columnName}
		}
	default:
		return &htaperrors.SchemaError{Message: "unsupported ALTER TABLE operation"}
	}

	encoded, err := json.Marshal(updated)
	if err != nil {
		return htaperrors.WrapStorage(err)
	}
	if err := c.store.Put(SchemasTable, []byte(name), encoded); err != nil {
		return err
	}
	c.schemas[name] = &updated
	return nil
}

// GetTable returns a table's schema, if registered.
func (c *Catalog) GetTable(name string) (SchemaMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.schemas[name]
	if !ok {
		return SchemaMeta{}, false
	}
	return *meta, true
}

// ListTables returns every registered table name, unordered.
func (c *Catalog) ListTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	return names
}

// CreateIndex registers a single-column index, rejecting a name already in
// use or a table that doesn't exist.
func (c *Catalog) CreateIndex(meta IndexMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.indexes[meta.IndexName]; exists {
		return &htaperrors.IndexAlreadyExistsError{Name: meta.IndexName}
	}
	table, ok := c.schemas[meta.TableName]
	if !ok {
		return &htaperrors.TableNotFoundError{Name: meta.TableName}
	}
	if _, ok := table.FieldByName(meta.ColumnName); !ok {
		return &htaperrors.SchemaError{Message: "unknown column: " + meta.ColumnName}
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return htaperrors.WrapStorage(err)
	}
	if err := c.store.Put(IndexesTable, []byte(meta.IndexName), encoded); err != nil {
		return err
	}

	stored := meta
	c.indexes[meta.IndexName] = &stored
	return nil
}

// DropIndex removes a registered index.
func (c *Catalog) DropIndex(name string, ifExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.indexes[name]; !exists {
		if ifExists {
			return nil
		}
		return &htaperrors.IndexNotFoundError{Name: name}
	}
	if err := c.store.Delete(IndexesTable, []byte(name)); err != nil {
		return err
	}
	delete(c.indexes, name)
	return nil
}

// GetIndex returns a registered index's descriptor.
func (c *Catalog) GetIndex(name string) (IndexMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.indexes[name]
	if !ok {
		return IndexMeta{}, false
	}
	return *meta, true
}

// IndexesForTable returns every index defined over table, unordered.
func (c *Catalog) IndexesForTable(table string) []IndexMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []IndexMeta
	for _, idx := range c.indexes {
		if idx.TableName == table {
			out = append(out, *idx)
		}
	}
	return out
}
