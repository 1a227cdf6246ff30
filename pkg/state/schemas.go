package state

import (
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/nuxeo/spreadsheet-schemas/pkg/schema"
)

const (
	schemaTableName = "schema"
)

var schemaTableSchema = &memdb.TableSchema{
	Name: schemaTableName,
	Indexes: map[string]*memdb.IndexSchema{
		"id": {
			Name:    "id",
			Unique:  true,
			Indexer: &memdb.StringFieldIndex{Field: "Key"},
		},
		"name": {
			Name:    "name",
			Unique:  true,
			Indexer: &memdb.StringFieldIndex{Field: "Name"},
		},
		all: allIndex,
	},
}

// Schema is a resolved schema as stored in the state.
type Schema struct {
	Key string
	schema.Descriptor
}

// Resolved reports whether the fields of the schema are known.
func (s *Schema) Resolved() bool {
	return s.Fields != nil
}

// DeepCopy returns a copy of s sharing no mutable data with it.
func (s *Schema) DeepCopy() *Schema {
	out := &Schema{
		Key: s.Key,
		Descriptor: schema.Descriptor{
			Name: s.Name,
		},
	}
	if s.Fields != nil {
		out.Fields = copyValue(map[string]interface{}(s.Fields)).(map[string]interface{})
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			m[k] = copyValue(v)
		}
		return m
	case schema.Fields:
		return schema.Fields(copyValue(map[string]interface{}(t)).(map[string]interface{}))
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, v := range t {
			s[i] = copyValue(v)
		}
		return s
	default:
		return v
	}
}

// SchemasCollection stores and indexes resolved schemas.
type SchemasCollection collection

func getSchema(txn *memdb.Txn, keyOrName string) (*Schema, error) {
	res, err := multiIndexLookupUsingTxn(txn, schemaTableName,
		[]string{"id", "name"}, keyOrName)
	if err != nil {
		return nil, err
	}
	s, ok := res.(*Schema)
	if !ok {
		return nil, fmt.Errorf("expected *Schema, got %T", res)
	}
	return s.DeepCopy(), nil
}

func insertSchema(txn *memdb.Txn, s Schema) error {
	if s.Key == "" {
		return errKeyRequired
	}
	if s.Name == "" {
		return fmt.Errorf("inserting schema %s: name is required", s.Key)
	}
	for index, arg := range map[string]string{"id": s.Key, "name": s.Name} {
		res, err := txn.First(schemaTableName, index, arg)
		if err != nil {
			return err
		}
		if res != nil {
			return fmt.Errorf("inserting schema %s: %w", s.Key, ErrAlreadyExists)
		}
	}
	return txn.Insert(schemaTableName, s.DeepCopy())
}

// Add adds a schema to the collection.
// s.Key and s.Name must be set and unique within the collection.
func (k *SchemasCollection) Add(s Schema) error {
	txn := k.db.Txn(true)
	defer txn.Abort()

	if err := insertSchema(txn, s); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Get gets a schema by key or name.
func (k *SchemasCollection) Get(keyOrName string) (*Schema, error) {
	if keyOrName == "" {
		return nil, errKeyRequired
	}

	txn := k.db.Txn(false)
	defer txn.Abort()
	return getSchema(txn, keyOrName)
}

// Update replaces the schema stored under s.Key.
func (k *SchemasCollection) Update(s Schema) error {
	if s.Key == "" {
		return errKeyRequired
	}
	txn := k.db.Txn(true)
	defer txn.Abort()

	if err := deleteSchema(txn, s.Key); err != nil {
		return err
	}
	if err := insertSchema(txn, s); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func deleteSchema(txn *memdb.Txn, key string) error {
	res, err := txn.First(schemaTableName, "id", key)
	if err != nil {
		return err
	}
	if res == nil {
		return ErrNotFound
	}
	return txn.Delete(schemaTableName, res)
}

// Delete deletes the schema stored under key.
func (k *SchemasCollection) Delete(key string) error {
	if key == "" {
		return errKeyRequired
	}
	txn := k.db.Txn(true)
	defer txn.Abort()

	if err := deleteSchema(txn, key); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// GetAll returns all schemas, ordered by key.
func (k *SchemasCollection) GetAll() ([]*Schema, error) {
	txn := k.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(schemaTableName, "id_prefix", "")
	if err != nil {
		return nil, err
	}
	var res []*Schema
	for el := iter.Next(); el != nil; el = iter.Next() {
		s, ok := el.(*Schema)
		if !ok {
			return nil, fmt.Errorf("expected *Schema, got %T", el)
		}
		res = append(res, s.DeepCopy())
	}
	return res, nil
}

// Replace drops every stored schema and stores the content of schemas
// in a single transaction.
func (k *SchemasCollection) Replace(schemas schema.SchemaMap) error {
	txn := k.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(schemaTableName, all, true); err != nil {
		return err
	}
	for key, d := range schemas {
		if d == nil {
			continue
		}
		if err := insertSchema(txn, Schema{Key: key, Descriptor: *d}); err != nil {
			return err
		}
	}
	txn.Commit()
	return nil
}
