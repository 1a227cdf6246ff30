package state

import (
	"errors"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
)

var (
	// ErrNotFound is an error type that is
	// returned when an entity is not found in the state.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists represents an entity is already present in the state.
	ErrAlreadyExists = errors.New("entity already exists")

	errKeyRequired = errors.New("key is required")
)

const all = "all"

var allIndex = &memdb.IndexSchema{
	Name: all,
	Indexer: &memdb.ConditionalIndex{
		Conditional: func(interface{}) (bool, error) {
			return true, nil
		},
	},
}

type collection struct {
	db *memdb.MemDB
}

// SchemaState is an in-memory store of the schemas resolved for a session.
type SchemaState struct {
	common collection

	Schemas *SchemasCollection
}

// NewSchemaState creates a new in-memory SchemaState.
func NewSchemaState() (*SchemaState, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			schemaTableName: schemaTableSchema,
		},
	}

	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("creating new in-memory state: %w", err)
	}
	var state SchemaState
	state.common = collection{
		db: memDB,
	}

	state.Schemas = (*SchemasCollection)(&state.common)
	return &state, nil
}

// multiIndexLookupUsingTxn returns the first entity of tableName found by
// one of the indices, tried in order.
func multiIndexLookupUsingTxn(txn *memdb.Txn, tableName string,
	indices []string, args ...interface{},
) (interface{}, error) {
	for _, indexName := range indices {
		res, err := txn.First(tableName, indexName, args...)
		if err != nil {
			return nil, fmt.Errorf("lookup in %s by %s: %w", tableName, indexName, err)
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, ErrNotFound
}
