package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	listSuffix = "[]"
	// anyIndex addresses every item of a list in a column path.
	anyIndex = "*"
)

// Column is a grid column addressing one leaf field of a schema.
type Column struct {
	// Path is the property path of the field, e.g. "dc:title" or
	// "files:files/*/file".
	Path string `json:"path"`
	// Type is the field type without its list marker.
	Type string `json:"type"`
	// Multiple is set for list fields.
	Multiple bool `json:"multiple,omitempty"`
}

// Columns flattens the fields of the schema addressed by key into grid
// columns, sorted by path. Complex fields are expanded into one column
// per nested leaf field.
func Columns(key string, fields Fields) ([]Column, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	jsonb, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding fields of schema %s: %w", key, err)
	}
	parsed := gjson.ParseBytes(jsonb)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("fields of schema %s are not an object", key)
	}

	columns := walkFields(key+":", parsed, nil)
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Path < columns[j].Path
	})
	return columns, nil
}

// walkFields appends a column per leaf of fields, a gjson object mapping
// names to either a type string or a {"type", "fields"} definition.
func walkFields(prefix string, fields gjson.Result, columns []Column) []Column {
	fields.ForEach(func(name, value gjson.Result) bool {
		path := prefix + name.String()

		switch {
		case value.Type == gjson.String:
			columns = append(columns, newColumn(path, value.String()))
		case value.IsObject():
			col := newColumn(path, value.Get("type").String())
			nested := value.Get("fields")
			if !nested.IsObject() {
				columns = append(columns, col)
				return true
			}
			if col.Multiple {
				path += "/" + anyIndex
			}
			columns = walkFields(path+"/", nested, columns)
		}
		return true
	})
	return columns
}

func newColumn(path, typ string) Column {
	col := Column{Path: path, Type: typ}
	if strings.HasSuffix(typ, listSuffix) {
		col.Type = strings.TrimSuffix(typ, listSuffix)
		col.Multiple = true
	}
	return col
}
