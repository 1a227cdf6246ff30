package file

import (
	"github.com/nuxeo/spreadsheet-schemas/pkg/schema"
)

// Format is a file format for resolved schemas.
type Format string

const (
	// JSON is JSON file format.
	JSON = "JSON"
	// YAML if YAML file format.
	YAML = "YAML"
)

// FSchema is a resolved schema as written to a file.
type FSchema struct {
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Fields  schema.Fields   `json:"fields,omitempty"`
	Columns []schema.Column `json:"columns,omitempty"`
}

// FError is a per-schema failure as written to a file.
type FError struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Content represents the serialized form of a schema fetch.
type Content struct {
	Server  string    `json:"server,omitempty"`
	Schemas []FSchema `json:"schemas"`
	Errors  []FError  `json:"errors,omitempty"`
}
