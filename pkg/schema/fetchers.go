package schema

import (
	"context"
	"fmt"

	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
)

// CataloguePath is the REST path listing every schema known to the server.
const CataloguePath = "/config/schemas"

// FieldsOpt is the query string of a per-schema request.
type FieldsOpt struct {
	FetchSchema string `url:"fetch.schema,omitempty"`
}

// fetchFieldsOpt asks the server to inline the field definitions.
var fetchFieldsOpt = FieldsOpt{FetchSchema: "fields"}

// ListCatalogue fetches the full schema catalogue.
func ListCatalogue(ctx context.Context, resource *rest.Resource) ([]Entry, error) {
	var entries []Entry
	// no repository override, the catalogue is server wide
	if err := resource.Execute(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchFields fetches the field definitions of the schema called name.
// The canonical name must be used, prefixes are not resolved by the server.
func FetchFields(ctx context.Context, resource *rest.Resource, name string) (*FieldsResponse, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	var resp FieldsResponse
	err := resource.Get(ctx, name, &rest.RequestOpt{Query: fetchFieldsOpt}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
