package schema

import (
	"errors"
	"fmt"
)

// ErrFetchInProgress is returned when Fetch is called on a Resolver
// that is already fetching.
var ErrFetchInProgress = errors.New("schema fetch already in progress")

// CatalogueFetchError is returned when the schema catalogue cannot be listed.
type CatalogueFetchError struct {
	Err error
}

func (e *CatalogueFetchError) Error() string {
	return fmt.Sprintf("listing schema catalogue: %v", e.Err)
}

func (e *CatalogueFetchError) Unwrap() error {
	return e.Err
}

// FieldFetchError records a failure to fetch the fields of one schema.
type FieldFetchError struct {
	// Key is the key the schema is addressed by in the SchemaMap.
	Key string `json:"key"`
	// Name is the canonical schema name the request was issued for.
	Name string `json:"name"`
	Err  error  `json:"error"`
}

func (e *FieldFetchError) Error() string {
	return fmt.Sprintf("fetching fields of schema %s (%s): %v", e.Key, e.Name, e.Err)
}

func (e *FieldFetchError) Unwrap() error {
	return e.Err
}
