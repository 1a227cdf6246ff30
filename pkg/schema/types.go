package schema

// Entry is a schema as listed by the catalogue.
type Entry struct {
	Name   string `json:"name"`
	Prefix string `json:"@prefix,omitempty"`
}

// Fields maps field names to their type, or to the nested definition of
// complex fields, exactly as returned by the server.
type Fields map[string]interface{}

// FieldsResponse is the payload of a per-schema fields request.
type FieldsResponse struct {
	Entry
	Fields Fields `json:"fields"`
}

// Descriptor describes one resolved schema. Fields stays nil when the
// fields of the schema could not be fetched.
type Descriptor struct {
	Name   string `json:"name"`
	Fields Fields `json:"fields,omitempty"`
}

// SchemaMap maps schema keys, see ResolveKey, to their descriptor.
type SchemaMap map[string]*Descriptor

// Result is the outcome of a Resolver.Fetch call.
type Result struct {
	// Schemas holds one descriptor per requested schema found in the catalogue.
	Schemas SchemaMap
	// Failures lists the schemas whose fields could not be fetched. A key
	// requested more than once is listed only if none of its requests
	// succeeded.
	Failures []*FieldFetchError
}

// Complete reports whether the fields of every schema were resolved.
func (r *Result) Complete() bool {
	return len(r.Failures) == 0
}

// Status is the state of a Resolver.
type Status int

const (
	// StatusIdle means no fetch has been started yet.
	StatusIdle Status = iota
	// StatusListing means the catalogue listing is in flight.
	StatusListing
	// StatusResolvingFields means per-schema field requests are in flight.
	StatusResolvingFields
	// StatusDone means the last fetch completed.
	StatusDone
	// StatusFailed means the last fetch failed to list the catalogue.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusListing:
		return "listing"
	case StatusResolvingFields:
		return "resolving-fields"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) inFlight() bool {
	return s == StatusListing || s == StatusResolvingFields
}
