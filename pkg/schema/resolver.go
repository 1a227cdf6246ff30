package schema

import (
	"context"
	"sync"

	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
	"github.com/nuxeo/spreadsheet-schemas/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Resolver resolves the field definitions of a set of schemas.
//
// A fetch runs in two phases: the catalogue is listed and filtered down
// to the requested schemas, then the fields of every retained schema are
// fetched concurrently and joined into a single SchemaMap.
//
// A Resolver runs at most one fetch at a time.
type Resolver struct {
	resource    *rest.Resource
	logger      zerolog.Logger
	concurrency int

	mu     sync.Mutex
	status Status
}

// ResolverOpt configures a Resolver.
type ResolverOpt func(*Resolver)

// WithLogger sets the logger failures and progress are reported to.
func WithLogger(logger zerolog.Logger) ResolverOpt {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithConcurrency limits the number of field requests in flight.
// A value <= 0 means no limit.
func WithConcurrency(n int) ResolverOpt {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// NewResolver returns a Resolver reading the schema catalogue through client.
func NewResolver(client *rest.Client, opts ...ResolverOpt) *Resolver {
	r := &Resolver{
		resource: rest.NewResource(client, CataloguePath),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns the current state of the resolver.
func (r *Resolver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Resolver) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Resolver) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.inFlight() {
		return false
	}
	r.status = StatusListing
	return true
}

// Fetch resolves the schemas addressed by requested, either by prefix or
// by name, "*" selecting the whole catalogue.
//
// Only a failure to list the catalogue fails the fetch, with a
// *CatalogueFetchError. Schemas whose fields cannot be fetched are kept
// in the result without fields and reported in Result.Failures.
// Requested keys unknown to the catalogue are left out of the result.
func (r *Resolver) Fetch(ctx context.Context, requested []string) (*Result, error) {
	if !r.begin() {
		return nil, ErrFetchInProgress
	}
	logger := r.logger.With().Str("fetch_id", utils.UUID()).Logger()

	result, err := r.fetch(ctx, logger, requested)
	if err != nil {
		r.setStatus(StatusFailed)
		logger.Error().Err(err).Msg("schema fetch failed")
		return nil, err
	}
	r.setStatus(StatusDone)
	logger.Debug().
		Int("schemas", len(result.Schemas)).
		Int("failures", len(result.Failures)).
		Msg("schema fetch done")
	return result, nil
}

func (r *Resolver) fetch(ctx context.Context, logger zerolog.Logger, requested []string) (*Result, error) {
	logger.Debug().Strs("requested", requested).Msg("listing schema catalogue")
	entries, err := ListCatalogue(ctx, r.resource)
	if err != nil {
		return nil, &CatalogueFetchError{Err: err}
	}
	schemas := Select(entries, requested)

	r.setStatus(StatusResolvingFields)
	tasks := plan(schemas, requested)
	logger.Debug().
		Int("catalogue", len(entries)).
		Int("selected", len(schemas)).
		Int("requests", len(tasks)).
		Msg("resolving schema fields")

	outcomes := r.resolveFields(ctx, tasks)
	failures := join(logger, schemas, outcomes)
	return &Result{Schemas: schemas, Failures: failures}, nil
}

type fieldOutcome struct {
	fieldTask
	resp *FieldsResponse
	err  error
}

// resolveFields runs one request per task and returns the outcomes in
// completion order.
func (r *Resolver) resolveFields(ctx context.Context, tasks []fieldTask) []fieldOutcome {
	completed := make(chan fieldOutcome, len(tasks))
	var group errgroup.Group
	if r.concurrency > 0 {
		group.SetLimit(r.concurrency)
	}
	for _, task := range tasks {
		group.Go(func() error {
			resp, err := FetchFields(ctx, r.resource, task.name)
			completed <- fieldOutcome{fieldTask: task, resp: resp, err: err}
			return nil
		})
	}
	_ = group.Wait()
	close(completed)

	outcomes := make([]fieldOutcome, 0, len(tasks))
	for o := range completed {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// join applies outcomes to schemas in order, so that of two responses
// for the same key the last one to complete wins. Failed requests leave
// the descriptor untouched. They are returned as FieldFetchErrors unless
// another request for the same key succeeded.
func join(logger zerolog.Logger, schemas SchemaMap, outcomes []fieldOutcome) []*FieldFetchError {
	var failures []*FieldFetchError
	for _, o := range outcomes {
		if o.err != nil {
			ferr := &FieldFetchError{Key: o.key, Name: o.name, Err: o.err}
			logger.Error().Err(o.err).
				Str("schema", o.key).
				Str("name", o.name).
				Msg("failed to fetch schema fields")
			failures = append(failures, ferr)
			continue
		}
		d, ok := schemas[o.key]
		if !ok {
			continue
		}
		if got := ResolveKey(o.resp.Entry); got != o.key {
			logger.Warn().
				Str("schema", o.key).
				Str("reported", got).
				Msg("fields response reports a different schema key")
		}
		fields := o.resp.Fields
		if fields == nil {
			fields = Fields{}
		}
		d.Fields = fields
	}
	return lo.Filter(failures, func(f *FieldFetchError, _ int) bool {
		d, ok := schemas[f.Key]
		return !ok || d.Fields == nil
	})
}
