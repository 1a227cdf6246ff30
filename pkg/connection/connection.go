package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
	"github.com/nuxeo/spreadsheet-schemas/pkg/schema"
	"github.com/nuxeo/spreadsheet-schemas/pkg/state"
	"github.com/rs/zerolog"
)

// Config holds the settings of a Connection.
type Config struct {
	Client rest.ClientConfig

	// Schemas lists the schemas to resolve on Connect, by prefix or name.
	// Defaults to every schema of the catalogue.
	Schemas []string

	// Concurrency limits the number of schema requests in flight.
	Concurrency int

	Logger *zerolog.Logger
}

// Connection is a session with the server. It resolves the requested
// schemas once, on Connect, and serves them for the rest of the session.
type Connection struct {
	client   *rest.Client
	resolver *schema.Resolver
	state    *state.SchemaState
	fields   *schema.Cache
	logger   zerolog.Logger

	mu      sync.Mutex
	schemas []string
	result  *schema.Result
	once    sync.Once
	err     error
}

// New returns a Connection that is not connected yet.
func New(config Config) (*Connection, error) {
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	if config.Client.Logger == nil {
		config.Client.Logger = &logger
	}

	client, err := rest.NewClient(config.Client)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	s, err := state.NewSchemaState()
	if err != nil {
		return nil, err
	}

	c := &Connection{
		client: client,
		resolver: schema.NewResolver(client,
			schema.WithLogger(logger),
			schema.WithConcurrency(config.Concurrency)),
		state:   s,
		fields:  schema.NewFieldsCache(client),
		logger:  logger,
		schemas: []string{schema.Wildcard},
	}
	if len(config.Schemas) > 0 {
		c.SetSchemas(config.Schemas...)
	}
	return c, nil
}

// Client returns the REST client of the connection.
func (c *Connection) Client() *rest.Client {
	return c.client
}

// Resolver returns the schema resolver owned by the connection.
func (c *Connection) Resolver() *schema.Resolver {
	return c.resolver
}

// SetSchemas sets the schemas resolved by Connect. It has no effect once
// Connect has been called.
func (c *Connection) SetSchemas(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas = append([]string(nil), keys...)
}

// Connect resolves the requested schemas. Only the first call talks to
// the server; later calls return its outcome.
func (c *Connection) Connect(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		requested := c.schemas
		c.mu.Unlock()

		c.logger.Debug().Str("url", c.client.BaseURL()).Msg("connecting")
		result, err := c.resolver.Fetch(ctx, requested)
		if err != nil {
			c.err = fmt.Errorf("connecting to %s: %w", c.client.BaseURL(), err)
			return
		}
		if err := c.state.Schemas.Replace(result.Schemas); err != nil {
			c.err = fmt.Errorf("storing schemas: %w", err)
			return
		}
		for key, d := range result.Schemas {
			if d.Fields != nil {
				c.fields.Add(d.Name, d.Fields)
			}
			c.logger.Debug().Str("schema", key).Bool("resolved", d.Fields != nil).Msg("schema loaded")
		}
		c.mu.Lock()
		c.result = result
		c.mu.Unlock()
	})
	return c.err
}

// Schema returns the resolved schema addressed by key or name.
func (c *Connection) Schema(keyOrName string) (*state.Schema, error) {
	return c.state.Schemas.Get(keyOrName)
}

// Schemas returns every resolved schema ordered by key.
func (c *Connection) Schemas() ([]*state.Schema, error) {
	return c.state.Schemas.GetAll()
}

// Result returns the outcome of Connect, nil if it failed or has not
// completed yet.
func (c *Connection) Result() *schema.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Failures returns the schemas whose fields could not be resolved on Connect.
func (c *Connection) Failures() []*schema.FieldFetchError {
	result := c.Result()
	if result == nil {
		return nil
	}
	return result.Failures
}

// Fields returns the fields of the schema addressed by keyOrName. Schemas
// resolved on Connect are served from the session; a schema name outside
// of it is fetched on first use and cached.
func (c *Connection) Fields(ctx context.Context, keyOrName string) (schema.Fields, error) {
	s, err := c.Schema(keyOrName)
	if err == nil && s.Resolved() {
		return s.Fields, nil
	}
	name := keyOrName
	if err == nil {
		name = s.Name
	}
	return c.fields.Get(ctx, name)
}
