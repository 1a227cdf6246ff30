//go:build integration

package integration

import (
	"os"
	"testing"

	"github.com/nuxeo/spreadsheet-schemas/pkg/connection"
	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func getServerAddress() string {
	address := os.Getenv("NXSCHEMAS_URL")
	if address != "" {
		return address
	}
	return rest.DefaultBaseURL
}

func getTestClientConfig() rest.ClientConfig {
	username := os.Getenv("NXSCHEMAS_USERNAME")
	if username == "" {
		username = "Administrator"
	}
	password := os.Getenv("NXSCHEMAS_PASSWORD")
	if password == "" {
		password = "Administrator"
	}
	return rest.ClientConfig{
		BaseURL:  getServerAddress(),
		Username: username,
		Password: password,
	}
}

func getTestClient(t *testing.T) *rest.Client {
	t.Helper()
	client, err := rest.NewClient(getTestClientConfig())
	require.NoError(t, err)
	return client
}

func newTestConnection(t *testing.T, schemas ...string) *connection.Connection {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	conn, err := connection.New(connection.Config{
		Client:  getTestClientConfig(),
		Schemas: schemas,
		Logger:  &logger,
	})
	require.NoError(t, err)
	return conn
}
