package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nuxeo/spreadsheet-schemas/pkg/connection"
	"github.com/nuxeo/spreadsheet-schemas/pkg/cprint"
	"github.com/nuxeo/spreadsheet-schemas/pkg/file"
	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
	"github.com/nuxeo/spreadsheet-schemas/pkg/schema"
	"github.com/nuxeo/spreadsheet-schemas/pkg/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func addConnectionFlags(flags *pflag.FlagSet) {
	flags.String("url", rest.DefaultBaseURL, "REST API root of the server")
	flags.String("username", "", "Username for basic auth")
	flags.String("password", "", "Password for basic auth")
	flags.StringSlice("header", nil, "Header added to every request, as 'name:value'")
	flags.String("cookie-jar", "", "Netscape cookie file holding session cookies")
	flags.Duration("timeout", 30*time.Second, "Timeout of each request")
	flags.Int("retries", 0, "Retries of a failed request")
	flags.Int("concurrency", 0, "Maximum number of schema requests in flight, 0 means no limit")
}

// flagBindings maps viper keys to flag names.
type flagBindings map[string]string

var connectionFlagBindings = flagBindings{
	"url":         "url",
	"username":    "username",
	"password":    "password",
	"headers":     "header",
	"cookie_jar":  "cookie-jar",
	"timeout":     "timeout",
	"retries":     "retries",
	"concurrency": "concurrency",
}

// bindFlags binds the flags of the command being run, commands sharing
// viper keys must not bind them at construction time.
func bindFlags(flags *pflag.FlagSet, bindings ...flagBindings) error {
	for _, b := range bindings {
		for key, name := range b {
			if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// headerList reads the headers setting. A plain string, as set through
// the environment, is split on commas only since header values hold spaces.
func headerList() []string {
	if v, ok := viper.Get("headers").(string); ok {
		return utils.SplitList(v)
	}
	return viper.GetStringSlice("headers")
}

func connectionConfig(schemas []string) (connection.Config, error) {
	retries := viper.GetInt("retries")
	if retries < 0 {
		return connection.Config{}, fmt.Errorf("%w: retries must be >= 0", errInvalidArgument)
	}
	return connection.Config{
		Client: rest.ClientConfig{
			BaseURL:       viper.GetString("url"),
			Username:      viper.GetString("username"),
			Password:      viper.GetString("password"),
			Headers:       headerList(),
			CookieJarPath: viper.GetString("cookie_jar"),
			Timeout:       viper.GetDuration("timeout"),
			RetryMax:      retries,
		},
		Schemas:     schemas,
		Concurrency: viper.GetInt("concurrency"),
		Logger:      &log.Logger,
	}, nil
}

func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Resolve schemas and write them with their fields",
		Long: `Resolve schemas and write them with their fields.

Schemas are addressed by prefix or by name, "*" selects every schema
of the catalogue. Schemas unknown to the server are ignored.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd.Flags(), connectionFlagBindings, fetchFlagBindings)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context())
		},
	}
	flags := cmd.Flags()
	addConnectionFlags(flags)
	flags.StringSlice("schemas", []string{schema.Wildcard}, "Schemas to resolve, by prefix or name")
	flags.StringP("output-file", "o", "-", "Output file, '-' writes to stdout")
	flags.String("format", "yaml", "Output format (yaml, json)")
	flags.Bool("columns", false, "Include the grid columns of every schema")
	flags.Bool("strict", false, "Fail when the fields of a schema cannot be resolved")
	return cmd
}

var fetchFlagBindings = flagBindings{
	"schemas":     "schemas",
	"output_file": "output-file",
	"format":      "format",
	"columns":     "columns",
	"strict":      "strict",
}

func parseFormat(s string) (file.Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case file.YAML:
		return file.YAML, nil
	case file.JSON:
		return file.JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", errInvalidArgument, s)
	}
}

func runFetch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := parseFormat(viper.GetString("format"))
	if err != nil {
		return err
	}
	requested := utils.SplitList(viper.GetStringSlice("schemas")...)
	if len(requested) == 0 {
		return fmt.Errorf("%w: no schema requested", errInvalidArgument)
	}
	config, err := connectionConfig(requested)
	if err != nil {
		return err
	}
	conn, err := connection.New(config)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidArgument, err)
	}

	if err := conn.Connect(ctx); err != nil {
		return err
	}
	result := conn.Result()

	outputFile := viper.GetString("output_file")
	err = file.ResultToFile(result, file.WriteConfig{
		Filename:    outputFile,
		FileFormat:  format,
		Server:      conn.Client().BaseURL(),
		WithColumns: viper.GetBool("columns"),
	})
	if err != nil {
		return err
	}

	for _, f := range result.Failures {
		cprint.WarnPrintlnStdErr("Warning:", f.Error())
	}
	if outputFile != "-" {
		schemas, err := conn.Schemas()
		if err != nil {
			return err
		}
		for _, s := range schemas {
			if s.Resolved() {
				cprint.SuccessPrintln("resolved", s.Key, "("+s.Name+")")
			}
		}
		cprint.SuccessPrintf("resolved %d schema(s) into %s\n", len(result.Schemas), outputFile)
	}
	if !result.Complete() && viper.GetBool("strict") {
		return fmt.Errorf("%w: %d failure(s)", errIncomplete, len(result.Failures))
	}
	return nil
}
