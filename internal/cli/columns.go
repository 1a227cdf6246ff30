package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nuxeo/spreadsheet-schemas/pkg/connection"
	"github.com/nuxeo/spreadsheet-schemas/pkg/cprint"
	"github.com/nuxeo/spreadsheet-schemas/pkg/schema"
	"github.com/nuxeo/spreadsheet-schemas/pkg/utils"
	"github.com/spf13/cobra"
)

func newColumnsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns SCHEMA...",
		Short: "List the grid columns of schemas",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd.Flags(), connectionFlagBindings)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runColumns(ctx, cmd.OutOrStdout(), utils.SplitList(args...))
		},
	}
	addConnectionFlags(cmd.Flags())
	return cmd
}

func runColumns(ctx context.Context, out io.Writer, keys []string) error {
	config, err := connectionConfig(keys)
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

	schemas, err := conn.Schemas()
	if err != nil {
		return err
	}
	if len(schemas) == 0 {
		cprint.WarnPrintlnStdErr("Warning: none of the requested schemas exist")
		return nil
	}
	for _, f := range conn.Failures() {
		cprint.WarnPrintlnStdErr("Warning:", f.Error())
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tMULTIPLE\tSCHEMA")
	for _, s := range schemas {
		if !s.Resolved() {
			continue
		}
		columns, err := schema.Columns(s.Key, s.Fields)
		if err != nil {
			return err
		}
		for _, c := range columns {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.Path, c.Type, c.Multiple, s.Name)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing columns: %w", err)
	}
	if len(conn.Failures()) > 0 {
		return fmt.Errorf("%w: %d failure(s)", errIncomplete, len(conn.Failures()))
	}
	return nil
}
