package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/config"
	"github.com/teemow/bandavail/internal/export"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/schedule"
)

// sheetSession is what the sheet commands need: the service and a sheet
// opened with the stored token.
type sheetSession struct {
	service *availability.Service
	sheet   availability.SheetClient
}

func openSheetSession(ctx context.Context) (*sheetSession, error) {
	rt, err := loadRuntime(os.Stderr, nil, config.RequireGoogle)
	if err != nil {
		return nil, err
	}
	service, err := rt.newService(nil, instrumentation.NewAuditLogger(rt.logger))
	if err != nil {
		return nil, err
	}
	sheet, err := rt.localSheet(ctx, rt.newOpener(nil))
	if err != nil {
		return nil, err
	}
	return &sheetSession{service: service, sheet: sheet}, nil
}

func newMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List the band members in the availability sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSheetSession(cmd.Context())
			if err != nil {
				return err
			}
			members, err := s.service.Members(cmd.Context(), s.sheet)
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	var (
		xlsxPath string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the upcoming schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSheetSession(cmd.Context())
			if err != nil {
				return err
			}
			grid, err := s.service.Schedule(cmd.Context(), s.sheet)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				return writeScheduleFile(xlsxPath, grid, cmd.OutOrStdout())
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"schedule": grid})
			}
			return printGrid(cmd.OutOrStdout(), grid)
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the schedule to this xlsx file instead of printing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the schedule as JSON")

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "update --member NAME TEXT...",
		Short: "Update a member's availability from a plain-language statement",
		Example: `  bandavail update --member Alice "I can't make it on Fridays in June"
  bandavail update --member Bob available every weekend in May`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSheetSession(cmd.Context())
			if err != nil {
				return err
			}

			ctx := availability.ContextWithSource(cmd.Context(), instrumentation.SourceCLI)
			result, err := s.service.UpdateAvailability(ctx, s.sheet, member, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printUpdateResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&member, "member", "m", "", "Member name as it appears in the sheet header")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

// printGrid renders the schedule as aligned columns. Short rows are padded.
func printGrid(w io.Writer, grid schedule.Grid) error {
	width := 0
	for _, row := range grid {
		width = max(width, len(row))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for r := range grid {
		cells := make([]string, width)
		for c := range cells {
			cells[c] = grid.Cell(r, c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func printUpdateResult(w io.Writer, result *availability.UpdateResult) {
	fmt.Fprintln(w, result.Message)
	if len(result.Dates) > 0 {
		fmt.Fprintf(w, "Marked %s: %s\n", result.Status, strings.Join(result.Dates, ", "))
	}
}

func writeScheduleFile(path string, grid schedule.Grid, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteXLSX(f, grid, ""); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Schedule written to %s\n", path)
	return nil
}
