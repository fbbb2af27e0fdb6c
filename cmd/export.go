package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records to CSV",
	Long: `Export attendance records between --from and --to (inclusive, YYYY-MM-DD)
as CSV. Without --out the CSV is written to stdout.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("from", "", "First day to export (defaults to the first day of the current month)")
	exportCmd.Flags().String("to", "", "Last day to export (defaults to today)")
	exportCmd.Flags().String("name", "", "Only export users whose name contains this text")
	exportCmd.Flags().String("out", "", "Output file (defaults to stdout)")
}

var exportHeader = []string{
	"date", "user_name", "user_email", "status",
	"check_in_time", "check_in_latitude", "check_in_longitude",
	"check_out_time", "check_out_latitude", "check_out_longitude",
	"face_match_score",
}

// resolveExportRange applies defaults and validates the --from/--to flags.
func resolveExportRange(from, to string, now time.Time) (string, string, error) {
	now = now.UTC()
	if from == "" {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(database.DateLayout)
	}
	if to == "" {
		to = now.Format(database.DateLayout)
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse(database.DateLayout, d); err != nil {
			return "", "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}
	if from > to {
		return "", "", fmt.Errorf("--from %s is after --to %s", from, to)
	}
	return from, to, nil
}

func formatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// writeAttendanceCSV writes records as CSV, calling progress after each row.
func writeAttendanceCSV(w io.Writer, records []database.StoredAttendance, progress func()) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.Date,
			rec.UserName,
			rec.UserEmail,
			string(rec.Status),
			rec.CheckIn.At.UTC().Format(time.RFC3339),
			formatFloat(rec.CheckIn.Location.Latitude, 6),
			formatFloat(rec.CheckIn.Location.Longitude, 6),
			"", "", "",
			formatFloat(rec.FaceMatchScore, 1),
		}
		if rec.CheckOut != nil {
			row[7] = rec.CheckOut.At.UTC().Format(time.RFC3339)
			row[8] = formatFloat(rec.CheckOut.Location.Latitude, 6)
			row[9] = formatFloat(rec.CheckOut.Location.Longitude, 6)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		if progress != nil {
			progress()
		}
	}

	cw.Flush()
	return cw.Error()
}

func runExport(cmd *cobra.Command, args []string) error {
	from, to, err := resolveExportRange(mustGetString(cmd, "from"), mustGetString(cmd, "to"), time.Now())
	if err != nil {
		return err
	}

	cfg := config.Load()
	pool, err := connectCLIStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx := cmd.Context()
	reader, err := database.GetAttendanceReader(ctx)
	if err != nil {
		return err
	}

	records, err := reader.ListAttendance(ctx, database.AttendanceFilter{
		From: from,
		To:   to,
		Name: mustGetString(cmd, "name"),
	})
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	outPath := mustGetString(cmd, "out")
	if outPath == "" {
		return writeAttendanceCSV(os.Stdout, records, nil)
	}

	f, err := os.Create(outPath) //nolint:gosec // path is given by the operator
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
	if err := writeAttendanceCSV(f, records, func() { _ = bar.Add(1) }); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	_ = bar.Finish()

	fmt.Printf("\nExported %d records (%s to %s) to %s\n", len(records), from, to, outPath)
	return nil
}
