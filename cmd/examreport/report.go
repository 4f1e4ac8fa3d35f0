package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appI18n "github.com/pavelanni/examreport/internal/i18n"
	"github.com/pavelanni/examreport/internal/ingest"
	"github.com/pavelanni/examreport/internal/report"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Import exam spreadsheets and PDFs into a user's dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	f := cmd.Flags()
	f.StringP("lang", "l", "ko", "Report language (en, ko)")
	addStoreFlags(f)
	addColumnFlags(f)
	addLogFlags(f)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a class or student report as JSON",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("class", "", "Class name (required)")
	f.String("date", "", "Session date label, e.g. 10월30일 (required)")
	f.String("student", "", "Student name for an individual report")
	f.Bool("ai", true, "Fetch missing AI analysis before printing")
	f.StringP("lang", "l", "ko", "Report language (en, ko)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addStoreFlags(f)
	addLLMFlags(f)
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a class report as an XLSX workbook",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("class", "", "Class name (required)")
	f.String("date", "", "Session date label (required)")
	f.StringP("lang", "l", "ko", "Workbook language (en, ko)")
	f.StringP("output", "o", "", "Output .xlsx path (default <class>_<date>.xlsx)")
	addStoreFlags(f)
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	files := make([]ingest.File, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, ingest.File{Name: filepath.Base(path), Content: data})
	}

	svc, closeStore, err := newService(ctx, v, false)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := svc.Upload(ctx, v.GetString("user"), files)
	if res != nil {
		if werr := writeJSONTo("-", res); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := localized(cmd.Context(), v)
	withAI := v.GetBool("ai")

	svc, closeStore, err := newService(ctx, v, withAI)
	if err != nil {
		return err
	}
	defer closeStore()

	user, class, date := v.GetString("user"), v.GetString("class"), v.GetString("date")
	var view any
	if student := v.GetString("student"); student != "" {
		iv, err := svc.StudentReport(ctx, user, class, date, student, withAI)
		if iv == nil {
			return fmt.Errorf("student report: %w", err)
		}
		warnIfUnsaved(err)
		view = iv
	} else {
		cv, err := svc.ClassReport(ctx, user, class, date, withAI)
		if cv == nil {
			return fmt.Errorf("class report: %w", err)
		}
		warnIfUnsaved(err)
		view = cv
	}
	return writeJSONTo(v.GetString("output"), view)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := localized(cmd.Context(), v)

	svc, closeStore, err := newService(ctx, v, false)
	if err != nil {
		return err
	}
	defer closeStore()

	class, date := v.GetString("class"), v.GetString("date")
	view, err := svc.ClassReport(ctx, v.GetString("user"), class, date, false)
	if err != nil {
		return fmt.Errorf("class report: %w", err)
	}

	out := v.GetString("output")
	if out == "" {
		out = fmt.Sprintf("%s_%s.xlsx", class, date)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := report.WriteWorkbook(ctx, f, view); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	slog.Info("exported workbook", "path", out, "class", class, "date", date)
	return nil
}

// localized returns ctx carrying a localizer for the --lang flag.
func localized(ctx context.Context, v *viper.Viper) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		slog.Warn("init i18n", "error", err)
		return ctx
	}
	return appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(v.GetString("lang")))
}

func warnIfUnsaved(err error) {
	if err != nil {
		slog.Warn("report served but the dataset could not be saved", "error", err)
	}
}

func writeJSONTo(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}
