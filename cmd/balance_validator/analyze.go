package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/balance-validator/internal/analysis"
	"github.com/jonathan/balance-validator/internal/export"
	"github.com/jonathan/balance-validator/internal/render"
	"github.com/jonathan/balance-validator/internal/types"
	"github.com/jonathan/balance-validator/internal/workflow"
)

type analyzeOptions struct {
	exportDir string
	noHistory bool
}

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf>",
		Short: "Analyze a financial statement PDF",
		Long:  "Sends the PDF to the configured analysis backend, prints the verdict and checklist, and records the run in history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), g, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.exportDir, "export-dir", "", "Also write the Excel report to this directory")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record the run in history")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, g *globalOptions, opts *analyzeOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	client, err := a.analyzer(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	var recorder workflow.Recorder
	if !opts.noHistory {
		recorder = a.history
	}
	ctrl := workflow.New(client, recorder, a.logger)

	doc := analysis.Document{
		Name:     filepath.Base(path),
		MIMEType: declaredType(path),
		Data:     data,
	}
	st, err := ctrl.Submit(ctx, doc)
	// Let the history write finish before the storage is closed.
	ctrl.Wait()
	if err != nil {
		return err
	}

	if err := render.New(out).Result(st.FileName, st.Result); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nProcesado en %.1f s\n", st.ProcessingTime)

	if opts.exportDir != "" {
		target, err := writeExport(opts.exportDir, st.Result, doc.Name, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Reporte exportado: %s\n", target)
	}
	return nil
}

// declaredType mimics the type a browser reports for a picked file.
func declaredType(path string) string {
	return mime.TypeByExtension(filepath.Ext(path))
}

func writeExport(dir string, result *types.ValidationResult, source string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	target := filepath.Join(dir, export.FileName(source, now))
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if err := export.Write(f, result, source, now); err != nil {
		f.Close() //nolint:errcheck
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return target, nil
}
