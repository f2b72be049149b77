package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/balance-validator/internal/render"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage past analyses",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				entries, err := a.history.List(cmd.Context())
				if err != nil {
					return err
				}
				return render.New(cmd.OutOrStdout()).History(entries)
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the result of a past analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				entry, err := a.history.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if err := render.New(out).Result(entry.FileName, &entry.Result); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s · procesado en %.1f s\n", render.FormatDate(entry.CreatedAt), entry.ProcessingTime)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				if err := a.history.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Registro eliminado.")
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				if err := a.history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Historial eliminado.")
				return nil
			})
		},
	}

	var exportDir string
	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the Excel report of a past analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				entry, err := a.history.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				target, err := writeExport(exportDir, &entry.Result, entry.FileName, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reporte exportado: %s\n", target)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "Directory to write the report to")

	var pdfOut string
	pdfCmd := &cobra.Command{
		Use:   "pdf <id>",
		Short: "Save the original PDF of a past analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, func(a *app) error {
				return savePDF(cmd.Context(), cmd.OutOrStdout(), a, args[0], pdfOut)
			})
		},
	}
	pdfCmd.Flags().StringVarP(&pdfOut, "out", "o", "", "Output path (default: the original file name)")

	cmd.AddCommand(listCmd, showCmd, deleteCmd, clearCmd, exportCmd, pdfCmd)
	return cmd
}

func withApp(ctx context.Context, g *globalOptions, fn func(*app) error) error {
	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck
	return fn(a)
}

func savePDF(ctx context.Context, out io.Writer, a *app, id, target string) error {
	entry, err := a.history.Get(ctx, id)
	if err != nil {
		return err
	}
	data, err := entry.DecodePDF()
	if err != nil {
		return err
	}
	if target == "" {
		target = filepath.Base(entry.FileName)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	fmt.Fprintf(out, "PDF guardado: %s\n", target)
	return nil
}
