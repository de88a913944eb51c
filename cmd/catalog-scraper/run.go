package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/maltedev/catalog-scraper/internal/batch"
	"github.com/maltedev/catalog-scraper/internal/export"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a list of product URLs and write the workbook and images",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		outDir, _ := cmd.Flags().GetString("out")
		strategy, _ := cmd.Flags().GetString("strategy")

		cfg, log, err := setup()
		if err != nil {
			return err
		}

		input, err := readInput(file, cmd.InOrStdin())
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		runner, err := pipeline.Build(cfg, strategy, log, batch.WithProgress(func(done, total int, url string) {
			fmt.Fprintf(stderr, "[%d/%d] %s\n", done, total, url)
		}))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result := runner.Run(ctx, batch.ParseURLList(input))
		if result.Notice != "" {
			fmt.Fprintln(stderr, result.Notice)
			return nil
		}

		printWarnings(stderr, result)

		workbook, bundle, err := writeArtifacts(outDir, time.Now(), result)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d records, %d images, %d warnings\n%s\n%s\n",
			len(result.Records), len(result.Assets), len(result.Warnings), workbook, bundle)
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("file", "f", "-", "File with one product URL per line (- for stdin)")
	runCmd.Flags().StringP("out", "o", ".", "Directory for the workbook and image zip")
	runCmd.Flags().String("strategy", "", "Fetch strategy: http or session (default from FETCH_STRATEGY)")
}

func readInput(file string, stdin io.Reader) (string, error) {
	if file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read url list: %w", err)
	}
	return string(data), nil
}

func printWarnings(w io.Writer, result *models.BatchResult) {
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning [%s] %s: %s\n", warning.Kind, warning.Target, warning.Reason)
	}
}

func writeArtifacts(dir string, now time.Time, result *models.BatchResult) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	workbook := filepath.Join(dir, export.WorkbookName(now))
	if err := writeFile(workbook, func(w io.Writer) error {
		return export.WriteWorkbook(w, result.Records)
	}); err != nil {
		return "", "", err
	}

	bundle := filepath.Join(dir, export.BundleName(now))
	if err := writeFile(bundle, func(w io.Writer) error {
		return export.WriteImageBundle(w, result.Assets)
	}); err != nil {
		return "", "", err
	}

	return workbook, bundle, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
