package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/cobra"

	"github.com/pagetext-io/pagetext/internal/cache"
	"github.com/pagetext-io/pagetext/internal/config"
	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/engine"
	"github.com/pagetext-io/pagetext/internal/pipeline"
	"github.com/pagetext-io/pagetext/internal/raster"
	"github.com/pagetext-io/pagetext/internal/report"
)

// extractCmd represents the extract command.
var extractCmd = &cobra.Command{
	Use:   "extract [file...]",
	Short: "Extract text from documents",
	Long: `Extract text from scanned documents (PDF or image files).

Each page is rasterized and recognized independently with a bounded worker
pool. Pages that fail or time out are reported individually; the remaining
pages still produce text.

Examples:
  pagetext extract scan.pdf
  pagetext extract scan.pdf --pages 1-5 --format json
  pagetext extract report.png --dpi 300 --labs`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("format", "f", "", "output format (text, json, csv)")
	extractCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().String("pages", "", "page range to process, PDF only (e.g. '1-5', '1,3,5')")
	extractCmd.Flags().Int("dpi", 0, "target render DPI (default from config)")
	extractCmd.Flags().String("color-mode", "", "render color mode (gray, color)")
	extractCmd.Flags().StringP("language", "l", "", "recognition language (BCP 47, e.g. en, de)")
	extractCmd.Flags().Int("workers", 0, "max worker goroutines for page recognition (0=NumCPU)")
	extractCmd.Flags().Duration("page-timeout", 0, "per-page recognition deadline (0=config default)")
	extractCmd.Flags().Bool("fail-fast", false, "abort on the first page failure")
	extractCmd.Flags().Bool("no-cache", false, "bypass the result cache")
	extractCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	extractCmd.Flags().Bool("labs", false, "scan extracted text for common lab values and flag abnormal ones")
}

// extractOptions carries the resolved flag values for one invocation.
type extractOptions struct {
	format      string
	outputFile  string
	pages       string
	render      document.RenderConfig
	workers     int
	pageTimeout time.Duration
	failFast    bool
	noCache     bool
	progress    bool
	labs        bool
}

func resolveExtractOptions(cmd *cobra.Command, cfg *config.Config) (extractOptions, error) {
	var opts extractOptions
	opts.format, _ = cmd.Flags().GetString("format")
	if opts.format == "" {
		opts.format = cfg.Output.Format
	}
	switch opts.format {
	case "", "text":
		opts.format = "text"
	case "json", "csv":
	default:
		return opts, fmt.Errorf("unknown output format %q", opts.format)
	}

	opts.outputFile, _ = cmd.Flags().GetString("output")
	if opts.outputFile == "" {
		opts.outputFile = cfg.Output.File
	}
	opts.pages, _ = cmd.Flags().GetString("pages")

	opts.render = cfg.RenderConfig()
	if dpi, _ := cmd.Flags().GetInt("dpi"); dpi > 0 {
		opts.render.TargetDPI = dpi
	}
	if mode, _ := cmd.Flags().GetString("color-mode"); mode != "" {
		opts.render.ColorMode = document.ColorMode(mode)
	}
	if lang, _ := cmd.Flags().GetString("language"); lang != "" {
		opts.render.Language = lang
	}
	if err := opts.render.Validate(); err != nil {
		return opts, err
	}

	opts.workers, _ = cmd.Flags().GetInt("workers")
	if opts.workers <= 0 {
		opts.workers = cfg.Pipeline.MaxWorkers
	}
	if opts.workers <= 0 {
		opts.workers = runtime.NumCPU()
	}
	opts.pageTimeout, _ = cmd.Flags().GetDuration("page-timeout")
	if opts.pageTimeout <= 0 {
		opts.pageTimeout = cfg.Pipeline.PageTimeout()
	}
	failFast, _ := cmd.Flags().GetBool("fail-fast")
	opts.failFast = failFast || cfg.Pipeline.FailFast
	opts.noCache, _ = cmd.Flags().GetBool("no-cache")
	opts.progress, _ = cmd.Flags().GetBool("progress")
	opts.labs, _ = cmd.Flags().GetBool("labs")
	return opts, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	opts, err := resolveExtractOptions(cmd, cfg)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, opts.workers)
	if err != nil {
		return err
	}

	builder := pipeline.NewBuilder().
		WithEngine(eng).
		WithMaxWorkers(opts.workers).
		WithPageTimeout(opts.pageTimeout).
		WithFailFast(opts.failFast).
		WithCache(!opts.noCache && cfg.Cache.Enabled, cache.Config{
			Capacity: cfg.Cache.Capacity,
			TTL:      cfg.Cache.TTL(),
		})
	if opts.progress {
		builder = builder.WithProgressCallback(
			pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "pages"))
	}

	pl, err := builder.Build()
	if err != nil {
		return err
	}
	defer func() { _ = pl.Close() }()

	var out strings.Builder
	for i, path := range args {
		data, err := loadDocument(path, opts.pages)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		result, err := pl.Process(cmd.Context(), data, opts.render)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		formatted, err := formatResult(result, opts.format)
		if err != nil {
			return err
		}
		if len(args) > 1 && opts.format == "text" {
			out.WriteString(fmt.Sprintf("=== %s ===\n", filepath.Base(path)))
		}
		out.WriteString(formatted)
		if i < len(args)-1 {
			out.WriteString("\n")
		}

		if opts.labs {
			writeLabReport(cmd, path, result)
		}
	}

	if opts.outputFile != "" {
		return os.WriteFile(opts.outputFile, []byte(out.String()), 0o600)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out.String())
	return err
}

// loadDocument reads a file, applying the page range up front for PDFs so
// downstream page indices stay dense.
func loadDocument(path, pages string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, err
	}
	if pages == "" {
		return data, nil
	}

	doc, err := document.New(data)
	if err != nil {
		return nil, err
	}
	if doc.Format != document.FormatPDF {
		return nil, fmt.Errorf("--pages only applies to PDF input")
	}
	if _, err := raster.ParsePageRange(pages); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "pagetext-trim-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	in := filepath.Join(dir, "input.pdf")
	trimmed := filepath.Join(dir, "trimmed.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}
	if err := api.TrimFile(in, trimmed, strings.Split(pages, ","), nil); err != nil {
		return nil, fmt.Errorf("selecting pages %q: %w", pages, err)
	}
	return os.ReadFile(trimmed)
}

// buildEngine constructs the recognition backend selected by configuration.
func buildEngine(cfg *config.Config, workers int) (engine.Engine, error) {
	switch cfg.Engine.Backend {
	case "", "tesseract":
		return engine.NewTesseract(engine.TesseractConfig{
			PoolSize:       workers,
			TessdataPrefix: cfg.Engine.Tesseract.TessdataPrefix,
		}), nil
	case "remote":
		return engine.NewRemote(engine.RemoteConfig{
			Endpoint:       cfg.Engine.Remote.Endpoint,
			RequestTimeout: time.Duration(cfg.Engine.Remote.TimeoutMs) * time.Millisecond,
		}, nil)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
	}
}

func formatResult(res *pipeline.DocumentResult, format string) (string, error) {
	switch format {
	case "json":
		return pipeline.ToJSON(res)
	case "csv":
		return pipeline.ToCSV(res)
	default:
		return pipeline.ToPlainText(res)
	}
}

func writeLabReport(cmd *cobra.Command, path string, res *pipeline.DocumentResult) {
	values := report.Extract(res.PlainText())
	out := cmd.OutOrStdout()
	if len(values) == 0 {
		_, _ = fmt.Fprintf(out, "\n%s: no recognized lab values\n", filepath.Base(path))
		return
	}
	_, _ = fmt.Fprintf(out, "\nLab values (%s):\n", filepath.Base(path))
	for _, v := range values {
		_, _ = fmt.Fprintf(out, "  %-12s %g %s [%s]\n", v.Name, v.Value, v.Unit, v.Flag)
	}
	if abnormal := report.Abnormal(values); len(abnormal) > 0 {
		_, _ = fmt.Fprintf(out, "  %d value(s) outside the reference range\n", len(abnormal))
	}
}
