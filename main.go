package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"solveflow/internal/compiler"
	"solveflow/internal/docsource"
	"solveflow/internal/fixture"
	"solveflow/internal/generator"
	"solveflow/internal/logger"
	"solveflow/internal/results"
	"solveflow/internal/types"
)

var (
	configPath string
	logLevel   string
	logFile    string
	noValidate bool

	outputPath string
	markupOnly bool
	pdfPath    string
	force      bool

	app *App
)

var rootCmd = &cobra.Command{
	Use:   "solveflow",
	Short: "Typeset practice papers from LaTeX-flavoured question data",
	Long: strings.TrimSpace(`
solveflow turns a structured practice paper (subjects, MCQs, options,
answers and worked solutions written with LaTeX math) into Typst markup
and compiles it into a PDF with the typst binary.

Documents are JSON or YAML. The extract command builds one from an
existing question paper PDF with an LLM (openai, gemini or anthropic).`),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func setup(cmd *cobra.Command, args []string) error {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logConfig := logger.DefaultConfig()
	logConfig.Level = level
	logConfig.EnableConsole = cmd.Flags().Changed("log-level")
	if logFile != "" {
		logConfig.LogFilePath = logFile
	}
	if err := logger.Init(logConfig); err != nil {
		return err
	}

	app, err = NewAppWithConfig(configPath)
	if err != nil {
		return err
	}
	app.SetValidate(!noValidate)
	app.SetStatusCallback(func(status Status) {
		if status.Phase == generator.PhaseCompiling {
			fmt.Fprintln(os.Stderr, "compiling PDF...")
		}
	})
	return app.startup(cmd.Context())
}

var markupCmd = &cobra.Command{
	Use:   "markup <doc.json|doc.yaml>",
	Short: "Print the Typst markup for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := app.LoadDocument(args[0])
		if err != nil {
			return err
		}
		markup, err := app.BuildMarkup(doc)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputPath, []byte(markup))
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <doc.json|doc.yaml>",
	Short: "Compile a document into a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := app.LoadDocument(args[0])
		if err != nil {
			return err
		}
		return buildPDF(cmd, doc, outputPath)
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Compile the built-in demo paper",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := fixture.Demo()
		if markupOnly {
			markup, err := app.BuildMarkup(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputPath, []byte(markup))
		}
		return buildPDF(cmd, doc, outputPath)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <paper.pdf>",
	Short: "Extract a document from a question paper PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, cached, err := app.ExtractDocument(args[0], force)
		if err != nil {
			return err
		}
		if cached {
			fmt.Fprintln(os.Stderr, "using stored extraction (pass --force to extract again)")
		}
		for _, v := range docsource.Violations(doc) {
			logger.Warn("extracted document problem", logger.String("problem", v))
			fmt.Fprintln(os.Stderr, "warning:", v)
		}

		format := docsource.FormatJSON
		if outputPath != "" {
			if format, err = docsource.FormatFromPath(outputPath); err != nil {
				return err
			}
		}
		data, err := docsource.Marshal(doc, format)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), outputPath, data); err != nil {
			return err
		}

		if pdfPath != "" {
			return buildPDF(cmd, doc, pdfPath)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>",
	Short: "Validate a PDF and print its page count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := compiler.Inspect(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid PDF, %d page(s), %d bytes\n", info.Path, info.PageCount, info.Size)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that typst and the LLM settings are usable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := app.CheckStartupRequirements()
		out := cmd.OutOrStdout()
		if result.TypstInstalled {
			fmt.Fprintf(out, "typst:     ok (%s)\n", result.TypstVersion)
		} else {
			fmt.Fprintf(out, "typst:     not found (%s)\n", app.GetCompiler().GetBinary())
		}
		if result.LLMConfigured {
			fmt.Fprintf(out, "extractor: ok (%s)\n", app.GetConfig().GetModel())
		} else {
			fmt.Fprintf(out, "extractor: %s\n", result.LLMError)
		}
		if !result.TypstInstalled {
			return types.NewAppError(types.ErrConfig, "typst is not installed", nil)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored extractions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := app.ListExtractions()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(papers) == 0 {
			fmt.Fprintln(out, "no stored extractions")
			return nil
		}
		for _, p := range papers {
			line := fmt.Sprintf("%s  %-8s  %s  %s", p.ID, p.Status, p.UpdatedAt.Format("2006-01-02 15:04"), p.SourceFileName)
			if p.Status == results.StatusComplete {
				line += fmt.Sprintf("  %q (%d question(s))", p.Title, p.Questions)
			} else if p.ErrorMessage != "" {
				line += "  " + p.ErrorMessage
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var settings struct {
	provider, apiKey, baseURL, model, typst, workDir string
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store settings in the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.SaveSettings(settings.provider, settings.apiKey, settings.baseURL,
			settings.model, settings.typst, settings.workDir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", app.GetConfig().GetConfigPath())
		return nil
	},
}

// buildPDF compiles doc and writes the PDF to path, or to the filename
// derived from the title when path is empty.
func buildPDF(cmd *cobra.Command, doc *types.Document, path string) error {
	out, err := app.GeneratePDF(doc)
	if err != nil {
		return err
	}
	if path == "" {
		path = out.Filename
	}
	if err := writeFile(path, out.PDF); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d page(s), %d bytes)\n", path, out.PageCount, len(out.PDF))
	return nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrInternal, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write "+path, err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.config/solveflow/solveflow-config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level: debug, info, warn or error; setting it also logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"log file path (default ~/.config/solveflow/logs/solveflow.log)")
	rootCmd.PersistentFlags().BoolVar(&noValidate, "no-validate", false,
		"render documents even when they break the schema")

	for _, cmd := range []*cobra.Command{markupCmd, buildCmd, sampleCmd, extractCmd} {
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file")
	}
	sampleCmd.Flags().BoolVar(&markupOnly, "markup", false, "print the Typst markup instead of compiling")
	extractCmd.Flags().StringVar(&pdfPath, "pdf", "", "also compile the extracted document to this PDF")
	extractCmd.Flags().BoolVar(&force, "force", false, "ignore a stored extraction of the same file")

	configureCmd.Flags().StringVar(&settings.provider, "provider", "", "LLM provider: openai, gemini or anthropic")
	configureCmd.Flags().StringVar(&settings.apiKey, "api-key", "", "LLM API key")
	configureCmd.Flags().StringVar(&settings.baseURL, "base-url", "", "LLM API base URL")
	configureCmd.Flags().StringVar(&settings.model, "model", "", "LLM model")
	configureCmd.Flags().StringVar(&settings.typst, "typst", "", "typst executable")
	configureCmd.Flags().StringVar(&settings.workDir, "work-dir", "", "scratch directory for compiler runs")

	rootCmd.AddCommand(markupCmd, buildCmd, sampleCmd, extractCmd, inspectCmd, checkCmd, historyCmd, configureCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
