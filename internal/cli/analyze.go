package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/extract/adapters"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/pipeline"
	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/source"
	"github.com/spf13/cobra"
)

// pipelineFlags are shared by every command that builds a pipeline
type pipelineFlags struct {
	timeout     time.Duration
	userAgent   string
	insecureTLS bool
	noRender    bool
	noCache     bool
	llmEnabled  bool
	noLLM       bool
	llmProvider string
	llmModel    string
	httpProxy   string
	httpsProxy  string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 2*time.Minute, "overall timeout")
	cmd.Flags().StringVar(&f.userAgent, "ua", "", "HTTP User-Agent")
	cmd.Flags().BoolVar(&f.insecureTLS, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&f.noRender, "no-render", false, "disable the headless browser tier")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&f.llmEnabled, "llm", false, "enable the external reviewer (default provider openai)")
	cmd.Flags().BoolVar(&f.noLLM, "no-llm", false, "never consult the external reviewer")
	cmd.Flags().StringVar(&f.llmProvider, "llm-provider", "", "reviewer provider (openai, anthropic, ollama, gemini)")
	cmd.Flags().StringVar(&f.llmModel, "llm-model", "", "reviewer model name")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// config loads configuration and applies the flags over it
func (f *pipelineFlags) config() (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if f.insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if f.httpProxy != "" {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if f.httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	if f.llmProvider != "" {
		cfg.LLM.Provider = f.llmProvider
	}
	if f.llmEnabled && cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if f.llmModel != "" {
		cfg.LLM.Model = f.llmModel
	}
	if f.noLLM {
		cfg.LLM.Provider = ""
	}
	applyLLMEnv(cfg)
	cfg.Output.Verbose = verbose
	return cfg, nil
}

func (f *pipelineFlags) build(cfg *model.Config) (*pipeline.Pipeline, io.Closer, error) {
	return pipeline.Build(cfg, pipeline.BuildOptions{
		NoRender:   f.noRender,
		NoCache:    f.noCache,
		NoAdvisory: f.noLLM,
	})
}

// scoreFlags override the analysis options
type scoreFlags struct {
	sentences          int
	scamCutoff         float64
	subjectivityCutoff float64
	biasCutoff         float64
}

func (f *scoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.sentences, "sentences", 0, "summary length in sentences (default from config)")
	cmd.Flags().Float64Var(&f.scamCutoff, "scam-cutoff", -1, "flag scam probability at or above this value")
	cmd.Flags().Float64Var(&f.subjectivityCutoff, "subjectivity-cutoff", -1, "flag subjectivity at or above this value")
	cmd.Flags().Float64Var(&f.biasCutoff, "bias-cutoff", -1, "flag bias categories at or above this value")
}

func (f *scoreFlags) options(p *pipeline.Pipeline, skipAdvisory bool) pipeline.AnalyzeOptions {
	opts := p.DefaultAnalyzeOptions()
	if f.sentences > 0 {
		opts.SentenceCount = f.sentences
	}
	if f.scamCutoff >= 0 {
		opts.ScamCutoff = f.scamCutoff
	}
	if f.subjectivityCutoff >= 0 {
		opts.SubjectivityCutoff = f.subjectivityCutoff
	}
	if f.biasCutoff >= 0 {
		opts.BiasCutoff = f.biasCutoff
	}
	opts.SkipAdvisory = skipAdvisory
	return opts
}

var (
	analyzeFlags pipelineFlags
	analyzeScore scoreFlags
	analyzeFile  string
	outJSON      string
	outMD        string
	outPDF       string
	noFooter     bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [url|text]",
	Short: "Analyze a URL, pasted text or local file",
	Long: `Analyze extracts readable content and reports:
- Scam probability
- Subjectivity probability
- Bias category scores
- An extractive summary
- Explanations per section, escalated to an external reviewer when uncertain

Without output flags a Markdown report is printed to stdout.

Example:
  clearview analyze https://example.com/news/story
  clearview analyze "Act now! Claim your free prize today"
  clearview analyze --file notes.txt --pdf report.pdf
  clearview analyze https://example.com --json report.json --llm --llm-provider anthropic`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var (
	extractFlags pipelineFlags
	extractFile  string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [url|text]",
	Short: "Extract readable content without scoring it",
	Long: `Extract runs only the extraction stage and prints the result as JSON.

Example:
  clearview extract https://www.reddit.com/r/news/comments/abc123/title/
  clearview extract https://example.com/paper.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(extractCmd)

	analyzeFlags.register(analyzeCmd)
	analyzeScore.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "analyze a local .txt, .md or .html file")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (- for stdout)")
	analyzeCmd.Flags().StringVar(&outPDF, "pdf", "", "output PDF path")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in reports")

	extractFlags.register(extractCmd)
	extractCmd.Flags().StringVar(&extractFile, "file", "", "extract a local .txt, .md or .html file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := analyzeFlags.config()
	if err != nil {
		return err
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	p, closer, err := analyzeFlags.build(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeFlags.timeout)
	defer cancel()

	ext, err := extractInput(ctx, p, args, analyzeFile, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d words via %s\n", ext.WordCount, ext.Method)
	}

	res, err := p.Analyze(ctx, ext, analyzeScore.options(p, analyzeFlags.noLLM))
	if err != nil {
		if !ext.OK() {
			return fmt.Errorf("%w: %s", err, ext.Error)
		}
		return err
	}

	return writeOutputs(cmd.OutOrStdout(), res, cfg.Output.IncludeFooter)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := extractFlags.config()
	if err != nil {
		return err
	}
	p, closer, err := extractFlags.build(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), extractFlags.timeout)
	defer cancel()

	ext, err := extractInput(ctx, p, args, extractFile, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}
	if err := pipeline.WriteJSON(cmd.OutOrStdout(), ext); err != nil {
		return err
	}
	if !ext.OK() {
		return fmt.Errorf("extraction failed: %s", ext.Error)
	}
	return nil
}

// extractInput resolves exactly one of the positional input and --file
func extractInput(ctx context.Context, p *pipeline.Pipeline, args []string, file string, maxUpload int64) (model.ExtractionResult, error) {
	switch {
	case file != "" && len(args) > 0:
		return model.ExtractionResult{}, model.NewInputError("input", "provide either an argument or --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return model.ExtractionResult{}, fmt.Errorf("read %s: %w", file, err)
		}
		return adapters.FromUpload(filepath.Base(file), "", data, maxUpload)
	case len(args) == 0:
		return model.ExtractionResult{}, model.NewInputError("input", "provide a URL, text or --file")
	}

	in := strings.TrimSpace(args[0])
	if source.IsURL(in) {
		return p.Extract(ctx, pipeline.Input{URL: in})
	}
	return p.Extract(ctx, pipeline.Input{Text: in})
}

// writeOutputs writes every requested format, defaulting to Markdown on stdout
func writeOutputs(stdout io.Writer, res *model.AnalysisResult, includeFooter bool) error {
	if outJSON == "" && outMD == "" && outPDF == "" {
		_, err := fmt.Fprint(stdout, pipeline.Markdown(res, includeFooter))
		return err
	}

	if outJSON == "-" {
		if err := pipeline.WriteJSON(stdout, res); err != nil {
			return err
		}
	} else if outJSON != "" {
		f, err := os.Create(outJSON)
		if err != nil {
			return fmt.Errorf("create %s: %w", outJSON, err)
		}
		err = pipeline.WriteJSON(f, res)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", outJSON, err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", outJSON)
	}

	md := pipeline.Markdown(res, includeFooter)
	if outMD == "-" {
		if _, err := fmt.Fprint(stdout, md); err != nil {
			return err
		}
	} else if outMD != "" {
		if err := pipeline.WriteFile(outMD, []byte(md)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", outMD)
	}

	if outPDF != "" {
		pdf, err := render.NewPDFRenderer(includeFooter).Render(render.FromAnalysis(res))
		if err != nil {
			return fmt.Errorf("render PDF: %w", err)
		}
		if err := pipeline.WriteFile(outPDF, pdf); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ PDF report: %s\n", outPDF)
	}
	return nil
}
