package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/pipeline"
	"gopkg.in/yaml.v3"
)

func TestReportSlug(t *testing.T) {
	a := reportSlug(0, "https://www.example.com/news/story")
	if !strings.HasPrefix(a, "001_example-com_") {
		t.Errorf("Unexpected slug %q", a)
	}
	if a != reportSlug(0, "https://www.example.com/news/story") {
		t.Error("Expected stable slug")
	}
	if a == reportSlug(0, "https://www.example.com/news/other") {
		t.Error("Expected distinct slugs for distinct inputs")
	}
	if s := reportSlug(4, "just some pasted text"); !strings.HasPrefix(s, "005_") {
		t.Errorf("Unexpected slug %q", s)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".clearview", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Analysis.High != 0.70 || cfg.Analysis.Low != 0.20 {
		t.Errorf("Expected default bands, got %+v", cfg.Analysis)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestPipelineFlags_Config(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	f := pipelineFlags{llmProvider: "anthropic", llmModel: "claude-test", userAgent: "TestAgent/1.0"}
	cfg, err := f.config()
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-ant-test" {
		t.Errorf("Expected key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.HTTP.UserAgent != "TestAgent/1.0" || cfg.LLM.Model != "claude-test" {
		t.Errorf("Flags not applied: %+v", cfg.LLM)
	}

	f = pipelineFlags{llmProvider: "openai", noLLM: true}
	cfg, err = f.config()
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if cfg.LLM.Provider != "" {
		t.Errorf("Expected --no-llm to clear the provider, got %q", cfg.LLM.Provider)
	}
}

func TestScoreFlags_Options(t *testing.T) {
	p := pipeline.New(model.DefaultConfig(), pipeline.Deps{})

	f := scoreFlags{sentences: 3, scamCutoff: 0.8, subjectivityCutoff: -1, biasCutoff: 0}
	opts := f.options(p, true)
	if opts.SentenceCount != 3 || opts.ScamCutoff != 0.8 || opts.BiasCutoff != 0 {
		t.Errorf("Flags not applied: %+v", opts)
	}
	if opts.SubjectivityCutoff != 0.5 {
		t.Errorf("Expected default subjectivity cutoff, got %v", opts.SubjectivityCutoff)
	}
	if !opts.SkipAdvisory {
		t.Error("Expected SkipAdvisory")
	}
}

func TestExtractInput(t *testing.T) {
	p := pipeline.New(model.DefaultConfig(), pipeline.Deps{})
	ctx := context.Background()

	var inputErr *model.InputError
	if _, err := extractInput(ctx, p, nil, "", 0); !errors.As(err, &inputErr) {
		t.Errorf("Expected input error for no input, got %v", err)
	}
	if _, err := extractInput(ctx, p, []string{"text"}, "notes.txt", 0); !errors.As(err, &inputErr) {
		t.Errorf("Expected input error for two inputs, got %v", err)
	}

	ext, err := extractInput(ctx, p, []string{"  Plain words to read.  "}, "", 0)
	if err != nil {
		t.Fatalf("extractInput failed: %v", err)
	}
	if ext.Method != model.MethodRawText || ext.WordCount != 4 {
		t.Errorf("Unexpected extraction %+v", ext)
	}

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\nSome local words."), 0o644); err != nil {
		t.Fatal(err)
	}
	ext, err = extractInput(ctx, p, nil, path, 0)
	if err != nil {
		t.Fatalf("extractInput file failed: %v", err)
	}
	if ext.Source != model.SourceUploadPrefix+"notes.md" {
		t.Errorf("Expected upload source, got %s", ext.Source)
	}
}
