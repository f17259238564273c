package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lokasewa/evaluator/internal/agents"
	"github.com/lokasewa/evaluator/internal/billing"
	"github.com/lokasewa/evaluator/internal/llm"
	"github.com/lokasewa/evaluator/internal/projectconfig"
	"github.com/lokasewa/evaluator/internal/ratelimit"
	"github.com/lokasewa/evaluator/internal/reporting"
	"github.com/lokasewa/evaluator/internal/schema"
	"github.com/lokasewa/evaluator/internal/session"
	"github.com/lokasewa/evaluator/internal/spinner"
	"github.com/lokasewa/evaluator/internal/workflow"
)

func newEvaluateCommand() *cobra.Command {
	var (
		question   string
		filePath   string
		fileType   string
		outputPath string
		htmlPath   string
		trailFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a scanned exam answer against a question",
		Long: `Evaluate runs the full agent panel over one answer file.

The answer file may be a JPEG, PNG or WebP image, or a PDF of up to three
pages. Credentials come from the OPENROUTER_API_KEY and
GOOGLE_AI_STUDIO_API_KEY environment variables; model selection and
provider settings come from .evaluator.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}

			fileData, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("reading answer file: %w", err)
			}

			declared, err := resolveFileType(fileType, filePath)
			if err != nil {
				return err
			}

			openRouterKey := projectconfig.OpenRouterAPIKey()
			if openRouterKey == "" {
				return fmt.Errorf("%s is not set", projectconfig.EnvOpenRouterAPIKey)
			}
			googleKey := projectconfig.GoogleAIAPIKey()
			if googleKey == "" {
				return fmt.Errorf("%s is not set", projectconfig.EnvGoogleAIAPIKey)
			}

			wf, closeTrail, err := buildWorkflow(cfg, openRouterKey, googleKey, trailFlag)
			if err != nil {
				return err
			}
			defer closeTrail()

			registry := session.NewRegistry(
				session.WithMaxSessions(cfg.Sessions.Max),
				session.WithTTL(time.Duration(cfg.Sessions.TimeoutMinutes)*time.Minute),
			)
			sess, err := registry.Create(question, fileData, declared)
			if err != nil {
				return err
			}

			stopSpinner := spinner.StartIfTerminal(cmd.OutOrStdout(), "Evaluating answer...")
			state, err := wf.Run(cmd.Context(), sess.ID, sess.Question, sess.FileData, sess.FileType)
			stopSpinner()
			if err != nil {
				return err
			}
			if err := registry.Complete(sess.ID, state); err != nil {
				return err
			}

			renderState(cmd.OutOrStdout(), state)

			if outputPath != "" {
				if err := os.WriteFile(outputPath, []byte(reporting.Markdown(state)), 0644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", outputPath)
			}
			if htmlPath != "" {
				html, err := reporting.HTML(state)
				if err != nil {
					return err
				}
				if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
					return fmt.Errorf("writing HTML report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "HTML report written to %s\n", htmlPath)
			}

			if !state.WorkflowComplete {
				return &IncompleteError{
					Message: fmt.Sprintf("evaluation incomplete: %s", strings.Join(state.Errors, "; ")),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Exam question text (required)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the scanned answer (required)")
	cmd.Flags().StringVarP(&fileType, "type", "t", "", "File type: image or pdf (default: from extension)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the markdown report to this path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write the HTML report to this path")
	cmd.Flags().BoolVar(&trailFlag, "trail", false, "Record an evaluation trail (NDJSON)")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// buildWorkflow wires the agent panel from project configuration. The
// returned cleanup closes the trail logger, if one was opened.
func buildWorkflow(cfg *projectconfig.ProjectConfig, openRouterKey, googleKey string, trailFlag bool) (*workflow.Workflow, func(), error) {
	textCaller := llm.NewOpenRouterClient(openRouterKey,
		map[llm.Role]llm.ModelConfig{
			llm.RoleIdealAnswer: toModelConfig(cfg.Models.IdealAnswer),
			llm.RoleAdvocate:    toModelConfig(cfg.Models.Advocate),
			llm.RoleCritic:      toModelConfig(cfg.Models.Critic),
			llm.RoleSynthesizer: toModelConfig(cfg.Models.Synthesizer),
		},
		llm.WithBaseURL(cfg.Providers.OpenRouterBaseURL),
	)

	quota := ratelimit.NewDailyQuota(cfg.Quota.VisionDailyMax,
		time.Duration(cfg.Quota.VisionWindowSeconds)*time.Second)
	visionCaller := llm.NewGeminiClient(googleKey, cfg.Models.Vision.Model,
		llm.WithGeminiBaseURL(cfg.Providers.GeminiBaseURL),
		llm.WithQuota(quota),
	)

	accountant := billing.New(openRouterKey, cfg.Providers.OpenRouterBaseURL,
		billing.WithConversionRate(cfg.Providers.USDToNPR))

	panel := workflow.Agents{
		OCR:         agents.NewOCRAgent(visionCaller, nil),
		IdealAnswer: agents.NewIdealAnswerAgent(textCaller, accountant),
		Advocate:    agents.NewAdvocateAgent(textCaller, accountant),
		Critic:      agents.NewCriticAgent(textCaller, accountant),
		Synthesizer: agents.NewSynthesizerAgent(textCaller, accountant),
	}

	var opts []workflow.Option
	closeTrail := func() {}
	if trailFlag || (cfg.Trail.Enabled != nil && *cfg.Trail.Enabled) {
		logger, err := session.NewJSONLogger(session.DefaultTrailPath(cfg.Trail.Dir))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, workflow.WithTrail(logger))
		closeTrail = func() { _ = logger.Close() }
	}

	return workflow.New(panel, opts...), closeTrail, nil
}

func toModelConfig(mc projectconfig.ModelConfig) llm.ModelConfig {
	return llm.ModelConfig{
		Model:       mc.Model,
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
	}
}

// resolveFileType maps the --type flag, or the file extension when the flag
// is absent, to a declared file type.
func resolveFileType(flag, path string) (schema.FileType, error) {
	switch strings.ToLower(flag) {
	case "image":
		return schema.FileTypeImage, nil
	case "pdf":
		return schema.FileTypePDF, nil
	case "":
	default:
		return "", fmt.Errorf("unknown file type %q (want image or pdf)", flag)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return schema.FileTypeImage, nil
	case ".pdf":
		return schema.FileTypePDF, nil
	default:
		return "", fmt.Errorf("cannot infer file type from %q; pass --type", path)
	}
}
