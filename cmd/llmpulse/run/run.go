// Package runcmder implements `llmpulse run`, the batch probe command.
package runcmder

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmpulse/llmpulse/pkg/config"
	"github.com/llmpulse/llmpulse/pkg/llm"
	"github.com/llmpulse/llmpulse/pkg/logger"
	"github.com/llmpulse/llmpulse/pkg/metrics"
	"github.com/llmpulse/llmpulse/render"
	"github.com/llmpulse/llmpulse/runner"
)

const runLongDesc string = `Probe an LLM HTTP endpoint and report latency statistics.

Issues each prompt against the endpoint (optionally repeated), measures
total latency, time to first token and token throughput, then prints a
per-call table plus aggregated statistics. Endpoints whose path contains
/responses speak the responses API wire format; everything else speaks
chat completions.

Examples:
  llmpulse run -e https://api.openai.com/v1/chat/completions \
      -k sk-... -m gpt-4o -p "Say hello in five words"
  llmpulse run -f prompts.txt --runs 3 --streaming -o results.json`

const runShortDesc string = "Probe an LLM endpoint and report latency statistics"

// apiKeyEnv is consulted when neither flag nor config file carry a key.
const apiKeyEnv = "LLM_API_KEY"

type runCommander struct {
	configPath      string
	endpoint        string
	apiKey          string
	model           string
	prompt          string
	promptFile      string
	streaming       bool
	runs            int
	timeoutSecs     float64
	output          string
	jsonOutput      bool
	reasoningEffort string
	maxTokens       int
	noCache         bool
	showResponse    bool
	debug           bool
}

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}
	return cmder.command()
}

func (c *runCommander) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Config file (default: config.yaml, config.toml, ~/.llmpulse/config.yaml)")
	flags.StringVarP(&c.endpoint, "endpoint", "e", "", "LLM API endpoint URL")
	flags.StringVarP(&c.apiKey, "api-key", "k", "", "API key (also read from "+apiKeyEnv+")")
	flags.StringVarP(&c.model, "model", "m", "", "Model name")
	flags.StringVarP(&c.prompt, "prompt", "p", "", "Single prompt to test")
	flags.StringVarP(&c.promptFile, "prompt-file", "f", "", "Prompt file, one prompt per line")
	flags.BoolVarP(&c.streaming, "streaming", "s", false, "Stream the response and measure TTFT")
	flags.IntVarP(&c.runs, "runs", "r", 1, "Repetitions per prompt")
	flags.Float64VarP(&c.timeoutSecs, "timeout", "t", 120, "Request timeout in seconds")
	flags.StringVarP(&c.output, "output", "o", "", "Write the JSON report to this file")
	flags.BoolVar(&c.jsonOutput, "json", false, "Print the JSON report instead of tables")
	flags.StringVar(&c.reasoningEffort, "reasoning-effort", "", "Reasoning effort hint (low, medium or high)")
	flags.IntVar(&c.maxTokens, "max-tokens", 0, "Cap on generated tokens")
	flags.BoolVar(&c.noCache, "no-cache", false, "Ask the responses API not to store the response")
	flags.BoolVar(&c.showResponse, "show-response", false, "Render each response as markdown after the table")
	flags.BoolVar(&c.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *runCommander) run(cmd *cobra.Command) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	fileCfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.applyFile(cmd, fileCfg)

	if c.apiKey == "" {
		c.apiKey = os.Getenv(apiKeyEnv)
	}

	if err := c.validate(); err != nil {
		return err
	}

	prompts := []string{c.prompt}
	if c.promptFile != "" {
		prompts, err = config.LoadPrompts(c.promptFile)
		if err != nil {
			return err
		}
	}

	timeout := time.Duration(c.timeoutSecs * float64(time.Second))
	client := llm.NewClient(llm.Config{
		Endpoint:        c.endpoint,
		APIKey:          c.apiKey,
		Model:           c.model,
		Timeout:         timeout,
		ReasoningEffort: c.reasoningEffort,
		MaxTokens:       c.maxTokens,
		NoCache:         c.noCache,
	}, log)

	out := cmd.OutOrStdout()
	rend := render.New(out)

	if !c.jsonOutput {
		rend.Banner(render.RunInfo{
			ConfigPath:      fileCfg.Path,
			Endpoint:        c.endpoint,
			Model:           c.model,
			ReasoningEffort: c.reasoningEffort,
			MaxTokens:       c.maxTokens,
			Streaming:       c.streaming,
			Prompts:         len(prompts),
			Runs:            c.runs,
			Timeout:         timeout,
		})
	}

	r := runner.New(client, log)

	var bar *render.ProgressBar
	if !c.jsonOutput {
		bar = rend.Progress(len(prompts) * c.runs)
		r.OnProgress(func(done, total int, label string) {
			bar.Update(done, label)
		})
	}

	results, summary, err := r.Run(cmd.Context(), runner.Config{
		Prompts:   prompts,
		Runs:      c.runs,
		Streaming: c.streaming,
	})
	if bar != nil {
		bar.Done()
	}
	if err != nil {
		return err
	}

	report := runner.NewReport(results, summary)

	if c.jsonOutput {
		data, err := report.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		rend.ResultsTable(results, c.streaming)
		rend.Summary(summary, c.streaming)
		if c.showResponse {
			for _, res := range results {
				if res.Status == metrics.StatusSuccess {
					rend.ShowResponse(res.Prompt, res.ResponseContent)
				}
			}
		}
	}

	if c.output != "" {
		if err := report.WriteFile(c.output); err != nil {
			return err
		}
		if !c.jsonOutput {
			fmt.Fprintf(out, "report saved to %s\n", c.output)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d requests failed", summary.Failed, summary.TotalRequests)
	}
	return nil
}

// applyFile fills in values the user did not pass on the command line.
func (c *runCommander) applyFile(cmd *cobra.Command, file *config.File) {
	flags := cmd.Flags()

	if !flags.Changed("endpoint") && file.Endpoint != "" {
		c.endpoint = file.Endpoint
	}
	if !flags.Changed("api-key") && file.APIKey != "" {
		c.apiKey = file.APIKey
	}
	if !flags.Changed("model") && file.Model != "" {
		c.model = file.Model
	}
	if !flags.Changed("prompt") && file.Prompt != "" {
		c.prompt = file.Prompt
	}
	if !flags.Changed("prompt-file") && file.PromptFile != "" {
		c.promptFile = file.PromptFile
	}
	if !flags.Changed("streaming") && file.Streaming != nil {
		c.streaming = *file.Streaming
	}
	if !flags.Changed("runs") && file.Runs != nil {
		c.runs = *file.Runs
	}
	if !flags.Changed("timeout") && file.TimeoutSeconds != nil {
		c.timeoutSecs = *file.TimeoutSeconds
	}
	if !flags.Changed("output") && file.Output != "" {
		c.output = file.Output
	}
	if !flags.Changed("json") && file.JSONOutput != nil {
		c.jsonOutput = *file.JSONOutput
	}
	if !flags.Changed("reasoning-effort") && file.ReasoningEffort != "" {
		c.reasoningEffort = file.ReasoningEffort
	}
	if !flags.Changed("max-tokens") && file.MaxTokens != nil {
		c.maxTokens = *file.MaxTokens
	}
	if !flags.Changed("no-cache") && file.NoCache != nil {
		c.noCache = *file.NoCache
	}
}

// validate enforces the required flag/config combination.
func (c *runCommander) validate() error {
	if c.endpoint == "" {
		return errors.New("an endpoint is required (--endpoint or config file)")
	}
	if c.apiKey == "" {
		return errors.New("an API key is required (--api-key, config file or " + apiKeyEnv + ")")
	}
	if c.model == "" {
		return errors.New("a model is required (--model or config file)")
	}
	if c.prompt == "" && c.promptFile == "" {
		return errors.New("a prompt source is required (--prompt or --prompt-file)")
	}
	if c.prompt != "" && c.promptFile != "" {
		return errors.New("--prompt and --prompt-file are mutually exclusive")
	}
	if c.runs < 1 {
		return errors.New("--runs must be at least 1")
	}

	switch c.reasoningEffort {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("invalid --reasoning-effort %q (want low, medium or high)", c.reasoningEffort)
	}
	return nil
}
