package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ggufd/internal/config"
	"ggufd/internal/manager"
	"ggufd/pkg/types"
)

type generateFlags struct {
	model       string
	prompt      string
	contextSize uint32
	gpuLayers   uint32
	maxTokens   uint32
	temperature float32
	stream      bool
	asJSON      bool
}

func newGenerateCmd(g *globalOpts) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:     "generate [prompt]",
		Short:   "Load a model, generate once, and exit",
		Example: "  ggufd generate --model ./tiny-q4_0.gguf --max-tokens 32 \"Hello\"",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := f.prompt
			if len(args) == 1 {
				prompt = args[0]
			}
			if f.model == "" {
				return errors.New("--model is required")
			}
			cfg, err := g.resolve(cmd)
			if err != nil {
				return err
			}
			log, closer := g.logger(cfg)
			defer closer.Close()

			mgr := newManager(cfg, log)
			defer mgr.Shutdown()
			if _, err := mgr.Load(cmd.Context(), f.model, f.contextSize, f.gpuLayers); err != nil {
				return err
			}
			maxTokens := cfg.MaxTokens
			if cmd.Flags().Changed("max-tokens") {
				maxTokens = f.maxTokens
			}
			req := manager.GenerateRequest{Prompt: prompt, MaxTokens: maxTokens, Temperature: f.temperature}
			var res manager.GenerateResult
			if f.stream {
				res, err = mgr.Stream(cmd.Context(), req, func(ev types.StreamEvent) error {
					if ev.Type == types.StreamToken && ev.Token != "" {
						_, werr := fmt.Fprint(g.stdout, ev.Token)
						return werr
					}
					return nil
				})
				fmt.Fprintln(g.stdout)
			} else {
				res, err = mgr.Generate(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(g.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if !f.stream {
				fmt.Fprintln(g.stdout, res.Text)
			}
			color.New(color.FgHiBlack).Fprintf(g.stderr, "prompt=%d completion=%d finish=%s detokenize_errors=%d %s\n",
				res.PromptTokens, res.CompletionTokens, res.FinishReason, res.DetokenizeErrors, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "", "Path to a .gguf model")
	fl.StringVarP(&f.prompt, "prompt", "p", "", "Prompt text (or pass it as the argument)")
	fl.Uint32Var(&f.contextSize, "context-size", 0, "Context size (0 = 4096)")
	fl.Uint32Var(&f.gpuLayers, "gpu-layers", 0, "Layers to offload to the GPU")
	fl.Uint32VarP(&f.maxTokens, "max-tokens", "n", config.DefaultMaxTokens, "Maximum new tokens")
	fl.Float32Var(&f.temperature, "temperature", 0, "Accepted for compatibility; decoding is greedy")
	fl.BoolVar(&f.stream, "stream", false, "Print the reply word by word")
	fl.BoolVar(&f.asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

