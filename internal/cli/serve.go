package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ggufd/internal/config"
	"ggufd/internal/httpapi"
)

const shutdownGrace = 5 * time.Second

var fnServe = serve

type serveFlags struct {
	addr, modelsDir, model string
	gpuLayers              uint32
	contextSize, maxTokens uint32
	batchWidth             uint32
	threads                int
	totalVRAMGB            float64
	logFile                string
	maxBodyBytes           int64
	generateTimeout        int64
	cors                   bool
	corsOrigins            []string
}

func newServeCmd(g *globalOpts) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the HTTP API",
		Example: "  ggufd serve --addr :8080 --model ~/models/llm/qwen2-7b-instruct-q4_k_m.gguf",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.resolve(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			log, closer := g.logger(cfg)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return fnServe(ctx, cfg, log)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.addr, "addr", config.DefaultAddr, "HTTP listen address, e.g. :8080")
	fl.StringVar(&f.modelsDir, "models-dir", config.DefaultModelsDir, "Directory to scan for *.gguf model files")
	fl.StringVar(&f.model, "model", "", "Model to load at startup")
	fl.Uint32Var(&f.gpuLayers, "gpu-layers", 0, "Layers to offload for the startup model")
	fl.Uint32Var(&f.contextSize, "context-size", 0, "Default context size (0 = 4096)")
	fl.Uint32Var(&f.maxTokens, "max-tokens", config.DefaultMaxTokens, "Max tokens for requests that omit max_tokens")
	fl.Uint32Var(&f.batchWidth, "batch-width", 0, "Tokens per decode call during prefill (0 = 8192)")
	fl.IntVar(&f.threads, "threads", 0, "Inference threads (0 = runtime default)")
	fl.Float64Var(&f.totalVRAMGB, "total-vram-gb", 0, "VRAM used by the memory estimate (0 = 12)")
	fl.StringVar(&f.logFile, "log-file", "", "Also write logs to this file with rotation")
	fl.Int64Var(&f.maxBodyBytes, "max-body-bytes", 0, "Maximum JSON request body size")
	fl.Int64Var(&f.generateTimeout, "generate-timeout", 0, "Generation timeout in seconds (0 disables)")
	fl.BoolVar(&f.cors, "cors", false, "Enable CORS")
	fl.StringSliceVar(&f.corsOrigins, "cors-origins", nil, "Allowed CORS origins (comma separated)")
	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	set := func(name string, fn func()) {
		if fl.Changed(name) {
			fn()
		}
	}
	set("addr", func() { cfg.Addr = f.addr })
	set("models-dir", func() { cfg.ModelsDir = f.modelsDir })
	set("model", func() { cfg.Model = f.model })
	set("gpu-layers", func() { cfg.ModelGPULayers = f.gpuLayers })
	set("context-size", func() { cfg.ContextSize = f.contextSize })
	set("max-tokens", func() { cfg.MaxTokens = f.maxTokens })
	set("batch-width", func() { cfg.BatchWidth = f.batchWidth })
	set("threads", func() { cfg.Threads = f.threads })
	set("total-vram-gb", func() { cfg.TotalVRAMGB = f.totalVRAMGB })
	set("log-file", func() { cfg.LogFile = f.logFile })
	set("max-body-bytes", func() { cfg.MaxBodyBytes = f.maxBodyBytes })
	set("generate-timeout", func() { cfg.GenerateTimeoutSeconds = f.generateTimeout })
	set("cors", func() { cfg.CORSEnabled = f.cors })
	set("cors-origins", func() { cfg.CORSAllowedOrigins = f.corsOrigins })
}

// serve runs the HTTP server until ctx is canceled, then drains requests and
// releases the model and backend.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	mgr := newManager(cfg, log)
	if cfg.Model != "" {
		if _, err := mgr.Load(ctx, cfg.Model, cfg.ContextSize, cfg.ModelGPULayers); err != nil {
			_ = mgr.Shutdown()
			return err
		}
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetDefaultMaxTokens(cfg.MaxTokens)
	httpapi.SetGenerateTimeoutSeconds(cfg.GenerateTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Str("runtime", cfg.Runtime).Msg("ggufd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := srv.Shutdown(sctx)
		if err != nil {
			log.Error().Err(err).Msg("graceful shutdown error")
		}
		if uerr := mgr.Shutdown(); uerr != nil {
			log.Error().Err(uerr).Msg("release model")
		}
		log.Info().Msg("ggufd stopped")
		return err
	})
	return g.Wait()
}
