package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vynel/internal/httpapi"
	"vynel/internal/relay"
	"vynel/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr, modelsDir, defaultModel string
		llamaBin, remote              string
		corsOrigins                   string
		generateTimeout               int64
		noRelay                       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Example: "  vynel serve --addr :8080\n" +
			"  vynel serve --remote http://localhost:11434 --cors-origins http://localhost:5173",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("models-dir") {
				cfg.ModelsDir = modelsDir
			}
			if defaultModel != "" {
				cfg.DefaultModel = defaultModel
			}
			if llamaBin != "" {
				cfg.Backends.CPU.LlamaBin = llamaBin
			}
			if remote != "" {
				cfg.Backends.Remote.Endpoint = remote
			}
			if origins := splitCSV(corsOrigins); len(origins) > 0 {
				cfg.CORS.Enabled = true
				cfg.CORS.Origins = origins
			}
			if noRelay {
				cfg.Relay.Disabled = true
			}
			log := a.log

			mgr, cleanup, err := buildManager(cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			httpapi.SetLogger(log)
			httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
			httpapi.SetGenerateTimeoutSeconds(generateTimeout)
			httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

			var rl http.Handler
			if !cfg.Relay.Disabled {
				h := relay.New(cfg.Relay.Upstream, cfg.Relay.Model, nil, log.With().Str("component", "relay").Logger())
				h.SetMaxBodyBytes(cfg.MaxBodyBytes)
				rl = h
			}

			baseCtx, stopBase := context.WithCancel(context.Background())
			defer stopBase()
			httpapi.SetBaseContext(baseCtx)
			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           httpapi.NewMux(mgr, rl),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).
					Strs("models", modelIDs(mgr)).Msg("vynel listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			// Graceful shutdown (Ctrl+C / SIGTERM)
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)
			select {
			case err := <-errc:
				return err
			case <-stop:
			}
			stopBase()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "HTTP listen address (defaults VYNEL_ADDR or :8080)")
	f.StringVar(&modelsDir, "models-dir", "~/models/llm", "Directory to scan for *.gguf model files")
	f.StringVar(&defaultModel, "default-model", "", "Model id used when a request omits one")
	f.StringVar(&llamaBin, "llama-bin", "", "Path to llama-server for the cpu backend")
	f.StringVar(&remote, "remote", "", "Base URL of an Ollama-compatible server for the remote backend")
	f.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated CORS origins; enables CORS when set")
	f.Int64Var(&generateTimeout, "generate-timeout", 0, "Upper bound in seconds for one generate request (0 disables)")
	f.BoolVar(&noRelay, "no-relay", false, "Disable the POST /api/chat relay")
	return cmd
}

type modelLister interface {
	ListModels() []types.Model
}

func modelIDs(m modelLister) []string {
	ms := m.ListModels()
	ids := make([]string, 0, len(ms))
	for _, mdl := range ms {
		ids = append(ids, mdl.ID)
	}
	return ids
}
