package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gradio/internal/config"
	"gradio/pkg/gradio"
)

// session is one connected client plus the resolved command settings.
type session struct {
	client    *gradio.Client
	outputDir string
	log       zerolog.Logger
	stop      func()
}

func (s *session) close() {
	if s.stop != nil {
		s.stop()
	}
}

// settings is the merged view of flags, environment and config file.
type settings struct {
	opts        gradio.Options
	outputDir   string
	logLevel    string
	metricsAddr string
}

// resolve merges the config file under the flags. Flags that were set
// explicitly, or seeded from the environment, win over the file.
func (cfg *Config) resolve(cmd *cobra.Command) (settings, error) {
	var file config.Config
	if cfg.ConfigFile != "" {
		c, err := config.Load(cfg.ConfigFile)
		if err != nil {
			return settings{}, err
		}
		file = c
	}
	opts, err := file.Options()
	if err != nil {
		return settings{}, err
	}
	if cfg.Token != "" {
		opts.HFToken = cfg.Token
	}
	if cfg.RegistryURL != "" {
		opts.RegistryURL = cfg.RegistryURL
	}
	outDir := file.OutputDir
	if cfg.OutputDir != "" {
		outDir = cfg.OutputDir
	}
	level := cfg.LogLevel
	if f := cmd.Flag("log-level"); file.LogLevel != "" && (f == nil || !f.Changed) && envStr("GR_LOG_LEVEL", "") == "" {
		level = file.LogLevel
	}
	metricsAddr := file.MetricsAddr
	if cfg.MetricsAddr != "" {
		metricsAddr = cfg.MetricsAddr
	}
	return settings{opts: opts, outputDir: outDir, logLevel: level, metricsAddr: metricsAddr}, nil
}

// open connects to app with the merged settings.
func (cfg *Config) open(ctx context.Context, cmd *cobra.Command, app string) (*session, error) {
	st, err := cfg.resolve(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.Stderr, st.logLevel)
	opts := st.opts
	opts.Logger = &log
	s := &session{outputDir: st.outputDir, log: log}
	if st.metricsAddr != "" {
		stop, err := serveMetrics(st.metricsAddr, log)
		if err != nil {
			return nil, err
		}
		s.stop = stop
	}
	c, err := gradio.NewClient(ctx, app, opts)
	if err != nil {
		s.close()
		return nil, err
	}
	s.client = c
	return s, nil
}

// serveMetrics exposes the client metrics until the returned func is called.
func serveMetrics(addr string, log zerolog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
