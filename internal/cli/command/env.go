package command

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapetl-go/internal/cli/config"
	"github.com/yndnr/snapetl-go/internal/cli/output"
	"github.com/yndnr/snapetl-go/internal/infra/shutdown"
	"github.com/yndnr/snapetl-go/internal/infra/tlsroots"
	"github.com/yndnr/snapetl-go/internal/snapshot/extract"
	"github.com/yndnr/snapetl-go/internal/snapshot/source"
	"github.com/yndnr/snapetl-go/internal/telemetry/logger"
	"github.com/yndnr/snapetl-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

// Env is the runtime of one command invocation.
type Env struct {
	Config   *config.Config
	Log      logger.Logger
	Metrics  *metric.Registry
	Shutdown *shutdown.Handler
	RunID    string

	Stdout io.Writer
	Stderr io.Writer
	Format output.Format
	Wide   bool

	progress bool
	stop     context.CancelFunc
}

// setup loads the configuration for c and returns the run context.
// The caller must Close the Env.
func setup(c *cli.Context) (context.Context, *Env, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, nil, err
	}

	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}
	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, nil, err
	}

	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	logger.SetDefault(log)
	runID := logger.NewRunID()
	ctx := logger.WithLogger(logger.WithRunID(parent, runID), log)

	env := &Env{
		Config:   cfg,
		Log:      logger.L(ctx),
		Metrics:  metric.NewRegistry(),
		Shutdown: shutdown.NewHandler(shutdownTimeout),
		RunID:    runID,
		Stdout:   c.App.Writer,
		Stderr:   c.App.ErrWriter,
		Format:   format,
		Wide:     c.Bool("wide"),
		progress: c.Bool("progress"),
	}
	ctx, env.stop = env.Shutdown.Context(ctx)

	if addr := cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metric.Serve(ctx, addr, env.Metrics); err != nil {
				env.Log.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		env.Log.Info("metrics endpoint enabled", "addr", addr)
	}
	env.Log.Debug("configuration loaded", "config", config.Sanitize(cfg))
	return ctx, env, nil
}

// Close runs the registered shutdown hooks once and releases the signal
// handler.
func (e *Env) Close() error {
	defer e.stop()
	return e.Shutdown.Shutdown()
}

// extractOptions returns the extractor options derived from the config.
func (e *Env) extractOptions() []extract.Option {
	return []extract.Option{
		extract.WithLogger(e.Log),
		extract.WithObserver(e.Metrics),
		extract.WithMaxManifestBytes(e.Config.Extract.MaxManifestBytes),
		extract.WithMaxSegmentBytes(e.Config.Extract.MaxSegmentBytes),
	}
}

// openSource opens location and registers its byte counters as metrics.
func (e *Env) openSource(ctx context.Context, location string) (*source.Source, error) {
	opts := source.Options{HTTPTimeout: e.Config.Source.HTTPTimeout}
	if source.IsURL(location) {
		client, err := e.httpClient()
		if err != nil {
			return nil, err
		}
		opts.Client = client
	}

	src, err := source.Open(ctx, location, opts)
	if err != nil {
		return nil, err
	}
	e.Metrics.MustRegister(metric.NewSourceCollector(src.BytesRead, src.Size))
	e.Log.Info("source opened",
		"location", logger.RedactURL(location),
		"compression", src.Compression.String(),
		"size", src.Size(),
	)
	return src, nil
}

// httpClient returns the client for remote sources, or nil for the default.
func (e *Env) httpClient() (*http.Client, error) {
	cfg := e.Config.Source
	if cfg.Proxy == "" && cfg.CAFile == "" {
		return nil, nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxy, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("source.proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	if cfg.CAFile != "" {
		pool, err := tlsroots.Load(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("source.ca_file: %w", err)
		}
		transport.TLSClientConfig = pool.TLSConfig()
		e.Log.Debug("private CA roots loaded", "path", cfg.CAFile, "certs", pool.Added())
	}
	return &http.Client{Transport: transport}, nil
}

// watchProgress draws a progress bar for src on stderr when --progress is
// set. The returned function stops it.
func (e *Env) watchProgress(ctx context.Context, src *source.Source) func() {
	if !e.progress {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	bar := output.NewProgressBar(e.Stderr, "read")
	go func() {
		defer close(done)
		bar.Watch(ctx, 500*time.Millisecond, func() (int64, int64) {
			return src.BytesRead(), src.Size()
		})
	}()
	return func() {
		cancel()
		<-done
	}
}

// print writes data to w in the selected report format.
func (e *Env) print(w io.Writer, data any) error {
	return output.NewFormatter(e.Format, e.Wide).Format(w, data)
}
