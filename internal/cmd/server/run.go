package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/pulse/internal/config"
	"github.com/rzbill/pulse/internal/runtime"
	httpserver "github.com/rzbill/pulse/internal/server/http"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir  string
	HTTPAddr string
	Fsync    pebblestore.FsyncMode
	Config   cfgpkg.Config
}

// Run starts the HTTP server and the retention sweeper, then blocks
// until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context. We
	// layer a local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, Config: opts.Config})
	if err != nil {
		return err
	}
	defer rt.Close()

	lcfg := &logpkg.Config{
		Level:  getenvDefault("PULSE_LOG_LEVEL", "info"),
		Format: getenvDefault("PULSE_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(lcfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(lcfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	procLogger.Info("Starting Pulse server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", lcfg.Level),
		logpkg.Str("format", lcfg.Format),
	)

	hsrv := httpserver.New(rt, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweeper(sctx, rt, procLogger.With(logpkg.Component("retention")))
	}()

	<-sctx.Done()
	// Shut the server down before closing the runtime/DB to avoid races.
	hsrv.Close()
	wg.Wait()
	return nil
}

// runSweeper periodically removes delivered events whose TTL elapsed.
func runSweeper(ctx context.Context, rt *runtime.Runtime, logger logpkg.Logger) {
	interval := time.Duration(rt.Config().RetentionSweepSeconds) * time.Second
	if interval <= 0 {
		return
	}
	store := rt.OpenEventStore()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.SweepExpired(ctx, time.Now(), 1024)
			if err != nil {
				logger.Warn("retention sweep failed", logpkg.Err(err))
				continue
			}
			if n > 0 {
				logger.Info("retention sweep removed events", logpkg.Int("count", n))
			}
		}
	}
}
