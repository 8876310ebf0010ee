package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ryanhyunminbae/airtype/internal/app"
	"github.com/ryanhyunminbae/airtype/internal/config"
	"github.com/ryanhyunminbae/airtype/internal/logging"
	"github.com/ryanhyunminbae/airtype/internal/pipeline"
	"github.com/ryanhyunminbae/airtype/internal/server"
	"github.com/ryanhyunminbae/airtype/internal/source"
	"github.com/ryanhyunminbae/airtype/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "airtype: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()
	ctx = logging.WithLogger(ctx, logger)

	st, err := store.New(cfg.Store.Path())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Infow("store opened", "path", st.Path())

	prototypes, err := cfg.Gesture.Prototypes()
	if err != nil {
		return err
	}

	a, err := app.New(app.Config{
		Store:      st,
		Prototypes: prototypes,
		Model:      cfg.Model,
		Stabilizer: cfg.Stabilizer,
		Plugins:    cfg.Plugins,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(cfg.Server, server.Deps{
		Sessions:   a,
		Store:      st,
		Prototypes: a.Prototypes(),
		Plugins:    a.PluginManager(),
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	if cfg.Source.Kind != source.KindServer {
		g.Go(func() error {
			// The source running out ends the process.
			defer cancel()
			return runSource(ctx, a, cfg.Source, stdin, stdout, logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runSource feeds one session from a pull source and echoes confirmed
// letters to stdout as they are confirmed.
func runSource(ctx context.Context, a *app.App, cfg source.Config, stdin io.Reader, stdout io.Writer, logger *zap.SugaredLogger) error {
	src, err := source.Open(cfg, stdin, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	echo := pipeline.ListenerFuncs{
		Confirm: func(_, letter string) {
			fmt.Fprint(stdout, letter)
		},
	}

	text, err := a.Run(ctx, src, cfg.Kind, echo)
	if text != "" {
		fmt.Fprintln(stdout)
	}
	if err != nil {
		return fmt.Errorf("%s source: %w", cfg.Kind, err)
	}

	logger.Infow("source finished", "kind", cfg.Kind, "text", text)
	return nil
}
