package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/session"
	"github.com/chaos-io/cutout/util"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func NewServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	util.Logger.Info("starting cutout server",
		zap.String("version", getVersion()),
		zap.String("git_commit", getCommit()),
		zap.String("model_endpoint", cfg.Model.Endpoint))

	loader := segment.NewLoader(
		segment.NewBodyPix(cfg.Model.Endpoint, cfg.Model.LoadTimeout, cfg.Model.RequestTimeout),
		cfg.Model.Net,
		cfg.Model.LoadTimeout,
	)
	proc := matting.NewProcessor(loader)
	proc.MaxPixels = cfg.Upload.MaxPixels
	sessions := session.NewManager(loader, proc, cfg.Session.IdleTTL)
	if err := sessions.StartSweeper(cfg.Session.SweepSpec); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      NewRouter(cfg, loader, sessions),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	// 模型加载失败不影响服务启动，只是一直不可处理
	g.Go(func() error {
		return loader.Run(gctx)
	})

	g.Go(func() error {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		util.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var err error
		err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		select {
		case <-sessions.Stop().Done():
		case <-shutdownCtx.Done():
			err = multierr.Append(err, shutdownCtx.Err())
		}
		return err
	})

	return g.Wait()
}
