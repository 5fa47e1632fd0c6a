package main

import (
	"context"
	"log/slog"
	"os"

	"pawtrack/config"
	"pawtrack/internal/delivery"
	"pawtrack/internal/delivery/http"
	"pawtrack/internal/delivery/http/middleware"
	"pawtrack/internal/delivery/http/router/handler"
	"pawtrack/internal/infra/archive"
	logs "pawtrack/internal/infra/log"
	"pawtrack/internal/infra/metrics"
	"pawtrack/internal/infra/pubsub"
	"pawtrack/internal/usecase"
	"pawtrack/internal/usecase/impl"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
	Core       *impl.TrackingService
	Archive    *archive.Sink
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		metrics.New,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			pubsub.NewEventPublisher,
			archive.NewSink,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewSampleValidator,
			impl.NewBroadcaster,
			impl.NewTrackingService,
			func(s *impl.TrackingService) usecase.SessionUsecase { return s },
			func(s *impl.TrackingService) usecase.IngestUsecase { return s },
			func(s *impl.TrackingService) usecase.StreamUsecase { return s },
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewSessionHandler,
			handler.NewIngestHandler,
			handler.NewStreamHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return params.Core.Run(groupCtx)
	})
	if params.Archive != nil {
		group.Go(func() error {
			return params.Archive.Run(groupCtx)
		})
	}
	go func() {
		if err := group.Wait(); err != nil {
			slog.Info("Background workers stopped", slog.Any("error", err))
		}
	}()

	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
