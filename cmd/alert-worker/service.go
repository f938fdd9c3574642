package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/tollwatch-backend/api"
	"github.com/angelmondragon/tollwatch-backend/api/controllers"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

type runner interface {
	Run(ctx context.Context) error
}

// ServiceParams wire the alert worker.
type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies map[string]controllers.Pinger
	Consumers    map[string]runner
	OpsServer    *http.Server
}

// Service runs the event consumers next to the ops HTTP server.
type Service struct {
	logg      *logger.Logger
	deps      map[string]controllers.Pinger
	consumers map[string]runner
	ops       *http.Server
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
		ops:       params.OpsServer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until ctx is canceled or any consumer or the ops server exits.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(s.consumers)+1)
	for name, consumer := range s.consumers {
		go func() {
			err := consumer.Run(s.logg.WithField(ctx, "consumer", name))
			if err != nil && !errors.Is(err, context.Canceled) {
				err = fmt.Errorf("%s consumer: %w", name, err)
			}
			errCh <- err
		}()
	}
	if s.ops != nil {
		go func() {
			errCh <- api.Serve(ctx, s.ops, s.logg)
		}()
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "worker component stopped unexpectedly", err)
			return err
		}
		return err
	}
}
