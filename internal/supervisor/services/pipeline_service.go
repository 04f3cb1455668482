// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Runner is a long-running pipeline component. Satisfied by the action
// consumer and the similarity sink.
type Runner interface {
	Run(ctx context.Context) error
}

// PipelineService wraps a Runner for Suture supervision. A Runner that
// returns before its context is canceled is treated as a crash and
// restarted by the supervisor.
type PipelineService struct {
	runner Runner
	logger zerolog.Logger
	name   string
}

// NewPipelineService creates a supervised wrapper around a pipeline Runner.
// The name identifies the service in supervisor logs.
func NewPipelineService(name string, runner Runner, logger zerolog.Logger) *PipelineService {
	return &PipelineService{
		runner: runner,
		logger: logger.With().Str("service", name).Logger(),
		name:   name,
	}
}

// Serve implements the suture.Service interface.
func (s *PipelineService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("pipeline service starting")

	err := s.runner.Run(ctx)
	switch {
	case err == nil:
		if ctx.Err() != nil {
			s.logger.Info().Msg("pipeline service stopped")
			return ctx.Err()
		}
		s.logger.Warn().Msg("pipeline service returned early")
		return errors.New("pipeline runner exited unexpectedly")

	case errors.Is(err, context.Canceled):
		s.logger.Info().Msg("pipeline service stopped")
		return err

	default:
		s.logger.Error().Err(err).Msg("pipeline service failed")
		return err
	}
}

// String returns the service name for logging.
func (s *PipelineService) String() string {
	return s.name
}
