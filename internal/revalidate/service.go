// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package revalidate maps content-change notifications to cache tags and
// paths and invalidates them.
package revalidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio/internal/cache"
)

// Metrics receives revalidation counters. Implemented by metrics.ServerMetrics.
type Metrics interface {
	IncRevalidation(kind string)
	IncRevalidationFailure()
}

// Result is the outcome of applying a plan.
type Result struct {
	Plan
	FailedTags  []string
	FailedPaths []string
}

// OK reports whether every invalidation succeeded.
func (r Result) OK() bool {
	return len(r.FailedTags) == 0 && len(r.FailedPaths) == 0
}

// Service authenticates webhooks and applies invalidation plans.
type Service struct {
	secret  string
	mapper  *Mapper
	inv     cache.Invalidator
	logger  *slog.Logger
	metrics Metrics
}

// NewService creates a revalidation service. metrics may be nil.
func NewService(secret string, sections Sections, inv cache.Invalidator, logger *slog.Logger, metrics Metrics) *Service {
	return &Service{
		secret:  secret,
		mapper:  NewMapper(sections),
		inv:     inv,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleWebhook decodes body, authenticates it and applies the resulting plan.
// Rejections return ErrUnauthorized or ErrMalformed without touching the cache.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, querySecret string) (Result, error) {
	ev := Decode(body, querySecret, s.secret)
	if rej, ok := ev.(Rejected); ok {
		s.logger.Warn("revalidation rejected", "reason", rej.Reason)
		return Result{}, rej.Reason
	}
	return s.Apply(ctx, ev)
}

// Apply invalidates everything the event maps to. All invalidations are
// attempted; failures are collected into the Result and a joined error.
func (s *Service) Apply(ctx context.Context, ev Event) (Result, error) {
	plan, err := s.mapper.Plan(ev)
	if err != nil {
		return Result{}, err
	}

	res := Result{Plan: plan}
	var errs []error

	for _, tag := range plan.Tags {
		if err := s.inv.InvalidateTag(ctx, tag); err != nil {
			res.FailedTags = append(res.FailedTags, tag)
			errs = append(errs, fmt.Errorf("tag %s: %w", tag, err))
		}
	}
	for _, path := range plan.Paths {
		if err := s.inv.InvalidatePath(ctx, path); err != nil {
			res.FailedPaths = append(res.FailedPaths, path)
			errs = append(errs, fmt.Errorf("path %s: %w", path, err))
		}
	}

	kind := eventKind(ev)
	if s.metrics != nil {
		s.metrics.IncRevalidation(kind)
		for range errs {
			s.metrics.IncRevalidationFailure()
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		s.logger.Error("revalidation incomplete",
			"kind", kind,
			"tags", len(plan.Tags),
			"paths", len(plan.Paths),
			"failed", len(errs),
			"error", joined,
		)
		return res, joined
	}

	s.logger.Info("revalidated", "kind", kind, "tags", plan.Tags, "paths", plan.Paths)
	return res, nil
}

func eventKind(ev Event) string {
	switch ev.(type) {
	case PostChanged:
		return "post"
	case TagChanged:
		return "tag"
	case PostTagChanged:
		return "post+tag"
	case Unclassified:
		return "explicit"
	default:
		return "unknown"
	}
}
