// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package newsletter manages subscribers and sends newsletter mail.
package newsletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/olegiv/folio/internal/mail"
	"github.com/olegiv/folio/internal/ratelimit"
	"github.com/olegiv/folio/internal/render"
	"github.com/olegiv/folio/internal/store"
)

var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrTokenRequired = errors.New("unsubscribe token is required")
	ErrInvalidToken  = errors.New("invalid unsubscribe token")
	// ErrMailFailed wraps provider errors; the subscriber row is already written.
	ErrMailFailed = errors.New("sending email failed")
)

// Subscribe outcomes reported to Metrics.
const (
	ResultSubscribed  = "subscribed"
	ResultInvalid     = "invalid"
	ResultRateLimited = "rate_limited"
	ResultError       = "error"
)

// UnsubscribePath is the public unsubscribe endpoint linked from every email.
const UnsubscribePath = "/api/newsletter/unsubscribe"

// Metrics receives subscribe outcomes.
type Metrics interface {
	IncSubscribe(result string)
	IncRateLimitDenied()
}

// Options configures a Service.
type Options struct {
	SiteURL   string
	SiteTitle string
	Logger    *slog.Logger
	Metrics   Metrics
}

// Service implements subscribe, unsubscribe and broadcast.
type Service struct {
	queries   *store.Queries
	limiter   ratelimit.Limiter
	sender    mail.Sender
	siteURL   string
	siteTitle string
	logger    *slog.Logger
	metrics   Metrics

	newToken func() string
	now      func() time.Time
}

// NewService creates a newsletter service.
func NewService(db store.DBTX, limiter ratelimit.Limiter, sender mail.Sender, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queries:   store.New(db),
		limiter:   limiter,
		sender:    sender,
		siteURL:   strings.TrimRight(opts.SiteURL, "/"),
		siteTitle: opts.SiteTitle,
		logger:    logger,
		metrics:   opts.Metrics,
		newToken:  uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address has exactly one "@", non-empty local and
// domain parts without whitespace, and a "." in the domain.
func ValidateEmail(email string) error {
	if strings.Count(email, "@") != 1 {
		return ErrInvalidEmail
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" {
		return ErrInvalidEmail
	}
	if strings.ContainsFunc(email, unicode.IsSpace) {
		return ErrInvalidEmail
	}
	if !strings.Contains(domain, ".") {
		return ErrInvalidEmail
	}
	return nil
}

// UnsubscribeURL builds the link mailed to a subscriber.
func (s *Service) UnsubscribeURL(token string) string {
	return s.siteURL + UnsubscribePath + "?token=" + url.QueryEscape(token)
}

// Subscribe records a subscription for email on behalf of clientID.
//
// The attempt counts against the rate limit before validation. Re-subscribing
// an existing address flips it back to subscribed and issues a new token, so
// links from older emails stop working.
func (s *Service) Subscribe(ctx context.Context, email, clientID string) (store.Subscriber, error) {
	decision, err := s.limiter.Attempt(ctx, clientID)
	if err != nil {
		s.observe(ResultError)
		return store.Subscriber{}, fmt.Errorf("checking rate limit: %w", err)
	}
	if !decision.Allowed {
		s.observe(ResultRateLimited)
		if s.metrics != nil {
			s.metrics.IncRateLimitDenied()
		}
		return store.Subscriber{}, &ratelimit.LimitedError{RetryAfter: decision.RetryAfter(s.now())}
	}

	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		s.observe(ResultInvalid)
		return store.Subscriber{}, err
	}

	sub, err := s.queries.UpsertSubscriber(ctx, store.UpsertSubscriberParams{
		Email:            email,
		UnsubscribeToken: s.newToken(),
		Now:              s.now(),
	})
	if err != nil {
		s.observe(ResultError)
		return store.Subscriber{}, fmt.Errorf("saving subscriber: %w", err)
	}

	if err := s.sendWelcome(ctx, sub); err != nil {
		s.observe(ResultError)
		return sub, err
	}

	s.observe(ResultSubscribed)
	s.logger.Info("subscriber added", "subscriber_id", sub.ID)
	return sub, nil
}

func (s *Service) sendWelcome(ctx context.Context, sub store.Subscriber) error {
	link := s.UnsubscribeURL(sub.UnsubscribeToken)
	body, err := render.WelcomeEmail(render.WelcomeData{
		SiteTitle:      s.siteTitle,
		SiteURL:        s.siteURL,
		UnsubscribeURL: link,
	})
	if err != nil {
		return err
	}
	err = s.sender.Send(ctx, mail.Message{
		To:      sub.Email,
		Subject: "Welcome to " + s.siteTitle,
		HTML:    body,
		Text:    "Thanks for subscribing. Unsubscribe: " + link,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMailFailed, err)
	}
	return nil
}

// Unsubscribe marks the subscriber owning token as unsubscribed. The token is
// kept, so a repeated request succeeds again.
func (s *Service) Unsubscribe(ctx context.Context, token string) (store.Subscriber, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return store.Subscriber{}, ErrTokenRequired
	}

	sub, err := s.queries.GetSubscriberByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Subscriber{}, ErrInvalidToken
		}
		return store.Subscriber{}, fmt.Errorf("looking up token: %w", err)
	}

	if !sub.IsSubscribed {
		return sub, nil
	}

	now := s.now()
	if err := s.queries.UnsubscribeSubscriber(ctx, store.UnsubscribeSubscriberParams{
		UpdatedAt: now,
		ID:        sub.ID,
	}); err != nil {
		return store.Subscriber{}, fmt.Errorf("unsubscribing: %w", err)
	}
	sub.IsSubscribed = false
	sub.UpdatedAt = now

	s.logger.Info("subscriber removed", "subscriber_id", sub.ID)
	return sub, nil
}

// BroadcastResult counts deliveries of one newsletter issue.
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Broadcast sends an issue to every active subscriber, one at a time. Failed
// recipients are logged and skipped; nothing is retried. bodyHTML must already
// be sanitized.
func (s *Service) Broadcast(ctx context.Context, subject, bodyHTML string) (BroadcastResult, error) {
	var res BroadcastResult

	subs, err := s.queries.ListActiveSubscribers(ctx)
	if err != nil {
		return res, fmt.Errorf("listing subscribers: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		link := s.UnsubscribeURL(sub.UnsubscribeToken)
		html, err := render.BroadcastEmail(render.BroadcastData{
			SiteTitle:      s.siteTitle,
			SiteURL:        s.siteURL,
			Subject:        subject,
			Body:           template.HTML(bodyHTML), //nolint:gosec // sanitized by caller
			UnsubscribeURL: link,
		})
		if err != nil {
			return res, err
		}

		err = s.sender.Send(ctx, mail.Message{
			To:      sub.Email,
			Subject: subject,
			HTML:    html,
			Text:    render.PlainText(bodyHTML) + "\n\nUnsubscribe: " + link,
		})
		if err != nil {
			res.Failed++
			s.logger.Warn("newsletter delivery failed", "subscriber_id", sub.ID, "error", err)
			continue
		}
		res.Sent++
	}

	s.logger.Info("newsletter sent", "subject", subject, "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// Page lists subscribers for the admin view.
func (s *Service) Page(ctx context.Context, limit, offset int64) ([]store.Subscriber, int64, error) {
	subs, err := s.queries.ListSubscribers(ctx, store.ListSubscribersParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, fmt.Errorf("listing subscribers: %w", err)
	}
	total, err := s.queries.CountSubscribers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting subscribers: %w", err)
	}
	return subs, total, nil
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.IncSubscribe(result)
	}
}
