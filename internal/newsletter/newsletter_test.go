// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/folio/internal/mail"
	"github.com/olegiv/folio/internal/ratelimit"
	"github.com/olegiv/folio/internal/testutil"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []mail.Message
	failFor map[string]bool
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[msg.To] {
		return errors.New("provider down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type countingMetrics struct {
	results map[string]int
	denied  int
}

func (m *countingMetrics) IncSubscribe(result string) { m.results[result]++ }
func (m *countingMetrics) IncRateLimitDenied()        { m.denied++ }

func newTestService(t *testing.T, limiter ratelimit.Limiter) (*Service, *recordingSender, *countingMetrics) {
	t.Helper()
	db := testutil.TestDB(t)
	if limiter == nil {
		limiter = ratelimit.NewMemory(ratelimit.DefaultMax, ratelimit.DefaultWindow)
	}
	sender := &recordingSender{failFor: map[string]bool{}}
	m := &countingMetrics{results: map[string]int{}}
	svc := NewService(db, limiter, sender, Options{
		SiteURL:   "https://example.com/",
		SiteTitle: "Folio",
		Logger:    testutil.TestLogger(),
		Metrics:   m,
	})
	n := 0
	svc.newToken = func() string {
		n++
		return fmt.Sprintf("token-%d", n)
	}
	return svc, sender, m
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@b.co", true},
		{"first.last@example.org", true},
		{"a@b", false},
		{"a b@c.com", false},
		{"abc", false},
		{"", false},
		{"@b.co", false},
		{"a@", false},
		{"a@@b.co", false},
		{"a@b@c.co", false},
		{"a@b .co", false},
		{"a\t@b.co", false},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if tt.valid && err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", tt.email, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidEmail", tt.email, err)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Foo@Example.COM "); got != "foo@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestSubscribe_SendsWelcome(t *testing.T) {
	svc, sender, m := newTestService(t, nil)

	sub, err := svc.Subscribe(context.Background(), " Reader@Example.com ", "1.2.3.4")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Email != "reader@example.com" || !sub.IsSubscribed {
		t.Errorf("sub = %+v", sub)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	want := "https://example.com/api/newsletter/unsubscribe?token=token-1"
	if !strings.Contains(sender.sent[0].HTML, want) {
		t.Errorf("welcome email missing unsubscribe link %q", want)
	}
	if m.results[ResultSubscribed] != 1 {
		t.Errorf("metrics = %+v", m.results)
	}
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	svc, sender, m := newTestService(t, nil)

	_, err := svc.Subscribe(context.Background(), "abc", "1.2.3.4")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
	if len(sender.sent) != 0 {
		t.Error("no email should be sent for invalid address")
	}
	if m.results[ResultInvalid] != 1 {
		t.Errorf("metrics = %+v", m.results)
	}
}

func TestSubscribe_ResubscribeRotatesToken(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, "a@b.co", "x")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := svc.Unsubscribe(ctx, first.UnsubscribeToken); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	second, err := svc.Subscribe(ctx, "A@B.CO", "x")
	if err != nil {
		t.Fatalf("Subscribe again: %v", err)
	}
	if !second.IsSubscribed {
		t.Error("IsSubscribed = false after resubscribe")
	}
	if second.UnsubscribeToken == first.UnsubscribeToken {
		t.Error("resubscribe should issue a new token")
	}

	// the first token was invalidated by the resubscribe
	if _, err := svc.Unsubscribe(ctx, first.UnsubscribeToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old token: err = %v, want ErrInvalidToken", err)
	}
}

func TestSubscribe_RateLimited(t *testing.T) {
	limiter := ratelimit.NewMemory(2, time.Hour)
	svc, _, m := newTestService(t, limiter)
	ctx := context.Background()

	for i := range 2 {
		if _, err := svc.Subscribe(ctx, fmt.Sprintf("u%d@b.co", i), "9.9.9.9"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	_, err := svc.Subscribe(ctx, "u3@b.co", "9.9.9.9")
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if m.denied != 1 {
		t.Errorf("denied = %d, want 1", m.denied)
	}

	// invalid attempts still count against the window
	if _, err := svc.Subscribe(ctx, "abc", "8.8.8.8"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.Subscribe(ctx, "abc", "8.8.8.8"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.Subscribe(ctx, "ok@b.co", "8.8.8.8"); !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestSubscribe_MailFailureKeepsRow(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	sender.failFor["a@b.co"] = true

	sub, err := svc.Subscribe(context.Background(), "a@b.co", "x")
	if !errors.Is(err, ErrMailFailed) {
		t.Fatalf("err = %v, want ErrMailFailed", err)
	}
	got, err := svc.queries.GetSubscriberByEmail(context.Background(), "a@b.co")
	if err != nil {
		t.Fatalf("GetSubscriberByEmail: %v", err)
	}
	if got.ID != sub.ID || !got.IsSubscribed {
		t.Errorf("row = %+v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "a@b.co", "x")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"missing token", "  ", ErrTokenRequired},
		{"unknown token", "nope", ErrInvalidToken},
		{"valid token", sub.UnsubscribeToken, nil},
		{"repeat is idempotent", sub.UnsubscribeToken, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Unsubscribe(ctx, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.IsSubscribed {
				t.Error("IsSubscribed = true after unsubscribe")
			}
		})
	}

	// token is not rotated on unsubscribe
	row, _ := svc.queries.GetSubscriberByEmail(ctx, "a@b.co")
	if row.UnsubscribeToken != sub.UnsubscribeToken {
		t.Errorf("token changed to %q", row.UnsubscribeToken)
	}
}

func TestBroadcast_ContinuesPastFailures(t *testing.T) {
	svc, sender, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, e := range []string{"a@b.co", "c@d.co", "e@f.co"} {
		if _, err := svc.Subscribe(ctx, e, e); err != nil {
			t.Fatalf("Subscribe(%s): %v", e, err)
		}
	}
	gone, _ := svc.queries.GetSubscriberByEmail(ctx, "e@f.co")
	if _, err := svc.Unsubscribe(ctx, gone.UnsubscribeToken); err != nil {
		t.Fatal(err)
	}
	sender.sent = nil
	sender.failFor["a@b.co"] = true

	res, err := svc.Broadcast(ctx, "Issue #1", "<p>Hello</p>")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if res.Sent != 1 || res.Failed != 1 {
		t.Errorf("result = %+v, want 1 sent, 1 failed", res)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "c@d.co" {
		t.Fatalf("sent = %+v", sender.sent)
	}
	if !strings.Contains(sender.sent[0].HTML, "<p>Hello</p>") {
		t.Error("body missing from broadcast")
	}
}

func TestPage(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	for i := range 3 {
		if _, err := svc.Subscribe(ctx, fmt.Sprintf("p%d@b.co", i), "x"); err != nil {
			t.Fatal(err)
		}
	}
	subs, total, err := svc.Page(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if total != 3 || len(subs) != 2 {
		t.Errorf("total = %d, len = %d", total, len(subs))
	}
}

