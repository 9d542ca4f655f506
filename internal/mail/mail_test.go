// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSender_Send(t *testing.T) {
	var got providerRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.Client(), srv.URL, "key-123", "Folio <news@example.com>")
	err := s.Send(context.Background(), Message{To: "a@b.co", Subject: "Hi", HTML: "<p>x</p>", Text: "x"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if auth != "Bearer key-123" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.From != "Folio <news@example.com>" || len(got.To) != 1 || got.To[0] != "a@b.co" {
		t.Errorf("request = %+v", got)
	}
}

func TestHTTPSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewHTTPSender(nil, srv.URL, "bad", "from@example.com")
	err := s.Send(context.Background(), Message{To: "a@b.co"})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if pe.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", pe.StatusCode)
	}
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := s.Send(context.Background(), Message{To: "a@b.co"}); err != nil {
		t.Errorf("Send: %v", err)
	}
}
