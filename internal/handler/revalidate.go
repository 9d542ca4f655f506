// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/olegiv/folio/internal/revalidate"
)

// RevalidateHandler receives CMS change notifications.
type RevalidateHandler struct {
	svc *revalidate.Service
}

// NewRevalidateHandler creates a revalidation webhook handler.
func NewRevalidateHandler(svc *revalidate.Service) *RevalidateHandler {
	return &RevalidateHandler{svc: svc}
}

// RevalidateResponse reports what was invalidated.
type RevalidateResponse struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error,omitempty"`
	RevalidatedTags  []string `json:"revalidatedTags"`
	RevalidatedPaths []string `json:"revalidatedPaths"`
	FailedTags       []string `json:"failedTags,omitempty"`
	FailedPaths      []string `json:"failedPaths,omitempty"`
}

// Revalidate handles POST /api/revalidate. The secret may arrive as the
// "secret" query parameter or in the body.
func (h *RevalidateHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Payload too large")
		return
	}

	res, err := h.svc.HandleWebhook(r.Context(), body, r.URL.Query().Get("secret"))
	switch {
	case errors.Is(err, revalidate.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid secret")
		return
	case errors.Is(err, revalidate.ErrMalformed):
		writeBadRequest(w, "Malformed payload")
		return
	}

	resp := RevalidateResponse{
		Success:          err == nil,
		RevalidatedTags:  nonNil(res.Tags),
		RevalidatedPaths: nonNil(res.Paths),
		FailedTags:       res.FailedTags,
		FailedPaths:      res.FailedPaths,
	}
	if err != nil {
		// HandleWebhook already logged the joined failure.
		resp.Error = "Revalidation incomplete"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
