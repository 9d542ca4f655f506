// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio/internal/scheduler"
)

// JobResponse is the admin view of a scheduled job.
type JobResponse struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ListJobs handles GET /api/v1/admin/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	data := []JobResponse{}
	if h.jobs != nil {
		for _, j := range h.jobs.List() {
			data = append(data, JobResponse{
				Name:        j.Name,
				Description: j.Description,
				Schedule:    j.Schedule,
				LastRun:     timePtr(j.LastRun),
				NextRun:     timePtr(j.NextRun),
				LastError:   j.LastError,
			})
		}
	}
	WriteSuccess(w, data, nil)
}

// RunJob handles POST /api/v1/admin/jobs/{name}/run.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		WriteNotFound(w, "Job not found")
		return
	}

	err := h.jobs.TriggerNow(name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		WriteNotFound(w, "Job not found")
	case err != nil:
		slog.Error("manual job run failed", "job", name, "error", err)
		WriteError(w, http.StatusInternalServerError, "job_failed", "Job run failed", nil)
	default:
		WriteSuccess(w, map[string]string{"name": name, "status": "ok"}, nil)
	}
}
