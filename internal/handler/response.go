// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
)

// logAndInternalError logs an error and writes a generic JSON 500. The
// detail stays in the log.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	writeJSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusNotFound, "not_found", message)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusBadRequest, "bad_request", message)
}
