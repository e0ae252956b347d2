package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, workspace(r).Notifications.List())
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	// dismissing an already expired notification is fine
	workspace(r).Notifications.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}
