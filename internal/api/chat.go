package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"storefront-bff/internal/telemetry"
)

type chatRequest struct {
	Prompt string `json:"prompt"`
}

// Chat relays the assistant's reply as server-sent events, one data frame
// per fragment, closed by a done event. Upstream failures arrive as an
// ordinary fragment carrying the apology text.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.rateLimited(w, r, "chat") {
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusUnprocessableEntity, "prompt is required")
		return
	}

	ctx := r.Context()
	if h.cfg.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.ChatTimeout)
		defer cancel()
	}

	stream := workspace(r).Client.ChatStream(ctx, req.Prompt)
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for text := range stream.All() {
		frame, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			h.logger.Info("Chat client went away", "error", err)
			return
		}
		rc.Flush()
		telemetry.ChatFragment()
	}

	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	rc.Flush()
}
