package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"bee-finder/pkg/apperr"
	"bee-finder/pkg/finder"
)

// HandleGenerateStream runs Generate and reports progress as server-sent events.
// The final payload arrives as a "result" event; failures as an "error" event.
func (h *Handler) HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	params := r.URL.Query()
	q, err := locationRequest{
		Zipcode: params.Get("zipcode"),
		City:    params.Get("city"),
		State:   params.Get("state"),
	}.query()
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var mu sync.Mutex
	sendEvent := func(event, data string) {
		mu.Lock()
		defer mu.Unlock()
		// Multi-line data needs one data: field per line.
		fmt.Fprintf(w, "event: %s\n", event)
		for _, line := range strings.Split(data, "\n") {
			fmt.Fprintf(w, "data: %s\n", line)
		}
		fmt.Fprint(w, "\n")
		flusher.Flush()
	}

	h.logger.Info("streaming generation", "query", q.String())
	res, err := h.Finder.Generate(r.Context(), q, sendEvent)
	if err != nil {
		// Generate has already emitted the error event.
		h.logger.Warn("streamed generation failed", "code", apperr.CodeOf(err), "error", err)
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		sendEvent(finder.EventError, apperr.GenericMessage)
		return
	}
	sendEvent("result", string(payload))
}
