package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fundledger/internal/domain"
)

const (
	defaultEventPage  = 100
	streamBuffer      = 256
	streamHeartbeat   = 15 * time.Second
	streamReplayBatch = 200
)

func (a *App) EventsList(w http.ResponseWriter, r *http.Request) {
	after, ok := a.queryUint(w, r, "after", 0)
	if !ok {
		return
	}
	limit, ok := a.queryUint(w, r, "limit", defaultEventPage)
	if !ok {
		return
	}
	events, err := a.Ledger.Events().Since(r.Context(), after, int(limit))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":    events,
		"last_seq": a.Ledger.Events().LastSeq(),
	})
}

// EventsStream serves the event log as Server-Sent Events. It replays
// persisted events after the requested sequence, then forwards live ones.
// A client that falls too far behind is disconnected and resumes with
// Last-Event-ID.
func (a *App) EventsStream(w http.ResponseWriter, r *http.Request) {
	after, ok := a.queryUint(w, r, "after", 0)
	if !ok {
		return
	}
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		seq, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid Last-Event-ID")
			return
		}
		after = seq
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	// Subscribe before replaying so nothing committed in between is lost.
	live, cancel := a.Ledger.Events().Subscribe(streamBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		a.Logger.Debug().Err(err).Msg("event stream: flush unsupported")
		return
	}

	ctx := r.Context()
	last := after
	for {
		batch, err := a.Ledger.Events().Since(ctx, last, streamReplayBatch)
		if err != nil {
			a.Logger.Error().Err(err).Msg("event stream: replay failed")
			return
		}
		for _, e := range batch {
			if err := writeEvent(w, e); err != nil {
				return
			}
			last = e.Seq
		}
		if len(batch) < streamReplayBatch {
			break
		}
	}
	if err := rc.Flush(); err != nil {
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case e, open := <-live:
			if !open {
				return
			}
			if e.Seq <= last {
				continue
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
			last = e.Seq
			if err := rc.Flush(); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Kind, data)
	return err
}

func (a *App) queryUint(w http.ResponseWriter, r *http.Request, key string, fallback uint64) (uint64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid "+key)
		return 0, false
	}
	return v, true
}
