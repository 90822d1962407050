package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-food-court/internal/dashboard"
)

// serveSSE streams b to the client as server-sent events until the request
// ends or b closes. hello, when set, is sent first. keep filters values for
// this client; nil keeps all. A comment line goes out every keepAlive.
func serveSSE[T any](w http.ResponseWriter, r *http.Request, b *dashboard.Broadcaster[T], hello any, keepAlive time.Duration, keep func(T) bool) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if hello != nil {
		if err := writeEvent(w, hello); err != nil {
			return
		}
	}
	_ = rc.Flush()

	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-sub.C():
			if !ok {
				return
			}
			if keep != nil && !keep(v) {
				continue
			}
			if err := writeEvent(w, v); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}
