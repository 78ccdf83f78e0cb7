package internal

import (
	"chat-stress/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type StatsProvider func() map[string]any
type IdentityLister func() ([]domain.Identity, error)

type InspectRow struct {
	Email  string `json:"email"`
	Domain string `json:"domain"`
}

type PageData struct {
	Stats      map[string]any `json:"stats"`
	Identities []InspectRow   `json:"identities"`
	Error      string         `json:"error,omitempty"`
}

// DebugServer exposes the live counters and the durable identity list while a run is in progress.
type DebugServer struct {
	log    *slog.Logger
	server *http.Server
}

// StartDebugServer listens on 0.0.0.0:port in the background. Passwords never leave the process.
func StartDebugServer(log *slog.Logger, port int, statsProvider StatsProvider, lister IdentityLister) *DebugServer {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /inspect", func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Stats: make(map[string]any)}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}
		if lister != nil {
			identities, err := lister()
			if err != nil {
				data.Error = err.Error()
			}
			for _, identity := range identities {
				data.Identities = append(data.Identities, DefaultMapper(identity))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(data)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	})

	d := &DebugServer{
		log: log,
		server: &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	go func() {
		// Listening on all interfaces so the page is reachable from the network
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
	log.Info(fmt.Sprintf("Debug server on http://localhost:%d/inspect", port))
	return d
}

func (d *DebugServer) Handler() http.Handler {
	return d.server.Handler
}

func (d *DebugServer) Shutdown(ctx context.Context) error {
	return d.server.Shutdown(ctx)
}

func DefaultMapper(identity domain.Identity) InspectRow {
	row := InspectRow{Email: identity.Email}
	if at := strings.LastIndex(identity.Email, "@"); at >= 0 {
		row.Domain = identity.Email[at+1:]
	}
	return row
}
