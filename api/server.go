// Package api exposes the controller over HTTP under /api.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"

	"github.com/kilianp07/hems/api/kpi"
	"github.com/kilianp07/hems/api/ticks"
	"github.com/kilianp07/hems/api/ws"
	"github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/metrics/energy"
	"github.com/kilianp07/hems/core/settings"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/core/tick"
	"github.com/kilianp07/hems/core/ticklog"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Ticker runs one control step on demand.
type Ticker interface {
	Tick(ctx context.Context) (tick.Result, error)
}

// Deps are the collaborators behind the routes. Nil optional fields disable
// the matching routes.
type Deps struct {
	Store       state.Store
	Settings    *settings.Store
	Ticker      Ticker
	Forecast    forecast.Provider
	TickLog     ticklog.LogStore
	Energy      energy.Store
	Bus         eventbus.EventBus
	Hub         *ws.Hub
	HistoryPath string
	// TimestepHours is reported with the forecast.
	TimestepHours float64
	// Metrics is mounted on /metrics when set.
	Metrics     http.Handler
	CORSOrigins []string
	Gzip        bool
	Logger      logger.Logger
	Clock       func() time.Time
}

type server struct {
	Deps
	log logger.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	s := &server{Deps: d, log: logger.OrNop(d.Logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Post("/override", s.setOverride)
		r.Post("/device/{id}", s.setDevice)
		r.Get("/devices", s.listDevices)
		r.Post("/devices", s.addDevice)
		r.Delete("/devices/{id}", s.deleteDevice)
		if d.Settings != nil {
			r.Get("/config", s.getConfig)
			r.Post("/config", s.updateConfig)
		}
		if d.Forecast != nil {
			r.Get("/forecast", s.getForecast)
		}
		if d.Ticker != nil {
			r.Post("/tick", s.runTick)
		}
		r.Get("/historical-data", s.historicalData)
		if d.TickLog != nil {
			r.Method(http.MethodGet, "/ticks", ticks.NewLogHandler(d.TickLog, ""))
		}
		if d.Energy != nil {
			r.Method(http.MethodGet, "/energy", kpi.NewKPIHandler(d.Energy))
		}
		if d.Hub != nil {
			r.Method(http.MethodGet, "/ws", ws.NewHandler(d.Hub, s.Store, d.Logger))
		}
	})

	var h http.Handler = r
	if d.Gzip {
		h = gziphandler.GzipHandler(h)
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
}

func (s *server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugw("http request", map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

// Serve runs the router on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
