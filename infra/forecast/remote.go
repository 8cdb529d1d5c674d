// Package forecast reaches an external forecasting service over HTTP.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kilianp07/hems/auth"
	"github.com/kilianp07/hems/core/factory"
	coreforecast "github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/logger"
)

// Config configures the remote provider.
type Config struct {
	URL            string    `json:"url"`
	Weather        string    `json:"weather"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Auth           auth.Conf `json:"auth"`
}

// Remote asks a forecast service for the energy expected over the next
// tick. The service answers either forecast_wh or forecast_kw.
type Remote struct {
	endpoint      string
	weather       string
	timestepHours float64
	client        *http.Client
	creds         *auth.ClientCred
	log           logger.Logger
}

type remoteResponse struct {
	Status     string   `json:"status"`
	ForecastWh *float64 `json:"forecast_wh"`
	ForecastKw *float64 `json:"forecast_kw"`
}

// NewRemote builds a provider for cfg.
func NewRemote(cfg Config, deps coreforecast.Deps) (*Remote, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote forecast requires a url")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("remote forecast url: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	h := deps.TimestepHours
	if h <= 0 {
		h = 0.25
	}
	r := &Remote{
		endpoint:      cfg.URL,
		weather:       cfg.Weather,
		timestepHours: h,
		client:        &http.Client{Timeout: timeout},
		log:           logger.OrNop(deps.Logger),
	}
	if cfg.Auth.Enabled() {
		r.creds = auth.NewClientCred(cfg.Auth)
	}
	return r, nil
}

// ForecastWh calls the service once.
func (r *Remote) ForecastWh(ctx context.Context) (float64, error) {
	u, _ := url.Parse(r.endpoint)
	q := u.Query()
	q.Set("next_minutes", strconv.Itoa(int(r.timestepHours*60+0.5)))
	q.Set("unit", "wh")
	if r.weather != "" {
		q.Set("weather", r.weather)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if r.creds != nil {
		if err := r.creds.SetAuthHeader(req); err != nil {
			return 0, err
		}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("forecast service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized && r.creds != nil {
		r.creds.ForceRefresh()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("forecast service: status %d: %s", resp.StatusCode, body)
	}
	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("forecast service: decode: %w", err)
	}
	if out.Status != "" && out.Status != "success" {
		return 0, fmt.Errorf("forecast service: status %q", out.Status)
	}
	var wh float64
	switch {
	case out.ForecastWh != nil:
		wh = *out.ForecastWh
	case out.ForecastKw != nil:
		wh = *out.ForecastKw * r.timestepHours * 1000
	default:
		return 0, fmt.Errorf("forecast service: no forecast in response")
	}
	if wh < 0 {
		wh = 0
	}
	r.log.Debugw("remote forecast", map[string]any{"wh": wh})
	return wh, nil
}

func init() {
	_ = coreforecast.Register("remote", func(conf map[string]any) (coreforecast.Builder, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, fmt.Errorf("remote forecast requires a url")
		}
		return func(d coreforecast.Deps) (coreforecast.Provider, error) { return NewRemote(c, d) }, nil
	})
}
