package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/courtside/internal/config"
	"github.com/gokatarajesh/courtside/internal/logging"
)

func TestNewHTTPServer_Routes(t *testing.T) {
	var sawLogger bool
	checkIn := func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logging.FromContext(r.Context()).GetLevel() != zerolog.Disabled
		w.WriteHeader(http.StatusCreated)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "courtside_test_total", Help: "test"}))

	logger := zerolog.New(nil).Level(zerolog.InfoLevel)
	srv := NewHTTPServer(&config.App{HTTPAddr: ":0"}, logger, nil, nil, reg, Handlers{CheckIn: checkIn})

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"check-in", http.MethodPost, "/v1/checkins", http.StatusCreated},
		{"unconfigured", http.MethodPost, "/v1/suggestions/abc/accept", http.StatusNotImplemented},
		{"wrong method", http.MethodGet, "/v1/checkins", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.True(t, sawLogger)
}

func TestNewHTTPServer_MetricsBody(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "courtside_test_total", Help: "test"}))
	srv := NewHTTPServer(&config.App{}, zerolog.Nop(), nil, nil, reg, Handlers{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "courtside_test_total")
}
