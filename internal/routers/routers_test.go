package routers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/handlers"
	"github.com/prime-labs/express-bot/internal/metrics"
	"github.com/prime-labs/express-bot/internal/middlewares"
	"github.com/prime-labs/express-bot/internal/models"
	"github.com/prime-labs/express-bot/internal/pkg/httpclient"
	"github.com/prime-labs/express-bot/internal/repositories"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

type stubFinder struct {
	tickets map[string]*models.Ticket
	err     error
}

func (s stubFinder) FindByDiscordUserID(_ context.Context, id string) (*models.Ticket, error) {
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.tickets[id]; ok {
		return t, nil
	}
	return nil, repositories.ErrTicketNotFound
}

func newTestRouter(finder handlers.TicketFinder, checks map[string]handlers.HealthCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.AdminConfig{Token: "s3cret", CORSOrigins: []string{"https://admin.example"}}
	return SetupRoutes(cfg, Handlers{
		Tickets: handlers.NewTicketHandler(finder, nil),
		Health:  handlers.NewHealthHandler(checks),
		Metrics: metrics.New(nil).Handler(),
	}, logger.NewNop())
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		r := newTestRouter(stubFinder{}, map[string]handlers.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(httpclient.TraceHeader))
	})

	t.Run("failing check", func(t *testing.T) {
		r := newTestRouter(stubFinder{}, map[string]handlers.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"connection refused"}}`, rec.Body.String())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(stubFinder{}, nil)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGetTicket(t *testing.T) {
	finder := stubFinder{tickets: map[string]*models.Ticket{
		"u1": {TicketNumber: "42", DiscordUserID: "u1", Status: models.StatusNotified},
	}}
	r := newTestRouter(finder, nil)

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set(middlewares.AdminTokenHeader, token)
		}
		return serve(r, req)
	}

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get("/api/v1/tickets/u1", "").Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get("/api/v1/tickets/u1", "nope").Code)
	})

	t.Run("found", func(t *testing.T) {
		rec := get("/api/v1/tickets/u1", "s3cret")
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.Ticket
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "42", got.TicketNumber)
		assert.Equal(t, models.StatusNotified, got.Status)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get("/api/v1/tickets/ghost", "s3cret").Code)
	})

	t.Run("store failure", func(t *testing.T) {
		r := newTestRouter(stubFinder{err: errors.New("db down")}, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/u1", nil)
		req.Header.Set(middlewares.AdminTokenHeader, "s3cret")
		assert.Equal(t, http.StatusInternalServerError, serve(r, req).Code)
	})
}

func TestAdminTokenMiddleware_EmptyTokenRejectsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", middlewares.AdminTokenMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(middlewares.AdminTokenHeader, "")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestCORS(t *testing.T) {
	r := newTestRouter(stubFinder{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://admin.example")
	rec := serve(r, req)
	assert.Equal(t, "https://admin.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestTraceIDIsEchoed(t *testing.T) {
	r := newTestRouter(stubFinder{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(httpclient.TraceHeader, "trace-abc")
	rec := serve(r, req)
	assert.Equal(t, "trace-abc", rec.Header().Get(httpclient.TraceHeader))
}
