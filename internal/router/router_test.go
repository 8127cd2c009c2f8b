package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	adminhandler "github.com/jwalitptl/booking-api/internal/handler/admin"
	authhandler "github.com/jwalitptl/booking-api/internal/handler/auth"
	bookinghandler "github.com/jwalitptl/booking-api/internal/handler/booking"
	clinichandler "github.com/jwalitptl/booking-api/internal/handler/clinic"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	authservice "github.com/jwalitptl/booking-api/internal/service/auth"
	bookingservice "github.com/jwalitptl/booking-api/internal/service/booking"
	clinicservice "github.com/jwalitptl/booking-api/internal/service/clinic"
	"github.com/jwalitptl/booking-api/internal/service/event"
	reportservice "github.com/jwalitptl/booking-api/internal/service/report"
	"github.com/jwalitptl/booking-api/pkg/auth"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/security"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    int            `json:"code"`
		Kind    apperrors.Kind `json:"kind"`
		Message string         `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	t       *testing.T
	engine  *gin.Engine
	store   *memory.Store
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validator.RegisterGinBindings())

	now := func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	store := memory.NewStore()

	jwtSvc, err := auth.NewJWTService("test-secret", "booking-api", time.Hour)
	require.NoError(t, err)
	authSvc := authservice.NewService(store.Users(), jwtSvc, security.NewBcryptHasher(bcrypt.MinCost), nil)

	prom := prometheus.New()
	m := metrics.NewMetrics("test", prom.Registry())

	clinicSvc := clinicservice.NewService(store.Clinics(), time.Minute, nil)
	bookingSvc := bookingservice.NewService(clinicSvc, store.Bookings(), event.NewService(store.Outbox()), nil,
		bookingservice.WithMetrics(m), bookingservice.WithClock(now))
	reportSvc := reportservice.NewService(clinicSvc, store.Bookings(), now)

	r := NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		authhandler.NewHandler(authSvc),
		health.NewHandler(nil),
		prom,
		m,
		RouterConfig{
			RequestTimeout: time.Second,
			MaxBodyBytes:   1 << 16,
			CORSConfig:     middleware.DefaultCORSConfig(),
			RateLimit:      &middleware.RateLimiterConfig{Rate: 1000, Burst: 1000},
			MetricsPath:    "/metrics",
		},
		clinichandler.NewHandler(clinicSvc),
		bookinghandler.NewHandler(bookingSvc),
		adminhandler.NewHandler(reportSvc),
	)
	r.Setup()

	return &testAPI{t: t, engine: r.Engine(), store: store, metrics: m}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (a *testAPI) signUp(name, email string, role model.Role) string {
	a.t.Helper()
	status, _ := a.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, status)

	status, env := a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(a.t, http.StatusOK, status)
	var login model.LoginResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &login))
	return login.Token
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.signUp("Owner", "owner@example.com", model.RoleAdmin)
	customerToken := api.signUp("Customer", "customer@example.com", model.RoleCustomer)

	status, env := api.do(http.MethodPost, "/api/v1/clinics", adminToken, gin.H{
		"name": "Downtown", "type": "clinic", "address": "1 Main St", "city": "Springfield",
		"opening_time": "09:00", "closing_time": "11:00", "slot_duration_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, status)
	clinic := decodeData[model.Clinic](t, env)

	status, env = api.do(http.MethodGet, "/api/v1/clinics/"+clinic.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "owner_id")

	status, env = api.do(http.MethodPost, "/api/v1/services", adminToken, gin.H{
		"clinic_id": clinic.ID, "name": "Checkup", "price": 40, "duration_minutes": 45,
	})
	require.Equal(t, http.StatusCreated, status)
	service := decodeData[model.Service](t, env)

	slotsPath := "/api/v1/bookings/slots?clinic_id=" + clinic.ID.String() + "&date=2026-10-20"
	status, env = api.do(http.MethodGet, slotsPath, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, decodeData[model.Availability](t, env).Slots)

	booking := gin.H{
		"clinic_id": clinic.ID, "service_id": service.ID, "date": "2026-10-20", "start_time": "09:30",
	}
	status, env = api.do(http.MethodPost, "/api/v1/bookings", customerToken, booking)
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[model.Booking](t, env)
	assert.Equal(t, "10:15", created.EndTime)
	assert.Equal(t, model.BookingStatusPending, created.Status)

	status, env = api.do(http.MethodPost, "/api/v1/bookings", customerToken, booking)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "slot already booked", env.Error.Message)

	status, env = api.do(http.MethodGet, slotsPath, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"09:00", "10:00", "10:30"}, decodeData[model.Availability](t, env).Slots)

	status, env = api.do(http.MethodGet, "/api/v1/bookings/my", customerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]model.BookingDetail](t, env), 1)

	statusPath := "/api/v1/bookings/" + created.ID.String() + "/status"
	status, _ = api.do(http.MethodPatch, statusPath, customerToken, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.do(http.MethodPatch, statusPath, adminToken, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.BookingStatusConfirmed, decodeData[model.Booking](t, env).Status)

	status, env = api.do(http.MethodGet, "/api/v1/admin/stats?clinic_id="+clinic.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decodeData[model.ClinicStats](t, env).TotalBookings)

	status, env = api.do(http.MethodPatch, "/api/v1/bookings/"+created.ID.String()+"/cancel", customerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Booking cancelled", env.Message)

	status, env = api.do(http.MethodPatch, "/api/v1/bookings/"+created.ID.String()+"/cancel", customerToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "booking already cancelled", env.Error.Message)

	events, err := api.store.Outbox().ClaimPending(context.Background(), 10, time.Minute)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(api.metrics.BookingAdmissions.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(api.metrics.BookingAdmissions.WithLabelValues("conflict")))
}

func TestGuards(t *testing.T) {
	api := newTestAPI(t)
	customerToken := api.signUp("Customer", "customer@example.com", model.RoleCustomer)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"create clinic as customer", http.MethodPost, "/api/v1/clinics", customerToken, http.StatusForbidden},
		{"create booking anonymously", http.MethodPost, "/api/v1/bookings", "", http.StatusUnauthorized},
		{"my bookings with bad token", http.MethodGet, "/api/v1/bookings/my", "garbage", http.StatusUnauthorized},
		{"stats as customer", http.MethodGet, "/api/v1/admin/stats?clinic_id=" + uuid.NewString(), customerToken, http.StatusForbidden},
		{"unknown clinic", http.MethodGet, "/api/v1/clinics/" + uuid.NewString(), "", http.StatusNotFound},
		{"malformed clinic id", http.MethodGet, "/api/v1/clinics/nope", "", http.StatusBadRequest},
		{"slots without date", http.MethodGet, "/api/v1/bookings/slots?clinic_id=" + uuid.NewString(), "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nowhere", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.status, env.Error.Code)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Short", "email": "short@example.com", "password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperrors.KindValidation, env.Error.Kind)

	api.signUp("Taken", "taken@example.com", model.RoleCustomer)
	status, env = api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Again", "email": "taken@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already used", env.Error.Message)

	status, env = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "taken@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid credentials", env.Error.Message)
}

func TestOpsEndpoints(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
