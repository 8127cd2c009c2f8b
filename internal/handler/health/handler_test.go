package health

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
)

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		path   string
		status int
	}{
		{"live", map[string]Pinger{"database": broken}, "/health/live", http.StatusOK},
		{"ready", map[string]Pinger{"database": healthy}, "/health/ready", http.StatusOK},
		{"not ready", map[string]Pinger{"database": healthy, "redis": broken}, "/health/ready", http.StatusServiceUnavailable},
		{"no checks", nil, "/health/ready", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHandler(tt.checks).RegisterRoutes(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)

			var body struct {
				Success bool `json:"success"`
				Data    struct {
					Status string            `json:"status"`
					Checks map[string]string `json:"checks"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status == http.StatusOK, body.Success)
			if tt.name == "not ready" {
				assert.Equal(t, "DOWN", body.Data.Checks["redis"])
				assert.Equal(t, "UP", body.Data.Checks["database"])
			}
		})
	}
}
