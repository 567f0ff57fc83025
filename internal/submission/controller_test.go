package submission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tablebook/internal/shared/config"
	"tablebook/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "submission-test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id": "7d1c7c2e-2f4b-4c44-9d7e-3b8f8c0b1a11",
		"email":    "owner@example.com",
		"role":     role,
		"type":     "access",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAdminEngine(t *testing.T, gw *Gateway) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	SetupSubmissionRoutes(engine.Group("/api/v1"), NewController(gw), cfg)
	return engine
}

func TestListSubmissions(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	ok := NewRecord(sampleReservation(), time.UnixMilli(1712345678901))
	ok.DeliveryStatus = StatusUnconfirmed
	failed := NewRecord(sampleReservation(), time.UnixMilli(1712345679999))
	failed.DeliveryStatus = StatusDispatchFailed
	for _, r := range []Record{ok, failed} {
		if err := cache.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	engine := newAdminEngine(t, newTestGateway(&fakeDispatcher{}, cache, nil))

	tests := []struct {
		name      string
		role      string
		query     string
		wantCode  int
		wantCount int
	}{
		{"admin sees all", middleware.RoleAdmin, "", http.StatusOK, 2},
		{"admin filters failures", middleware.RoleAdmin, "?status=dispatch_failed", http.StatusOK, 1},
		{"staff forbidden", middleware.RoleStaff, "", http.StatusForbidden, 0},
		{"anonymous", "", "", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/submissions"+tt.query, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", "Bearer "+signToken(t, tt.role))
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var body struct {
				Data struct {
					Submissions []Record `json:"submissions"`
					Count       int      `json:"count"`
				} `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.Count != tt.wantCount || len(body.Data.Submissions) != tt.wantCount {
				t.Errorf("count = %d, submissions = %d, want %d", body.Data.Count, len(body.Data.Submissions), tt.wantCount)
			}
		})
	}
}
