package staff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tablebook/internal/shared/config"

	"github.com/gin-gonic/gin"
)

type memoryRepository struct {
	byID map[string]*Staff
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byID: map[string]*Staff{}}
}

func (r *memoryRepository) Create(ctx context.Context, s *Staff) error {
	if err := s.BeforeCreate(nil); err != nil {
		return err
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	copied := *s
	r.byID[s.ID.String()] = &copied
	return nil
}

func (r *memoryRepository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	for _, s := range r.byID {
		if s.Email == email {
			copied := *s
			return &copied, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Staff, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memoryRepository) UpdatePassword(ctx context.Context, id string, hashedPassword string) error {
	s, ok := r.byID[id]
	if !ok {
		return ErrStaffNotFound
	}
	s.Password = hashedPassword
	return nil
}

func (r *memoryRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: "staff-test-secret", JWTExpiresIn: time.Hour}}
}

func newTestService(t *testing.T) (Service, *StaffResponse) {
	t.Helper()
	svc := NewService(newMemoryRepository(), nil, testConfig())
	owner, err := svc.CreateStaff(context.Background(), &CreateStaffRequest{
		DisplayName: "Owner",
		Email:       "Owner@Example.com",
		Password:    "correct-horse",
		Role:        "admin",
	})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	return svc, owner
}

func TestCreateStaffNormalisesInput(t *testing.T) {
	svc, owner := newTestService(t)

	if owner.Email != "owner@example.com" {
		t.Errorf("email = %q, want lower-cased", owner.Email)
	}
	if owner.Role != string(RoleAdmin) {
		t.Errorf("role = %q, want ADMIN", owner.Role)
	}

	member, err := svc.CreateStaff(context.Background(), &CreateStaffRequest{
		DisplayName: "Hall",
		Email:       "hall@example.com",
		Password:    "password123",
		Role:        "manager",
	})
	if err != nil {
		t.Fatal(err)
	}
	if member.Role != string(RoleStaff) {
		t.Errorf("unknown role should fall back to STAFF, got %q", member.Role)
	}

	_, err = svc.CreateStaff(context.Background(), &CreateStaffRequest{
		DisplayName: "Dup",
		Email:       "OWNER@example.com",
		Password:    "password123",
	})
	if !errors.Is(err, ErrStaffAlreadyExists) {
		t.Errorf("duplicate email: got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, owner := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "owner@example.com", "correct-horse", nil},
		{"email case ignored", "OWNER@example.com", "correct-horse", nil},
		{"wrong password", "owner@example.com", "wrong-horse", ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "correct-horse", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(context.Background(), &LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}

			claims, err := svc.ValidateToken(resp.AccessToken)
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.StaffID != owner.ID || claims.Role != string(RoleAdmin) || claims.Type != "access" {
				t.Errorf("unexpected claims %+v", claims)
			}
			if resp.ExpiresIn != int64(time.Hour.Seconds()) {
				t.Errorf("expires_in = %d", resp.ExpiresIn)
			}
		})
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "owner@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}

	other := NewService(newMemoryRepository(), nil, &config.Config{JWT: config.JWTConfig{Secret: "other", JWTExpiresIn: time.Hour}})
	if _, err := other.ValidateToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, owner := newTestService(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, owner.ID, &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: got %v", err)
	}

	if err := svc.ChangePassword(ctx, owner.ID, &ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "new-password"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "owner@example.com", Password: "correct-horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "owner@example.com", Password: "new-password"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	if err := svc.ChangePassword(ctx, "missing", &ChangePasswordRequest{CurrentPassword: "x", NewPassword: "new-password"}); !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("missing staff: got %v", err)
	}
}

func newStaffEngine(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(NewController(svc), testConfig()).SetupRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return rec.Code, out
}

func login(t *testing.T, engine *gin.Engine, email, password string) string {
	t.Helper()
	code, body := doJSON(t, engine, http.MethodPost, "/api/v1/staff/login", "", LoginRequest{Email: email, Password: password})
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d body %v", email, code, body)
	}
	data := body["data"].(map[string]any)
	return data["access_token"].(string)
}

func TestStaffRoutes(t *testing.T) {
	svc, _ := newTestService(t)
	engine := newStaffEngine(svc)

	code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/staff/login", "", LoginRequest{Email: "owner@example.com", Password: "wrong-horse"})
	if code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", code)
	}
	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/staff/login", "", map[string]string{"email": "not-an-email"})
	if code != http.StatusBadRequest {
		t.Errorf("invalid body status = %d", code)
	}

	adminToken := login(t, engine, "owner@example.com", "correct-horse")

	code, body := doJSON(t, engine, http.MethodGet, "/api/v1/staff/me", adminToken, nil)
	if code != http.StatusOK {
		t.Fatalf("me status = %d", code)
	}
	if got := body["data"].(map[string]any)["email"]; got != "owner@example.com" {
		t.Errorf("me email = %v", got)
	}

	newMember := CreateStaffRequest{DisplayName: "Hall", Email: "hall@example.com", Password: "password123"}
	if code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/staff", adminToken, newMember); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/staff", adminToken, newMember); code != http.StatusConflict {
		t.Errorf("duplicate create status = %d", code)
	}

	staffToken := login(t, engine, "hall@example.com", "password123")
	other := CreateStaffRequest{DisplayName: "Kitchen", Email: "kitchen@example.com", Password: "password123"}
	if code, _ := doJSON(t, engine, http.MethodPost, "/api/v1/staff", staffToken, other); code != http.StatusForbidden {
		t.Errorf("staff create status = %d, want 403", code)
	}
	if code, _ := doJSON(t, engine, http.MethodGet, "/api/v1/staff/me", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous me status = %d, want 401", code)
	}
}
