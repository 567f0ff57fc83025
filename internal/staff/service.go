package staff

import (
	"context"
	"errors"
	"strings"
	"time"

	"tablebook/internal/shared/config"
	"tablebook/internal/shared/constants"
	"tablebook/pkg/cache"
	"tablebook/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffNotFound      = errors.New("staff not found")
	ErrStaffAlreadyExists = errors.New("staff already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

type Service interface {
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	CreateStaff(ctx context.Context, req *CreateStaffRequest) (*StaffResponse, error)
	ChangePassword(ctx context.Context, staffID string, req *ChangePasswordRequest) error
	GetProfile(ctx context.Context, staffID string) (*StaffResponse, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type service struct {
	repo   Repository
	cache  cache.Service // optional
	config *config.Config
	log    *logger.Logger
}

// NewService builds the staff service. cacheService may be nil, in which case
// profile lookups always hit the database.
func NewService(repo Repository, cacheService cache.Service, cfg *config.Config) Service {
	return &service{
		repo:   repo,
		cache:  cacheService,
		config: cfg,
		log:    logger.GetDefault(),
	}
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	member, err := s.repo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateAccessToken(member, time.Now())
	if err != nil {
		return nil, err
	}

	s.log.LogAuthSuccess(ctx, member.ID.String(), "password")
	return &AuthResponse{
		Staff:       toStaffResponse(member),
		AccessToken: token,
		ExpiresIn:   int64(s.config.JWT.JWTExpiresIn.Seconds()),
	}, nil
}

func (s *service) CreateStaff(ctx context.Context, req *CreateStaffRequest) (*StaffResponse, error) {
	email := strings.ToLower(req.Email)
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrStaffAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// stored as uppercase enum
	role := strings.ToUpper(req.Role)
	if !IsValidRole(role) {
		role = string(RoleStaff)
	}

	member := &Staff{
		DisplayName: req.DisplayName,
		Email:       email,
		Password:    string(hashedPassword),
		Role:        Role(role),
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, err
	}

	resp := toStaffResponse(member)
	return &resp, nil
}

func (s *service) ChangePassword(ctx context.Context, staffID string, req *ChangePasswordRequest) error {
	member, err := s.repo.GetByID(ctx, staffID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, staffID, string(hashedPassword)); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, constants.BuildStaffProfileKey(staffID)); err != nil {
			s.log.WarnContext(ctx, "Failed to invalidate staff profile", "staff_id", staffID, "error", err.Error())
		}
	}
	return nil
}

// GetProfile reads through the Redis cache when one is configured
func (s *service) GetProfile(ctx context.Context, staffID string) (*StaffResponse, error) {
	fetch := func() (interface{}, error) {
		member, err := s.repo.GetByID(ctx, staffID)
		if err != nil {
			return nil, err
		}
		return toStaffResponse(member), nil
	}

	if s.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		resp := v.(StaffResponse)
		return &resp, nil
	}

	var resp StaffResponse
	err := s.cache.GetOrSet(ctx, constants.BuildStaffProfileKey(staffID), constants.TTL_STAFF_PROFILE, fetch, &resp)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &resp, nil
}

func (s *service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.JWT.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.Type == "access" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *service) generateAccessToken(member *Staff, now time.Time) (string, error) {
	claims := JWTClaims{
		StaffID: member.ID.String(),
		Email:   member.Email,
		Role:    string(member.Role),
		Type:    "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWT.JWTExpiresIn)),
			Issuer:    "tablebook",
			Subject:   member.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWT.Secret))
}
