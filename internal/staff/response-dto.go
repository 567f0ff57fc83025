package staff

import "time"

// represents the login response
type AuthResponse struct {
	Staff       StaffResponse `json:"staff"`
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
}

// represents staff data in responses (without the password hash)
type StaffResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toStaffResponse(s *Staff) StaffResponse {
	return StaffResponse{
		ID:          s.ID.String(),
		DisplayName: s.DisplayName,
		Email:       s.Email,
		Role:        string(s.Role),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
