package usecase

import (
	authdomain "schoolsync-backend/internal/auth/domain"
	authdto "schoolsync-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for account and session operations
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)

	ConnectGmail(userID string, req *authdto.ConnectGmailRequest) (*authdomain.User, error)
	ConnectIMAP(userID string, req *authdto.ConnectIMAPRequest) (*authdomain.User, error)
	GetProfile(userID string) (*authdomain.User, error)
}
