package auth

import (
	"strings"

	"github.com/frahmantamala/workspace-management/internal"
)

type RequestCodeDTO struct {
	Email string `json:"email" validate:"required,email"`
}

func (dto RequestCodeDTO) Validate() error {
	if !validEmail(dto.Email) {
		return internal.NewValidationFieldError("email", "a valid email is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type VerifyDTO struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (dto VerifyDTO) Validate() error {
	if !validEmail(dto.Email) {
		return internal.NewValidationFieldError("email", "a valid email is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.Code) == "" {
		return internal.NewValidationFieldError("code", "code is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (dto RefreshTokenDTO) Validate() error {
	if dto.RefreshToken == "" {
		return internal.NewValidationFieldError("refresh_token", "refresh_token is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
