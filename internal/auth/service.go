package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/identityprovider"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

// IdentityResolver maps an external identity onto a stable internal id.
// Satisfied by identity.Service.
type IdentityResolver interface {
	GetOrCreateInternalID(ctx context.Context, externalID, email string) (int64, error)
}

// UserReader loads the account behind an internal id. Satisfied by the
// user directory through a thin adapter.
type UserReader interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
}

type ServiceAPI interface {
	RequestCode(ctx context.Context, dto RequestCodeDTO) error
	Verify(ctx context.Context, dto VerifyDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	UserFromAccessToken(ctx context.Context, tokenString string) (*User, error)
}

type Service struct {
	provider   identityprovider.Provider
	identities IdentityResolver
	users      UserReader
	tokens     TokenGenerator
	logger     *slog.Logger
}

func NewService(provider identityprovider.Provider, identities IdentityResolver, users UserReader, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		provider:   provider,
		identities: identities,
		users:      users,
		tokens:     tokens,
		logger:     logger,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// RequestCode asks the provider to send a verification code to the email.
// It never reveals whether the email is known.
func (s *Service) RequestCode(ctx context.Context, dto RequestCodeDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if err := s.provider.RequestCode(ctx, dto.Email); err != nil {
		s.logger.Error("verification code request failed", "error", err)
		return err
	}
	return nil
}

// Verify exchanges a magic code for a token pair. This is the only path
// into the identity mapping: a verified external identity either finds its
// existing internal id or gets a fresh one.
func (s *Service) Verify(ctx context.Context, dto VerifyDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	identity, err := s.provider.Verify(ctx, dto.Email, dto.Code)
	if err != nil {
		return AuthTokens{}, err
	}

	internalID, err := s.identities.GetOrCreateInternalID(ctx, identity.ExternalID, identity.Email)
	if err != nil {
		s.logger.Error("identity mapping failed", "error", err, "external_id", identity.ExternalID)
		return AuthTokens{}, err
	}

	u, err := s.users.GetByID(ctx, internalID)
	if err != nil {
		return AuthTokens{}, err
	}

	return s.issueTokens(u)
}

// RefreshTokens rotates the pair. The role is re-read from the directory
// so a role change takes effect on the next refresh at the latest.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AuthTokens{}, err
	}

	return s.issueTokens(u)
}

// UserFromAccessToken resolves the request principal for the middleware.
func (s *Service) UserFromAccessToken(ctx context.Context, tokenString string) (*User, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) issueTokens(u *User) (AuthTokens, error) {
	id := strconv.FormatInt(u.ID, 10)

	accessToken, err := s.tokens.GenerateAccessToken(id, u.Email, string(u.Role))
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("could not issue access token", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(id, u.Email, string(u.Role))
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("could not issue refresh token", err)
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, email, role string) (string, error) {
	return j.sign(userID, email, role, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID, email, role string) (string, error) {
	return j.sign(userID, email, role, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID, email, role string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) validate(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	if _, err := rbac.ParseRole(claims.Role); err != nil {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
