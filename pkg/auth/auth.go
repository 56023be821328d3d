// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package auth implements the admin credential flow: bcrypt password checks,
// short-lived HS256 access tokens and rotating refresh tokens that are stored
// as SHA-256 digests only.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/storage"
)

const (
	// AccessTokenTTL bounds the lifetime of an issued access token.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL bounds the lifetime of an issued refresh token.
	RefreshTokenTTL = 7 * 24 * time.Hour

	// MinSecretLength is the shortest signing secret accepted in production.
	MinSecretLength = 32

	refreshTokenBytes = 32
)

var (
	// ErrInvalidCredentials is returned when the username or password does not
	// match. Callers must not learn which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for unknown, expired, revoked or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload of an access token.
type Claims struct {
	AdminID  uint   `json:"adminId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service issues and verifies admin tokens.
type Service struct {
	log    *logrus.Logger
	db     *storage.Database
	secret []byte
}

// New creates an auth Service signing access tokens with the given secret.
func New(log *logrus.Logger, db *storage.Database, secret string) *Service {
	return &Service{
		log:    log,
		db:     db,
		secret: []byte(secret),
	}
}

// EnsureAdmin creates the admin account with the given credentials unless the
// username already exists. An empty password skips seeding; without any admin
// account the mutating API stays locked, which is logged as a warning.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		count, err := s.db.Admins().Count(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			s.log.Warn("No admin account exists and no admin password is configured, the admin API is not usable")
		}
		return nil
	}

	if _, err := s.db.Admins().GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	if err := s.db.Admins().Create(ctx, &model.Admin{Username: username, PasswordHash: string(hash)}); err != nil {
		return err
	}

	s.log.Infof("Created admin account %q", username)
	return nil
}

// Login checks the credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	admin, err := s.db.Admins().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Logins are rare enough to double as the expiry sweep for stale tokens.
	if count, err := s.db.RefreshTokens().DeleteExpired(ctx, time.Now()); err != nil {
		s.log.Warnf("Purging expired refresh tokens failed: %v", err)
	} else if count > 0 {
		s.log.Debugf("Purged %d expired refresh tokens", count)
	}

	return s.issueTokens(ctx, admin)
}

// Refresh rotates the given refresh token: the stored token is revoked and a
// new pair is issued. A replayed, expired or revoked token yields ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.db.RefreshTokens().GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	now := time.Now()
	if !stored.Active(now) {
		return nil, ErrInvalidToken
	}

	admin, err := s.db.Admins().Get(ctx, stored.AdminID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// Revoke before issuing so a replay of the old token cannot race a second pair.
	if err := s.db.RefreshTokens().Revoke(ctx, stored.ID, now); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, admin)
}

// Logout revokes the given refresh token. Unknown tokens are ignored so the
// operation stays idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.db.RefreshTokens().GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.db.RefreshTokens().Revoke(ctx, stored.ID, time.Now())
}

// VerifyAccess parses and validates an access token and returns its claims.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) issueTokens(ctx context.Context, admin *model.Admin) (*TokenPair, error) {
	now := time.Now()

	claims := &Claims{
		AdminID:  admin.ID,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}
	refreshToken := hex.EncodeToString(raw)

	if err := s.db.RefreshTokens().Create(ctx, &model.RefreshToken{
		AdminID:   admin.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(RefreshTokenTTL),
	}); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func hashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
