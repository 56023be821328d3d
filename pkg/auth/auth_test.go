// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package auth_test

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/auth"
	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/storage"
)

var _ = Describe("Service", func() {
	const (
		secret   = "0123456789abcdef0123456789abcdef"
		password = "correct-horse-battery-staple"
	)

	var (
		ctx     context.Context
		db      *storage.Database
		service *auth.Service
	)

	seedAdmin := func() {
		ExpectWithOffset(1, service.EnsureAdmin(ctx, "admin", password)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = storage.Open(logger.NewNopLogger(), storage.DriverSQLite, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Migrate()).To(Succeed())

		service = auth.New(logger.NewNopLogger(), db, secret)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("#EnsureAdmin", func() {
		It("should create the account exactly once", func() {
			Expect(service.EnsureAdmin(ctx, "admin", password)).To(Succeed())
			Expect(service.EnsureAdmin(ctx, "admin", "another-password")).To(Succeed())

			count, err := db.Admins().Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("should skip seeding without a password", func() {
			Expect(service.EnsureAdmin(ctx, "admin", "")).To(Succeed())

			count, err := db.Admins().Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("#Login", func() {
		BeforeEach(seedAdmin)

		It("should issue a verifiable token pair", func() {
			pair, err := service.Login(ctx, "admin", password)

			Expect(err).NotTo(HaveOccurred())
			Expect(pair.AccessToken).NotTo(BeEmpty())
			Expect(pair.RefreshToken).NotTo(BeEmpty())

			admin, err := db.Admins().GetByUsername(ctx, "admin")
			Expect(err).NotTo(HaveOccurred())

			claims, err := service.VerifyAccess(pair.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Username).To(Equal("admin"))
			Expect(claims.AdminID).To(Equal(admin.ID))
		})

		It("should reject a wrong password", func() {
			_, err := service.Login(ctx, "admin", "wrong")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("should reject an unknown username", func() {
			_, err := service.Login(ctx, "nobody", password)
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})
	})

	Describe("#Refresh", func() {
		var pair *auth.TokenPair

		BeforeEach(func() {
			seedAdmin()

			var err error
			pair, err = service.Login(ctx, "admin", password)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should rotate the refresh token", func() {
			second, err := service.Refresh(ctx, pair.RefreshToken)

			Expect(err).NotTo(HaveOccurred())
			Expect(second.RefreshToken).NotTo(Equal(pair.RefreshToken))

			_, err = service.VerifyAccess(second.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			By("rejecting a replay of the rotated token")
			_, err = service.Refresh(ctx, pair.RefreshToken)
			Expect(err).To(MatchError(auth.ErrInvalidToken))

			By("accepting the current token")
			_, err = service.Refresh(ctx, second.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject an unknown token", func() {
			_, err := service.Refresh(ctx, "not-a-token")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("should reject a token revoked by logout", func() {
			Expect(service.Logout(ctx, pair.RefreshToken)).To(Succeed())

			_, err := service.Refresh(ctx, pair.RefreshToken)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})

	Describe("#Logout", func() {
		It("should ignore unknown tokens", func() {
			Expect(service.Logout(ctx, "not-a-token")).To(Succeed())
		})
	})

	Describe("#VerifyAccess", func() {
		BeforeEach(seedAdmin)

		It("should reject a tampered token", func() {
			pair, err := service.Login(ctx, "admin", password)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.VerifyAccess(pair.AccessToken + "x")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("should reject an expired token", func() {
			expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
				Username: "admin",
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				},
			}).SignedString([]byte(secret))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.VerifyAccess(expired)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("should reject a token signed with a different secret", func() {
			foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
				Username: "admin",
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
				},
			}).SignedString([]byte("another-secret-another-secret-12"))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.VerifyAccess(foreign)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})
})
