// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package registry_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/apis/config"
	"github.com/skyglint/skyglint/pkg/healthz"
	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/registry"
	"github.com/skyglint/skyglint/pkg/settings"
)

var _ = Describe("Registry", func() {
	var (
		ctx context.Context
		cfg *config.ServerConfiguration
	)

	BeforeEach(func() {
		ctx = context.Background()

		cfg = &config.ServerConfiguration{}
		config.SetDefaults(cfg)
		cfg.HTTP.BindAddress = "127.0.0.1"
		cfg.HTTP.Port = 0
		cfg.Database.DSN = ":memory:"
		cfg.Redis.Disabled = true
		cfg.Auth.AdminPassword = "registry-test-password"
	})

	Describe("#New", func() {
		It("should wire the service graph from the configuration", func() {
			r, err := registry.New(ctx, logger.NewNopLogger(), cfg)
			Expect(err).NotTo(HaveOccurred())
			defer func() {
				_ = r.Queue.Close()
				_ = r.DB.Close()
			}()

			Expect(r.Location.String()).To(Equal("Asia/Tokyo"))
			Expect(r.Provider.Name()).To(Equal("meeus"))
			Expect(r.Queue.Enabled()).To(BeFalse(), "a disabled broker must degrade the queue")
			Expect(r.Scheduler.Running()).To(BeFalse(), "the scheduler only starts in Run")

			By("seeding the default settings")
			Expect(r.Settings.Int(ctx, settings.KeyWorkerConcurrency, 0)).To(Equal(2))

			By("seeding the admin account with an ephemeral JWT secret")
			pair, err := r.Auth.Login(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(pair.AccessToken).NotTo(BeEmpty())

			By("probing only the dependencies that are wired")
			status := r.Health.Check(ctx)
			Expect(status.Overall).To(Equal(healthz.StatusHealthy))
			Expect(status.Components).To(HaveKey("database"))
			Expect(status.Components).To(HaveKey("ephemeris"))
			Expect(status.Components).NotTo(HaveKey("queue"))
		})

		It("should use the configured provider as primary", func() {
			cfg.Calculation.Provider = config.ProviderSuncalc

			r, err := registry.New(ctx, logger.NewNopLogger(), cfg)
			Expect(err).NotTo(HaveOccurred())
			defer func() {
				_ = r.Queue.Close()
				_ = r.DB.Close()
			}()

			Expect(r.Provider.Name()).To(Equal("suncalc"))
		})

		It("should fail for an unknown observer timezone", func() {
			cfg.Observer.Timezone = "Mars/Olympus"

			_, err := registry.New(ctx, logger.NewNopLogger(), cfg)
			Expect(err).To(MatchError(ContainSubstring("timezone")))
		})

		It("should fail for an unsupported database driver", func() {
			cfg.Database.Driver = "oracle"

			_, err := registry.New(ctx, logger.NewNopLogger(), cfg)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("#Run", func() {
		It("should serve until cancelled and release the resources", func() {
			r, err := registry.New(ctx, logger.NewNopLogger(), cfg)
			Expect(err).NotTo(HaveOccurred())

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() {
				done <- r.Run(runCtx)
			}()

			cancel()

			var runErr error
			Eventually(done, "10s").Should(Receive(&runErr))
			Expect(runErr).NotTo(HaveOccurred())
			Expect(r.DB.Ping(ctx)).NotTo(Succeed(), "shutdown must close the database")
		})
	})
})
