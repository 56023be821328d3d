// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/apis/config"
)

var _ = Describe("Load", func() {
	writeFile := func(content string) string {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		ExpectWithOffset(1, os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	setenv := func(name, value string) {
		ExpectWithOffset(1, os.Setenv(name, value)).To(Succeed())
		DeferCleanup(os.Unsetenv, name)
	}

	It("should build a complete configuration from defaults alone", func() {
		cfg, err := config.Load("")

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Environment).To(Equal(config.EnvironmentDevelopment))
		Expect(cfg.LogLevel).To(Equal("info"))
		Expect(cfg.HTTP.Addr()).To(Equal(":8080"))
		Expect(cfg.Database.Driver).To(Equal(config.DatabaseDriverSQLite))
		Expect(cfg.Database.DSN).To(Equal("data/skyglint.db"))
		Expect(cfg.Redis.Addr()).To(Equal("localhost:6379"))
		Expect(cfg.Calculation.Provider).To(Equal(config.ProviderMeeus))
		Expect(cfg.Observer.Latitude).To(Equal(config.DefaultApexLatitude))
		Expect(cfg.Observer.Longitude).To(Equal(config.DefaultApexLongitude))
		Expect(cfg.Observer.Height).To(Equal(config.DefaultApexHeight))
		Expect(cfg.Observer.Timezone).To(Equal("Asia/Tokyo"))
		Expect(cfg.Auth.AdminUsername).To(Equal("admin"))
		Expect(cfg.Health.IntervalSeconds).To(Equal(30))
		Expect(cfg.Scheduler.Enabled).To(BeFalse())
	})

	It("should keep explicit file values and fill the rest", func() {
		path := writeFile(`
environment: production
http:
  port: 9000
database:
  driver: postgres
  dsn: host=db user=skyglint dbname=skyglint
redis:
  host: broker
  port: 6380
calculation:
  provider: suncalc
  skipDirect: true
auth:
  jwtSecret: 0123456789abcdef0123456789abcdef
`)

		cfg, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Environment).To(Equal(config.EnvironmentProduction))
		Expect(cfg.HTTP.Port).To(Equal(9000))
		Expect(cfg.Database.Driver).To(Equal(config.DatabaseDriverPostgres))
		Expect(cfg.Redis.Addr()).To(Equal("broker:6380"))
		Expect(cfg.Calculation.Provider).To(Equal(config.ProviderSuncalc))
		Expect(cfg.Calculation.SkipDirect).To(BeTrue())
		Expect(cfg.Auth.JWTSecret).To(HaveLen(32))

		By("still defaulting what the file does not set")
		Expect(cfg.LogLevel).To(Equal("info"))
		Expect(cfg.Observer.Timezone).To(Equal("Asia/Tokyo"))
	})

	It("should let the environment override the file", func() {
		path := writeFile(`
http:
  port: 9000
redis:
  host: filehost
`)

		setenv("SKYGLINT_ENV", "production")
		setenv("PORT", "7777")
		setenv("REDIS_HOST", "envhost")
		setenv("REDIS_PORT", "7000")
		setenv("DISABLE_REDIS", "true")
		setenv("DISABLE_WORKER", "1")
		setenv("ENABLE_BACKGROUND_SCHEDULER", "true")
		setenv("WORKER_CONCURRENCY", "5")
		setenv("SKIP_DIRECT_CALCULATION", "true")
		setenv("JWT_SECRET", "fedcba9876543210fedcba9876543210")

		cfg, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Environment).To(Equal(config.EnvironmentProduction))
		Expect(cfg.HTTP.Port).To(Equal(7777))
		Expect(cfg.Redis.Host).To(Equal("envhost"))
		Expect(cfg.Redis.Port).To(Equal(7000))
		Expect(cfg.Redis.Disabled).To(BeTrue())
		Expect(cfg.Worker.Disabled).To(BeTrue())
		Expect(cfg.Worker.Concurrency).To(Equal(5))
		Expect(cfg.Scheduler.Enabled).To(BeTrue())
		Expect(cfg.Calculation.SkipDirect).To(BeTrue())
		Expect(cfg.Auth.JWTSecret).To(Equal("fedcba9876543210fedcba9876543210"))
	})

	It("should reject junk in numeric variables", func() {
		setenv("PORT", "not-a-port")

		_, err := config.Load("")
		Expect(err).To(MatchError(ContainSubstring("PORT")))
	})

	It("should reject junk in boolean variables", func() {
		setenv("DISABLE_REDIS", "maybe")

		_, err := config.Load("")
		Expect(err).To(MatchError(ContainSubstring("DISABLE_REDIS")))
	})

	It("should reject unknown configuration keys", func() {
		path := writeFile("unknownSection:\n  value: 1\n")

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "absent.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
