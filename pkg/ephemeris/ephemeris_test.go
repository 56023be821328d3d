// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package ephemeris_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/ephemeris"
	"github.com/skyglint/skyglint/pkg/ephemeris/fake"
	"github.com/skyglint/skyglint/pkg/logger"
)

var _ = Describe("manager", func() {
	var (
		primary  *fake.Provider
		fallback *fake.Provider
		manager  *ephemeris.Manager
		at       time.Time
	)

	BeforeEach(func() {
		primary = &fake.Provider{ProviderName: "primary"}
		fallback = &fake.Provider{ProviderName: "fallback"}
		manager = ephemeris.NewManager(logger.NewNopLogger(), primary, fallback)
		at = time.Date(2025, 2, 20, 7, 40, 0, 0, time.UTC)
	})

	It("should delegate to the primary provider", func() {
		primary.SunFn = func(_ time.Time, _, _ float64) (ephemeris.SunPosition, error) {
			return ephemeris.SunPosition{Azimuth: 115, Altitude: 14, Distance: 0.99}, nil
		}

		position, err := manager.SunPosition(at, 35.71, 139.81)

		Expect(err).NotTo(HaveOccurred())
		Expect(position.Azimuth).To(Equal(115.0))
		Expect(manager.Name()).To(Equal("primary"))
	})

	It("should fall back when the primary fails", func() {
		primary.MoonFn = func(_ time.Time, _, _ float64) (ephemeris.MoonPosition, error) {
			return ephemeris.MoonPosition{}, errors.New("primary broken")
		}
		fallback.MoonFn = func(_ time.Time, _, _ float64) (ephemeris.MoonPosition, error) {
			return ephemeris.MoonPosition{Azimuth: 120, Altitude: 3, Distance: 380000, Phase: 170, Illumination: 0.94}, nil
		}

		position, err := manager.MoonPosition(at, 35.71, 139.81)

		Expect(err).NotTo(HaveOccurred())
		Expect(position.Azimuth).To(Equal(120.0))
	})

	It("should return the primary error without a fallback", func() {
		manager = ephemeris.NewManager(logger.NewNopLogger(), primary, nil)
		primary.SunFn = func(_ time.Time, _, _ float64) (ephemeris.SunPosition, error) {
			return ephemeris.SunPosition{}, errors.New("primary broken")
		}

		_, err := manager.SunPosition(at, 35.71, 139.81)

		Expect(err).To(MatchError("primary broken"))
	})

	It("should fall back on rise/set searches", func() {
		expected := at.Add(4 * time.Hour)
		primary.RiseSetFn = func(_ ephemeris.Body, _ time.Time, _, _ float64, _ ephemeris.Direction, _ int) (*time.Time, error) {
			return nil, errors.New("primary broken")
		}
		fallback.RiseSetFn = func(_ ephemeris.Body, _ time.Time, _, _ float64, _ ephemeris.Direction, _ int) (*time.Time, error) {
			return &expected, nil
		}

		crossing, err := manager.RiseSet(ephemeris.BodyMoon, at, 35.71, 139.81, ephemeris.DirectionRise, 1)

		Expect(err).NotTo(HaveOccurred())
		Expect(crossing).NotTo(BeNil())
		Expect(*crossing).To(Equal(expected))
	})

	Describe("#CheckHealth", func() {
		It("should succeed with working providers", func() {
			Expect(manager.CheckHealth(context.Background())).To(Succeed())
		})

		It("should fail when both providers fail", func() {
			primary.SunFn = func(_ time.Time, _, _ float64) (ephemeris.SunPosition, error) {
				return ephemeris.SunPosition{}, errors.New("primary broken")
			}
			fallback.SunFn = func(_ time.Time, _, _ float64) (ephemeris.SunPosition, error) {
				return ephemeris.SunPosition{}, errors.New("fallback broken")
			}

			Expect(manager.CheckHealth(context.Background())).NotTo(Succeed())
		})
	})
})
