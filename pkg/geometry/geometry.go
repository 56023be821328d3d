// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package geometry implements the spherical earth math that relates ground observation sites
// to the apex of the observed structure. All functions are pure and free of I/O.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadius is the mean earth radius in meters used by all spherical computations.
	EarthRadius = 6371000.0

	// observerEyeHeight is added to the site ground elevation to obtain the camera height.
	observerEyeHeight = 1.7

	// refractionCoefficient reduces the curvature drop to account for standard atmospheric
	// refraction of terrestrial sightlines.
	refractionCoefficient = 0.13
)

// ErrInvalidGeometry is returned when a computation on the given coordinates does not yield a
// finite result, e.g. because an input was NaN or infinite.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Apex describes the elevated point of the structure that alignment events are computed against.
type Apex struct {
	// Latitude is the structure latitude in decimal degrees.
	Latitude float64
	// Longitude is the structure longitude in decimal degrees.
	Longitude float64
	// Height is the apex height in meters above the structure base.
	Height float64
}

// Sightline is the derived geometry triple from an observation site to the apex.
type Sightline struct {
	// Azimuth is the initial great-circle bearing from the site to the apex in degrees [0,360).
	Azimuth float64
	// Elevation is the apparent elevation angle of the apex above the site horizon in degrees.
	Elevation float64
	// Distance is the great-circle distance from the site to the structure base in meters.
	Distance float64
}

// AzimuthToApex returns the initial great-circle bearing in degrees [0,360) from the site
// coordinates to the apex coordinates.
func AzimuthToApex(siteLat, siteLon, apexLat, apexLon float64) float64 {
	var (
		phi1   = radians(siteLat)
		phi2   = radians(apexLat)
		dLon   = radians(apexLon - siteLon)
		y      = math.Sin(dLon) * math.Cos(phi2)
		x      = math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
		theta  = math.Atan2(y, x)
		result = math.Mod(degrees(theta)+360, 360)
	)
	return result
}

// DistanceToApex returns the haversine great-circle distance in meters between the site
// coordinates and the apex coordinates.
func DistanceToApex(siteLat, siteLon, apexLat, apexLon float64) float64 {
	var (
		phi1 = radians(siteLat)
		phi2 = radians(apexLat)
		dPhi = radians(apexLat - siteLat)
		dLon = radians(apexLon - siteLon)
	)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// ElevationToApex returns the apparent elevation angle in degrees under which an observer at the
// site sees the apex. The camera height is the site ground elevation plus a fixed eye height, and
// the earth curvature drop over the sightline distance is reduced by the standard refraction
// coefficient. It returns ErrInvalidGeometry if the inputs do not yield a finite angle.
func ElevationToApex(siteLat, siteLon, siteElevation float64, apex Apex) (float64, error) {
	distance := DistanceToApex(siteLat, siteLon, apex.Latitude, apex.Longitude)

	var (
		heightDiff    = apex.Height - (siteElevation + observerEyeHeight)
		curvatureDrop = (distance * distance) / (2 * EarthRadius) * (1 - refractionCoefficient)
		elevation     = degrees(math.Atan2(heightDiff-curvatureDrop, distance))
	)

	if math.IsNaN(elevation) || math.IsInf(elevation, 0) {
		return 0, fmt.Errorf("%w: elevation angle for site (%v,%v,%v) is not finite", ErrInvalidGeometry, siteLat, siteLon, siteElevation)
	}
	return elevation, nil
}

// SightlineToApex computes the full derived geometry triple from a site to the apex.
func SightlineToApex(siteLat, siteLon, siteElevation float64, apex Apex) (Sightline, error) {
	elevation, err := ElevationToApex(siteLat, siteLon, siteElevation, apex)
	if err != nil {
		return Sightline{}, err
	}

	sightline := Sightline{
		Azimuth:   AzimuthToApex(siteLat, siteLon, apex.Latitude, apex.Longitude),
		Elevation: elevation,
		Distance:  DistanceToApex(siteLat, siteLon, apex.Latitude, apex.Longitude),
	}

	if math.IsNaN(sightline.Azimuth) || math.IsNaN(sightline.Distance) {
		return Sightline{}, fmt.Errorf("%w: sightline for site (%v,%v) is not finite", ErrInvalidGeometry, siteLat, siteLon)
	}
	return sightline, nil
}

// AzimuthDifference returns the smallest angular difference in degrees [0,180] between the two
// azimuths, respecting the wrap-around at 360.
func AzimuthDifference(a, b float64) float64 {
	diff := math.Abs(a - b)
	return math.Min(diff, 360-diff)
}

// ObserverPoint inverts ElevationToApex for a sea-level observer: it returns the ground point
// from which the apex appears under the given elevation angle in degrees when looking along the
// given azimuth in degrees, together with the distance to the structure base in meters. The
// quadratic in the distance has exactly one positive root as long as the apex is above eye
// height. It returns ErrInvalidGeometry for angles at or above the zenith or non-finite inputs.
func ObserverPoint(apex Apex, azimuth, elevation float64) (float64, float64, float64, error) {
	if math.IsNaN(elevation) || elevation >= 90 {
		return 0, 0, 0, fmt.Errorf("%w: no ground point sees the apex under %v degrees", ErrInvalidGeometry, elevation)
	}

	var (
		heightDiff = apex.Height - observerEyeHeight
		a          = (1 - refractionCoefficient) / (2 * EarthRadius)
		b          = math.Tan(radians(elevation))
		distance   = (-b + math.Sqrt(b*b+4*a*heightDiff)) / (2 * a)
	)

	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: no ground point sees the apex under %v degrees", ErrInvalidGeometry, elevation)
	}

	lat, lon := DestinationPoint(apex.Latitude, apex.Longitude, math.Mod(azimuth+180, 360), distance)
	return lat, lon, distance, nil
}

// DestinationPoint returns the latitude and longitude reached when travelling the given distance
// in meters from the start coordinates along the given initial bearing in degrees. The returned
// longitude is normalized to [-180,180).
func DestinationPoint(lat, lon, bearing, distance float64) (float64, float64) {
	var (
		phi1  = radians(lat)
		lam1  = radians(lon)
		theta = radians(bearing)
		delta = distance / EarthRadius
	)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lam2 := lam1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return degrees(phi2), math.Mod(degrees(lam2)+540, 360) - 180
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
