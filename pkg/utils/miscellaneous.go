// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package utils

// ValueExists returns true or false, depending on whether the given string <value>
// is part of the given []string list <list>.
func ValueExists(value string, list []string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// CreateMapFromSlice converts the values of a slice to a map using a key function.
func CreateMapFromSlice[K comparable, T any](arr []T, keyFunc func(T) K) map[K]T {
	mapped := make(map[K]T, len(arr))
	if keyFunc == nil {
		return mapped
	}
	for _, value := range arr {
		mapped[keyFunc(value)] = value
	}
	return mapped
}
