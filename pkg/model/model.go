// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package model holds the persisted domain types of the alignment-event service. The types carry
// both the GORM column mapping and the JSON shape served by the HTTP API, so repositories and
// handlers share one definition.
package model

// AllModels lists every persisted type in migration order. Referenced tables come before the
// tables referencing them.
func AllModels() []interface{} {
	return []interface{}{
		&Site{},
		&LocationEvent{},
		&SystemSetting{},
		&Admin{},
		&RefreshToken{},
	}
}
