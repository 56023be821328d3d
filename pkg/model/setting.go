// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"time"
)

// SettingType tags which of the typed value columns of a SystemSetting is populated.
type SettingType string

const (
	SettingTypeNumber  SettingType = "number"
	SettingTypeString  SettingType = "string"
	SettingTypeBoolean SettingType = "boolean"
)

// SystemSetting is one tuning value. Exactly one of NumberValue, StringValue and BooleanValue
// is populated, matching SettingType. Category groups keys for display only.
type SystemSetting struct {
	Key          string      `gorm:"primaryKey" json:"key"`
	Category     string      `gorm:"not null;default:'general'" json:"category"`
	SettingType  SettingType `gorm:"not null" json:"settingType"`
	NumberValue  *float64    `json:"numberValue,omitempty"`
	StringValue  *string     `json:"stringValue,omitempty"`
	BooleanValue *bool       `json:"booleanValue,omitempty"`
	Description  string      `json:"description,omitempty"`
	Editable     bool        `gorm:"not null;default:true" json:"editable"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Value returns the populated typed value, or nil if the setting is inconsistent.
func (s *SystemSetting) Value() interface{} {
	switch s.SettingType {
	case SettingTypeNumber:
		if s.NumberValue != nil {
			return *s.NumberValue
		}
	case SettingTypeString:
		if s.StringValue != nil {
			return *s.StringValue
		}
	case SettingTypeBoolean:
		if s.BooleanValue != nil {
			return *s.BooleanValue
		}
	}
	return nil
}

// Validate checks that exactly the value column named by SettingType is populated.
func (s *SystemSetting) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("setting key must not be empty")
	}

	populated := 0
	for _, set := range []bool{s.NumberValue != nil, s.StringValue != nil, s.BooleanValue != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return fmt.Errorf("setting %q must populate exactly one typed value, got %d", s.Key, populated)
	}

	switch s.SettingType {
	case SettingTypeNumber:
		if s.NumberValue == nil {
			return fmt.Errorf("setting %q is typed %q but carries no number value", s.Key, s.SettingType)
		}
	case SettingTypeString:
		if s.StringValue == nil {
			return fmt.Errorf("setting %q is typed %q but carries no string value", s.Key, s.SettingType)
		}
	case SettingTypeBoolean:
		if s.BooleanValue == nil {
			return fmt.Errorf("setting %q is typed %q but carries no boolean value", s.Key, s.SettingType)
		}
	default:
		return fmt.Errorf("setting %q has unknown type %q", s.Key, s.SettingType)
	}
	return nil
}

// NumberSetting builds a number-typed setting.
func NumberSetting(key, category string, value float64, description string) *SystemSetting {
	return &SystemSetting{Key: key, Category: category, SettingType: SettingTypeNumber, NumberValue: &value, Description: description, Editable: true}
}

// StringSetting builds a string-typed setting.
func StringSetting(key, category, value, description string) *SystemSetting {
	return &SystemSetting{Key: key, Category: category, SettingType: SettingTypeString, StringValue: &value, Description: description, Editable: true}
}

// BooleanSetting builds a boolean-typed setting.
func BooleanSetting(key, category string, value bool, description string) *SystemSetting {
	return &SystemSetting{Key: key, Category: category, SettingType: SettingTypeBoolean, BooleanValue: &value, Description: description, Editable: true}
}
