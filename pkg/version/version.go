// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package version

// Version is a global variable which is set during compile time via -ldflags in the `go build` process.
// It stores the version of Skyglint and has either the form <X.Y.Z> or <X.Y.Z>-dev, where the -dev
// suffix denominates a build from an unreleased revision.
var Version = "binary was not built properly"
