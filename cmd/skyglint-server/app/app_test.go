// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package app_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/cmd/skyglint-server/app"
)

var _ = Describe("NewCommandStartSkyglintServer", func() {
	execute := func(args ...string) error {
		command := app.NewCommandStartSkyglintServer()
		command.SetArgs(args)
		command.SetOut(GinkgoWriter)
		command.SetErr(GinkgoWriter)
		return command.ExecuteContext(context.Background())
	}

	It("should register the config flag", func() {
		command := app.NewCommandStartSkyglintServer()
		Expect(command.Flags().Lookup("config")).NotTo(BeNil())
	})

	It("should reject positional arguments", func() {
		Expect(execute("leftover")).To(MatchError(ContainSubstring("arguments are not supported")))
	})

	It("should fail for a missing configuration file", func() {
		Expect(execute("--config", "/nonexistent/skyglint.yaml")).To(MatchError(ContainSubstring("reading configuration file")))
	})

	It("should fail before starting anything when the configuration is invalid", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte("environment: production\n"), 0o600)).To(Succeed())

		Expect(execute("--config", path)).To(MatchError(ContainSubstring("invalid configuration")))
	})
})
