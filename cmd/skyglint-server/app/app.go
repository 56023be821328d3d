// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skyglint/skyglint/pkg/apis/config"
	"github.com/skyglint/skyglint/pkg/apis/config/validation"
	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/registry"
	"github.com/skyglint/skyglint/pkg/version"
)

// Name is a const for the name of this component.
const Name = "skyglint-server"

// Options has all the parameters needed to run a Skyglint server.
type Options struct {
	// ConfigFile is the location of the server's configuration file. Empty
	// means environment variables and defaults only.
	ConfigFile string
}

// AddFlags adds the server flags to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "The path to the configuration file.")
}

func (o *Options) validate(args []string) error {
	if len(args) != 0 {
		return errors.New("arguments are not supported")
	}
	return nil
}

func (o *Options) run(ctx context.Context) error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return err
	}
	if err := validation.ValidateConfiguration(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	log.Infof("Starting %s version %s in %s environment", Name, version.Version, cfg.Environment)

	r, err := registry.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// NewCommandStartSkyglintServer creates a *cobra.Command object with default
// parameters.
func NewCommandStartSkyglintServer() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   Name,
		Short: "Launch the Skyglint alignment event server",
		Long: `Skyglint computes and serves the calendar of sun and moon alignment events
between the tower apex and the registered photography sites. It exposes the
calendar, the site registry and the background calculation queue over a REST
API and keeps the event cache warm through scheduled recalculations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(args); err != nil {
				return err
			}

			cmd.SilenceUsage = true
			return opts.run(cmd.Context())
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}
