// Copyright (C) 2024-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rseabduce/abduce/abduceconfig"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and validate configuration profiles",
	}
	cmd.AddCommand(profileValidateCmd())
	return cmd
}

func profileValidateCmd() *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "validate PROFILE",
		Short: "Load a YAML profile over a preset and report the resolved configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var base abduceconfig.Config
			switch preset {
			case "", "default":
				base = abduceconfig.DefaultConfig()
			case "fast":
				base = abduceconfig.FastConfig()
			case "thorough":
				base = abduceconfig.ThoroughConfig()
			default:
				return errors.Errorf("unknown preset %q", preset)
			}

			cfg, err := abduceconfig.LoadProfile(args[0], base)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "resolved configuration is invalid")
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "default", "base preset the profile is overlaid on")
	return cmd
}
