// Package cmd 命令行入口
package cmd

import (
	"fmt"
	"os"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/util"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cutout",
		Short: "Remove the background behind people in photos",
		Long: `cutout segments the person in an uploaded photo with an external
pretrained segmentation model and makes every background pixel transparent.

Run "cutout serve" for the HTTP service or "cutout remove" for a single file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return util.InitLogger(cfg.Server.Mode, opts.verbose)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			util.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewRemoveCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
