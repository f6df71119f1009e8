package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shamank/shdw-sdk-go/pkg/config"
	"github.com/shamank/shdw-sdk-go/pkg/sdk"
)

var (
	configPath string
	debug      bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .toml or .json); SHDW_* variables override it")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(addStorageCmd)
	rootCmd.AddCommand(reduceStorageCmd)
	rootCmd.AddCommand(makeImmutableCmd)
	rootCmd.AddCommand(getAccountCmd)
	rootCmd.AddCommand(getAccountsCmd)
	rootCmd.AddCommand(storeFilesCmd)
	rootCmd.AddCommand(listFilesCmd)
	rootCmd.AddCommand(getTextCmd)
	rootCmd.AddCommand(healthCmd)
}

var rootCmd = &cobra.Command{
	Use:          "shdw-drive",
	Short:        "Manage storage accounts and upload files",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openDrive loads the configuration and builds the SDK.
func openDrive() (sdk.ShdwSDK, *config.Config) {
	cfg, err := config.Load(configPath)
	if err != nil {
		reportErrorf("Unable to load config: %v", err)
	}
	if debug {
		cfg.Debug = true
	}
	drive, err := sdk.NewSDK(cfg)
	if err != nil {
		reportErrorf("Unable to initialize SDK: %v", err)
	}
	return drive, cfg
}

func reportErrorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
