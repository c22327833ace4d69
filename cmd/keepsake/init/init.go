// Package initcmder provides the init command for initializing a local
// .keepsake directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillhealthco/keepsake/pkg/cliui"
	"github.com/quillhealthco/keepsake/pkg/config"
)

const (
	dirName = ".keepsake"
)

const initLongDesc string = `Initialize a new .keepsake/ directory in the current working directory.

Creates a local .keepsake/ directory that takes precedence over the default
~/.keepsake/ directory for session state, storage, and configuration. With
--preset, also writes a config.toml preconfigured for a model provider.

This is useful for maintaining separate keepsake state per project or
directory.

Examples:
  keepsake init
  keepsake init --preset ollama
  keepsake init --preset anthropic`

const initShortDesc string = "Initialize a local .keepsake/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("write a config.toml for a provider (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .keepsake directory: %w", err)
		}
		fmt.Printf("Initialized .keepsake directory: %s\n", dir)
	}

	if preset == "" {
		return nil
	}

	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("  %s wrote config.toml for the %s preset\n", cliui.SuccessMark, preset)
	return nil
}
