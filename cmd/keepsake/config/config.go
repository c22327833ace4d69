// Package configcmder provides the config command for managing persistent
// keepsake configuration stored in the .keepsake/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent keepsake configuration.

Configuration is stored as config.toml in the .keepsake/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  model.provider, model.model, model.base_url, model.timeout_seconds,
  memory.recent_turns, memory.summary_count, memory.pin_limit,
  memory.truncate_floor, memory.token_budget, memory.cache_ttl_seconds,
  summarizer.threshold, summarizer.max_chars, summarizer.max_ratio,
  summarizer.min_overlap

Use subcommands to get, set, or list configuration values:
  keepsake config set <key> <value>    Set a configuration value
  keepsake config get <key>            Get a configuration value
  keepsake config list                 List all configuration values

Examples:
  keepsake config set model.provider anthropic
  keepsake config set memory.token_budget 4096
  keepsake config get storage.driver
  keepsake config list`

const configShortDesc string = "Manage persistent keepsake configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
