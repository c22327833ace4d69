// Package keepsakecmder
package keepsakecmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/quillhealthco/keepsake/cmd/keepsake/auth"
	chatcmder "github.com/quillhealthco/keepsake/cmd/keepsake/chat"
	configcmder "github.com/quillhealthco/keepsake/cmd/keepsake/config"
	initcmder "github.com/quillhealthco/keepsake/cmd/keepsake/init"
	pincmder "github.com/quillhealthco/keepsake/cmd/keepsake/pin"
	summarizecmder "github.com/quillhealthco/keepsake/cmd/keepsake/summarize"
	versioncmder "github.com/quillhealthco/keepsake/cmd/version"
)

const keepsakeLongDesc string = `Keepsake is a hybrid memory engine for care conversations.

It keeps a rolling buffer of recent turns, compresses older turns into
summaries, pins facts that must never be forgotten, and answers
medication, appointment, and journal questions from structured records
instead of model generation.

Common commands:
  keepsake chat        Start an interactive conversation
  keepsake summarize   Force a summarization pass
  keepsake pin         Manage pinned facts`

const keepsakeShortDesc string = "Keepsake - conversational memory for care assistants"

func NewKeepsakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keepsake",
		Short: keepsakeShortDesc,
		Long:  keepsakeLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .keepsake/ directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(summarizecmder.NewSummarizeCmd())
	cmd.AddCommand(pincmder.NewPinCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
