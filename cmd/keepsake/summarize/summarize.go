// Package summarizecmder provides the summarize command, which forces a
// compression pass over the open conversation.
package summarizecmder

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillhealthco/keepsake/pkg/app"
	"github.com/quillhealthco/keepsake/pkg/cliui"
	"github.com/quillhealthco/keepsake/pkg/config"
	"github.com/quillhealthco/keepsake/pkg/dotdir"
	"github.com/quillhealthco/keepsake/pkg/logger"
	"github.com/quillhealthco/keepsake/pkg/memory/summarizer"
)

const summarizeLongDesc string = `Run a compression pass now instead of waiting for the turn threshold.

Unsummarized turns in the open conversation are compressed into a summary
record. If the model call fails or produces an unusable summary, a
deterministic fallback summary is stored instead so the pass always
completes.

Examples:
  keepsake summarize
  keepsake summarize --threshold 4
  keepsake summarize --conversation 6b9f...`

type summarizeCommander struct {
	threshold      uint
	conversationID string

	log *slog.Logger
}

func NewSummarizeCmd() *cobra.Command {
	cmder := &summarizeCommander{}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Compress older turns of the open conversation",
		Long:  summarizeLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.log = logger.New(
				logger.WithPretty(true),
				logger.WithDebug(debug),
			)

			configDir, _ := cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Summarizer.Threshold = cmder.threshold
			}

			return cmder.run(cmd, cfg, configDir)
		},
	}

	config.AddUintFlag(cmd, config.Flags, config.FlagThreshold, &cmder.threshold)
	cmd.Flags().StringVar(&cmder.conversationID, "conversation", "", "conversation id (defaults to the open session)")

	return cmd
}

func (c *summarizeCommander) run(cmd *cobra.Command, cfg *config.Config, configDir string) error {
	ctx := cmd.Context()

	convID := c.conversationID
	if convID == "" {
		session, err := dotdir.NewManager().LoadSessionState(configDir)
		if err != nil {
			return err
		}
		if session == nil || session.ConversationID == "" {
			return fmt.Errorf("no open session; run 'keepsake chat' first or pass --conversation")
		}
		convID = session.ConversationID
	}

	a, err := app.New(ctx, cfg, configDir, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.log.Warn("closing store", "error", err)
		}
	}()

	var job *summarizer.Job
	err = cliui.Step(os.Stdout, "Compressing older turns", func() error {
		var stepErr error
		job, stepErr = a.Summarizer.MaybeSummarize(ctx, convID)
		if stepErr != nil {
			return stepErr
		}
		if job == nil {
			return nil
		}
		<-job.Done()
		return job.Err()
	})
	if err != nil {
		return err
	}

	if job == nil {
		fmt.Printf("\n  %s\n", cliui.DimStyle.Render("Not enough unsummarized turns to compress."))
		return nil
	}

	summary := job.Summary()
	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Summary:"), summary.Text)
	fmt.Printf("  %s %d turns\n", cliui.DimStyle.Render("Covers:"), summary.TurnCount)
	if job.FellBack() {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("(model output was unusable; stored a deterministic fallback)"))
	}

	return nil
}
