// Package pincmder provides the pin command group for managing pinned facts.
package pincmder

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillhealthco/keepsake/pkg/app"
	"github.com/quillhealthco/keepsake/pkg/cliui"
	"github.com/quillhealthco/keepsake/pkg/config"
	"github.com/quillhealthco/keepsake/pkg/dotdir"
	"github.com/quillhealthco/keepsake/pkg/engine"
	"github.com/quillhealthco/keepsake/pkg/logger"
	"github.com/quillhealthco/keepsake/pkg/memory"
	"github.com/quillhealthco/keepsake/pkg/utils"
)

const pinLongDesc string = `Manage pinned facts for the open conversation.

Pins are short facts that always stay in the assembled context regardless
of age: medication changes, warning signs, care instructions. Pins are
immutable; to supersede one, add a new pin.

Examples:
  keepsake pin add "Ann is allergic to penicillin" --urgency critical
  keepsake pin add "Prefers morning appointments" --category preference
  keepsake pin list
  keepsake pin list --limit 5`

func NewPinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage pinned facts",
		Long:  pinLongDesc,
	}

	cmd.AddCommand(newPinAddCmd())
	cmd.AddCommand(newPinListCmd())

	return cmd
}

// setup builds the shared app wiring and resolves the open conversation id.
func setup(cmd *cobra.Command) (*app.App, string, *slog.Logger, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, "", nil, fmt.Errorf("could not get debug flag: %w", err)
	}
	log := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(debug),
	)

	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading config: %w", err)
	}

	session, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return nil, "", nil, err
	}
	if session == nil || session.ConversationID == "" {
		return nil, "", nil, errors.New("no open session; run 'keepsake chat' first")
	}

	a, err := app.New(cmd.Context(), cfg, configDir, log)
	if err != nil {
		return nil, "", nil, err
	}

	return a, session.ConversationID, log, nil
}

func newPinAddCmd() *cobra.Command {
	var (
		subjectID  string
		category   string
		urgency    string
		importance float64
	)

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Pin a fact to the open conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, convID, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn("closing store", "error", err)
				}
			}()

			urg, err := memory.ParseUrgency(urgency)
			if err != nil {
				return err
			}

			pin, err := a.Engine.CreatePin(cmd.Context(), convID, strings.Join(args, " "), "", engine.PinOptions{
				SubjectID:  subjectID,
				Category:   category,
				Urgency:    urg,
				Importance: importance,
			})
			if err != nil {
				return err
			}

			fmt.Printf("  %s pinned %s\n", cliui.SuccessMark, cliui.DimStyle.Render(pin.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&subjectID, "subject", "", "subject the fact is about")
	cmd.Flags().StringVar(&category, "category", "", "pin category (e.g. medication-change, warning-sign)")
	cmd.Flags().StringVar(&urgency, "urgency", "normal", "urgency level (normal, high, critical)")
	cmd.Flags().Float64Var(&importance, "importance", 0, "importance score in [0,1], 0 for the default")

	return cmd
}

func newPinListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pinned facts, most important first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, convID, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn("closing store", "error", err)
				}
			}()

			pins, err := a.Engine.ListTopPins(cmd.Context(), convID, limit)
			if err != nil {
				return err
			}
			if len(pins) == 0 {
				fmt.Printf("  %s\n", cliui.DimStyle.Render("no pins yet"))
				return nil
			}

			for _, p := range pins {
				fmt.Printf("  %s %s %s\n",
					cliui.KeyStyle.Render(fmt.Sprintf("[%s]", p.Urgency)),
					utils.Truncate(p.Text, 72),
					cliui.DimStyle.Render(p.CreatedAt.Format("Jan 2, 2006")),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum pins to list, 0 for the default")

	return cmd
}
