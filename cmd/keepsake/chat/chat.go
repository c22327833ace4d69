// Package chatcmder provides the chat command: an interactive conversation
// backed by the keepsake memory engine.
package chatcmder

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quillhealthco/keepsake/pkg/app"
	"github.com/quillhealthco/keepsake/pkg/cliui"
	"github.com/quillhealthco/keepsake/pkg/config"
	"github.com/quillhealthco/keepsake/pkg/dotdir"
	"github.com/quillhealthco/keepsake/pkg/engine"
	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/logger"
)

const chatLongDesc string = `Start an interactive conversation.

Each exchange runs through the memory engine: recent turns, pinned facts,
and summaries of older turns are assembled into the model payload, and
medication, appointment, or journal questions are answered from structured
records without model generation.

The open conversation is persisted in .keepsake/session.json, so a
restarted chat resumes where it left off. Use /new inside the session to
start a fresh conversation.

Session commands:
  /pin <text>   Pin a fact so it always stays in context
  /pins         List pinned facts
  /new          Start a new conversation
  /quit         Exit

Examples:
  keepsake chat
  keepsake chat --provider ollama --model llama3.2`

const chatShortDesc string = "Interactive conversation with persistent memory"

type chatCommander struct {
	provider string
	model    string
	baseURL  string
	debug    bool

	log *slog.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.log = logger.New(
				logger.WithPretty(true),
				logger.WithDebug(cmder.debug),
			)

			configDir, _ := cmd.Flags().GetString("config-dir")
			cfg, err := loadConfig(cmd, cmder, configDir)
			if err != nil {
				return err
			}

			return cmder.run(cmd, cfg, configDir)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)

	return cmd
}

// loadConfig merges the persisted config with any flags set on the command.
func loadConfig(cmd *cobra.Command, cmder *chatCommander, configDir string) (*config.Config, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("provider") {
		cfg.Model.Provider = cmder.provider
	}
	if cmd.Flags().Changed("model") {
		cfg.Model.Model = cmder.model
	}
	if cmd.Flags().Changed("base-url") {
		cfg.Model.BaseURL = cmder.baseURL
	}

	return cfg, nil
}

func (c *chatCommander) run(cmd *cobra.Command, cfg *config.Config, configDir string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, configDir, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.log.Warn("closing store", "error", err)
		}
	}()

	// No care application is attached in the standalone CLI; demo records
	// let medication and appointment lookups answer something real.
	a.Directory.SeedDemo()

	ddm := dotdir.NewManager()
	session, err := ddm.LoadSessionState(configDir)
	if err != nil {
		return err
	}
	if session == nil || session.ConversationID == "" {
		session = &dotdir.SessionState{ConversationID: uuid.NewString()}
		if err := ddm.SaveSession(session, configDir); err != nil {
			return err
		}
	}
	applySession(a, session)

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Conversation:"),
		cliui.DimStyle.Render(session.ConversationID))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := c.handleCommand(cmd, a, ddm, session, configDir, line)
			if err != nil {
				fmt.Printf("  %s %v\n", cliui.FailMark, err)
			}
			if quit {
				break
			}
			continue
		}

		reply, err := a.Engine.ProcessTurn(ctx, session.ConversationID, line)
		if err != nil {
			if llm.IsTransient(err) {
				fmt.Printf("  %s temporary provider error, try again: %v\n", cliui.FailMark, err)
				continue
			}
			return err
		}

		c.printReply(reply)
	}

	return scanner.Err()
}

// applySession pushes persisted session metadata into the care directory so
// the resolver and summarizer see it.
func applySession(a *app.App, session *dotdir.SessionState) {
	if session.DefaultSubjectID != "" {
		a.Directory.SetDefaultSubject(session.ConversationID, session.DefaultSubjectID)
	}
	if session.PreferredModel != "" {
		a.Directory.SetPreferredModel(session.ConversationID, session.PreferredModel)
	}
}

func (c *chatCommander) printReply(reply *engine.Reply) {
	rendered, err := cliui.RenderMarkdown(reply.Text)
	if err != nil {
		rendered = reply.Text + "\n"
	}
	fmt.Print(cliui.AssistantPrompt)
	fmt.Print(rendered)

	if reply.Summarization != nil && c.debug {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("(compressing older turns in the background)"))
	}
}

// handleCommand executes a /command line. It reports whether the session
// should end.
func (c *chatCommander) handleCommand(cmd *cobra.Command, a *app.App, ddm *dotdir.Manager, session *dotdir.SessionState, configDir, line string) (bool, error) {
	ctx := cmd.Context()
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		session.ConversationID = uuid.NewString()
		if err := ddm.SaveSession(session, configDir); err != nil {
			return false, err
		}
		applySession(a, session)
		fmt.Printf("  %s new conversation %s\n", cliui.SuccessMark,
			cliui.DimStyle.Render(session.ConversationID))
		return false, nil

	case "/pin":
		text := strings.TrimSpace(strings.TrimPrefix(line, "/pin"))
		if text == "" {
			return false, errors.New("usage: /pin <text>")
		}
		pin, err := a.Engine.CreatePin(ctx, session.ConversationID, text, "", engine.PinOptions{})
		if err != nil {
			return false, err
		}
		fmt.Printf("  %s pinned %s\n", cliui.SuccessMark, cliui.DimStyle.Render(pin.ID))
		return false, nil

	case "/pins":
		pins, err := a.Engine.ListTopPins(ctx, session.ConversationID, 0)
		if err != nil {
			return false, err
		}
		if len(pins) == 0 {
			fmt.Printf("  %s\n", cliui.DimStyle.Render("no pins yet"))
			return false, nil
		}
		for _, p := range pins {
			fmt.Printf("  %s %s\n", cliui.KeyStyle.Render(p.Urgency.String()), p.Text)
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}
