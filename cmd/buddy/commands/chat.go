package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// newChatCmd creates the `buddy chat` command.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Talk to the assistant from the terminal",
		Long: `Send one message to the assistant, or start an interactive session
when no message is given. Uses the same stores as the web service; reminders
set here go to job storage, where a running 'buddy serve' picks them up
(every scheduler.sync) and delivers them.

Examples:
  buddy chat "show tasks"
  buddy chat add task buy milk
  buddy chat`,
		RunE: runChat,
	}

	cmd.Flags().StringP("user", "u", "cli", "user the reminders are scheduled for")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Keep the terminal for replies; --verbose still forces debug.
	logCfg := cfg.Logging
	logCfg.Level = "warn"
	logger := newLogger(cmd, logCfg, cmd.ErrOrStderr())

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	user, _ := cmd.Flags().GetString("user")
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		reply := rt.assistant.Reply(cmd.Context(), user, strings.Join(args, " "))
		fmt.Fprintln(out, reply.Text)
		return nil
	}

	return runREPL(cmd, rt, user, out)
}

func runREPL(cmd *cobra.Command, rt *runtime, user string, out io.Writer) error {
	homeDir, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "🧑 > ",
		HistoryFile:       filepath.Join(homeDir, ".buddy-history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(out, "%s is listening. Type 'exit' to quit.\n", rt.cfg.Name)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "bye":
			fmt.Fprintln(out, "Bye! 👋")
			return nil
		}

		reply := rt.assistant.Reply(cmd.Context(), user, line)
		fmt.Fprintf(out, "🤖 %s\n", reply.Text)
	}
	return nil
}
