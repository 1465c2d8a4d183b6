package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rexolve-ai/rexolve/internal/chat"
	"github.com/rexolve-ai/rexolve/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAskCmd() *cobra.Command {
	var (
		imagePath string
		sessionID string
		newSess   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the reply",
		Example: `  rexolve ask "Should I take the offer in Berlin?"
  rexolve ask --new "Rent or buy?"
  rexolve ask --image ./problem.png "Where did I go wrong?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if newSess && sessionID != "" {
				return errors.New("--new and --session are mutually exclusive")
			}
			return runAsk(cmd, strings.Join(args, " "), imagePath, sessionID, newSess)
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "attach an image (sent through OCR first)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to continue (default: most recent)")
	cmd.Flags().BoolVarP(&newSess, "new", "n", false, "start a new session")

	return cmd
}

// runAsk sends one question through the same lifecycle as the chat and
// prints the reply. A failed send still leaves the question in the session.
func runAsk(cmd *cobra.Command, question, imagePath, sessionID string, newSess bool) error {
	rt, err := openEnv()
	if err != nil {
		return err
	}
	defer rt.Close()

	mgr, _, err := rt.newManager()
	if err != nil {
		return err
	}

	var att *session.Attachment
	if imagePath != "" {
		if att, err = chat.AttachImage(imagePath); err != nil {
			return fmt.Errorf("cannot attach %s: %w", imagePath, err)
		}
	}

	switch {
	case newSess:
		sessionID = rt.repo.CreateSession().ID
	case sessionID == "":
		sessionID = rt.repo.ActiveID()
	default:
		if _, ok := rt.repo.Session(sessionID); !ok {
			return fmt.Errorf("no session %q (see: rexolve sessions list)", sessionID)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reply, err := mgr.Send(ctx, sessionID, question, att)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			return errors.New("question is empty")
		}
		rt.log.Warn("ask failed", zap.String("session", sessionID), zap.Error(err))
		return errors.New(chat.UserMessage(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	return nil
}
