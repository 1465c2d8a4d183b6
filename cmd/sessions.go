package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rexolve-ai/rexolve/internal/session"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "List and manage stored sessions",
	}
	cmd.AddCommand(
		newSessionsListCmd(),
		newSessionsShowCmd(),
		newSessionsNewCmd(),
		newSessionsRenameCmd(),
		newSessionsDeleteCmd(),
		newSessionsClearCmd(),
		newSessionsExportCmd(),
		newSessionsImportCmd(),
	)
	return cmd
}

// withRepo opens the configured store for the duration of fn.
func withRepo(fn func(rt *env) error) error {
	rt, err := openEnv()
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				fmt.Fprintln(cmd.OutOrStdout(), sessionsTable(rt.repo.Sessions()))
				return nil
			})
		},
	}
}

func sessionsTable(sessions []session.Session) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "TITLE", "MESSAGES", "CREATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for i, s := range sessions {
		t.Row(
			strconv.Itoa(i+1),
			s.ID,
			s.Title,
			strconv.Itoa(len(s.Messages)),
			s.CreatedAt.Local().Format(time.DateTime),
		)
	}
	return t.String()
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				s, ok := rt.repo.Session(args[0])
				if !ok {
					return fmt.Errorf("no session %q", args[0])
				}
				printTranscript(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
}

func printTranscript(w io.Writer, s session.Session) {
	fmt.Fprintf(w, "%s\n%s\n", s.Title, strings.Repeat("=", len([]rune(s.Title))))
	for _, m := range s.Messages {
		label := "You"
		switch m.Role {
		case session.RoleAssistant:
			label = "Assistant"
		case session.RoleSystem:
			label = "System"
		}
		fmt.Fprintf(w, "\n%s: %s\n", label, m.Text)
		if m.Attachment != nil {
			fmt.Fprintf(w, "  [image: %s]\n", m.Attachment.Name)
		}
	}
}

func newSessionsNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty session and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				s := rt.repo.CreateSession()
				if title := strings.Join(args, " "); title != "" {
					rt.repo.RenameSession(s.ID, title)
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.ID)
				return nil
			})
		},
	}
}

func newSessionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				if _, ok := rt.repo.Session(args[0]); !ok {
					return fmt.Errorf("no session %q", args[0])
				}
				title := strings.Join(args[1:], " ")
				if !rt.repo.RenameSession(args[0], title) {
					return fmt.Errorf("title must not be blank")
				}
				return nil
			})
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				s, ok := rt.repo.Session(args[0])
				if !ok {
					return fmt.Errorf("no session %q", args[0])
				}
				if !yes && !confirm(cmd, fmt.Sprintf("Delete %q?", s.Title)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
				rt.repo.DeleteSession(s.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newSessionsClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear <id>",
		Short: "Remove every message from a session, keeping its title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				s, ok := rt.repo.Session(args[0])
				if !ok {
					return fmt.Errorf("no session %q", args[0])
				}
				if !yes && !confirm(cmd, fmt.Sprintf("Clear all messages in %q?", s.Title)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
				rt.repo.Clear(s.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newSessionsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every session as versioned JSON to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(func(rt *env) error {
				data, err := session.Encode(rt.repo.Sessions())
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			})
		},
	}
}

func newSessionsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add sessions from an export (or a legacy session array)",
		Long: "Reads a file written by 'rexolve sessions export' or the older bare-array\n" +
			"format and adds its sessions. Sessions whose id already exists are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			sessions, err := session.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return withRepo(func(rt *env) error {
				n := rt.repo.Import(sessions)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d sessions.\n", n, len(sessions))
				return nil
			})
		},
	}
}

// confirm asks a y/N question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.ToLower(strings.TrimSpace(answer)) == "y"
}
