package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session"
	"github.com/akolanti/StudyHelper/internal/session/selector"
	"github.com/spf13/cobra"
)

const chatHelp = `Type a question and press Enter. End a line with \ to continue on the next line.
Commands: /docs  /open <id|name|url>  /upload <file.pdf>  /theme <dark|light>  /quit`

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session over your notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err = s.Start(cmd.Context()); err != nil {
				return err
			}
			s.SetPane(sessionModel.PaneChat)
			return runRepl(cmd, s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runRepl(cmd *cobra.Command, s *session.Orchestrator, in io.Reader, out io.Writer) error {
	ctx := cmd.Context()
	fmt.Fprintln(out, chatHelp)
	scanner := bufio.NewScanner(in)
	var buffer []string

	for {
		if len(buffer) == 0 {
			fmt.Fprint(out, "> ")
		} else {
			fmt.Fprint(out, ". ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()

		if len(buffer) == 0 && strings.HasPrefix(line, "/") {
			quit, err := runCommand(cmd, s, line, out)
			if err != nil {
				fmt.Fprintln(out, err)
			}
			if quit {
				return nil
			}
			continue
		}

		// a trailing backslash is Shift+Enter
		if strings.HasSuffix(line, `\`) {
			buffer = append(buffer, strings.TrimSuffix(line, `\`))
			s.SetInput(strings.Join(buffer, "\n"))
			_, _ = s.HandleKey(ctx, sessionModel.KeyPress{Key: sessionModel.KeyEnter, Shift: true})
			continue
		}
		buffer = append(buffer, line)
		s.SetInput(strings.Join(buffer, "\n"))
		buffer = buffer[:0]

		handled, err := s.HandleKey(ctx, sessionModel.KeyPress{Key: sessionModel.KeyEnter})
		if errors.Is(err, sessionModel.ErrMissingInput) || !handled {
			continue
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if turn, ok := lastTurn(s.View()); ok {
			prefix := ""
			if turn.Role == sessionModel.RoleError {
				prefix = "! "
			}
			fmt.Fprintf(out, "%s%s\n\n", prefix, turn.Text)
		}
	}
}

func runCommand(cmd *cobra.Command, s *session.Orchestrator, line string, out io.Writer) (quit bool, err error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/docs":
		if err = s.Refresh(cmd.Context()); err != nil {
			return false, errNoUser
		}
		view := s.View()
		if view.CatalogError != "" {
			return false, fmt.Errorf("%s, type /docs to retry", view.CatalogError)
		}
		printDocuments(out, view)
	case "/open":
		s.Select(selector.Resolve(s.View().Documents, arg))
		doc, ok := s.Lookup()
		if !ok {
			return false, fmt.Errorf("%s is not in your documents", arg)
		}
		fmt.Fprintf(out, "%s\n%s\n", doc.Name, doc.URL)
	case "/upload":
		message, err := uploadFile(cmd.Context(), s, arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, message)
	case "/theme":
		s.SetTheme(arg)
		fmt.Fprintln(out, "theme:", s.View().Theme)
	default:
		fmt.Fprintln(out, chatHelp)
	}
	return false, nil
}
