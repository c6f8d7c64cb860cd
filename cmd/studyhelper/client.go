package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session"
	"github.com/akolanti/StudyHelper/internal/session/selector"
	"github.com/akolanti/StudyHelper/internal/session/transport"
	"github.com/akolanti/StudyHelper/internal/session/upload"
	"github.com/spf13/cobra"
)

var errNoUser = errors.New("client.user_id is not set (config file or STUDYHELPER_CLIENT_USER_ID)")

// newSession builds an orchestrator for the configured user. The server's auth
// token doubles as the client's bearer token.
func newSession(opts *rootOptions) (*session.Orchestrator, error) {
	if opts.settings.Client.UserID == "" {
		return nil, errNoUser
	}
	return session.NewFromSettings(opts.settings.Client, transport.WithAuthToken(opts.settings.Server.AuthToken))
}

// uploadFile runs one upload and waits for the catalog refresh it triggers.
func uploadFile(ctx context.Context, s *session.Orchestrator, path string) (string, error) {
	file, err := upload.ReadLocalFile(path)
	if err != nil {
		return "", err
	}
	if task := s.SelectFile(file); task.Status() == sessionModel.UploadFailed {
		return "", errors.New(task.Message())
	}
	if _, err = s.Upload(ctx); err != nil {
		if message := s.View().Upload.Message(); message != "" {
			return "", errors.New(message)
		}
		return "", err
	}
	message := s.View().Upload.Message()
	s.Wait()
	return message, nil
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF to your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			message, err := uploadFile(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			printDocuments(cmd.OutOrStdout(), s.View())
			return nil
		},
	}
}

func newDocsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List your uploaded documents, newest first",
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
			view := s.View()
			if view.CatalogError != "" {
				return fmt.Errorf("%s, run docs again to retry", view.CatalogError)
			}
			printDocuments(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id|name|url>",
		Short: "Select a document and print where to view it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err = s.Start(cmd.Context()); err != nil {
				return err
			}
			s.Select(selector.Resolve(s.View().Documents, args[0]))
			doc, ok := s.Lookup()
			if !ok {
				return fmt.Errorf("%s is not in your documents", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", doc.Name, doc.URL)
			return nil
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about your notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			err = s.Ask(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, sessionModel.ErrMissingInput) {
				return nil
			}
			if err != nil {
				return err
			}
			turn, ok := lastTurn(s.View())
			if !ok {
				return nil
			}
			if turn.Role == sessionModel.RoleError {
				return errors.New(turn.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), turn.Text)
			return nil
		},
	}
}

func lastTurn(view sessionModel.SessionView) (sessionModel.ChatTurn, bool) {
	if len(view.Transcript) == 0 {
		return sessionModel.ChatTurn{}, false
	}
	return view.Transcript[len(view.Transcript)-1], true
}

func printDocuments(w io.Writer, view sessionModel.SessionView) {
	if len(view.Documents) == 0 {
		fmt.Fprintln(w, "No documents yet.")
		return
	}
	for _, doc := range view.Documents {
		created := ""
		if doc.CreatedAt != nil {
			created = doc.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%-36s  %-16s  %s\n", doc.Name, created, doc.URL)
	}
}
