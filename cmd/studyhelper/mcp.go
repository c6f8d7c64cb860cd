package main

import (
	"github.com/akolanti/StudyHelper/internal/mcpserver"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the study session as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			// the initial catalog load is best effort, list_documents retries it
			_ = s.Start(cmd.Context())
			return mcpserver.Run(cmd.Context(), s, version)
		},
	}
}
