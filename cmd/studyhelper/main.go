package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	settings   config.Settings
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		logger_i.NewLogger("main").Error("studyhelper command failed", "error", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "studyhelper",
		Short:         "Upload study notes, browse them and ask questions answered from them",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.settings = settings
			logger_i.InitWith(logger_i.Options{
				Level:  settings.Log.Level,
				JSON:   settings.Log.JSON,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "studyhelper.yaml", "config file (optional)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newUploadCmd(opts))
	root.AddCommand(newDocsCmd(opts))
	root.AddCommand(newOpenCmd(opts))
	root.AddCommand(newAskCmd(opts))
	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}
