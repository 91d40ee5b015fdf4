package app

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// サブコマンド名
const (
	CommandServe       = "serve"
	CommandWorker      = "worker"
	CommandMigrate     = "migrate"
	CommandHealthcheck = "healthcheck"
)

// NewRootCommand はshareitのルートコマンドを生成する。
// サブコマンド省略時はserveとして動作する。ログはwに出力する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "shareit",
		Short:         "peer-to-peer item sharing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), w)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   CommandServe,
			Short: "Start the REST API server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), w)
			},
		},
		&cobra.Command{
			Use:   CommandWorker,
			Short: "Consume booking events and emit notifications",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := Init(w)
				if err != nil {
					return err
				}
				return runWorker(cmd.Context(), cfg)
			},
		},
		newMigrateCommand(w),
		newHealthcheckCommand(),
	)

	return root
}

// newMigrateCommand はマイグレーション操作のサブコマンドを生成する。
// サブコマンド省略時はupとして動作する。
func newMigrateCommand(w io.Writer) *cobra.Command {
	up := func(cmd *cobra.Command, _ []string) error {
		cfg, err := Init(w)
		if err != nil {
			return err
		}
		return runMigrate(cfg)
	}

	migrateCmd := &cobra.Command{
		Use:   CommandMigrate,
		Short: "Apply all pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  up,
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runMigrateDown(cfg, steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending database migrations",
			Args:  cobra.NoArgs,
			RunE:  up,
		},
		downCmd,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := Init(w)
				if err != nil {
					return err
				}
				return runMigrateVersion(cmd.OutOrStdout(), cfg)
			},
		},
	)
	return migrateCmd
}

// newHealthcheckCommand はdistroless環境でのDockerヘルスチェック用サブコマンドを生成する。
// 設定の読み込みやログの初期化は行わない。
func newHealthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   CommandHealthcheck,
		Short: "Probe the local /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealthcheck(cmd.Context(), healthcheckURL(port))
		},
	}

	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "API server port")
	return cmd
}

func serve(ctx context.Context, w io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return err
	}
	return runServe(ctx, cfg)
}
