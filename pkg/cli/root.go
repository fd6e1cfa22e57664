// Package cli implements the plume command line interface.
package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/plumenet/plume/pkg/config"
	"github.com/plumenet/plume/pkg/draft"
	"github.com/plumenet/plume/pkg/nostr"
	"github.com/plumenet/plume/pkg/upload"
)

var (
	debugFlag  bool
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "plume",
	Short: "Compose and publish Nostr notes",
	Long: `plume is a headless Nostr note composer. It uploads media to
nostr.build, reconciles the hosted URLs into the draft, warns before a
private key leaves the machine and hands finished notes to your relays.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debugFlag)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Path to config file (default ~/.plume/config.yaml)")

	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDraftsCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

func newUploadClient(cfg *config.Config) *upload.Client {
	var opts []upload.Opt
	if cfg.Upload.Endpoint != "" {
		opts = append(opts, upload.WithEndpoint(cfg.Upload.Endpoint))
	}
	if cfg.Upload.Retries > 0 {
		opts = append(opts, upload.WithRetries(cfg.Upload.Retries))
	}
	if timeout := cfg.UploadTimeout(); timeout > 0 {
		opts = append(opts, upload.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	return upload.NewClient(opts...)
}

// newSigner returns nil without error when no signer is configured.
func newSigner(ctx context.Context, cfg *config.Config) (nostr.Signer, error) {
	if cfg.Signer.Command == "" {
		return nil, nil
	}
	return nostr.NewCmdSigner(ctx, cfg.Signer.Command, cfg.Signer.Args...)
}

func openDrafts(cfg *config.Config) (draft.Store, error) {
	path, err := cfg.DraftsPath()
	if err != nil {
		return nil, err
	}
	return draft.NewSQLStore(path)
}
