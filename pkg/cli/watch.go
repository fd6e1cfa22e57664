package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/plumenet/plume/pkg/watch"
)

func newWatchCmd() *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload every media file dropped into a directory",
		Long: `Watch a directory and upload each new media file to the configured
host, printing the hosted URL as it lands. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newUploadClient(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []watch.Opt
			if settle > 0 {
				opts = append(opts, watch.WithSettleDelay(settle))
			}
			w := watch.New(args[0], opts...)
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			fmt.Printf("Watching %s, drop media files to upload them.\n", args[0])
			for {
				select {
				case <-ctx.Done():
					return nil
				case sel := <-w.Selections():
					if !sel.Complete() {
						color.Yellow("skipping %s: cannot determine media type", sel.Name)
						continue
					}
					url, err := client.Upload(ctx, sel.MIMEType, sel.Extension, sel.Data)
					if err != nil {
						color.Red("%s: %v", sel.Name, err)
						continue
					}
					color.Green("%s -> %s", sel.Name, url)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 0,
		"How long a file must sit unchanged before it is read (default 500ms)")
	return cmd
}
