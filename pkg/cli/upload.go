package cli

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/plumenet/plume/pkg/media"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload media files and print their hosted URLs",
		Long: `Upload one or more media files to the configured host without
composing a note.

Examples:
  plume upload shot.png
  plume upload clip.mp4 cover.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newUploadClient(cfg)

	for _, path := range args {
		sel, err := media.FromFile(path)
		if err != nil {
			return err
		}
		if !sel.Complete() {
			return fmt.Errorf("%s: cannot determine media type, use a known extension", path)
		}

		fmt.Printf("Uploading %s (%s, %s)\n", path, sel.MIMEType, units.HumanSize(float64(len(sel.Data))))
		url, err := client.Upload(cmd.Context(), sel.MIMEType, sel.Extension, sel.Data)
		if err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		color.Green(url)
	}
	return nil
}
