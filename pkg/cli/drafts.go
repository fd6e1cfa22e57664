package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage saved note drafts",
	}
	cmd.AddCommand(
		newDraftsListCmd(),
		newDraftsShowCmd(),
		newDraftsRmCmd(),
	)
	return cmd
}

func newDraftsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved drafts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openDrafts(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No drafts.")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%-36s  %s  %s\n", s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.Excerpt)
			}
			return nil
		},
	}
}

func newDraftsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a draft's full content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openDrafts(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			d, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(d.Content)
			return nil
		},
	}
}

func newDraftsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete drafts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openDrafts(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Println("Deleted", id)
			}
			return nil
		},
	}
}
