package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/plumenet/plume/pkg/draft"
)

func main() {
	srcPath := flag.String("src", "", "Source drafts database path")
	dstPath := flag.String("dst", "", "Destination drafts database path")
	flag.Parse()

	if *srcPath == "" || *dstPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: migrate -src <old-drafts-database> -dst <new-drafts-database>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := migrate(*srcPath, *dstPath); err != nil {
		log.Fatal(err)
	}
}

// migrate merges every draft from the source database into the destination,
// keeping whatever the destination already has on id collisions.
func migrate(srcPath, dstPath string) error {
	ctx := context.Background()

	src, err := draft.NewSQLStore(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source store: %w", err)
	}
	defer src.Close()

	dst, err := draft.NewSQLStore(dstPath)
	if err != nil {
		return fmt.Errorf("failed to open destination store: %w", err)
	}
	defer dst.Close()

	summaries, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list drafts in source: %w", err)
	}

	fmt.Printf("Migrating %d drafts...\n", len(summaries))

	var migrated, skipped, failed int
	for _, s := range summaries {
		if _, err := dst.Get(ctx, s.ID); err == nil {
			skipped++
			fmt.Printf("  Skipped draft (already exists): %s\n", s.ID)
			continue
		} else if !errors.Is(err, draft.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "  Failed to check draft %s: %v\n", s.ID, err)
			failed++
			continue
		}

		d, err := src.Get(ctx, s.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Failed to read draft %s: %v\n", s.ID, err)
			failed++
			continue
		}
		if err := dst.Save(ctx, d); err != nil {
			fmt.Fprintf(os.Stderr, "  Failed to migrate draft %s: %v\n", s.ID, err)
			failed++
			continue
		}
		migrated++
		fmt.Printf("  Migrated draft: %s (%s)\n", d.ID, s.Excerpt)
	}

	fmt.Printf("\nMigration complete: %d migrated, %d skipped, %d failed\n", migrated, skipped, failed)

	if failed > 0 {
		return fmt.Errorf("%d drafts failed to migrate", failed)
	}
	return nil
}
