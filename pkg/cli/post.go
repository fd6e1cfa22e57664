package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plumenet/plume/pkg/compose"
	"github.com/plumenet/plume/pkg/config"
	"github.com/plumenet/plume/pkg/draft"
	"github.com/plumenet/plume/pkg/media"
	"github.com/plumenet/plume/pkg/nostr"
)

var (
	postKind      string
	postAttach    []string
	postRefs      []string
	postDryRun    bool
	postYes       bool
	postDraftID   string
	postSaveDraft bool
)

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post [text]",
		Short: "Compose and publish a note",
		Long: `Compose a note, upload its attachments and publish it.

Examples:
  plume post "gm nostr"
  plume post "check this out" --attach shot.png
  plume post --draft 4cfe12 --attach clip.mp4
  plume post "pipeline says hi" --dry-run
  plume post "replying" --ref e:4d0c...@wss://relay.damus.io

Publishing to relays requires a signer command in the config; --dry-run
prints the event (unsigned when no signer is set) instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPost,
	}

	cmd.Flags().StringVar(&postKind, "kind", "text", `Note kind ("text" or "chat")`)
	cmd.Flags().StringArrayVar(&postAttach, "attach", nil, "Media file to upload and link (repeatable)")
	cmd.Flags().StringArrayVar(&postRefs, "ref", nil, "Reference tag as type:id[@relay] (repeatable)")
	cmd.Flags().BoolVar(&postDryRun, "dry-run", false, "Print the event instead of publishing")
	cmd.Flags().BoolVar(&postYes, "yes", false, "Answer yes to confirmation prompts")
	cmd.Flags().StringVar(&postDraftID, "draft", "", "Start from a saved draft, deleting it once published")
	cmd.Flags().BoolVar(&postSaveDraft, "save-draft", false, "Save the note as a draft instead of publishing")

	return cmd
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kind, err := nostr.ParseKind(postKind)
	if err != nil {
		return err
	}

	refs, err := parseReferences(postRefs)
	if err != nil {
		return err
	}

	text := ""
	if len(args) == 1 {
		text = args[0]
	}

	var drafts draft.Store
	if postDraftID != "" || postSaveDraft {
		if drafts, err = openDrafts(cfg); err != nil {
			return err
		}
		defer drafts.Close()
	}

	if postDraftID != "" {
		if text != "" {
			return errors.New("give either text or --draft, not both")
		}
		d, err := drafts.Get(ctx, postDraftID)
		if err != nil {
			return fmt.Errorf("load draft %s: %w", postDraftID, err)
		}
		text = d.Content
		refs = append(d.References, refs...)
		if !cmd.Flags().Changed("kind") {
			kind = d.Kind
		}
	}

	sink, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []compose.Opt{
		compose.WithUploader(newUploadClient(cfg)),
		compose.WithUploadTimeout(cfg.UploadTimeout()),
		compose.WithInitialText(text),
		compose.WithSink(sink),
	}
	if cfg.Guard.Disabled {
		opts = append(opts, compose.WithKeyScanner(nil))
	}

	session := compose.New(opts...)
	defer session.Close()
	events := session.Subscribe("cli")

	for _, path := range postAttach {
		sel, err := media.FromFile(path)
		if err != nil {
			return err
		}
		if !sel.Complete() {
			return fmt.Errorf("%s: cannot determine media type, use a known extension", path)
		}
		session.Attach(ctx, sel)
		if err := awaitUpload(ctx, events, path); err != nil {
			return err
		}
	}

	if postSaveDraft {
		id := postDraftID
		if id == "" {
			id = uuid.NewString()
		}
		d := &draft.Draft{ID: id, Content: session.Text(), Kind: kind, References: refs}
		if err := drafts.Save(ctx, d); err != nil {
			return err
		}
		fmt.Printf("Saved draft %s\n", id)
		return nil
	}

	go answerKeyWarnings(ctx, session, events)

	if err := session.Submit(ctx, kind, refs); err != nil {
		if errors.Is(err, compose.ErrSubmitRejected) {
			color.Yellow("Not published.")
			return nil
		}
		return err
	}

	if !postDryRun {
		color.Green("Published %s note.", kind)
	}

	if postDraftID != "" {
		if err := drafts.Delete(ctx, postDraftID); err != nil {
			return fmt.Errorf("published, but deleting draft %s failed: %w", postDraftID, err)
		}
	}
	return nil
}

// buildSink picks where the finished note goes. Dry runs write the event
// to stdout; real publishes need relays and a signer.
func buildSink(ctx context.Context, cfg *config.Config) (nostr.Sink, error) {
	signer, err := newSigner(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if postDryRun {
		return nostr.NewWriterSink(os.Stdout, signer), nil
	}

	if signer == nil {
		return nil, errors.New("publishing requires signer.command in the config; use --dry-run to print the event instead")
	}
	if len(cfg.Relays) == 0 {
		return nil, errors.New("no relays configured")
	}
	return nostr.NewRelaySink(cfg.Relays, signer), nil
}

// awaitUpload drains session events until the in-flight upload settles.
func awaitUpload(ctx context.Context, events <-chan compose.Event, path string) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return errors.New("session closed while uploading")
			}
			switch e := ev.(type) {
			case *compose.UploadStartedEvent:
				fmt.Printf("Uploading %s (%s, %s)\n", path, e.MIMEType, units.HumanSize(float64(e.Size)))
			case *compose.UploadSucceededEvent:
				color.Green("  %s", e.URL)
				return nil
			case *compose.UploadFailedEvent:
				if e.Err != nil {
					return fmt.Errorf("upload %s: %s: %w", path, e.Reason, e.Err)
				}
				return fmt.Errorf("upload %s: %s", path, e.Reason)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// answerKeyWarnings feeds the key gate while Submit blocks on it.
func answerKeyWarnings(ctx context.Context, session *compose.Session, events <-chan compose.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, warned := ev.(*compose.KeyWarningEvent); !warned {
				continue
			}
			confirmPending(ctx, session, promptKeyWarning())
		case <-ctx.Done():
			return
		}
	}
}

func promptKeyWarning() bool {
	if postYes {
		return true
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}

	color.Yellow("The draft looks like it contains a private key (nsec...).")
	fmt.Print("Publish anyway? [y/N] ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// confirmPending retries around the narrow window between the warning
// event and Submit actually listening for the verdict.
func confirmPending(ctx context.Context, session *compose.Session, proceed bool) {
	for i := 0; i < 200; i++ {
		err := session.Confirm(ctx, proceed)
		if err == nil || !errors.Is(err, compose.ErrNoConfirmPending) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func parseReferences(raw []string) ([]nostr.Reference, error) {
	var refs []nostr.Reference
	for _, r := range raw {
		ref, err := parseReference(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseReference parses "type:id" with an optional "@relay" suffix, e.g.
// "e:4d0c...@wss://relay.damus.io".
func parseReference(raw string) (nostr.Reference, error) {
	typ, rest, ok := strings.Cut(raw, ":")
	if !ok || typ == "" || rest == "" {
		return nostr.Reference{}, fmt.Errorf("reference %q must look like type:id[@relay]", raw)
	}
	id, relay, _ := strings.Cut(rest, "@")
	if id == "" {
		return nostr.Reference{}, fmt.Errorf("reference %q must look like type:id[@relay]", raw)
	}
	return nostr.Reference{Type: typ, ID: id, RelayHint: relay}, nil
}
