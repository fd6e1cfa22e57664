package nostr

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const signerStartupTimeout = 10 * time.Second

// CmdSigner signs events by shelling out to an external program, the way
// git delegates to its configured signing command. The private key never
// enters this process. The program is invoked as
//
//	<command> [args...] pubkey    print the 64-char hex public key
//	<command> [args...] sign      read an event template as JSON on stdin,
//	                              print the signed event as JSON
type CmdSigner struct {
	command string
	args    []string
	pubkey  string
}

// NewCmdSigner queries the program for its public key and fails fast when
// the program is missing or misbehaves.
func NewCmdSigner(ctx context.Context, command string, args ...string) (*CmdSigner, error) {
	if command == "" {
		return nil, errors.New("signer command required")
	}

	ctx, cancel := context.WithTimeout(ctx, signerStartupTimeout)
	defer cancel()

	out, err := runSigner(ctx, command, append(append([]string(nil), args...), "pubkey"), nil)
	if err != nil {
		return nil, fmt.Errorf("query signer public key: %w", err)
	}

	pubkey := strings.TrimSpace(string(out))
	if raw, err := hex.DecodeString(pubkey); err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("signer returned invalid public key %q", pubkey)
	}

	return &CmdSigner{command: command, args: args, pubkey: pubkey}, nil
}

func (s *CmdSigner) PublicKey() string {
	return s.pubkey
}

// Sign hands the event template to the program and verifies what comes
// back before accepting it.
func (s *CmdSigner) Sign(ctx context.Context, ev *Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	out, err := runSigner(ctx, s.command, append(append([]string(nil), s.args...), "sign"), payload)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}

	var signed Event
	if err := json.Unmarshal(bytes.TrimSpace(out), &signed); err != nil {
		return fmt.Errorf("parse signer output: %w", err)
	}

	if signed.PubKey != s.pubkey {
		return fmt.Errorf("signer key mismatch: got %s, want %s", signed.PubKey, s.pubkey)
	}
	if signed.Content != ev.Content {
		return errors.New("signer altered the note content")
	}
	if signed.Sig == "" {
		return errors.New("signer returned no signature")
	}
	if signed.ID != signed.ComputeID() {
		return errors.New("signer returned an inconsistent event ID")
	}

	*ev = signed
	return nil
}

func runSigner(ctx context.Context, command string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
