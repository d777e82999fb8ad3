// ledger-cli manages identities for the event ledger service: key
// generation, bearer tokens, derived event addresses and a notification tail.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/auth"
	"ms-event-ledger/internal/kafka"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/models"

	"github.com/mr-tron/base58"
	"github.com/spf13/pflag"
)

const usage = `Usage: ledger-cli <command> [flags]

Commands:
  keygen    generate an ed25519 identity
  token     sign a bearer token for an identity
  address   print the derived addresses of an authority's event
  watch     print ledger notifications from Kafka
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "keygen":
		return keygen(args[1:], out)
	case "token":
		return token(args[1:], out)
	case "address":
		return deriveAddresses(args[1:], out)
	case "watch":
		return watch(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// keyFile is the on-disk identity: the 64-byte ed25519 private key in base58.
type keyFile struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func keygen(args []string, out io.Writer) error {
	var outPath string
	flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	flagSet.StringVarP(&outPath, "out", "o", "", "write the key file here instead of stdout")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	identity, err := address.FromPublicKey(pub)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(keyFile{
		PublicKey:  identity.String(),
		PrivateKey: base58.Encode(priv),
	}, "", "  ")
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0600); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, identity.String())
	return err
}

func loadKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	raw, err := base58.Decode(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key is %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(raw), nil
}

func token(args []string, out io.Writer) error {
	var keyPath string
	var ttl time.Duration
	flagSet := pflag.NewFlagSet("token", pflag.ContinueOnError)
	flagSet.StringVarP(&keyPath, "key", "k", "", "key file written by keygen (required)")
	flagSet.DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if keyPath == "" {
		return errors.New("--key is required")
	}

	key, err := loadKey(keyPath)
	if err != nil {
		return err
	}
	signed, err := auth.SignToken(key, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, signed)
	return err
}

func deriveAddresses(args []string, out io.Writer) error {
	var authorityFlag, programFlag string
	flagSet := pflag.NewFlagSet("address", pflag.ContinueOnError)
	flagSet.StringVar(&authorityFlag, "authority", "", "authority public key (required)")
	flagSet.StringVar(&programFlag, "program", address.EventProgramID.String(), "program id events are derived under")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	authority, err := address.ParsePubkey(authorityFlag)
	if err != nil {
		return fmt.Errorf("--authority: %w", err)
	}
	programID, err := address.ParsePubkey(programFlag)
	if err != nil {
		return fmt.Errorf("--program: %w", err)
	}

	addrs, err := address.DeriveEventAddresses(programID, authority)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "event           %s (bump %d)\n", addrs.Event, addrs.EventBump)
	fmt.Fprintf(out, "event_mint      %s (bump %d)\n", addrs.EventMint, addrs.EventMintBump)
	fmt.Fprintf(out, "treasury_vault  %s (bump %d)\n", addrs.TreasuryVault, addrs.TreasuryVaultBump)
	fmt.Fprintf(out, "profits_vault   %s (bump %d)\n", addrs.ProfitsVault, addrs.ProfitsVaultBump)
	return nil
}

func watch(args []string, out io.Writer) error {
	var brokers, prefix, group string
	flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flagSet.StringVar(&brokers, "brokers", "localhost:9092", "comma-separated Kafka brokers")
	flagSet.StringVar(&prefix, "prefix", "event-ledger", "notification topic prefix")
	flagSet.StringVar(&group, "group", "ledger-cli", "consumer group id")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(strings.Split(brokers, ","), prefix, group, logger.NewWriterLogger(os.Stderr))
	defer consumer.Close()

	return consumer.Start(ctx, func(n models.LedgerNotification) {
		fmt.Fprintf(out, "%s %-18s event=%s actor=%s quantity=%d amount=%d sponsors=%d active=%t\n",
			n.OccurredAt.Format(time.RFC3339), n.Type, n.Event, n.Actor, n.Quantity, n.Amount, n.Sponsors, n.IsActive)
	})
}
