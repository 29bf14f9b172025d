package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"eduhub/internal/bootstrap"
	"eduhub/internal/credential/models"
	"eduhub/internal/credential/payload"
	"eduhub/internal/credential/service"
	"eduhub/internal/platform/config"
	"eduhub/internal/platform/logger"
	"eduhub/pkg/secrets"
)

type rootOptions struct {
	envFile string
	asJSON  bool
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "claimctl",
		Short:         "Inspect and reset the EduHub claim ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline for ledger calls")

	root.AddCommand(
		newListCmd(opts),
		newHasCmd(opts),
		newClearCmd(opts),
		newTemplatesCmd(opts),
		newAdminTokenCmd(opts),
	)
	return root
}

var errMemoryLedger = errors.New("the memory ledger lives inside the server process; set LEDGER_BACKEND to file, s3, redis or postgres")

// withGateway opens the configured ledger and hands a query-only service to fn.
func withGateway(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if cfg.Ledger.Backend == config.LedgerMemory {
		return errMemoryLedger
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	log := logger.NewWithWriter(cmd.ErrOrStderr(), "warn")

	backend, err := bootstrap.OpenLedger(ctx, cfg.Ledger, nil, log)
	if err != nil {
		return fmt.Errorf("open %s ledger: %w", cfg.Ledger.Backend, err)
	}
	defer backend.Close() //nolint:errcheck // CLI exits right after

	return fn(ctx, service.New(backend.Ledger, nil, nil, cfg.Issuer, service.WithLogger(log)))
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <holderId>",
		Short: "List a holder's claims, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				claims, err := svc.Claims(ctx, args[0])
				if err != nil {
					return err
				}
				return printClaims(cmd.OutOrStdout(), opts.asJSON, claims)
			})
		},
	}
}

func newHasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "has <holderId> <credentialType>",
		Short: "Report whether a holder has claimed a credential type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				claim, ok, err := svc.HasClaim(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.asJSON {
					return writeJSON(out, map[string]any{"claimed": ok, "claimRecord": claim})
				}
				if !ok {
					_, err = fmt.Fprintln(out, "not claimed")
					return err
				}
				_, err = fmt.Fprintf(out, "claimed at %s\n", claim.IssuedAt.Format(time.RFC3339))
				return err
			})
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every claim from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to clear the ledger without --yes")
			}
			return withGateway(cmd, opts, func(ctx context.Context, svc *service.Service) error {
				if err := svc.ClearClaims(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "claim ledger cleared")
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the ledger should be emptied")
	return cmd
}

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "Show the credential templates the gateway issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			templates := payload.Templates()
			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, templates)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tTYPE\tNAME\tIDENTIFIER\tCATEGORY")
			for _, t := range templates {
				credentialType := t.CredentialType
				if t.Fallback() {
					credentialType = "(any other)"
				}
				prefix := t.IdentifierPrefix
				if t.SlugType {
					prefix += ":<type>"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s:<ms>\t%s\n", t.Mode, credentialType, t.AchievementName, prefix, t.Category)
			}
			return tw.Flush()
		},
	}
}

// newAdminTokenCmd mints an X-Admin-Token value and the bcrypt hash to
// deploy as ADMIN_TOKEN_HASH. It does not touch the ledger.
func newAdminTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "admin-token",
		Short: "Generate an admin token and its ADMIN_TOKEN_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := secrets.NewAdminToken()
			if err != nil {
				return err
			}
			hash, err := token.Hash()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, map[string]string{"token": token.String(), "hash": hash})
			}
			_, err = fmt.Fprintf(out, "X-Admin-Token: %s\nADMIN_TOKEN_HASH=%s\n", token, hash)
			return err
		},
	}
}

func printClaims(out io.Writer, asJSON bool, claims []models.ClaimRecord) error {
	if asJSON {
		if claims == nil {
			claims = []models.ClaimRecord{}
		}
		return writeJSON(out, claims)
	}
	if len(claims) == 0 {
		_, err := fmt.Fprintln(out, "no claims")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tMODE\tHOLDER\tISSUED AT")
	for _, c := range claims {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.CredentialType, models.ModeFor(c.IsOCB), c.HolderID(), c.IssuedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
