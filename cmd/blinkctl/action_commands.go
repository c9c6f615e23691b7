package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/blinks/client"
	"github.com/brojonat/blinks/service/actions"
	"github.com/brojonat/blinks/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func actionGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch the action metadata of a blink",
		ArgsUsage: "<blink-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: blink id")
			}
			meta, err := apiClient(c).ActionMetadata(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to fetch action: %w", err)
			}
			if wantsJSON(c) {
				return outputJSON(c, meta)
			}

			fmt.Fprintf(c.App.Writer, "%s\n%s\n\n", meta.Title, meta.Description)
			if meta.Links != nil {
				for _, a := range meta.Links.Actions {
					fmt.Fprintf(c.App.Writer, "  [%s] %s\n", a.Label, a.Href)
				}
			}
			return nil
		},
	}
}

func actionPostCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Request the unsigned donation transaction of a blink",
		ArgsUsage: "<blink-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Amount in SOL"},
			&cli.StringFlag{Name: "account", Usage: "Payer public key (default: the keypair's)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: blink id")
			}

			account := c.String("account")
			if account == "" {
				wallet, err := client.LoadKeypairWallet(c.String("keypair"))
				if err != nil {
					return err
				}
				account = wallet.PublicKey().String()
			}

			resp, err := apiClient(c).ActionTransaction(context.Background(), c.Args().First(), c.String("amount"), account)
			if err != nil {
				return fmt.Errorf("failed to request transaction: %w", err)
			}
			if wantsJSON(c) {
				return outputJSON(c, resp)
			}
			fmt.Fprintf(c.App.Writer, "%s\n%s\n", resp.Message, resp.Transaction)
			return nil
		},
	}
}

func donateCommand() *cli.Command {
	return &cli.Command{
		Name:      "donate",
		Usage:     "Sign and submit a donation to a blink with the local keypair",
		ArgsUsage: "<blink-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Amount in SOL"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Verify and sign but do not submit"},
			&cli.DurationFlag{Name: "poll", Usage: "Signature status poll interval", Value: 2 * time.Second},
			&cli.DurationFlag{Name: "timeout", Usage: "Give up waiting for confirmation after this long", Value: 90 * time.Second},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: blink id")
			}
			blinkID := c.Args().First()

			amount, err := actions.ParseAmount(c.String("amount"))
			if err != nil {
				return err
			}

			wallet, err := client.LoadKeypairWallet(c.String("keypair"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			resp, err := apiClient(c).ActionTransaction(ctx, blinkID, amount.String(), wallet.PublicKey().String())
			if err != nil {
				return fmt.Errorf("failed to request transaction: %w", err)
			}

			tx, err := solana.DecodeTransaction(resp.Transaction)
			if err != nil {
				return err
			}
			lamports, err := solana.ToLamports(amount)
			if err != nil {
				return err
			}
			transfers, err := checkDonation(tx, wallet.PublicKey(), lamports)
			if err != nil {
				return fmt.Errorf("refusing to sign: %w", err)
			}
			if err := wallet.SignTransaction(tx); err != nil {
				return fmt.Errorf("failed to sign transaction: %w", err)
			}

			fmt.Fprintln(c.App.ErrWriter, resp.Message)
			for _, t := range transfers {
				fmt.Fprintf(c.App.ErrWriter, "  %d lamports -> %s\n", t.Lamports, t.To)
			}

			if c.Bool("dry-run") {
				encoded, err := solana.EncodeTransaction(tx)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, encoded)
				return nil
			}

			rpcClient := solana.NewClient(solana.NewRPCClient(c.String("rpc-url")), "blinkctl", nil, cliLogger())
			sig, err := rpcClient.SubmitAndConfirm(ctx, tx, c.Duration("poll"))
			if err != nil {
				return fmt.Errorf("donation %s not confirmed: %w", sig, err)
			}

			if wantsJSON(c) {
				return outputJSON(c, map[string]string{"signature": sig.String(), "message": resp.Message})
			}
			fmt.Fprintf(c.App.Writer, "✓ Donation confirmed: %s\n", sig)
			return nil
		},
	}
}

// checkDonation verifies that tx only moves SOL out of payer, that payer pays
// the fees, and that the first transfer carries the requested amount.
func checkDonation(tx *solanago.Transaction, payer solanago.PublicKey, lamports uint64) ([]solana.Transfer, error) {
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(payer) {
		return nil, fmt.Errorf("fee payer is not %s", payer)
	}

	transfers, err := solana.ParseTransfers(tx)
	if err != nil {
		return nil, err
	}
	if len(transfers) == 0 {
		return nil, fmt.Errorf("transaction has no transfers")
	}
	for i, t := range transfers {
		if !t.From.Equals(payer) {
			return nil, fmt.Errorf("transfer %d is not paid by %s", i, payer)
		}
	}
	if transfers[0].Lamports != lamports {
		return nil, fmt.Errorf("donation is %d lamports, expected %d", transfers[0].Lamports, lamports)
	}
	return transfers, nil
}
