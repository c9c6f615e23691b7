package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brojonat/blinks/service/blink"
	"github.com/brojonat/blinks/service/db"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func createBlinkCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a donation blink",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "label", Usage: "Button label", Value: "Donate"},
			&cli.StringFlag{Name: "image-url", Required: true, Usage: "Absolute URL of the blink image"},
			&cli.StringSliceFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Preset amount in SOL (repeatable)"},
			&cli.BoolFlag{Name: "custom", Usage: "Also offer a custom amount input"},
		},
		Action: func(c *cli.Context) error {
			form := &blink.Form{
				Title:         c.String("title"),
				Description:   c.String("description"),
				Label:         c.String("label"),
				ImageURL:      c.String("image-url"),
				IsCustomInput: c.Bool("custom"),
			}
			for _, raw := range c.StringSlice("amount") {
				v, err := decimal.NewFromString(strings.TrimSpace(raw))
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", raw, err)
				}
				form.Amount = append(form.Amount, blink.AmountInput{Value: v})
			}

			created, err := apiClient(c).CreateBlink(context.Background(), form)
			if err != nil {
				return fmt.Errorf("failed to create blink: %w", err)
			}

			if wantsJSON(c) {
				return outputJSON(c, created)
			}
			fmt.Fprintf(c.App.Writer, "✓ Created blink %s\n", created.ID)
			printBlink(c, created)
			return nil
		},
	}
}

func listBlinksCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List your blinks",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			blinks, err := apiClient(c).ListBlinks(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list blinks: %w", err)
			}
			if wantsJSON(c) {
				return outputJSON(c, blinks)
			}
			printBlinkTable(c, blinks)
			return nil
		},
	}
}

func getBlinkCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one blink",
		ArgsUsage: "<blink-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: blink id")
			}
			b, err := apiClient(c).GetBlink(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get blink: %w", err)
			}
			if wantsJSON(c) {
				return outputJSON(c, b)
			}
			printBlink(c, b)
			return nil
		},
	}
}

func qrCommand() *cli.Command {
	return &cli.Command{
		Name:      "qr",
		Usage:     "Save the QR code of a blink's action link as PNG",
		ArgsUsage: "<blink-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default <blink-id>.png)"},
			&cli.IntFlag{Name: "size", Usage: "Image size in pixels"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: blink id")
			}
			id := c.Args().First()

			png, err := apiClient(c).QRCode(context.Background(), id, c.Int("size"))
			if err != nil {
				return fmt.Errorf("failed to fetch QR code: %w", err)
			}

			out := c.String("out")
			if out == "" {
				out = id + ".png"
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(c.App.Writer, "✓ Wrote %s (%d bytes)\n", out, len(png))
			return nil
		},
	}
}

func amountList(b *db.Blink) string {
	values := make([]string, len(b.Amounts))
	for i, a := range b.Amounts {
		values[i] = a.Value.String()
	}
	return strings.Join(values, ", ")
}

func printBlink(c *cli.Context, b *db.Blink) {
	w := c.App.Writer
	fmt.Fprintf(w, "ID:          %s\n", b.ID)
	fmt.Fprintf(w, "Title:       %s\n", b.Title)
	fmt.Fprintf(w, "Description: %s\n", b.Description)
	fmt.Fprintf(w, "Label:       %s\n", b.Label)
	fmt.Fprintf(w, "Image:       %s\n", b.ImageURL)
	fmt.Fprintf(w, "Amounts:     %s SOL\n", amountList(b))
	fmt.Fprintf(w, "Custom:      %v\n", b.IsCustomInput)
	if b.User != nil {
		fmt.Fprintf(w, "Owner:       %s\n", b.User.PublicKey)
	}
	fmt.Fprintf(w, "Created:     %s\n", b.CreatedAt.Format(time.RFC3339))
}

func printBlinkTable(c *cli.Context, blinks []*db.Blink) {
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAMOUNTS\tCUSTOM\tCREATED")
	for _, b := range blinks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", b.ID, b.Title, amountList(b), b.IsCustomInput, b.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\nTotal: %d blinks\n", len(blinks))
}
