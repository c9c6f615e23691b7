package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/blinks/service/events"
	"github.com/urfave/cli/v2"
)

func natsURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "nats-url",
		Usage:   "NATS server URL",
		EnvVars: []string{"NATS_URL"},
		Value:   "nats://localhost:4222",
	}
}

// tailEventsCommand streams blink and sign-in events from JetStream.
func tailEventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "Stream blink and sign-in events",
		Description: `Stream events published to the BLINKS JetStream stream.

Subjects:
  blinks.created   one per created blink
  auth.signed_in   one per accepted wallet signature

Example:
  blinkctl events tail --subject blinks.created --json`,
		Flags: []cli.Flag{
			natsURLFlag(),
			&cli.StringFlag{Name: "subject", Usage: "Only stream this subject"},
			&cli.StringFlag{Name: "durable", Usage: "Durable consumer name (survives restarts)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Stop after this long (0 streams until interrupted)"},
		},
		Action: func(c *cli.Context) error {
			sub, err := events.NewSubscriber(c.String("nats-url"), cliLogger())
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			count := 0
			err = sub.Consume(ctx, events.SubscribeOptions{
				FilterSubject: c.String("subject"),
				Durable:       c.String("durable"),
			}, func(env events.Envelope) error {
				count++
				if wantsJSON(c) {
					return outputJSON(c, env)
				}
				printEnvelope(c.App.Writer, env)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "Received %d events\n", count)
			return nil
		},
	}
}

func printEnvelope(w io.Writer, env events.Envelope) {
	switch e := env.Event.(type) {
	case *events.BlinkCreatedEvent:
		fmt.Fprintf(w, "#%d %s  blink=%s owner=%s amounts=%v custom=%v at=%s\n",
			env.Sequence, env.Subject, e.BlinkID, e.OwnerPublicKey, e.Amounts, e.IsCustomInput, e.CreatedAt.Format(time.RFC3339))
	case *events.SignedInEvent:
		fmt.Fprintf(w, "#%d %s  user=%s public_key=%s at=%s\n",
			env.Sequence, env.Subject, e.UserID, e.PublicKey, e.SignedInAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "#%d %s\n", env.Sequence, env.Subject)
	}
}

// inspectStreamCommand shows the state of the BLINKS stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the BLINKS JetStream stream",
		Flags: []cli.Flag{natsURLFlag()},
		Action: func(c *cli.Context) error {
			sub, err := events.NewSubscriber(c.String("nats-url"), cliLogger())
			if err != nil {
				return err
			}
			defer sub.Close()

			info, err := sub.StreamInfo(context.Background())
			if err != nil {
				return err
			}
			if wantsJSON(c) {
				return outputJSON(c, info)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Stream:       %s\n", info.Config.Name)
			fmt.Fprintf(w, "Description:  %s\n", info.Config.Description)
			fmt.Fprintf(w, "Subjects:     %v\n", info.Config.Subjects)
			fmt.Fprintf(w, "Messages:     %d\n", info.State.Msgs)
			fmt.Fprintf(w, "Bytes:        %d\n", info.State.Bytes)
			fmt.Fprintf(w, "Last Seq:     %d\n", info.State.LastSeq)
			fmt.Fprintf(w, "Consumers:    %d\n", info.State.Consumers)
			fmt.Fprintf(w, "Max Age:      %s\n", info.Config.MaxAge)
			return nil
		},
	}
}
