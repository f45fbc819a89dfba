package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcoop/rac/client"
	"github.com/rcoop/rac/internal/config"
	"github.com/rcoop/rac/internal/protocol"
)

func readCmd(o *options) *cobra.Command {
	var maxMessages int

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print the last messages of the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max") {
				maxMessages = o.cfg.MaxMessages
			}
			page, err := o.client().ReadMessages(cmd.Context(), maxMessages, 0, false)
			if err != nil {
				return err
			}
			if page != nil {
				printLines(page.Messages)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxMessages, "max", "n", 0, "number of messages to keep (default from config)")
	return cmd
}

func sendCmd(o *options) *cobra.Command {
	var (
		name  string
		raw   bool
		spoof bool
	)

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a message without authentication",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if !cmd.Flags().Changed("name") {
				name = o.cfg.Name
			}
			msg := o.outgoing(name, text, raw)

			c := o.client()
			if spoof {
				return c.SendMessageSpoofAuth(cmd.Context(), msg)
			}
			return c.SendMessage(cmd.Context(), msg)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default from config)")
	cmd.Flags().BoolVar(&raw, "raw", false, "send the text as is, without format or IP policy")
	cmd.Flags().BoolVar(&spoof, "spoof", false, "claim the name via authenticated send, falling back to a shadow account")
	return cmd
}

func registerCmd(o *options) *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := o.client().RegisterUser(cmd.Context(), name, password)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %q already exists", name)
			}
			fmt.Printf("registered %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("password")
	return cmd
}

func authCmd(o *options) *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "auth MESSAGE...",
		Short: "Send a message as a registered user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := o.client().SendMessageAuth(cmd.Context(), name, password, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if status != protocol.StatusOK {
				return fmt.Errorf("server refused: %s", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("password")
	return cmd
}

func watchCmd(o *options) *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the log and send lines typed on stdin",
		Long: `Follow the log and send every line typed on stdin. With --password the
lines are sent as the registered user --name; otherwise they are sent
unauthenticated with the configured message format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") {
				name = o.cfg.Name
			}
			if password != "" && name == "" {
				return fmt.Errorf("--password needs a user name")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := o.client()
			p := client.NewPoller(c, o.cfg.MaxMessages, o.cfg.Chunked, o.cfg.UpdateInterval())
			p.OnMessages = func(lines []string, reset bool) {
				if reset {
					fmt.Print("\033[2J\033[H")
				}
				printLines(lines)
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return p.Run(ctx) })
			g.Go(func() error {
				defer stop()
				return sendLines(ctx, os.Stdin, os.Stderr, o.lineSender(c, name, password))
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name, or user name with --password (default from config)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "send lines authenticated as --name")
	return cmd
}

// lineSender delivers one typed line.
type lineSender func(ctx context.Context, line string) error

// lineSender picks the authenticated path when a password is set. The
// server prefixes authenticated lines with the user name, so they go out
// without the message format.
func (o *options) lineSender(c *client.Client, name, password string) lineSender {
	if password == "" {
		return func(ctx context.Context, line string) error {
			return c.SendMessage(ctx, o.outgoing(name, line, false))
		}
	}

	return func(ctx context.Context, line string) error {
		status, err := c.SendMessageAuth(ctx, name, password, line)
		if err != nil {
			return err
		}
		if status != protocol.StatusOK {
			return fmt.Errorf("server refused %q: %s", name, status)
		}
		return nil
	}
}

// sendLines sends every non-blank line of r until EOF or ctx is done.
// Failed sends are reported on errOut and do not stop the loop.
func sendLines(ctx context.Context, r io.Reader, errOut io.Writer, send lineSender) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := send(ctx, line); err != nil {
				fmt.Fprintf(errOut, "send failed: %v\n", err)
			}
		}
	}
}

func pingCmd(o *options) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Measure how long a message takes to show up in the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			d, err := o.client().Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Ping = %dms\n", d.Milliseconds())
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "give up after this long")
	return cmd
}

func configCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Println(o.configPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the effective settings to the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Save(o.configPath, o.cfg); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", o.configPath)
				return nil
			},
		},
	)
	return cmd
}

// outgoing applies the message format and IP policy unless raw is set.
func (o *options) outgoing(name, text string, raw bool) string {
	if raw {
		return text
	}
	if name != "" {
		text = client.FormatMessage(o.cfg.MessageFormat, name, text)
	}
	return client.PrepareMessage(text, o.cfg.HideMyIP)
}

func printLines(lines []string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}
