package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"convertit/internal/gateway"
	"convertit/internal/live"
)

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call [lead name]",
		Short: "Run a live voice outreach call until Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			client, err := gateway.NewClient(ctx, cfg)
			if err != nil {
				return err
			}

			m := live.NewManager(
				&live.GeminiRemote{Client: client, Model: cfg.Models.Live},
				live.SystemDevices{},
				live.Options{
					InputRate:  cfg.Live.InputSampleRate,
					OutputRate: cfg.Live.OutputSampleRate,
					FrameSize:  cfg.Live.FrameSize,
					Voice:      cfg.Voices.Live,
				},
			)

			out := cmd.OutOrStdout()
			ended := make(chan string, 1)
			m.OnChange(func(s live.State) {
				fmt.Fprintf(out, "call: %s\n", s)
				if s == live.StateClosed {
					// The transcript is cleared once the manager is idle again.
					select {
					case ended <- m.Transcript():
					default:
					}
				}
			})

			if err := m.Start(ctx, strings.Join(args, " ")); err != nil {
				return err
			}

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			printed := 0
			for {
				select {
				case <-ctx.Done():
					m.Stop()
					fmt.Fprintln(out, strings.TrimSpace(tail(<-ended, printed)))
					return nil
				case t := <-ended:
					fmt.Fprintln(out, strings.TrimSpace(tail(t, printed)))
					return nil
				case <-ticker.C:
					t := m.Transcript()
					if len(t) > printed {
						fmt.Fprintln(out, strings.TrimSpace(t[printed:]))
						printed = len(t)
					}
				}
			}
		},
	}
}

// tail returns the part of s after the first n bytes, or "" when s is not
// longer than n.
func tail(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	return s[n:]
}
