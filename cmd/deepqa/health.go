package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/go-deepqa/internal/server"
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var (
		addr       string
		timeout    time.Duration
		namespaces []string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server and the vocabulary it serves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.ListenAddr
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			health, err := server.CheckHealth(ctx, addr)
			if err != nil {
				return err
			}

			for _, ns := range namespaces {
				// Reserved padding and unknown entries do not count.
				if health.Vocab[ns] <= 2 {
					return fmt.Errorf("server at %s has no tokens in namespace %q", addr, ns)
				}
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "ok %s\n", health.Version); err != nil {
				return err
			}

			names := make([]string, 0, len(health.Vocab))
			for ns := range health.Vocab {
				names = append(names, ns)
			}
			sort.Strings(names)

			for _, ns := range names {
				if _, err := fmt.Fprintf(out, "namespace %s: %d entries\n", ns, health.Vocab[ns]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP server address to check (default: server.listen_addr)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Overall deadline for the health requests")
	cmd.Flags().StringSliceVar(&namespaces, "require-namespace", nil, "Fail unless the served vocabulary has tokens in this namespace")

	return cmd
}
