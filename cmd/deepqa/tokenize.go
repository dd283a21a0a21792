package main

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize [text...]",
		Short: "Print the token representation of text as JSON",
		Long: "Tokenize each argument, or each line of stdin when no argument is given, " +
			"and print one JSON object per input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			tok, err := buildTokenizer(cfg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())

			if len(args) > 0 {
				for _, text := range args {
					if err := enc.Encode(tok.Tokenize(text)); err != nil {
						return err
					}
				}
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimRight(scanner.Text(), "\r")
				if line == "" {
					continue
				}
				if err := enc.Encode(tok.Tokenize(line)); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}
