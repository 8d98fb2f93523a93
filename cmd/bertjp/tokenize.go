package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	var (
		input string
		words bool
	)

	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Print the word or subword tokens of text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			raw, err := readInputText(input, os.Stdin)
			if err != nil {
				return err
			}

			tok, err := loadTokenizer(cfg)
			if err != nil {
				return err
			}

			var tokens []string
			if words {
				tokens = tok.Words(raw)
			} else {
				tokens = tok.Tokenize(raw)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tokens, " "))
			return err
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to tokenize (if empty, read from stdin)")
	cmd.Flags().BoolVar(&words, "words", false, "Stop after word segmentation")

	return cmd
}
