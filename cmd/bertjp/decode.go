package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var (
		keepSpecial bool
		showTokens  bool
	)

	cmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Decode token ids back to text",
		Example: `  bertjp decode 2 5 6 3
  bertjp decode 2,5,6,3 --keep-special
  bertjp decode 2,5,6,3 --tokens`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			tok, err := loadTokenizer(cfg)
			if err != nil {
				return err
			}

			if showTokens {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tok.ConvertIDsToTokens(ids), " "))
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.Decode(ids, !keepSpecial))
			return err
		},
	}

	cmd.Flags().BoolVar(&keepSpecial, "keep-special", false, "Keep special tokens in the output")
	cmd.Flags().BoolVar(&showTokens, "tokens", false, "Print the vocabulary entry of each id instead of joined text")

	return cmd
}

// parseIDs accepts ids as separate arguments, comma-separated lists or a
// bracketed list as printed by encode.
func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, arg := range args {
		arg = strings.Trim(arg, "[] ")
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			id, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("invalid token id %q: %w", field, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
