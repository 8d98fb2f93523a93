package main

import (
	"fmt"

	"github.com/example/go-bert-japanese/internal/vocab"
	"github.com/spf13/cobra"
)

func newVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Vocabulary acquisition and inspection commands",
	}

	cmd.AddCommand(newVocabDownloadCmd())
	cmd.AddCommand(newVocabInfoCmd())
	return cmd
}

func newVocabInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print vocabulary size and special token ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			v, err := vocab.LoadFile(cfg.Paths.VocabPath)
			if err != nil {
				return mapLoadError(cfg, err)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "path: %s\n", cfg.Paths.VocabPath)
			_, _ = fmt.Fprintf(w, "size: %d\n", v.Size())
			for _, s := range vocab.Specials {
				_, _ = fmt.Fprintf(w, "%s: %d\n", s.Token(), v.SpecialID(s))
			}
			return nil
		},
	}
}
