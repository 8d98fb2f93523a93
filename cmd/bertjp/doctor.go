package main

import (
	"errors"
	"fmt"

	"github.com/example/go-bert-japanese/internal/config"
	"github.com/example/go-bert-japanese/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run dictionary and vocabulary checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "decode policy: %s\n", cfg.Tokenizer.DecodePolicy)

			dcfg := doctor.Config{
				DictPath:  cfg.Paths.DictPath,
				VocabPath: cfg.Paths.VocabPath,
			}
			if cfg.Tokenizer.DecodePolicy == config.DecodePolicyReserved {
				dcfg.ReservedBelow = cfg.Tokenizer.ReservedBelow
			}

			result := doctor.Run(dcfg, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}
