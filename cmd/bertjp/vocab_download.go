package main

import (
	"fmt"

	"github.com/example/go-bert-japanese/internal/hub"
	"github.com/spf13/cobra"
)

func newVocabDownloadCmd() *cobra.Command {
	var (
		revision string
		sha256   string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "download [org/name]",
		Short: "Download vocab.txt for a Hugging Face repository",
		Long: `Download vocab.txt for a Hugging Face repository into
<hub-out-dir>/<org>/<name>/vocab.txt. An existing file is reused unless its
checksum disagrees with --sha256 or the recorded lock manifest.

Without --vocab-path, the other commands load the file downloaded for
--hub-repo, so download and encode agree on the path by default.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			repo := cfg.Hub.Repo
			if len(args) == 1 {
				repo = args[0]
			}

			path, err := hub.DownloadVocab(cmd.Context(), hub.DownloadOptions{
				Repo:     repo,
				Revision: revision,
				OutDir:   cfg.Hub.OutDir,
				HFToken:  cfg.Hub.Token,
				BaseURL:  cfg.Hub.BaseURL,
				SHA256:   sha256,
				Force:    force,
				Stdout:   cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("vocab download failed: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&revision, "revision", hub.DefaultRevision, "Repository revision (branch, tag or commit)")
	cmd.Flags().StringVar(&sha256, "sha256", "", "Expected sha256 of vocab.txt")
	cmd.Flags().BoolVar(&force, "force", false, "Download even when a local copy exists")

	return cmd
}
