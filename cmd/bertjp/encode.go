package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/example/go-bert-japanese/internal/text"
	"github.com/example/go-bert-japanese/internal/tokenizer"
	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	var (
		input          string
		splitSentences bool
		maxChunkChars  int
		showDecoded    bool
		format         string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode text to BERT input ids and attention mask",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("--format must be 'text' or 'json'")
			}

			raw, err := readInputText(input, os.Stdin)
			if err != nil {
				return err
			}

			tok, err := loadTokenizer(cfg)
			if err != nil {
				return err
			}

			for _, enc := range tok.EncodeBatch(buildSentences(raw, splitSentences, maxChunkChars)) {
				var decoded string
				if showDecoded {
					decoded = tok.Decode(enc.IDs, true)
				}
				if err := writeEncoding(cmd.OutOrStdout(), format, enc, decoded, showDecoded); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to encode (if empty, read from stdin)")
	cmd.Flags().BoolVar(&splitSentences, "split-sentences", false, "Encode each sentence separately")
	cmd.Flags().IntVar(&maxChunkChars, "max-chunk-chars", 0, "Pack sentences into chunks of at most this many characters (0 = one sentence per chunk)")
	cmd.Flags().BoolVar(&showDecoded, "show-decoded", false, "Also print the decoded round trip")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")

	return cmd
}

// readInputText returns flag text when set, otherwise stdin, with line
// endings normalized and surrounding whitespace removed.
func readInputText(flagText string, stdin io.Reader) (string, error) {
	if s, err := text.CleanInput(flagText); err == nil {
		return s, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	s, err := text.CleanInput(string(b))
	if err != nil {
		return "", fmt.Errorf("either provide --text or pipe text on stdin: %w", err)
	}
	return s, nil
}

func buildSentences(input string, split bool, maxChunkChars int) []string {
	if !split {
		return []string{input}
	}
	var chunks []string
	if maxChunkChars > 0 {
		chunks = text.ChunkBySentence(input, maxChunkChars)
	} else {
		chunks = text.SplitSentences(input)
	}
	if len(chunks) == 0 {
		return []string{input}
	}
	return chunks
}

type encodeOutput struct {
	tokenizer.Encoding
	Decoded *string `json:"decoded,omitempty"`
}

func writeEncoding(w io.Writer, format string, enc tokenizer.Encoding, decoded string, showDecoded bool) error {
	if format == "json" {
		out := encodeOutput{Encoding: enc}
		if showDecoded {
			out.Decoded = &decoded
		}
		return json.NewEncoder(w).Encode(out)
	}

	if _, err := fmt.Fprintf(w, "input_ids: %v\nattention_mask: %v\n", enc.IDs, enc.AttentionMask); err != nil {
		return err
	}
	if showDecoded {
		if _, err := fmt.Fprintf(w, "decoded: %s\n", decoded); err != nil {
			return err
		}
	}
	return nil
}
