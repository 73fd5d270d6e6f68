package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/client"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Extraction modes of the extract command.
const (
	modeManual = "manual"
	modeAuto   = "auto"
)

// inputFlags are shared by every command that reads a document.
type inputFlags struct {
	file       string
	text       string
	documentID string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the document from a file (\"-\" for stdin)")
	cmd.Flags().StringVarP(&f.text, "text", "t", "", "document text")
	cmd.Flags().StringVar(&f.documentID, "document-id", "", "document id echoed in results (generated when empty)")
}

// read resolves the document from --text, --file or stdin, in that order.
func (f *inputFlags) read(cmd *cobra.Command) (string, error) {
	if f.text != "" && f.file != "" {
		return "", errors.New(errors.ErrCodeValidation, "--text and --file are mutually exclusive, provide only one")
	}

	text := f.text
	switch {
	case f.text != "":
	case f.file == "" || f.file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read stdin")
		}
		text = string(data)
	default:
		data, err := os.ReadFile(f.file)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read input file").WithDetail(f.file)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.New(errors.ErrCodeValidation, "no document text: use --text, --file or stdin")
	}
	return text, nil
}

// withRunner opens a Runner bounded by the global timeout, runs fn and
// closes the Runner.
func withRunner(cmd *cobra.Command, fn func(ctx context.Context, cliCtx *CLIContext, r Runner) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cliCtx.Options != nil && cliCtx.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Options.Timeout)
		defer cancel()
	}

	r, err := cliCtx.OpenRunner(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			cliCtx.Logger.Warn("runner close failed", logging.Err(cerr))
		}
	}()
	return fn(ctx, cliCtx, r)
}

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	in := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Tag a document with named entities",
		Example: `  medrec predict --text "Bệnh nhân Nguyễn Văn A, 45 tuổi, nhập viện ngày 12/3"
  medrec predict --file note.txt -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd)
			if err != nil {
				return err
			}
			return withRunner(cmd, func(ctx context.Context, cliCtx *CLIContext, r Runner) error {
				resp, err := r.Predict(ctx, &client.TextRequest{Text: text, DocumentID: in.documentID})
				if err != nil {
					return err
				}
				cliCtx.Logger.Debug("predict finished",
					logging.Int("entities", len(resp.Entities)), logging.Int("chunks", resp.Diagnostics.Chunks))
				return PrintResult(cmd, predictView{resp})
			})
		},
	}
	in.register(cmd)
	return cmd
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	in := &inputFlags{}
	var mode, apiKey string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract structured patient records from a document",
		Long: "extract tags a document and assembles patient records.  In manual mode the\n" +
			"whole text describes one patient; in auto mode it is first split into patients.",
		Example: `  medrec extract --file note.txt
  medrec extract --mode auto --file outbreak.txt --api-key $GEMINI_API_KEY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode = strings.ToLower(mode)
			if mode != modeManual && mode != modeAuto {
				return errors.Newf(errors.ErrCodeValidation, "unknown mode %q, expected manual|auto", mode)
			}
			text, err := in.read(cmd)
			if err != nil {
				return err
			}
			return withRunner(cmd, func(ctx context.Context, cliCtx *CLIContext, r Runner) error {
				if mode == modeManual {
					resp, err := r.ExtractManual(ctx, &client.TextRequest{Text: text, DocumentID: in.documentID})
					if err != nil {
						return err
					}
					return PrintResult(cmd, manualView{resp})
				}
				resp, err := r.ExtractAuto(ctx, &client.AutoRequest{Text: text, DocumentID: in.documentID, APIKey: apiKey})
				if err != nil {
					return err
				}
				return PrintResult(cmd, autoView{resp})
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&mode, "mode", "m", modeManual, "extraction mode: manual|auto")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "LLM splitter API key for auto mode (overrides configuration)")
	return cmd
}

// NewSplitCmd creates the split command.
func NewSplitCmd() *cobra.Command {
	in := &inputFlags{}
	var apiKey string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a document into per-patient segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd)
			if err != nil {
				return err
			}
			return withRunner(cmd, func(ctx context.Context, _ *CLIContext, r Runner) error {
				resp, err := r.Split(ctx, &client.AutoRequest{Text: text, DocumentID: in.documentID, APIKey: apiKey})
				if err != nil {
					return err
				}
				return PrintResult(cmd, splitView{resp})
			})
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&apiKey, "api-key", "", "LLM splitter API key (overrides configuration)")
	return cmd
}

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report model, normalizer and splitter availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd, func(ctx context.Context, _ *CLIContext, r Runner) error {
				resp, err := r.Health(ctx)
				if err != nil {
					return err
				}
				return PrintResult(cmd, healthView{resp})
			})
		},
	}
}

// truncateString shortens s to max runes, marking the cut with "...".
func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatOffsets(e client.Entity) string {
	if e.Start < 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%d", e.Start, e.End)
}

//Personal.AI order the ending
