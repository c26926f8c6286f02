package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-ptescore/internal/domain"
	"github.com/ahrav/go-ptescore/internal/orchestrator"
	"github.com/ahrav/go-ptescore/internal/request"
	"github.com/ahrav/go-ptescore/internal/scoring"
)

type scoreOptions struct {
	output    string
	rationale bool
	providers string
	timeoutMs int64
}

func newScoreCommand() *cobra.Command {
	var opts scoreOptions
	cmd := &cobra.Command{
		Use:   "score [request.json | pattern... | -]",
		Short: "Score responses",
		Long: `Score responses described by JSON requests:

  {"section": "WRITING", "questionType": "write_essay",
   "payload": {"text": "..."}, "includeRationale": true}

A single request is read from the named file, or from stdin when the argument
is omitted or "-", and its result is written alone. Several files, or glob
patterns such as "attempts/**/*.json", are scored one by one and reported as
a list; a file that fails to parse is reported with its error and does not
stop the others. Flags override the matching request fields.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != formatJSON && opts.output != formatYAML {
				return fmt.Errorf("unknown output format %q", opts.output)
			}
			rationaleSet := cmd.Flags().Changed("rationale")

			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				return withApp(cmd, func(a *app) error {
					return runScore(cmd.Context(), a.orch, cmd.InOrStdin(), cmd.OutOrStdout(), opts, rationaleSet)
				})
			}

			files, batch, err := expandInputs(args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if !batch {
					f, err := os.Open(files[0])
					if err != nil {
						return fmt.Errorf("opening request: %w", err)
					}
					defer f.Close()
					return runScore(cmd.Context(), a.orch, f, cmd.OutOrStdout(), opts, rationaleSet)
				}
				return runBatch(cmd.Context(), a.orch, files, cmd.OutOrStdout(), opts, rationaleSet)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatJSON, "Output format: json | yaml")
	cmd.Flags().BoolVar(&opts.rationale, "rationale", false, "Ask providers for a rationale")
	cmd.Flags().StringVar(&opts.providers, "providers", "", "Comma-separated provider priority, e.g. openai,gemini")
	cmd.Flags().Int64Var(&opts.timeoutMs, "timeout-ms", 0, "Per-provider timeout in milliseconds")
	return cmd
}

func withApp(cmd *cobra.Command, fn func(*app) error) error {
	a, err := newApp(cmd.Context(), cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// expandInputs resolves args to request files. Arguments holding glob
// metacharacters are matched with doublestar, so "**" crosses directories.
// batch is false only for a single plain path.
func expandInputs(args []string) (files []string, batch bool, err error) {
	seen := make(map[string]struct{})
	for _, arg := range args {
		matches := []string{arg}
		if strings.ContainsAny(arg, "*?[{") {
			batch = true
			matches, err = doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, false, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, false, fmt.Errorf("no files match %q", arg)
			}
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, batch || len(files) > 1, nil
}

// runScore decodes one request, applies flag overrides and writes the
// result. Scoring itself never fails; only a malformed request does.
func runScore(ctx context.Context, scorer scoring.Scorer, r io.Reader, w io.Writer, opts scoreOptions, rationaleSet bool) error {
	res, err := scoreOne(ctx, scorer, r, opts, rationaleSet)
	if err != nil {
		return err
	}
	return writeStructured(w, opts.output, res)
}

func scoreOne(ctx context.Context, scorer scoring.Scorer, r io.Reader, opts scoreOptions, rationaleSet bool) (domain.ScoringResult, error) {
	req, err := request.Read(r)
	if err != nil {
		return domain.ScoringResult{}, err
	}

	if rationaleSet {
		req.IncludeRationale = opts.rationale
	}
	if p := strings.TrimSpace(opts.providers); p != "" {
		req.ProviderPriority = orchestrator.ParsePriority(p)
	}
	if opts.timeoutMs > 0 {
		req.TimeoutMs = opts.timeoutMs
	}

	in, err := req.Input()
	if err != nil {
		return domain.ScoringResult{}, err
	}
	return scorer.Score(ctx, in), nil
}

// batchItem is one entry of a multi-file score run.
type batchItem struct {
	File   string                `json:"file"`
	Result *domain.ScoringResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// batchError reports how many files of a batch could not be scored. The
// results of the others are still written.
type batchError struct{ failed, total int }

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d requests could not be scored", e.failed, e.total)
}

func runBatch(ctx context.Context, scorer scoring.Scorer, files []string, w io.Writer, opts scoreOptions, rationaleSet bool) error {
	items := make([]batchItem, 0, len(files))
	var failed int
	for _, path := range files {
		item := batchItem{File: path}
		res, err := scoreFile(ctx, scorer, path, opts, rationaleSet)
		if err != nil {
			failed++
			item.Error = err.Error()
		} else {
			item.Result = &res
		}
		items = append(items, item)
	}

	if err := writeStructured(w, opts.output, items); err != nil {
		return err
	}
	if failed > 0 {
		return &batchError{failed: failed, total: len(files)}
	}
	return nil
}

func scoreFile(ctx context.Context, scorer scoring.Scorer, path string, opts scoreOptions, rationaleSet bool) (domain.ScoringResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ScoringResult{}, fmt.Errorf("opening request: %w", err)
	}
	defer f.Close()
	return scoreOne(ctx, scorer, f, opts, rationaleSet)
}
