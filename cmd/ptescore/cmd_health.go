package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ptescore/internal/provider"
)

// unhealthyError reports that at least one probed provider failed.
type unhealthyError struct{ failed, total int }

func (e *unhealthyError) Error() string {
	return fmt.Sprintf("%d of %d providers unhealthy", e.failed, e.total)
}

func newHealthCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "health [provider...]",
		Short: "Probe AI providers",
		Long: `Probe every configured provider, or only those named, with a tiny
request. Exits with status 2 when any probe fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			statuses := a.orch.Health(cmd.Context(), args...)
			if err := writeHealth(cmd.OutOrStdout(), output, statuses); err != nil {
				return err
			}
			return healthError(statuses)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format: text | json | yaml")
	return cmd
}

func writeHealth(w io.Writer, format string, statuses []provider.HealthStatus) error {
	if format != formatText {
		return writeStructured(w, format, statuses)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSTATUS\tMODEL\tLATENCY\tERROR")
	for _, s := range statuses {
		status := "ok"
		if !s.OK {
			status = "fail"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n", s.Provider, status, s.Model, s.LatencyMs, s.Error)
	}
	return tw.Flush()
}

func healthError(statuses []provider.HealthStatus) error {
	var failed int
	for _, s := range statuses {
		if !s.OK {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return &unhealthyError{failed: failed, total: len(statuses)}
}
