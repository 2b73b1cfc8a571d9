package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewStatusCmd — быстрый статус главной страницы.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show quick site status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := clientFn().Status()
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"STATUS", "LATENCY", "HTTP", "CHECKED"},
				[][]string{{status.Status, millis(status.LatencyMs), httpCode(status.StatusCode), timestamp(status.CheckedAt)}},
				status,
			)
			return nil
		},
	}
}

// NewHealthCmd — последняя проверка здоровья или новая с --run.
func NewHealthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var run bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the latest health check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			fetch := client.LatestHealth
			if run {
				fetch = client.RunHealthCheck
			}

			health, err := fetch()
			if err != nil {
				return err
			}

			printHealth(out, health)
			return nil
		},
	}

	cmd.Flags().BoolVar(&run, "run", false, "Run a new health check instead of showing the latest")

	return cmd
}

// NewOptimizeCmd — запуск оптимизации.
func NewOptimizeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Run the optimization workflow and wait for the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			run, err := clientFn().RunOptimization()
			if run != nil {
				printRun(out, run)
			}
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run finished: %s (%s)", run.RunID, outcome(run)))
			return nil
		},
	}
}

// NewRunsCmd создаёт группу команд для истории runs.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsGetCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var purpose string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := clientFn().ListRuns(ListRunsOpts{Purpose: purpose, Limit: limit})
			if err != nil {
				return err
			}

			headers := []string{"RUN_ID", "PURPOSE", "OUTCOME", "TASKS", "FAILED", "ALERTS", "DURATION", "STARTED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.RunID,
					r.Purpose,
					r.Outcome,
					strconv.Itoa(r.Summary.TotalTasks),
					strconv.Itoa(r.Summary.Failed),
					strconv.Itoa(r.AlertCount),
					millis(r.DurationMs),
					timestamp(r.StartedAt),
				}
			}

			outputFn().Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&purpose, "purpose", "", "Filter by purpose (optimization, health)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunsGetCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "get RUN_ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}

			printRun(outputFn(), run)
			return nil
		},
	}
}

func printHealth(out *Output, h *HealthResponse) {
	headers := []string{"CHECK", "STATUS", "LATENCY", "MESSAGE"}
	rows := make([][]string, len(h.Checks))
	for i, c := range h.Checks {
		latency := "-"
		if c.LatencyMs != nil {
			latency = millis(*c.LatencyMs)
		}
		rows[i] = []string{c.Name, c.Status, latency, c.Message}
	}

	out.Print(headers, rows, h)
	if !out.JSONMode() {
		out.Success(fmt.Sprintf("Overall: %s (%s)", h.Overall, timestamp(h.Timestamp)))
	}
	out.Lines("Alerts", h.Alerts)
}

func printRun(out *Output, r *RunResponse) {
	headers := []string{"PHASE", "STATUS", "TASKS", "ERRORS", "DURATION"}
	rows := make([][]string, len(r.Phases))
	for i, p := range r.Phases {
		rows[i] = []string{p.Name, p.Status, strconv.Itoa(p.TaskCount), strconv.Itoa(len(p.Errors)), millis(p.DurationMs)}
	}

	out.Print(headers, rows, r)
	if !out.JSONMode() {
		out.Success(fmt.Sprintf("%s: %d tasks, %d ok, %d failed, %d skipped",
			r.RunID, r.Summary.TotalTasks, r.Summary.Successful, r.Summary.Failed, r.Summary.Skipped))
	}
	out.Lines("Alerts", r.Alerts)
}

// outcome повторяет серверную классификацию для полного результата run.
func outcome(r *RunResponse) string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.TimedOut:
		return "timeout"
	}

	result := "success"
	for _, p := range r.Phases {
		switch p.Status {
		case "failed":
			return "failed"
		case "partial", "skipped":
			result = "partial"
		}
	}
	return result
}

func millis(ms int64) string {
	return strconv.FormatInt(ms, 10) + "ms"
}

func httpCode(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
