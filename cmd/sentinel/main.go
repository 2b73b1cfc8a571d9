// Sentinel CLI — статус сайта, проверки здоровья и запуск оптимизации
// через HTTP API демона.
//
// Использование:
//
//	sentinel [--api URL] [--output table|json] <command> [flags]
//
// Команды:
//
//	status    Быстрый статус главной страницы
//	health    Последняя проверка здоровья (--run — новая)
//	optimize  Запуск оптимизации
//	runs      История runs (list, get)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Sentinel/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var output string
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "sentinel",
		Short:         "Sentinel CLI — site health monitoring and optimization",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFormat(output)
		},
	}

	defaultAPI := "http://localhost:8080"
	if v := os.Getenv("SENTINEL_API"); v != "" {
		defaultAPI = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPI, "API server URL (env SENTINEL_API)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", cli.FormatTable, "Output format: table or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", cli.DefaultTimeout, "Request timeout")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, timeout) }
	outputFn := func() *cli.Output { return cli.NewOutput(output) }

	rootCmd.AddCommand(
		cli.NewStatusCmd(clientFn, outputFn),
		cli.NewHealthCmd(clientFn, outputFn),
		cli.NewOptimizeCmd(clientFn, outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
