package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/devink/campusconnect/internal/config"
	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "campusconnect",
		Short:         "CampusConnect signup, login and event feed service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			f, err := logging.InitLogger(config.LogFile())
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			cobra.OnFinalize(func() {
				logging.Sync()
				f.Close()
			})
			return nil
		},
	}
	serve := serveCommand()
	root.AddCommand(serve, citiesCommand(), dkimCheckCommand())
	root.RunE = serve.RunE

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "campusconnect:", err)
		os.Exit(1)
	}
}

// citiesCommand runs one city lookup and prints the result, to check the
// address API credential.
func citiesCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "cities",
		Short: "Fetch the city list once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := directory.NewCityClient(config.DadataURL(), config.DadataAPIKey(),
				directory.WithQuery(config.CityLookupQuery()),
				directory.WithCount(config.CityLookupCount()))
			cities, src := client.Cities(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source: %s (%d cities)\n", src, len(cities))
			for _, c := range cities {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "lookup timeout")
	return cmd
}

// dkimCheckCommand signs a sample message with the configured key and
// verifies it against the selector record published in DNS.
func dkimCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dkim-check",
		Short: "Verify the DKIM key against its DNS selector record",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := newMailer()
			if m == nil {
				return fmt.Errorf("SMTP_ADDR is not set")
			}
			res, err := m.CheckSigning(nil)
			fmt.Fprintf(cmd.OutOrStdout(), "dkim: %s\n", res)
			return err
		},
	}
}
