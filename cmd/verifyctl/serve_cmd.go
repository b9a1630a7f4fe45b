package main

import (
	"github.com/spf13/cobra"

	"verify-controller/internal/domain/model"
	"verify-controller/internal/infra/api"
	"verify-controller/internal/infra/metrics"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API and background reconciliation",
	Long: `Serves the controller over a local JSON API (see /v1) and keeps job
statuses fresh: started jobs are re-checked after the settle delay, and all
active jobs are polled every reconcile.poll_interval when it is non-zero.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		metrics.MustRegister()

		cfg := a.cfg.Server
		if servePort > 0 {
			cfg.Port = servePort
		}

		a.rec.Start(ctx)
		// Pick up whatever the server already knows before accepting requests.
		if st, _ := a.ctl.Status(ctx); st.Credentialed {
			if _, err := a.ctl.RefreshJobs(ctx, model.JobFilter{}); err != nil {
				a.log.Warn().Err(err).Msg("initial refresh failed")
			}
		}

		a.log.Info().
			Int("port", cfg.Port).
			Str("api", a.cfg.API.BaseURL).
			Bool("auth", cfg.APIKey != "").
			Msg("verifyctl serving")
		err := api.NewServer(a.ctl, cfg, a.log).Run(ctx)
		a.log.Info().Msg("shutting down")
		return err
	})
}
