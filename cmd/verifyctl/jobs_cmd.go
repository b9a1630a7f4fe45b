package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
)

var (
	uploadName    string
	jobsStatus    string
	jobsCached    bool
	startWait     bool
	waitInterval  time.Duration
	reportFilter  string
	reportFormat  string
	reportOutFile string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a record batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var jobsCmd = &cobra.Command{
	Use:     "jobs",
	Aliases: []string{"ls"},
	Short:   "List verification jobs",
	Long: `Lists jobs after refreshing them from the server. With --cached only the
local view is printed and nothing is fetched.`,
	Args: cobra.NoArgs,
	RunE: runJobs,
}

var startCmd = &cobra.Command{
	Use:   "start <job-or-list-id>",
	Short: "Start verification of an uploaded batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status <job-or-list-id>",
	Short: "Check the server for a job's current status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJob(cmd, args[0], func(a *app, id string) error {
			j, err := a.ctl.CheckStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := printJob(j); err != nil {
				return err
			}
			return printProviderStatus(j)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <job-or-list-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a job and its server records",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJob(cmd, args[0], func(a *app, id string) error {
			return a.ctl.Delete(cmd.Context(), id)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <job-or-list-id>",
	Short: "Download the verification report of a verified job",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "display name (defaults to the file name)")

	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "only show jobs in this status")
	jobsCmd.Flags().BoolVar(&jobsCached, "cached", false, "do not refresh from the server")

	startCmd.Flags().BoolVar(&startWait, "wait", false, "poll until the run settles")
	startCmd.Flags().DurationVar(&waitInterval, "interval", 10*time.Second, "poll interval with --wait")

	reportCmd.Flags().StringVar(&reportFilter, "filter", "all", "all|deliverable|undeliverable")
	reportCmd.Flags().StringVar(&reportFormat, "format", "csv", "csv|xlsx")
	reportCmd.Flags().StringVarP(&reportOutFile, "output", "o", "", "output file (default <job>-<filter>.<format>, - for stdout)")

	rootCmd.AddCommand(uploadCmd, jobsCmd, startCmd, statusCmd, deleteCmd, reportCmd)
}

func withJob(cmd *cobra.Command, arg string, fn func(a *app, id string) error) error {
	return withApp(cmd.Context(), func(a *app) error {
		id, err := resolveJob(cmd.Context(), a, arg)
		if err != nil {
			return err
		}
		return fn(a, id)
	})
}

func runUpload(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	name := uploadName
	if name == "" {
		name = filepath.Base(args[0])
	}
	return withApp(cmd.Context(), func(a *app) error {
		j, err := a.ctl.Upload(cmd.Context(), name, f)
		if err != nil {
			return err
		}
		return printJob(j)
	})
}

func runJobs(cmd *cobra.Command, _ []string) error {
	var filter model.JobFilter
	if jobsStatus != "" {
		st, err := model.ParseJobStatus(jobsStatus)
		if err != nil {
			return err
		}
		filter.Status = st
	}
	return withApp(cmd.Context(), func(a *app) error {
		var (
			jobs []*model.VerificationJob
			err  error
		)
		if jobsCached {
			jobs, err = a.ctl.ListJobs(cmd.Context(), filter)
		} else {
			jobs, err = a.ctl.RefreshJobs(cmd.Context(), filter)
		}
		if err != nil {
			return err
		}
		return printJobs(jobs)
	})
}

func runStart(cmd *cobra.Command, args []string) error {
	return withJob(cmd, args[0], func(a *app, id string) error {
		j, err := a.ctl.StartVerification(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !startWait {
			return printJob(j)
		}
		j, err = waitSettled(cmd.Context(), a.ctl, a.log, id, waitInterval)
		if err != nil {
			return err
		}
		return printJob(j)
	})
}

type statusChecker interface {
	CheckStatus(ctx context.Context, jobID string) (*model.VerificationJob, error)
}

// waitSettled polls until the job leaves the active statuses. Only a check
// that lost the race for the job guard is retried; any other error ends the
// wait as is.
func waitSettled(ctx context.Context, sc statusChecker, log *zerolog.Logger, id string, every time.Duration) (*model.VerificationJob, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		j, err := sc.CheckStatus(ctx, id)
		if errors.Is(err, domain.ErrOperationInProgress) {
			log.Debug().Str("job_id", id).Msg("another operation holds the job; next tick")
			continue
		}
		if err != nil {
			return nil, err
		}
		if !j.Status.Active() {
			return j, nil
		}
		log.Info().Str("job_id", id).Str("status", string(j.Status)).Msg("still running")
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	filter, err := model.ParseReportFilter(reportFilter)
	if err != nil {
		return err
	}
	format, err := model.ParseReportFormat(reportFormat)
	if err != nil {
		return err
	}
	return withJob(cmd, args[0], func(a *app, id string) error {
		var w io.Writer = stdout
		path := reportOutFile
		if path == "" {
			path = fmt.Sprintf("%s-%s.%s", args[0], filter, format)
		}
		if path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := a.ctl.Report(cmd.Context(), id, filter, format, w); err != nil {
			if path != "-" {
				_ = os.Remove(path)
			}
			return err
		}
		if path != "-" {
			fmt.Fprintln(os.Stderr, "wrote", path)
		}
		return nil
	})
}
