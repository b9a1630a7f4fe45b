package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
)

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJobs(jobs []*model.VerificationJob) error {
	if asJSON {
		return printJSON(jobs)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLIST\tNAME\tSTATUS\tRECORDS\tCREDITS\tUPDATED")
	for _, j := range jobs {
		credits := "-"
		if j.CreditsConsumed != nil {
			credits = fmt.Sprint(*j.CreditsConsumed)
		}
		if j.RequiresCredits {
			credits += " (needs credits)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.ListID, j.Name, j.Status, j.RecordCount, credits, j.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printJob(j *model.VerificationJob) error {
	return printJobs([]*model.VerificationJob{j})
}

// printProviderStatus adds the upstream verifier's own progress line.
func printProviderStatus(j *model.VerificationJob) error {
	if asJSON || j.ProviderStatus == "" {
		return nil
	}
	msg := "List verification status: " + j.ProviderStatus
	if j.ProviderStatus == "completed" {
		msg = "Verification completed"
	}
	_, err := fmt.Fprintln(stdout, msg)
	return err
}

func printBalance(b model.CreditBalance) error {
	if asJSON {
		return printJSON(b)
	}
	pending := ""
	if b.Pending {
		pending = " (update pending)"
	}
	_, err := fmt.Fprintf(stdout, "remaining: %d\nconsumed:  %d\nlists:     %d%s\n", b.Remaining, b.Consumed, b.TotalLists, pending)
	return err
}

// resolveJob accepts either a local job id or a server list id. Local ids do
// not survive a process restart with the memory cache, so a miss triggers a
// refresh from the server before giving up.
func resolveJob(ctx context.Context, a *app, arg string) (string, error) {
	j, err := a.ctl.Job(ctx, arg)
	if err == nil {
		return j.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	jobs, err := a.ctl.RefreshJobs(ctx, model.JobFilter{})
	if err != nil {
		return "", err
	}
	for _, j := range jobs {
		if j.ID == arg || j.ListID == arg {
			return j.ID, nil
		}
	}
	return "", fmt.Errorf("job %q: %w", arg, domain.ErrNotFound)
}
