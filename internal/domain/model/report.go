package model

import (
	"fmt"
	"strings"

	"verify-controller/internal/domain"
)

type ReportFilter string

const (
	ReportAll           ReportFilter = "all"
	ReportDeliverable   ReportFilter = "deliverable"
	ReportUndeliverable ReportFilter = "undeliverable"
)

func ParseReportFilter(s string) (ReportFilter, error) {
	switch f := ReportFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case ReportAll, ReportDeliverable, ReportUndeliverable:
		return f, nil
	case "":
		return ReportAll, nil
	default:
		return "", fmt.Errorf("%w: unknown report filter %q", domain.ErrInvalidArgument, s)
	}
}

type ReportFormat string

const (
	ReportCSV  ReportFormat = "csv"
	ReportXLSX ReportFormat = "xlsx"
)

func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ReportCSV, ReportXLSX:
		return f, nil
	case "":
		return ReportCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q", domain.ErrInvalidArgument, s)
	}
}
