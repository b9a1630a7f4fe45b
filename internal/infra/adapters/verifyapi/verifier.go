package verifyapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
	"verify-controller/internal/domain/ports/adapter"
	"verify-controller/internal/infra/httpclient"
)

var _ adapter.VerificationService = (*Verifier)(nil)

type Verifier struct {
	c *httpclient.Client
}

func NewVerifier(c *httpclient.Client) *Verifier { return &Verifier{c: c} }

func (v *Verifier) Upload(ctx context.Context, name string, file io.Reader) (adapter.RemoteList, error) {
	var out listDTO
	err := v.c.SendMultipart(ctx, pathBulkUpload, map[string]string{"name": name}, "file", name, file, &out)
	if err != nil {
		return adapter.RemoteList{}, err
	}
	if out.ID == "" {
		return adapter.RemoteList{}, &domain.RemoteError{StatusCode: http.StatusOK, Message: "upload response carried no list id"}
	}
	return out.toRemote(), nil
}

func (v *Verifier) Start(ctx context.Context, key adapter.JobKey) (model.StatusUpdate, error) {
	var out statusDTO
	body := map[string]string{"jobId": key.RemoteJobRef, "listId": key.ListID}
	if err := v.c.SendJSON(ctx, http.MethodPatch, pathBulkStart, nil, body, &out); err != nil {
		return model.StatusUpdate{}, err
	}
	return out.toUpdate(), nil
}

func (v *Verifier) Status(ctx context.Context, key adapter.JobKey) (model.StatusUpdate, error) {
	var out statusDTO
	if err := v.c.GetJSON(ctx, pathBulkStatus, keyQuery(key), &out); err != nil {
		return model.StatusUpdate{}, err
	}
	return out.toUpdate(), nil
}

func (v *Verifier) Delete(ctx context.Context, key adapter.JobKey) error {
	return v.c.SendJSON(ctx, http.MethodDelete, pathBulk, keyQuery(key), nil, nil)
}

func (v *Verifier) Download(ctx context.Context, key adapter.JobKey, filter model.ReportFilter, w io.Writer) error {
	body := map[string]string{"jobId": key.RemoteJobRef, "filter": string(filter)}
	return v.c.Download(ctx, http.MethodPost, pathBulkDownload, body, w)
}

func (v *Verifier) List(ctx context.Context, q adapter.ListQuery) (adapter.ListPage, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("skip", strconv.Itoa(q.Skip))
	if q.SortOrder != "" {
		params.Set("sort_order", q.SortOrder)
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}

	var out listPageDTO
	if err := v.c.GetJSON(ctx, pathLists, params, &out); err != nil {
		return adapter.ListPage{}, err
	}
	page := adapter.ListPage{
		Items:      make([]adapter.RemoteList, 0, len(out.Items)),
		Page:       out.Pagination.Page,
		Pages:      out.Pagination.Pages,
		TotalCount: out.Pagination.TotalCount,
	}
	for _, it := range out.Items {
		if it.ID == "" {
			continue
		}
		page.Items = append(page.Items, it.toRemote())
	}
	return page, nil
}

func (v *Verifier) VerifySingle(ctx context.Context, email string) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	if err := v.c.SendJSON(ctx, http.MethodPost, pathSingleVerify, nil, map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	if out.Result == "" {
		return "", fmt.Errorf("%w: empty verification result", domain.ErrNotFound)
	}
	return out.Result, nil
}

func keyQuery(key adapter.JobKey) url.Values {
	q := url.Values{}
	q.Set("jobId", key.RemoteJobRef)
	q.Set("listId", key.ListID)
	return q
}
