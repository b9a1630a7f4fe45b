//go:build !integration

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"verify-controller/internal/domain"
	"verify-controller/internal/domain/model"
)

func TestJobCache(t *testing.T) {
	ctx := context.Background()
	c := NewJobCache()
	now := time.Now()

	older := &model.VerificationJob{ID: "01A", ListID: "L1", Name: "a", Status: model.JobStatusUnverified, CreatedAt: now.Add(-time.Hour)}
	newer := &model.VerificationJob{ID: "01B", ListID: "L2", Name: "b", Status: model.JobStatusVerified, CreatedAt: now}
	_ = c.Put(ctx, older)
	_ = c.Put(ctx, newer)

	t.Run("returns copies that callers cannot mutate", func(t *testing.T) {
		got, err := c.Get(ctx, "01A")
		if err != nil {
			t.Fatal(err)
		}
		got.Status = model.JobStatusVerified
		again, _ := c.Get(ctx, "01A")
		if again.Status != model.JobStatusUnverified {
			t.Errorf("cached record mutated through a returned copy")
		}
	})

	t.Run("finds by list id", func(t *testing.T) {
		got, err := c.FindByListID(ctx, "L2")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(newer, got); diff != "" {
			t.Errorf("unexpected record (-want +got):\n%s", diff)
		}
	})

	t.Run("lists newest first", func(t *testing.T) {
		all, _ := c.List(ctx)
		if len(all) != 2 || all[0].ID != "01B" || all[1].ID != "01A" {
			t.Errorf("unexpected order: %v", all)
		}
	})

	t.Run("delete drops the list index", func(t *testing.T) {
		_ = c.Delete(ctx, "01A")
		if _, err := c.Get(ctx, "01A"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := c.FindByListID(ctx, "L1"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound by list id, got %v", err)
		}
	})
}
