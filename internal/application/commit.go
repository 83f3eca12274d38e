package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// Committer записывает новые позиции в инвентарь.
type Committer struct {
	store       port.InventoryStore
	concurrency int
	logger      *slog.Logger
}

// NewCommitter создаёт записывающий этап.
func NewCommitter(store port.InventoryStore, concurrency int, logger *slog.Logger) *Committer {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{store: store, concurrency: concurrency, logger: logger}
}

// Commit вставляет по записи на каждую метку. Вставки независимы:
// ошибка одной не останавливает и не откатывает остальные.
func (c *Committer) Commit(ctx context.Context, labels entity.LabelSet) *entity.CommitResult {
	ids := make([]string, len(labels))
	errs := make([]error, len(labels))

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, label := range labels {
		i, label := i, label
		g.Go(func() error {
			ids[i], errs[i] = c.store.Insert(ctx, entity.NewIngredientFields(label))
			// Ошибку не отдаём в errgroup, иначе она станет общей для пакета
			return nil
		})
	}
	_ = g.Wait()

	res := &entity.CommitResult{
		Succeeded: make(entity.LabelSet, 0, len(labels)),
		Failed:    make(map[string]entity.ErrorKind),
		IDs:       make(map[string]string, len(labels)),
	}
	for i, label := range labels {
		if errs[i] != nil {
			c.logger.Warn("insert failed", "label", label, "error", errs[i])
			res.Failed[label] = entity.KindInsertFailed
			continue
		}
		res.Succeeded = append(res.Succeeded, label)
		res.IDs[label] = ids[i]
	}

	c.logger.Info("commit finished", "succeeded", len(res.Succeeded), "failed", len(res.Failed))
	return res
}
