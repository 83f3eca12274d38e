package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// DefaultLookupConcurrency задаёт число одновременных запросов к хранилищу.
const DefaultLookupConcurrency = 8

// Partition делит метки на новые и уже имеющиеся в инвентаре.
type Partition struct {
	New      entity.LabelSet
	Existing entity.LabelSet
}

// Reconciler сверяет найденные метки с инвентарём.
type Reconciler struct {
	store       port.InventoryStore
	concurrency int
	logger      *slog.Logger
}

// NewReconciler создаёт сверщика. concurrency <= 0 означает значение по умолчанию.
func NewReconciler(store port.InventoryStore, concurrency int, logger *slog.Logger) *Reconciler {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, concurrency: concurrency, logger: logger}
}

// Reconcile запрашивает хранилище по каждой метке параллельно.
// Ошибка любого запроса отменяет остальные и возвращается как *entity.StoreError:
// неполное разбиение наружу не отдаётся.
func (r *Reconciler) Reconcile(ctx context.Context, labels entity.LabelSet) (*Partition, error) {
	found := make([]bool, len(labels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, label := range labels {
		i, label := i, label
		g.Go(func() error {
			recs, err := r.store.Query(gctx, entity.FieldName, entity.NormalizeLabel(label))
			if err != nil {
				return &entity.StoreError{Kind: entity.KindQueryFailed, Label: label, Err: err}
			}
			found[i] = len(recs) > 0
			r.logger.Debug("inventory lookup", "label", label, "matches", len(recs))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &Partition{
		New:      make(entity.LabelSet, 0, len(labels)),
		Existing: make(entity.LabelSet, 0, len(labels)),
	}
	for i, label := range labels {
		if found[i] {
			p.Existing = append(p.Existing, label)
		} else {
			p.New = append(p.New, label)
		}
	}
	return p, nil
}
