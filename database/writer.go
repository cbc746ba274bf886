package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
)

// GraphWriterFunctions defines the interface for transactional graph writes.
type GraphWriterFunctions interface {
	WriteBatch(ctx context.Context, entities []*model.Entity, relationships []*model.Relationship) (*model.WriteStats, error)
	Reset(ctx context.Context) error
}

// GraphWriter commits a resolved batch to the store in one transaction:
// either the whole batch lands or none of it does. Nodes are written before
// relationships so the foreign keys always resolve.
//
// Writes go through the same upsert functions the handlers use, so
// concurrent ingestion of the same identity merges instead of failing; the
// unique constraints arbitrate the race.
type GraphWriter struct {
	db     *helper.Database
	nodes  NodesDBHandlerFunctions
	logger *slog.Logger
}

// NewGraphWriter creates a graph writer over an initialized node and
// relationship schema.
func NewGraphWriter(db *helper.Database, force bool) (*GraphWriter, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	nodesHandler, err := NewNodesDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("new nodes handler", err)
	}
	_, err = NewRelationshipsDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("new relationships handler", err)
	}

	db.Logger.Info("Initialized GraphWriter")

	return &GraphWriter{
		db:     db,
		nodes:  nodesHandler,
		logger: db.Logger,
	}, nil
}

// WriteBatch writes all entities and relationships of a resolved batch
// atomically. On any failure the transaction rolls back and the returned
// error matches model.ErrStorageUnavailable.
func (w *GraphWriter) WriteBatch(ctx context.Context, entities []*model.Entity, relationships []*model.Relationship) (*model.WriteStats, error) {
	stats := &model.WriteStats{}

	tx, err := w.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin transaction", err)
	}
	// Rollback is a no-op after commit
	defer func() { _ = tx.Rollback() }()

	for _, entity := range entities {
		row := tx.QueryRowContext(ctx,
			`SELECT * FROM upsert_node($1, $2, $3, $4)`,
			entity.ID,
			entity.PrimaryType,
			pq.Array(entity.ExtraTypes),
			entity.Properties,
		)
		err := row.Scan(
			&entity.ID,
			&entity.PrimaryType,
			pq.Array(&entity.ExtraTypes),
			&entity.Properties,
			&entity.CreatedAt,
			&entity.UpdatedAt,
		)
		if err != nil {
			return nil, storageError("upsert node", err)
		}
		stats.NodesWritten++
	}

	for _, rel := range relationships {
		row := tx.QueryRowContext(ctx,
			`SELECT * FROM upsert_relationship($1, $2, $3, $4)`,
			rel.SourceID,
			rel.TargetID,
			rel.Type,
			rel.Properties,
		)
		err := row.Scan(
			&rel.SourceID,
			&rel.TargetID,
			&rel.Type,
			&rel.Properties,
			&rel.CreatedAt,
		)
		if err != nil {
			return nil, storageError("upsert relationship", err)
		}
		stats.RelsWritten++
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit transaction", err)
	}

	w.logger.Info("Committed graph batch",
		slog.Int("nodes", stats.NodesWritten),
		slog.Int("relationships", stats.RelsWritten),
	)

	return stats, nil
}

// Reset deletes the entire graph. Destructive, not undoable, and loudly
// logged; callers must opt in explicitly.
func (w *GraphWriter) Reset(ctx context.Context) error {
	_, err := w.db.Instance.ExecContext(ctx, `SELECT reset_graph()`)
	if err != nil {
		return storageError("reset graph", err)
	}

	w.logger.Warn("Graph reset: all nodes, relationships and mentions deleted")

	return nil
}

// storageError marks a store failure as recoverable-by-retry, distinct from
// data errors: callers check errors.Is(err, model.ErrStorageUnavailable).
func storageError(context string, err error) error {
	return helper.NewError(context, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err))
}
