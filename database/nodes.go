package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
	loadSql "github.com/mineral-labs/lodegraph/sql"
)

// NodesDBHandlerFunctions defines the interface for Nodes database operations.
type NodesDBHandlerFunctions interface {
	UpsertNode(entity *model.Entity) error
	SelectNode(id uuid.UUID) (*model.Entity, error)
	SelectNodesByIDs(ids []uuid.UUID) ([]*model.Entity, error)
	SelectNodesByType(nodeType string, limit int) ([]*model.Entity, error)
	CountNodes() (int64, error)
	ResetGraph() error
}

// NodesDBHandler handles node-related database operations
type NodesDBHandler struct {
	db *helper.Database
}

// NewNodesDBHandler creates a new nodes database handler.
// It initializes the database connection and loads node-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewNodesDBHandler(db *helper.Database, force bool) (*NodesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	nodesDbHandler := &NodesDBHandler{
		db: db,
	}

	err := loadSql.LoadNodesSql(nodesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load nodes sql", err)
	}

	err = nodesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized NodesDBHandler")

	return nodesDbHandler, nil
}

// CreateTable creates the 'nodes' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *NodesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_nodes();`)
	if err != nil {
		log.Panicf("error initializing nodes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table nodes")

	return nil
}

// UpsertNode inserts a node or merges it into the existing row with the
// same id. Incoming property keys win; type labels accumulate.
func (h *NodesDBHandler) UpsertNode(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
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
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectNode retrieves a node by canonical id
func (h *NodesDBHandler) SelectNode(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_node($1)`,
		id,
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
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectNodesByIDs retrieves nodes by canonical ids, in input order.
// Missing ids are silently absent from the result.
func (h *NodesDBHandler) SelectNodesByIDs(ids []uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_nodes_by_ids($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.PrimaryType,
			pq.Array(&entity.ExtraTypes),
			&entity.Properties,
			&entity.CreatedAt,
			&entity.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectNodesByType retrieves nodes carrying the given type as primary or
// extra label
func (h *NodesDBHandler) SelectNodesByType(nodeType string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_nodes_by_type($1, $2)`,
		nodeType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.PrimaryType,
			pq.Array(&entity.ExtraTypes),
			&entity.Properties,
			&entity.CreatedAt,
			&entity.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// CountNodes returns the total number of nodes
func (h *NodesDBHandler) CountNodes() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_nodes()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// ResetGraph deletes every node, relationship and mention. Destructive and
// not undoable; callers gate it behind an explicit opt-in.
func (h *NodesDBHandler) ResetGraph() error {
	_, err := h.db.Instance.Exec(`SELECT reset_graph()`)
	if err != nil {
		return helper.NewError("exec", err)
	}

	h.db.Logger.Warn("Graph reset: all nodes, relationships and mentions deleted")

	return nil
}
