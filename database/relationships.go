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

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	UpsertRelationship(rel *model.Relationship) error
	SelectRelationship(sourceID uuid.UUID, targetID uuid.UUID, relType string) (*model.Relationship, error)
	SelectRelationshipsForNodes(nodeIDs []uuid.UUID, relTypes []string) ([]*model.Relationship, error)
	SelectRelationshipsFromNode(sourceID uuid.UUID) ([]*model.Relationship, error)
	CountRelationships() (int64, error)
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// It initializes the database connection and loads relationship-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// UpsertRelationship inserts a relationship. A relationship that already
// exists on (source, target, type) keeps its stored properties.
func (h *RelationshipsDBHandler) UpsertRelationship(rel *model.Relationship) error {
	row := h.db.Instance.QueryRow(
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
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRelationship retrieves a relationship by its composite key
func (h *RelationshipsDBHandler) SelectRelationship(sourceID uuid.UUID, targetID uuid.UUID, relType string) (*model.Relationship, error) {
	rel := &model.Relationship{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_relationship($1, $2, $3)`,
		sourceID,
		targetID,
		relType,
	)

	err := row.Scan(
		&rel.SourceID,
		&rel.TargetID,
		&rel.Type,
		&rel.Properties,
		&rel.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return rel, nil
}

// SelectRelationshipsForNodes retrieves every relationship touching any of
// the given nodes in either direction, filtered to the given types. Rows
// come back in a fixed (source, target, type) order.
func (h *RelationshipsDBHandler) SelectRelationshipsForNodes(nodeIDs []uuid.UUID, relTypes []string) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_for_nodes($1, $2)`,
		pq.Array(nodeIDs),
		pq.Array(relTypes),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var rels []*model.Relationship
	for rows.Next() {
		rel := &model.Relationship{}
		err := rows.Scan(
			&rel.SourceID,
			&rel.TargetID,
			&rel.Type,
			&rel.Properties,
			&rel.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		rels = append(rels, rel)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return rels, nil
}

// SelectRelationshipsFromNode retrieves outgoing relationships of a node
func (h *RelationshipsDBHandler) SelectRelationshipsFromNode(sourceID uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_from_node($1)`,
		sourceID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var rels []*model.Relationship
	for rows.Next() {
		rel := &model.Relationship{}
		err := rows.Scan(
			&rel.SourceID,
			&rel.TargetID,
			&rel.Type,
			&rel.Properties,
			&rel.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		rels = append(rels, rel)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return rels, nil
}

// CountRelationships returns the total number of relationships
func (h *RelationshipsDBHandler) CountRelationships() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_relationships()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
