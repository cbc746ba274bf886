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

// MentionsDBHandlerFunctions defines the interface for Mentions database operations.
type MentionsDBHandlerFunctions interface {
	InsertMention(mention *model.Mention) error
	SelectMentionsByChunks(chunkIDs []uuid.UUID) ([]*model.Mention, error)
	SelectMentionsByEntity(entityID uuid.UUID) ([]*model.Mention, error)
	CountMentions() (int64, error)
}

// MentionsDBHandler handles mention-related database operations
type MentionsDBHandler struct {
	db *helper.Database
}

// NewMentionsDBHandler creates a new mentions database handler.
// It initializes the database connection and loads mention-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewMentionsDBHandler(db *helper.Database, force bool) (*MentionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	mentionsDbHandler := &MentionsDBHandler{
		db: db,
	}

	err := loadSql.LoadMentionsSql(mentionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load mentions sql", err)
	}

	err = mentionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MentionsDBHandler")

	return mentionsDbHandler, nil
}

// CreateTable creates the 'mentions' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *MentionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_mentions();`)
	if err != nil {
		log.Panicf("error initializing mentions table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table mentions")

	return nil
}

// InsertMention inserts a mention. A duplicate on
// (chunk, entity, span_start, span_end) is a no-op and the stored row is
// returned.
func (h *MentionsDBHandler) InsertMention(mention *model.Mention) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_mention($1, $2, $3, $4, $5, $6)`,
		mention.ChunkID,
		mention.EntityID,
		mention.SpanStart,
		mention.SpanEnd,
		mention.Surface,
		mention.Confidence,
	)

	err := row.Scan(
		&mention.ChunkID,
		&mention.EntityID,
		&mention.SpanStart,
		&mention.SpanEnd,
		&mention.Surface,
		&mention.Confidence,
		&mention.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectMentionsByChunks retrieves all mentions of the given chunks, in
// input chunk order with span mentions before the span-less fallback.
func (h *MentionsDBHandler) SelectMentionsByChunks(chunkIDs []uuid.UUID) ([]*model.Mention, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_mentions_by_chunks($1)`,
		pq.Array(chunkIDs),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var mentions []*model.Mention
	for rows.Next() {
		mention := &model.Mention{}
		err := rows.Scan(
			&mention.ChunkID,
			&mention.EntityID,
			&mention.SpanStart,
			&mention.SpanEnd,
			&mention.Surface,
			&mention.Confidence,
			&mention.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		mentions = append(mentions, mention)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return mentions, nil
}

// SelectMentionsByEntity retrieves all mentions of an entity
func (h *MentionsDBHandler) SelectMentionsByEntity(entityID uuid.UUID) ([]*model.Mention, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_mentions_by_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var mentions []*model.Mention
	for rows.Next() {
		mention := &model.Mention{}
		err := rows.Scan(
			&mention.ChunkID,
			&mention.EntityID,
			&mention.SpanStart,
			&mention.SpanEnd,
			&mention.Surface,
			&mention.Confidence,
			&mention.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		mentions = append(mentions, mention)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return mentions, nil
}

// CountMentions returns the total number of mentions
func (h *MentionsDBHandler) CountMentions() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_mentions()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
