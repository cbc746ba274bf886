package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mineral-labs/lodegraph/helper"
	"github.com/mineral-labs/lodegraph/model"
	loadSql "github.com/mineral-labs/lodegraph/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(document *model.Document) error
	SelectDocument(docID string) (*model.Document, error)
	SelectAllDocuments() ([]*model.Document, error)
	DeleteDocument(docID string) (bool, error)
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := loadSql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		log.Panicf("error initializing documents table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts or updates a document registry entry
func (h *DocumentsDBHandler) InsertDocument(document *model.Document) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_document($1, $2, $3, $4)`,
		document.DocID,
		document.Title,
		document.Source,
		document.Metadata,
	)

	err := row.Scan(
		&document.DocID,
		&document.Title,
		&document.Source,
		&document.Metadata,
		&document.CreatedAt,
		&document.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by id
func (h *DocumentsDBHandler) SelectDocument(docID string) (*model.Document, error) {
	document := &model.Document{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1)`,
		docID,
	)

	err := row.Scan(
		&document.DocID,
		&document.Title,
		&document.Source,
		&document.Metadata,
		&document.CreatedAt,
		&document.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return document, nil
}

// SelectAllDocuments retrieves all registered documents
func (h *DocumentsDBHandler) SelectAllDocuments() ([]*model.Document, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_all_documents()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.Document
	for rows.Next() {
		document := &model.Document{}
		err := rows.Scan(
			&document.DocID,
			&document.Title,
			&document.Source,
			&document.Metadata,
			&document.CreatedAt,
			&document.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		documents = append(documents, document)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

// DeleteDocument deletes a document registry entry
func (h *DocumentsDBHandler) DeleteDocument(docID string) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRow(
		`SELECT delete_document($1)`,
		docID,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted, nil
}
