package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Afefmejri25/crm/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		slog.Error("Failed to create document", "error", err, "shared_by", doc.SharedBy)
		return err
	}
	slog.Info("Document created", "document_id", doc.ID, "file_path", doc.FilePath)
	return nil
}

func (r *GORMRepository) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get document", "error", err, "document_id", id)
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns documents newest first. A non-empty query matches title or
// description case-insensitively.
func (r *GORMRepository) ListDocuments(ctx context.Context, query string) ([]models.Document, error) {
	docs := []models.Document{}
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if err := q.Find(&docs).Error; err != nil {
		slog.Error("Failed to list documents", "error", err, "query", query)
		return nil, err
	}
	return docs, nil
}

func (r *GORMRepository) DeleteDocument(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{}).Error; err != nil {
		slog.Error("Failed to delete document", "error", err, "document_id", id)
		return err
	}
	slog.Info("Document deleted", "document_id", id)
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
