package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Afefmejri25/crm/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateClient(ctx context.Context, client *models.Client) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		slog.Error("Failed to create client", "error", err, "created_by", client.CreatedBy)
		return err
	}
	slog.Info("Client created", "client_id", client.ID, "company_name", client.CompanyName)
	return nil
}

func (r *GORMRepository) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get client", "error", err, "client_id", id)
		return nil, err
	}
	return &client, nil
}

func (r *GORMRepository) ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error) {
	clients := []models.Client{}
	query := r.db.WithContext(ctx).Order("company_name ASC")
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	if err := query.Find(&clients).Error; err != nil {
		slog.Error("Failed to list clients", "error", err, "created_by", filter.CreatedBy)
		return nil, err
	}
	return clients, nil
}

// UpdateClient applies the patch and returns the stored row. An empty patch is a read.
func (r *GORMRepository) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	cols := patch.Columns()
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			slog.Error("Failed to update client", "error", res.Error, "client_id", id)
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		slog.Info("Client updated", "client_id", id, "fields", len(cols))
	}
	return r.GetClient(ctx, id)
}
