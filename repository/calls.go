package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Afefmejri25/crm/models"
	"gorm.io/gorm"
)

// preloadClient embeds only the display fields of the referenced client.
func preloadClient(db *gorm.DB) *gorm.DB {
	return db.Select("id", "company_name", "contact_name")
}

func (r *GORMRepository) CreateCall(ctx context.Context, call *models.Call) error {
	if err := r.db.WithContext(ctx).Omit("Client").Create(call).Error; err != nil {
		slog.Error("Failed to create call", "error", err, "agent_id", call.AgentID, "client_id", call.ClientID)
		return err
	}
	slog.Info("Call created", "call_id", call.ID, "status", call.Status)
	return nil
}

func (r *GORMRepository) GetCall(ctx context.Context, id string) (*models.Call, error) {
	var call models.Call
	err := r.db.WithContext(ctx).
		Preload("Client", preloadClient).
		Where("id = ?", id).
		First(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get call", "error", err, "call_id", id)
		return nil, err
	}
	return &call, nil
}

func (r *GORMRepository) ListCalls(ctx context.Context, filter CallFilter) ([]models.Call, error) {
	calls := []models.Call{}
	query := r.db.WithContext(ctx).Preload("Client", preloadClient).Order("created_at DESC")
	if filter.AgentID != "" {
		query = query.Where("agent_id = ?", filter.AgentID)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if err := query.Find(&calls).Error; err != nil {
		slog.Error("Failed to list calls", "error", err, "agent_id", filter.AgentID, "client_id", filter.ClientID)
		return nil, err
	}
	return calls, nil
}

func (r *GORMRepository) UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error) {
	cols := patch.Columns()
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Call{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			slog.Error("Failed to update call", "error", res.Error, "call_id", id)
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		slog.Info("Call updated", "call_id", id, "fields", len(cols))
	}
	return r.GetCall(ctx, id)
}
