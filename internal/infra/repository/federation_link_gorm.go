package repository

import (
	"app/internal/domain/model"
	domainrepo "app/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
)

type federationLinkGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewFederationLinkGormRepository(db *gorm.DB) domainrepo.FederationLinkRepository {
	return &federationLinkGormRepository{db: db}
}

// (provider, provider_user_id) で1件検索します。
func (r *federationLinkGormRepository) FindByProviderUserID(ctx context.Context, provider string, providerUserID string) (*model.FederationLink, error) {
	var link model.FederationLink

	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&link).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &link, nil
}

// リンクを作成します。
// 同じ組が既にあればそのまま返す（コールバックが二重に来ても壊れない）。
func (r *federationLinkGormRepository) Create(ctx context.Context, link *model.FederationLink) error {
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", link.Provider, link.ProviderUserID).
		FirstOrCreate(link).Error; err != nil {
		return err
	}
	return nil
}
