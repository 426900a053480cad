package model

import "time"

// FederationLinkは外部IdPのユーザーIDとローカル会員の対応を持つ。
// (provider, provider_user_id) の組で一意。
type FederationLink struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Provider       string    `json:"provider" gorm:"not null;uniqueIndex:idx_provider_subject"`
	ProviderUserID string    `json:"providerUserId" gorm:"column:provider_user_id;not null;uniqueIndex:idx_provider_subject"`
	UserID         int64     `json:"userId" gorm:"not null;index"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
