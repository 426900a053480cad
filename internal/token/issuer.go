package token

import (
	"time"

	"app/internal/domain/model"
)

// Issuerはaccess/refreshのトークンを発行する。
// TTLはconfig由来（access < refreshはconfig側で検証済みの前提）。
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(codec *Codec, accessTTL time.Duration, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessはroleを埋め込んだaccess tokenを発行する。
// 認可判定はトークンのroleを読む（リクエストごとのDB参照を避ける）。
func (i *Issuer) IssueAccess(userID int64, role model.Role) (string, error) {
	return i.codec.Issue(Claims{
		UserID: userID,
		Role:   string(role),
		Kind:   KindAccess,
	}, i.accessTTL)
}

// IssueRefreshはroleを載せないrefresh tokenを発行する。
// refresh時に最新roleをDBから読み直すので、古いroleが次のaccess tokenに漏れない。
func (i *Issuer) IssueRefresh(userID int64) (string, error) {
	return i.codec.Issue(Claims{
		UserID: userID,
		Kind:   KindRefresh,
	}, i.refreshTTL)
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}
