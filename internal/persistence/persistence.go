// Package persistence defines the optional analysis audit store. The core
// engine persists nothing; the serve surface may record each returned
// AnalysisResult for later review.
package persistence

import (
	"context"
	"time"

	"github.com/tradeforge/conviction/internal/domain"
)

// AnalysisRecord is one audited analyze call. ID is assigned by the caller
// (a request UUID); the full result rides along as a JSON document.
type AnalysisRecord struct {
	ID        string                `db:"id" json:"id"`
	Symbol    string                `db:"symbol" json:"symbol"`
	AsOf      time.Time             `db:"as_of" json:"as_of"`
	Signal    domain.Signal         `db:"signal" json:"signal"`
	Score     float64               `db:"score" json:"score"`
	Result    domain.AnalysisResult `db:"-" json:"result"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
}

// AnalysisRepo stores audit records.
type AnalysisRepo interface {
	Insert(ctx context.Context, rec AnalysisRecord) error
	RecentBySymbol(ctx context.Context, symbol string, limit int) ([]AnalysisRecord, error)
}
