package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Portfolio stores a generated portfolio for a user. Result holds the raw
// payload returned by the training API and is never inspected, so the
// frontend can render it exactly as it was produced.
type Portfolio struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"-"`
	Name        string          `db:"name" json:"name"`
	Sectors     *types.JSONText `db:"sectors" json:"sectors"`
	Commodities *types.JSONText `db:"commodities" json:"commodities"`
	Result      types.JSONText  `db:"result" json:"result"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

type CreatePortfolioParams struct {
	UserID      int64
	Name        string
	Sectors     *types.JSONText
	Commodities *types.JSONText
	Result      types.JSONText
}
