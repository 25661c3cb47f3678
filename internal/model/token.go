package model

import (
	"time"
)

// AuthToken is the single live bearer token for a user. The plaintext token
// is stored alongside its hash because login reuses the existing token
// instead of minting a new one; lookups always go through TokenHash.
type AuthToken struct {
	ID        int64     `db:"id" json:"-"`
	UserID    int64     `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	TokenHash string    `db:"token_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

type CreateTokenParams struct {
	UserID    int64
	Token     string
	TokenHash string
}
