package repository

import (
	"context"
	"errors"

	"ble_gateway/internal/model"
)

// ErrSessionIDExhausted is returned when no unused session id could be drawn.
var ErrSessionIDExhausted = errors.New("repository: could not allocate a unique session id")

type (
	// SessionStore keeps short lived sessions. Lookup returns (nil, nil) for
	// unknown or expired ids.
	SessionStore interface {
		Start(ctx context.Context, account string) (*model.Session, error)
		Lookup(ctx context.Context, sessionID string) (*model.Session, error)
		DestroyAll(ctx context.Context) error
	}

	// ContractStore keeps one record per client account. Get returns (nil, nil)
	// when there is no record; UpdateStatus on a missing record is a no-op.
	ContractStore interface {
		Get(ctx context.Context, account string) (*model.ContractRecord, error)
		Put(ctx context.Context, record *model.ContractRecord) error
		UpdateStatus(ctx context.Context, account string, update model.StatusUpdate) error
		Remove(ctx context.Context, account string) error
		Destroy(ctx context.Context) error
	}
)

// MaxSessionIDAttempts bounds the retry loop on id collisions.
const MaxSessionIDAttempts = 5
