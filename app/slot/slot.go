// Package slot provides durable key-value locations that hold one opaque blob per key.
package slot

import (
	"context"
	"errors"
)

// ErrEmpty is returned by Get when nothing has been stored under the key.
var ErrEmpty = errors.New("slot is empty")

// Slot is a durable key-value location. Set overwrites the whole value.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close(ctx context.Context) error
}
