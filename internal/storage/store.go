package storage

import "context"

// Store is the process-wide key-value store. Each slot holds one opaque payload.
type Store interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, slot string, payload []byte) error
	Get(ctx context.Context, slot string) ([]byte, bool, error)
	Delete(ctx context.Context, slot string) error
}
