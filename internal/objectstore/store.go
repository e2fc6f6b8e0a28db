package objectstore

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("object not found")

// Store is the ETL's view of the bucket: whole-object writes and reads by key.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}
