// Package storage provides the key-value persistence port used by the
// library service together with its drivers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Record keys. Each key holds one JSON array in insertion order.
const (
	KeyUsers        = "users"
	KeyBooks        = "books"
	KeyTransactions = "transactions"
	KeyActivityLogs = "activityLogs"
	KeyCredentials  = "credentials"
)

var ErrNotFound = errors.New("record not found")

// Store is an opaque key-value byte store. Get returns ErrNotFound when the
// key has never been written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Validator is implemented by every record type kept in a Store.
type Validator interface {
	Validate() error
}

// DecodeError reports a stored record that could not be trusted.
// Index is -1 when the whole value failed to parse.
type DecodeError struct {
	Key   string
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("decode %s[%d]: %v", e.Key, e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Load reads the collection stored under key. The boolean is false when the
// key is absent, which is not an error.
func Load[T Validator](ctx context.Context, s Store, key string) ([]T, bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, true, &DecodeError{Key: key, Index: -1, Err: err}
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, true, &DecodeError{Key: key, Index: i, Err: err}
		}
	}
	if items == nil {
		items = []T{}
	}
	return items, true, nil
}

// Save writes the whole collection under key.
func Save[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
