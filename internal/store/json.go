package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// ErrMalformed indicates a stored value could not be decoded.
type ErrMalformed struct {
	Key string
	Err error
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("malformed value at %s: %v", e.Key, e.Err)
}

func (e *ErrMalformed) Unwrap() error { return e.Err }

// GetJSON decodes the value at key into v. A missing key returns ErrNotFound
// and an undecodable value returns *ErrMalformed.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ErrMalformed{Key: key, Err: err}
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
