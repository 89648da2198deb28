// Package storage persists the visitor's collections. A collection is an
// ordered JSON array kept under a fixed key and rewritten in full on every
// append, the same shape a browser keeps in localStorage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/ratatouille/recipe"
)

// Collection keys.
const (
	FavouritesKey    = "favourites"
	CustomRecipesKey = "customRecipes"
)

// Collections is the storage port the pages depend on.
//
// Get returns the entries stored under key, or an empty slice when the key is
// absent or its content is not a JSON array. Append reads the collection,
// adds item and writes the whole array back.
type Collections interface {
	Get(ctx context.Context, key string) ([]json.RawMessage, error)
	Append(ctx context.Context, key string, item any) error
}

// decodeArray parses a stored collection body. A nil or empty body is an
// empty collection.
func decodeArray(body []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []json.RawMessage{}, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		// "null" decodes to a nil slice
		entries = []json.RawMessage{}
	}
	return entries, nil
}

// appendEntry returns the body that results from appending item to body.
// Corrupt bodies are replaced; the returned bool reports that case.
func appendEntry(body []byte, item any) ([]byte, bool, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, false, fmt.Errorf("encode entry: %w", err)
	}
	entries, err := decodeArray(body)
	corrupt := err != nil
	if corrupt {
		entries = []json.RawMessage{}
	}
	entries = append(entries, raw)
	out, err := json.Marshal(entries)
	if err != nil {
		return nil, corrupt, fmt.Errorf("encode collection: %w", err)
	}
	return out, corrupt, nil
}

// Record is a value that can check its own required fields.
type Record interface {
	Validate() error
}

// Collection is a typed view over one key of a Collections store. Entries
// are validated on the way in and on the way out.
type Collection[T Record] struct {
	store  Collections
	key    string
	logger echo.Logger
}

// NewCollection binds key of store to the record type T.
func NewCollection[T Record](store Collections, key string, logger echo.Logger) *Collection[T] {
	if logger == nil {
		logger = discardLogger()
	}
	return &Collection[T]{store: store, key: key, logger: logger}
}

// Favourites returns the typed favourites collection of store.
func Favourites(store Collections, logger echo.Logger) *Collection[recipe.Favourite] {
	return NewCollection[recipe.Favourite](store, FavouritesKey, logger)
}

// CustomRecipes returns the typed custom recipe collection of store.
func CustomRecipes(store Collections, logger echo.Logger) *Collection[recipe.Custom] {
	return NewCollection[recipe.Custom](store, CustomRecipesKey, logger)
}

// Key returns the storage key of the collection.
func (c *Collection[T]) Key() string { return c.key }

// All decodes every entry. Entries that do not decode into T or fail
// validation are skipped and logged.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}
	out := make([]T, 0, len(raw))
	for i, entry := range raw {
		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			c.logger.Warnf("storage: skipping undecodable %s entry %d: %v", c.key, i, err)
			continue
		}
		if err := v.Validate(); err != nil {
			c.logger.Warnf("storage: skipping invalid %s entry %d: %v", c.key, i, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Append validates item and appends it to the collection.
func (c *Collection[T]) Append(ctx context.Context, item T) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if err := c.store.Append(ctx, c.key, item); err != nil {
		return fmt.Errorf("append %s: %w", c.key, err)
	}
	return nil
}

func discardLogger() echo.Logger {
	l := log.New("storage")
	l.SetOutput(io.Discard)
	return l
}
