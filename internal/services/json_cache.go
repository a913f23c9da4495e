package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// jsonCache stores JSON values in the snapshot store outside the snapshot
// kinds, for short-lived provider data such as weather.
type jsonCache struct {
	store     snapshot.Store
	namespace string
}

func newJSONCache(store snapshot.Store, namespace string) *jsonCache {
	return &jsonCache{store: store, namespace: namespace}
}

func (c *jsonCache) key(k string) string {
	return c.namespace + "/" + k
}

func (c *jsonCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.store.Set(ctx, c.key(key), data)
}

// Get reports found=false for a miss and for an entry that no longer decodes.
func (c *jsonCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, found, err := c.store.Get(ctx, c.key(key))
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, nil
	}
	return true, nil
}
