package actions

import (
	"github.com/rs/zerolog"

	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

// CacheKV is the slice of the systemconfig store the dedup cache needs.
type CacheKV interface {
	GetJSON(key string, out any) (bool, error)
	SetJSON(key string, v any) error
}

// Cache is the per-workflow dedup fingerprint store. Each workflow owns one
// systemconfig entry mapping action id to the fingerprints already processed;
// an action checks before a side effect and saves after it succeeds, making
// item-level effects at-most-once across runs.
type Cache struct {
	kv     CacheKV
	logger zerolog.Logger
}

// NewCache creates a dedup cache over the systemconfig store.
func NewCache(kv CacheKV, logger zerolog.Logger) *Cache {
	return &Cache{kv: kv, logger: logger.With().Str("component", "dedup_cache").Logger()}
}

// Check reports whether the fingerprint was already saved for the action.
// Read failures are logged and reported as a miss so the action retries the
// side effect rather than silently dropping the item.
func (c *Cache) Check(workflowID, actionID, fingerprint string) bool {
	entries := make(map[string][]string)
	found, err := c.kv.GetJSON(workflow.CacheKeyFor(workflowID), &entries)
	if err != nil {
		c.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("dedup cache read failed")
		return false
	}
	if !found {
		return false
	}
	for _, existing := range entries[actionID] {
		if existing == fingerprint {
			return true
		}
	}
	return false
}

// Save appends fingerprints to the action's entry. Adding is monotonic;
// already-present fingerprints are not duplicated.
func (c *Cache) Save(workflowID, actionID string, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	key := workflow.CacheKeyFor(workflowID)
	entries := make(map[string][]string)
	if _, err := c.kv.GetJSON(key, &entries); err != nil {
		return err
	}
	existing := entries[actionID]
	seen := make(map[string]bool, len(existing))
	for _, fp := range existing {
		seen[fp] = true
	}
	for _, fp := range fingerprints {
		if !seen[fp] {
			existing = append(existing, fp)
			seen[fp] = true
		}
	}
	entries[actionID] = existing
	return c.kv.SetJSON(key, entries)
}

// Clear drops every fingerprint the workflow has accumulated.
func (c *Cache) Clear(workflowID string) error {
	return c.kv.SetJSON(workflow.CacheKeyFor(workflowID), map[string][]string{})
}
