package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mediamate/mediamate/pkg/domain/errors"
	"github.com/mediamate/mediamate/pkg/domain/workflow"
)

const (
	workflowsBucket    = "workflows"
	systemConfigBucket = "systemconfig"
)

// BoltStore implements WorkflowStore and ConfigStore using BoltDB.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (creating if needed) the BoltDB file at dbPath.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(errors.CodeIoError, "persistence", fmt.Sprintf("failed to create directory %s", dir), err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "persistence", fmt.Sprintf("failed to open database %s", dbPath), err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{workflowsBucket, systemConfigBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.New(errors.CodeIoError, "persistence", "failed to create buckets", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save creates or replaces a workflow.
func (s *BoltStore) Save(w *workflow.Workflow) error {
	if w.ID == "" {
		return errors.New(errors.CodeInvalidParameter, "persistence", "workflow has no id", nil)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(w)
		if err != nil {
			return errors.New(errors.CodeInternalError, "persistence", "failed to marshal workflow", err)
		}
		if err := tx.Bucket([]byte(workflowsBucket)).Put([]byte(w.ID), data); err != nil {
			return errors.New(errors.CodeIoError, "persistence", "failed to store workflow", err)
		}
		return nil
	})
}

// Get retrieves a workflow by id.
func (s *BoltStore) Get(id string) (*workflow.Workflow, error) {
	var w workflow.Workflow
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(workflowsBucket)).Get([]byte(id))
		if data == nil {
			return errors.New(errors.CodeNotFound, "persistence", fmt.Sprintf("workflow %s not found", id), nil)
		}
		return json.Unmarshal(data, &w)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns all workflows.
func (s *BoltStore) List() ([]*workflow.Workflow, error) {
	var workflows []*workflow.Workflow
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(workflowsBucket)).ForEach(func(k, v []byte) error {
			var w workflow.Workflow
			if err := json.Unmarshal(v, &w); err != nil {
				return nil // skip undecodable entries, keep iterating
			}
			workflows = append(workflows, &w)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

// Delete removes a workflow and the dedup cache key it owns.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(workflowsBucket))
		if bucket.Get([]byte(id)) == nil {
			return errors.New(errors.CodeNotFound, "persistence", fmt.Sprintf("workflow %s not found", id), nil)
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return errors.New(errors.CodeIoError, "persistence", "failed to delete workflow", err)
		}
		if err := tx.Bucket([]byte(systemConfigBucket)).Delete([]byte(workflow.CacheKeyFor(id))); err != nil {
			return errors.New(errors.CodeIoError, "persistence", "failed to delete workflow cache", err)
		}
		return nil
	})
}

// GetJSON unmarshals the systemconfig value under key into out.
func (s *BoltStore) GetJSON(key string, out any) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(systemConfigBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	if err != nil {
		return false, errors.New(errors.CodeIoError, "persistence", fmt.Sprintf("failed to read config %s", key), err)
	}
	return found, nil
}

// SetJSON stores v under key in systemconfig.
func (s *BoltStore) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.New(errors.CodeInternalError, "persistence", fmt.Sprintf("failed to marshal config %s", key), err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(systemConfigBucket)).Put([]byte(key), data); err != nil {
			return errors.New(errors.CodeIoError, "persistence", fmt.Sprintf("failed to store config %s", key), err)
		}
		return nil
	})
}

// DeleteKey removes a systemconfig key.
func (s *BoltStore) DeleteKey(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(systemConfigBucket)).Delete([]byte(key)); err != nil {
			return errors.New(errors.CodeIoError, "persistence", fmt.Sprintf("failed to delete config %s", key), err)
		}
		return nil
	})
}
