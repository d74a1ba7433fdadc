package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	bolt "go.etcd.io/bbolt"
)

const articlesBktName = "articles"

// Bolt is a storage that uses BoltDB as a backend.
type Bolt struct {
	db *bolt.DB
}

// NewBolt creates new Bolt storage.
func NewBolt(dir string) (*Bolt, error) {
	db, err := bolt.Open(path.Join(dir, "articles.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make boltdb for %s: %w", dir, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{articlesBktName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create top-level bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("make buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Put puts articles to storage, replacing the ones with the same ID.
func (b *Bolt) Put(_ context.Context, articles ...Article) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))

		for _, a := range articles {
			if a.ID == "" {
				return fmt.Errorf("article %q has no id", a.URL)
			}

			bts, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("marshal article %s: %w", a.ID, err)
			}

			if err := bkt.Put([]byte(a.ID), bts); err != nil {
				return fmt.Errorf("put article %s to storage: %w", a.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

// List returns articles matching the request, newest first.
func (b *Bolt) List(_ context.Context, req ListRequest) ([]Article, error) {
	preds := req.Predicates()

	var result []Article
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))
		err := bkt.ForEach(func(k, v []byte) error {
			var a Article
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("unmarshal article %s: %w", k, err)
			}
			if matchAll(a, preds) {
				result = append(result, a)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("foreach: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("view storage: %w", err)
	}

	sortNewest(result)

	if req.Limit > 0 && len(result) > req.Limit {
		result = result[:req.Limit]
	}

	return result, nil
}

// Get returns article from storage.
func (b *Bolt) Get(_ context.Context, id string) (a Article, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))

		bts := bkt.Get([]byte(id))
		if bts == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(bts, &a); err != nil {
			return fmt.Errorf("unmarshal article: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Article{}, ErrNotFound
		}
		return Article{}, fmt.Errorf("view storage: %w", err)
	}

	return a, nil
}

// Delete removes article from storage.
func (b *Bolt) Delete(_ context.Context, id string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(articlesBktName))

		if err := bkt.Delete([]byte(id)); err != nil {
			return fmt.Errorf("remove: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

// Close closes the storage.
func (b *Bolt) Close() error { return b.db.Close() }
