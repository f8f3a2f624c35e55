// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory provides an in-memory implementation of persistence.Store.
//
// This implementation is designed for testing and single-process deployments
// where data persistence is not required between restarts. Documents live in
// nested Go maps (database → collection → ordered document slice), with deep
// copies ensuring data isolation between operations.
//
// # Thread Safety
//
// Store uses a sync.RWMutex: read operations (FindOne, Find) acquire read
// locks, write operations (InsertMany, UpdateOne, DeleteOne) acquire
// exclusive write locks.
//
// # Collection Auto-Registration
//
// Databases and collections are created implicitly on first write. Read
// operations against unknown collections behave as empty collections.
//
// # Single-Node Assumption
//
// Single-process, single-node only. For multi-process deployments, wire a
// real remote store client behind persistence.Store instead.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
)

// validateContext checks if the provided context is nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	return nil
}

// Store is a thread-safe in-memory document store implementing
// persistence.Store across multiple named databases.
//
// Documents are kept in insertion order per collection so Find results are
// deterministic. Every document entering or leaving the store is deep-copied
// so callers can never alias internal state.
type Store struct {
	mu        sync.RWMutex
	databases map[string]map[string][]persistence.Document
}

// NewStore creates a new empty in-memory document store.
//
// The returned store is ready for use; databases and collections are created
// on first write.
func NewStore() *Store {
	return &Store{
		databases: make(map[string]map[string][]persistence.Document),
	}
}

// FindOne returns the first document matching condition, or
// persistence.ErrNotFound when nothing matches.
func (s *Store) FindOne(ctx context.Context, db, collection string, condition persistence.Document, fields []string) (persistence.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collection(db, collection) {
		if persistence.MatchesCondition(doc, condition) {
			return persistence.ProjectFields(copyDocument(doc), fields), nil
		}
	}

	return nil, persistence.ErrNotFound
}

// Find returns all documents matching condition. An empty result is returned
// as an empty slice, not an error.
func (s *Store) Find(ctx context.Context, db, collection string, condition persistence.Document, fields []string) ([]persistence.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]persistence.Document, 0)

	for _, doc := range s.collection(db, collection) {
		if persistence.MatchesCondition(doc, condition) {
			results = append(results, persistence.ProjectFields(copyDocument(doc), fields))
		}
	}

	return results, nil
}

// InsertMany inserts docs in order, assigning a fresh ObjectID under "_id"
// to documents that carry no identity. An empty batch is a no-op success.
// Inserting a document whose id already exists in the collection returns
// persistence.ErrConflict.
func (s *Store) InsertMany(ctx context.Context, db, collection string, docs []persistence.Document) (*persistence.InsertResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	result := &persistence.InsertResult{InsertedIDs: make([]interface{}, 0, len(docs))}

	if len(docs) == 0 {
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.ensureCollection(db, collection)

	for _, doc := range docs {
		stored := copyDocument(doc)

		id, hasID := persistence.GetID(stored, true)
		if !hasID {
			assigned := persistence.NewObjectID()
			stored["_id"] = assigned
			id = assigned
		}

		if s.indexByID(coll, persistence.IDToString(id)) >= 0 {
			return nil, persistence.ErrConflict
		}

		coll = append(coll, stored)
		result.InsertedIDs = append(result.InsertedIDs, id)
	}

	s.databases[db][collection] = coll

	return result, nil
}

// UpdateOne applies a field-level set of doc's non-id fields to the first
// document matching condition. With upsert true a missing document is
// created from doc plus the condition's equality fields, and the assigned id
// is reported via UpdateResult.UpsertedID.
func (s *Store) UpdateOne(ctx context.Context, db, collection string, condition, doc persistence.Document, upsert bool) (*persistence.UpdateResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.ensureCollection(db, collection)

	for _, stored := range coll {
		if !persistence.MatchesCondition(stored, condition) {
			continue
		}

		// Field-level set: the id field is never replaced.
		for k, v := range persistence.RemoveID(doc) {
			stored[k] = copyValue(v)
		}

		return &persistence.UpdateResult{Matched: 1}, nil
	}

	if !upsert {
		return &persistence.UpdateResult{Matched: 0}, nil
	}

	created := copyDocument(doc)

	// Mongo upsert semantics: equality fields of the condition seed the new
	// document unless the update already sets them.
	for k, v := range condition {
		if _, isOps := v.(map[string]interface{}); isOps {
			continue
		}

		if _, exists := created[k]; !exists {
			created[k] = copyValue(v)
		}
	}

	var upserted *persistence.ObjectID

	if _, hasID := persistence.GetID(created, false); !hasID {
		assigned := persistence.NewObjectID()
		created["_id"] = assigned
		upserted = &assigned
	}

	s.databases[db][collection] = append(coll, created)

	return &persistence.UpdateResult{Matched: 0, UpsertedID: upserted}, nil
}

// DeleteOne removes the document identified by doc's id field. Deleting a
// document that is already gone is a no-op success, mirroring remote-store
// semantics. A document without identity cannot be addressed.
func (s *Store) DeleteOne(ctx context.Context, db, collection string, doc persistence.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	id, hasID := persistence.GetID(doc, false)
	if !hasID {
		return fmt.Errorf("delete requires a document id: %w", persistence.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(db, collection)

	idx := s.indexByID(coll, persistence.IDToString(id))
	if idx < 0 {
		return nil
	}

	s.databases[db][collection] = append(coll[:idx], coll[idx+1:]...)

	return nil
}

// Reset drops all databases. Intended for tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.databases = make(map[string]map[string][]persistence.Document)
}

// collection returns the document slice for db/collection, or nil when it
// does not exist. Caller must hold at least a read lock.
func (s *Store) collection(db, collection string) []persistence.Document {
	colls, ok := s.databases[db]
	if !ok {
		return nil
	}

	return colls[collection]
}

// ensureCollection returns the document slice for db/collection, creating
// the database entry as needed. Caller must hold the write lock.
func (s *Store) ensureCollection(db, collection string) []persistence.Document {
	colls, ok := s.databases[db]
	if !ok {
		colls = make(map[string][]persistence.Document)
		s.databases[db] = colls
	}

	return colls[collection]
}

// indexByID locates a document by the string form of its id, -1 if absent.
func (s *Store) indexByID(coll []persistence.Document, id string) int {
	for i, doc := range coll {
		if stored, ok := persistence.GetID(doc, false); ok {
			if persistence.IDToString(stored) == id {
				return i
			}
		}
	}

	return -1
}

func copyDocument(doc persistence.Document) persistence.Document {
	if doc == nil {
		return nil
	}

	var copied persistence.Document
	if err := deepcopy.Copy(&copied, doc); err != nil {
		// Documents are plain JSON-style trees; a copy failure means a
		// caller handed us something unrepresentable.
		panic(fmt.Sprintf("memory: cannot copy document: %v", err))
	}

	return copied
}

func copyValue(v interface{}) interface{} {
	switch v.(type) {
	case nil, bool, string, int, int32, int64, float32, float64, persistence.ObjectID:
		return v
	default:
		var copied interface{}
		if err := deepcopy.Copy(&copied, v); err != nil {
			panic(fmt.Sprintf("memory: cannot copy value: %v", err))
		}

		return copied
	}
}

// Compile-time check that Store implements persistence.Store.
var _ persistence.Store = (*Store)(nil)
