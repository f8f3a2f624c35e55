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

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/united-manufacturing-hub/treesync/pkg/metrics"
)

// InstrumentedStore decorates a Store with operation counters and duration
// histograms. A FindOne miss counts as a successful operation; ErrNotFound
// is a semantic outcome, not a failure.
type InstrumentedStore struct {
	inner Store
}

// NewInstrumentedStore wraps inner with metrics recording.
func NewInstrumentedStore(inner Store) *InstrumentedStore {
	return &InstrumentedStore{inner: inner}
}

func record(operation string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}

	metrics.RecordStoreOp(operation, err, time.Since(start))
}

// FindOne implements Store.
func (is *InstrumentedStore) FindOne(ctx context.Context, db, collection string, condition Document, fields []string) (Document, error) {
	start := time.Now()
	doc, err := is.inner.FindOne(ctx, db, collection, condition, fields)
	record("find_one", start, err)

	return doc, err
}

// Find implements Store.
func (is *InstrumentedStore) Find(ctx context.Context, db, collection string, condition Document, fields []string) ([]Document, error) {
	start := time.Now()
	docs, err := is.inner.Find(ctx, db, collection, condition, fields)
	record("find", start, err)

	return docs, err
}

// InsertMany implements Store.
func (is *InstrumentedStore) InsertMany(ctx context.Context, db, collection string, docs []Document) (*InsertResult, error) {
	start := time.Now()
	result, err := is.inner.InsertMany(ctx, db, collection, docs)
	record("insert_many", start, err)

	return result, err
}

// UpdateOne implements Store.
func (is *InstrumentedStore) UpdateOne(ctx context.Context, db, collection string, condition, doc Document, upsert bool) (*UpdateResult, error) {
	start := time.Now()
	result, err := is.inner.UpdateOne(ctx, db, collection, condition, doc, upsert)
	record("update_one", start, err)

	return result, err
}

// DeleteOne implements Store.
func (is *InstrumentedStore) DeleteOne(ctx context.Context, db, collection string, doc Document) error {
	start := time.Now()
	err := is.inner.DeleteOne(ctx, db, collection, doc)
	record("delete_one", start, err)

	return err
}

// Compile-time check that InstrumentedStore implements Store.
var _ Store = (*InstrumentedStore)(nil)
