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

	"github.com/cenkalti/backoff"
)

// RetryStore decorates a Store with exponential-backoff retries on transient
// failures.
//
// DESIGN DECISION: Retry at the store boundary, never inside the sync engine
// WHY: The engine's pipelines treat store failures as fatal for the current
// layer; retry policy belongs to the store collaborator or the caller.
// Wrapping the backend keeps that contract while still giving deployments a
// knob against flaky transports.
//
// ErrNotFound and ErrConflict are semantic outcomes, not transient faults,
// and are returned immediately.
type RetryStore struct {
	inner       Store
	maxElapsed  time.Duration
	maxInterval time.Duration
}

// NewRetryStore wraps inner with retries bounded by maxElapsed total wait.
// A zero maxElapsed uses the backoff library default (15 minutes is far too
// long for a sync pass, so callers normally pass a few seconds).
func NewRetryStore(inner Store, maxElapsed time.Duration) *RetryStore {
	return &RetryStore{
		inner:       inner,
		maxElapsed:  maxElapsed,
		maxInterval: 2 * time.Second,
	}
}

func (rs *RetryStore) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = rs.maxInterval

	if rs.maxElapsed > 0 {
		policy.MaxElapsedTime = rs.maxElapsed
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return backoff.Permanent(err)
		}

		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(policy, ctx))
}

// FindOne implements Store.
func (rs *RetryStore) FindOne(ctx context.Context, db, collection string, condition Document, fields []string) (Document, error) {
	var doc Document

	err := rs.retry(ctx, func() error {
		var opErr error
		doc, opErr = rs.inner.FindOne(ctx, db, collection, condition, fields)

		return opErr
	})

	return doc, err
}

// Find implements Store.
func (rs *RetryStore) Find(ctx context.Context, db, collection string, condition Document, fields []string) ([]Document, error) {
	var docs []Document

	err := rs.retry(ctx, func() error {
		var opErr error
		docs, opErr = rs.inner.Find(ctx, db, collection, condition, fields)

		return opErr
	})

	return docs, err
}

// InsertMany implements Store. Retrying a partially applied batch can
// conflict on already-inserted ids; the backend treats re-inserting an
// existing id as ErrConflict, which surfaces as permanent.
func (rs *RetryStore) InsertMany(ctx context.Context, db, collection string, docs []Document) (*InsertResult, error) {
	var result *InsertResult

	err := rs.retry(ctx, func() error {
		var opErr error
		result, opErr = rs.inner.InsertMany(ctx, db, collection, docs)

		return opErr
	})

	return result, err
}

// UpdateOne implements Store.
func (rs *RetryStore) UpdateOne(ctx context.Context, db, collection string, condition, doc Document, upsert bool) (*UpdateResult, error) {
	var result *UpdateResult

	err := rs.retry(ctx, func() error {
		var opErr error
		result, opErr = rs.inner.UpdateOne(ctx, db, collection, condition, doc, upsert)

		return opErr
	})

	return result, err
}

// DeleteOne implements Store.
func (rs *RetryStore) DeleteOne(ctx context.Context, db, collection string, doc Document) error {
	return rs.retry(ctx, func() error {
		return rs.inner.DeleteOne(ctx, db, collection, doc)
	})
}

// Compile-time check that RetryStore implements Store.
var _ Store = (*RetryStore)(nil)
