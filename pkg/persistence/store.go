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
)

// Document represents a JSON-serializable document stored in a collection.
//
// DESIGN DECISION: Use map[string]interface{} instead of custom struct types
// WHY: Maximum flexibility - the sync engine moves arbitrary subtrees of the
// application state tree into collections, so the document shape is not known
// at compile time.
//
// TRADE-OFF: Runtime type errors instead of compile-time safety. Callers that
// know their shapes can decode into typed structs on top of this.
type Document = map[string]interface{}

// UpdateResult reports the outcome of an UpdateOne call.
type UpdateResult struct {
	// UpsertedID is the id the store assigned when the upsert created a new
	// document. Nil when an existing document was matched.
	UpsertedID *ObjectID

	// Matched is the number of documents the condition matched.
	Matched int64
}

// InsertResult reports the outcome of an InsertMany call.
type InsertResult struct {
	// InsertedIDs holds the native id of each inserted document in input
	// order: the store-assigned ObjectID for documents inserted without an
	// id, or the provided id (in native form) otherwise.
	InsertedIDs []interface{}
}

// Store provides CRUD operations on collections of documents across named
// databases. It is the collaborator contract consumed (not implemented) by
// the sync engine; the in-memory backend under memory/ implements it for
// tests and single-process deployments.
//
// Concurrency: implementations must be safe for concurrent use.
//
// Error handling: FindOne returns ErrNotFound when no document matches.
// All other errors indicate store failures and propagate to the caller
// unchanged; the engine performs no internal retries (see RetryStore for a
// store-boundary retry decorator).
type Store interface {
	// FindOne returns the first document matching condition, projected to
	// fields (nil or empty fields means all fields). Returns ErrNotFound
	// when nothing matches.
	FindOne(ctx context.Context, db, collection string, condition Document, fields []string) (Document, error)

	// Find returns all documents matching condition, projected to fields.
	// An empty result is not an error.
	Find(ctx context.Context, db, collection string, condition Document, fields []string) ([]Document, error)

	// InsertMany inserts docs and returns the assigned ids in input order.
	// Documents that already carry an id keep it. An empty docs slice is a
	// no-op success, never an error.
	InsertMany(ctx context.Context, db, collection string, docs []Document) (*InsertResult, error)

	// UpdateOne applies a field-level set of doc's fields (excluding its id
	// field - the id is never replaced) to the first document matching
	// condition. With upsert true a missing document is created and its
	// assigned id reported via UpdateResult.UpsertedID.
	UpdateOne(ctx context.Context, db, collection string, condition, doc Document, upsert bool) (*UpdateResult, error)

	// DeleteOne removes the document identified by doc's id field.
	DeleteOne(ctx context.Context, db, collection string, doc Document) error
}

// ErrNotFound indicates no document matched a FindOne condition.
//
// DESIGN DECISION: Sentinel error, not custom error type
// WHY: Simple and works with errors.Is for checking. The load pipeline treats
// it as "no data", not as a failure.
var ErrNotFound = &storeError{msg: "document not found"}

// ErrConflict indicates a duplicate id or constraint violation.
var ErrConflict = &storeError{msg: "document conflict"}

type storeError struct {
	msg string
}

func (e *storeError) Error() string {
	return e.msg
}
