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

// Package persistence defines the document-store boundary consumed by the
// sync engine.
//
// DESIGN DECISION: Database-agnostic collection/document API
// WHY: The engine only needs find/insert/update/delete against named
// databases and collections. Abstracting the store behind a small interface
// lets tests run against the in-memory backend while production wires a real
// remote store client.
//
// TRADE-OFF: Lowest-common-denominator operations only. Backend-specific
// features (aggregation, change streams) are out of reach, but the sync
// engine does not need them.
//
// INSPIRED BY: MongoDB driver API (Document as map, ObjectID identities,
// operator-based conditions).
//
// The package also owns document identity: the ObjectID native id type and
// the normalizer functions (IDToString, IDToNative, GetID, RemoveID,
// NormalizeID) that canonicalize identities between string and native form.
package persistence
