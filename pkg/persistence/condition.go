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
	"reflect"
)

// Operator represents MongoDB-style condition operators.
//
// DESIGN DECISION: Use MongoDB-style operators ($eq, $gt, $in)
// WHY: Conditions arrive from sync-spec configuration as plain documents;
// operator keys make them expressible in YAML without a query builder, and
// the syntax is familiar and well documented.
//
// TRADE-OFF: String-based operators instead of type-safe enums mean typos
// are not caught at compile time.
type Operator = string

const (
	OpEq  Operator = "$eq"  // field == value
	OpNe  Operator = "$ne"  // field != value
	OpGt  Operator = "$gt"  // field > value
	OpGte Operator = "$gte" // field >= value
	OpLt  Operator = "$lt"  // field < value
	OpLte Operator = "$lte" // field <= value
	OpIn  Operator = "$in"  // field IN (values...)
	OpNin Operator = "$nin" // field NOT IN (values...)
)

// MatchesCondition reports whether doc satisfies condition. A nil or empty
// condition matches every document. Each condition entry is either a bare
// value (equality) or a nested {"$op": value} document; multiple entries
// combine with AND.
//
// Id fields are compared through their string form, so a condition carrying
// a native ObjectID matches a document storing the hex string and vice
// versa.
func MatchesCondition(doc, condition Document) bool {
	if len(condition) == 0 {
		return true
	}

	for field, want := range condition {
		have, ok := doc[field]
		if !ok {
			return false
		}

		if ops, isOps := asOperatorDoc(want); isOps {
			for op, operand := range ops {
				if !evalOperator(op, have, operand) {
					return false
				}
			}

			continue
		}

		if !valuesEqual(field, have, want) {
			return false
		}
	}

	return true
}

// ProjectFields returns a copy of doc restricted to fields. Recognized id
// fields survive projection regardless, mirroring the store convention that
// identity is always returned. Nil or empty fields means no projection.
func ProjectFields(doc Document, fields []string) Document {
	if doc == nil {
		return nil
	}

	if len(fields) == 0 {
		projected := make(Document, len(doc))
		for k, v := range doc {
			projected[k] = v
		}

		return projected
	}

	projected := make(Document, len(fields)+len(IDFields))

	for _, field := range fields {
		if v, ok := doc[field]; ok {
			projected[field] = v
		}
	}

	for _, field := range IDFields {
		if v, ok := doc[field]; ok {
			projected[field] = v
		}
	}

	return projected
}

// asOperatorDoc reports whether v is a nested operator document, i.e. a map
// whose every key starts with '$'.
func asOperatorDoc(v interface{}) (Document, bool) {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil, false
	}

	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}

	return m, true
}

func evalOperator(op Operator, have, operand interface{}) bool {
	switch op {
	case OpEq:
		return looseEqual(have, operand)
	case OpNe:
		return !looseEqual(have, operand)
	case OpGt, OpGte, OpLt, OpLte:
		a, aok := toFloat(have)
		b, bok := toFloat(operand)

		if !aok || !bok {
			return false
		}

		switch op {
		case OpGt:
			return a > b
		case OpGte:
			return a >= b
		case OpLt:
			return a < b
		default:
			return a <= b
		}
	case OpIn, OpNin:
		found := false

		values := reflect.ValueOf(operand)
		if values.Kind() == reflect.Slice || values.Kind() == reflect.Array {
			for i := 0; i < values.Len(); i++ {
				if looseEqual(have, values.Index(i).Interface()) {
					found = true

					break
				}
			}
		}

		if op == OpIn {
			return found
		}

		return !found
	default:
		return false
	}
}

// valuesEqual compares a stored value against a condition value, routing id
// fields through their canonical string form.
func valuesEqual(field string, have, want interface{}) bool {
	for _, idField := range IDFields {
		if field == idField {
			return IDToString(have) == IDToString(want)
		}
	}

	return looseEqual(have, want)
}

// looseEqual is structural equality tolerant of numeric type mismatches
// (int vs float64 after a JSON round trip) and of ObjectID vs hex string.
func looseEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}

		return false
	}

	if _, isID := a.(ObjectID); isID {
		return IDToString(a) == IDToString(b)
	}

	if _, isID := b.(ObjectID); isID {
		return IDToString(a) == IDToString(b)
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
