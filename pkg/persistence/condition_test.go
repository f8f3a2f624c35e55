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

package persistence_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
)

var _ = Describe("MatchesCondition", func() {
	doc := persistence.Document{
		"name":  "pump-1",
		"rpm":   1450,
		"plant": "hamburg",
	}

	It("should match everything on a nil condition", func() {
		Expect(persistence.MatchesCondition(doc, nil)).To(BeTrue())
	})

	It("should match everything on an empty condition", func() {
		Expect(persistence.MatchesCondition(doc, persistence.Document{})).To(BeTrue())
	})

	It("should treat bare values as equality", func() {
		Expect(persistence.MatchesCondition(doc, persistence.Document{"name": "pump-1"})).To(BeTrue())
		Expect(persistence.MatchesCondition(doc, persistence.Document{"name": "pump-2"})).To(BeFalse())
	})

	It("should AND multiple entries", func() {
		cond := persistence.Document{"name": "pump-1", "plant": "hamburg"}
		Expect(persistence.MatchesCondition(doc, cond)).To(BeTrue())

		cond["plant"] = "berlin"
		Expect(persistence.MatchesCondition(doc, cond)).To(BeFalse())
	})

	It("should fail on missing fields", func() {
		Expect(persistence.MatchesCondition(doc, persistence.Document{"missing": 1})).To(BeFalse())
	})

	It("should tolerate numeric type mismatches", func() {
		Expect(persistence.MatchesCondition(doc, persistence.Document{"rpm": float64(1450)})).To(BeTrue())
	})

	It("should compare id fields through their string form", func() {
		id := persistence.NewObjectID()
		stored := persistence.Document{"_id": id.Hex()}
		Expect(persistence.MatchesCondition(stored, persistence.Document{"_id": id})).To(BeTrue())
	})

	Describe("operators", func() {
		It("should evaluate $eq and $ne", func() {
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"name": map[string]interface{}{persistence.OpEq: "pump-1"},
			})).To(BeTrue())
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"name": map[string]interface{}{persistence.OpNe: "pump-1"},
			})).To(BeFalse())
		})

		It("should evaluate numeric comparisons", func() {
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"rpm": map[string]interface{}{persistence.OpGt: 1000, persistence.OpLte: 1450},
			})).To(BeTrue())
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"rpm": map[string]interface{}{persistence.OpLt: 1000},
			})).To(BeFalse())
		})

		It("should evaluate $in and $nin", func() {
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"plant": map[string]interface{}{persistence.OpIn: []interface{}{"hamburg", "berlin"}},
			})).To(BeTrue())
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"plant": map[string]interface{}{persistence.OpNin: []interface{}{"hamburg"}},
			})).To(BeFalse())
		})

		It("should reject unknown operators", func() {
			Expect(persistence.MatchesCondition(doc, persistence.Document{
				"rpm": map[string]interface{}{"$regex": ".*"},
			})).To(BeFalse())
		})
	})
})

var _ = Describe("ProjectFields", func() {
	doc := persistence.Document{
		"_id":   "00112233445566778899aabb",
		"name":  "pump-1",
		"rpm":   1450,
		"plant": "hamburg",
	}

	It("should copy everything when fields is empty", func() {
		projected := persistence.ProjectFields(doc, nil)
		Expect(projected).To(Equal(doc))
	})

	It("should restrict to the requested fields", func() {
		projected := persistence.ProjectFields(doc, []string{"name"})
		Expect(projected).To(HaveKey("name"))
		Expect(projected).NotTo(HaveKey("rpm"))
	})

	It("should always keep id fields", func() {
		projected := persistence.ProjectFields(doc, []string{"name"})
		Expect(projected).To(HaveKeyWithValue("_id", "00112233445566778899aabb"))
	})
})
