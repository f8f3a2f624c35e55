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

package sync_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/treesync/pkg/sync"
)

var _ = Describe("SyncSpec", func() {
	Describe("Identity", func() {
		It("should use the explicit ID when set", func() {
			spec := &sync.SyncSpec{ID: "explicit", DB: "main"}
			Expect(spec.Identity()).To(Equal("explicit"))
		})

		It("should derive equal identities for structurally equal specs", func() {
			a := &sync.SyncSpec{DB: "main", Layers: []sync.LayerSpec{{Kind: sync.KindMany, Collection: "items"}}}
			b := &sync.SyncSpec{DB: "main", Layers: []sync.LayerSpec{{Kind: sync.KindMany, Collection: "items"}}}
			Expect(a.Identity()).To(Equal(b.Identity()))
		})

		It("should derive different identities for different specs", func() {
			a := &sync.SyncSpec{DB: "main", Layers: []sync.LayerSpec{{Kind: sync.KindMany, Collection: "items"}}}
			b := &sync.SyncSpec{DB: "main", Layers: []sync.LayerSpec{{Kind: sync.KindMany, Collection: "other"}}}
			Expect(a.Identity()).NotTo(Equal(b.Identity()))
		})
	})

	Describe("SaveDB", func() {
		It("should resolve in priority order", func() {
			spec := &sync.SyncSpec{DB: "spec-db", DBSave: "spec-save"}

			layer := &sync.LayerSpec{DBSave: "layer-save", DB: "layer-db"}
			Expect(spec.SaveDB(layer)).To(Equal("layer-save"))

			layer = &sync.LayerSpec{DB: "layer-db"}
			Expect(spec.SaveDB(layer)).To(Equal("layer-db"))

			layer = &sync.LayerSpec{}
			Expect(spec.SaveDB(layer)).To(Equal("spec-save"))

			spec.DBSave = ""
			Expect(spec.SaveDB(layer)).To(Equal("spec-db"))
		})
	})

	Describe("LoadDB", func() {
		It("should prefer the layer database", func() {
			spec := &sync.SyncSpec{DB: "spec-db", DBSave: "spec-save"}

			Expect(spec.LoadDB(&sync.LayerSpec{DB: "layer-db"})).To(Equal("layer-db"))
			Expect(spec.LoadDB(&sync.LayerSpec{})).To(Equal("spec-db"))
		})
	})

	Describe("Validate", func() {
		It("should reject specs without layers", func() {
			Expect((&sync.SyncSpec{DB: "main"}).Validate()).To(HaveOccurred())
		})

		It("should reject layers without a collection", func() {
			spec := &sync.SyncSpec{DB: "main", Layers: []sync.LayerSpec{{Kind: sync.KindMany}}}
			Expect(spec.Validate()).To(HaveOccurred())
		})

		It("should reject layers with no resolvable database", func() {
			spec := &sync.SyncSpec{Layers: []sync.LayerSpec{{Kind: sync.KindMany, Collection: "items"}}}
			Expect(spec.Validate()).To(HaveOccurred())
		})

		It("should reject a save-only database on a layer that loads", func() {
			spec := &sync.SyncSpec{DBSave: "staging", Layers: []sync.LayerSpec{
				{Kind: sync.KindMany, Collection: "items"},
			}}
			Expect(spec.Validate()).To(HaveOccurred())
		})

		It("should accept a save-only database when every layer skips loads", func() {
			spec := &sync.SyncSpec{DBSave: "staging", Layers: []sync.LayerSpec{
				{Kind: sync.KindMany, Collection: "items", SkipLoad: true},
			}}
			Expect(spec.Validate()).NotTo(HaveOccurred())
		})

		It("should accept a complete spec", func() {
			spec := &sync.SyncSpec{DB: "main", Layers: []sync.LayerSpec{{Kind: sync.KindMany, Collection: "items"}}}
			Expect(spec.Validate()).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("JoinPath", func() {
	It("should join path segments with slashes", func() {
		Expect(sync.JoinPath([]string{"plant", "lines"}, "")).To(Equal("plant/lines"))
	})

	It("should append the item key", func() {
		Expect(sync.JoinPath([]string{"items"}, "7")).To(Equal("items/7"))
	})

	It("should yield the empty key for an empty location", func() {
		Expect(sync.JoinPath(nil, "")).To(Equal(""))
	})
})
