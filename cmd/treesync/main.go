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

// treesync runs one save or load pass of the layered sync engine over a
// YAML state tree, printing the resulting tree (and id map on save) as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/treesync/pkg/config"
	"github.com/united-manufacturing-hub/treesync/pkg/logger"
	"github.com/united-manufacturing-hub/treesync/pkg/metrics"
	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
	"github.com/united-manufacturing-hub/treesync/pkg/persistence/memory"
	"github.com/united-manufacturing-hub/treesync/pkg/sync"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	mode := flag.String("mode", "save", "pipeline to run: save or load")
	statePath := flag.String("state", "", "path to the YAML state tree (save mode)")
	dryRun := flag.Bool("dry-run", false, "compute diffs without touching the store")
	flag.Parse()

	logger.Initialize()
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.For(logger.ComponentCore)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}

	if cfg.MetricsAddr != "" {
		metrics.SetupMetricsEndpoint(cfg.MetricsAddr)
	}

	var store persistence.Store = memory.NewStore()
	if cfg.Store.RetryMaxElapsed > 0 {
		store = persistence.NewRetryStore(store, cfg.Store.RetryMaxElapsed.AsDuration())
	}

	store = persistence.NewInstrumentedStore(store)

	engine := sync.NewEngine(store, sync.NewLayerCache())
	ctx := context.Background()

	switch *mode {
	case "save":
		if err := runSave(ctx, engine, cfg, *statePath, *dryRun); err != nil {
			log.Fatalf("save failed: %v", err)
		}
	case "load":
		if err := runLoad(ctx, engine, cfg); err != nil {
			log.Fatalf("load failed: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q (want save or load)", *mode)
	}
}

func runSave(ctx context.Context, engine *sync.Engine, cfg *config.Config, statePath string, dryRun bool) error {
	if statePath == "" {
		return fmt.Errorf("save mode requires -state")
	}

	state, err := loadStateTree(statePath)
	if err != nil {
		return err
	}

	reduced, idMap, err := engine.SyncSave(ctx, state, &cfg.Sync, sync.SaveOptions{DryRun: dryRun})
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"tree":   reduced,
		"id-map": idMap,
	})
}

func runLoad(ctx context.Context, engine *sync.Engine, cfg *config.Config) error {
	state, err := engine.SyncLoad(ctx, &cfg.Sync)
	if err != nil {
		return err
	}

	return printJSON(state)
}

func loadStateTree(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var state map[string]interface{}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}

	return normalizeTree(state), nil
}

// normalizeTree rewrites YAML decoding artifacts into the canonical tree
// shapes the engine works on.
func normalizeTree(node interface{}) interface{} {
	switch n := node.(type) {
	case map[string]interface{}:
		for k, v := range n {
			n[k] = normalizeTree(v)
		}

		return n
	case map[interface{}]interface{}:
		converted := make(map[string]interface{}, len(n))
		for k, v := range n {
			converted[fmt.Sprintf("%v", k)] = normalizeTree(v)
		}

		return converted
	case []interface{}:
		for i, v := range n {
			n[i] = normalizeTree(v)
		}

		return n
	default:
		return n
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
