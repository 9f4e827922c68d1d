//go:build !cgo

package main

import (
	"context"
	"log"

	"github.com/dusk-indust/missionplan/internal/graph"
)

// openAutomatonStore falls back to an in-memory cache; KuzuDB needs cgo.
func openAutomatonStore(ctx context.Context, path string) (graph.Store, error) {
	if path != "" {
		log.Printf("WARNING: automatonStorePath %s ignored: built without cgo", path)
	}
	store := graph.NewMemStore()
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
