//go:build cgo

package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/missionplan/internal/graph"
)

// openAutomatonStore opens the KuzuDB automaton cache: file-backed when
// path is set, in-memory otherwise.
func openAutomatonStore(ctx context.Context, path string) (graph.Store, error) {
	var (
		store *graph.KuzuStore
		err   error
	)
	if path == "" {
		store, err = graph.NewKuzuStore()
	} else {
		store, err = graph.NewKuzuFileStore(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open automaton store: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init automaton store: %w", err)
	}
	return store, nil
}
