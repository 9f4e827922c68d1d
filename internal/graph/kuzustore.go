//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/missionplan/internal/automaton"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so cached automata survive across runs.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// KuzuDB creates the leaf directory itself.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Formula(
		key STRING,
		text STRING,
		initial INT64,
		aps STRING,
		PRIMARY KEY(key)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS AutState(
		id STRING,
		formula_key STRING,
		num INT64,
		accepting BOOLEAN,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS HAS_STATE(FROM Formula TO AutState)`,
	`CREATE REL TABLE IF NOT EXISTS TRANSITION(FROM AutState TO AutState, label STRING, ord INT64)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// SaveAutomaton writes the formula node, one AutState per state and one
// TRANSITION per edge. Edge order is kept in the ord property.
func (s *KuzuStore) SaveAutomaton(ctx context.Context, formula string, a *automaton.Automaton) error {
	key := FormulaKey(formula)
	exists, err := s.hasFormula(key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	aps, err := json.Marshal(a.APs)
	if err != nil {
		return fmt.Errorf("kuzu: encode propositions: %w", err)
	}
	if err := s.exec(
		"CREATE (f:Formula {key: $key, text: $text, initial: $initial, aps: $aps})",
		map[string]any{
			"key":     key,
			"text":    formula,
			"initial": int64(a.Initial),
			"aps":     string(aps),
		},
	); err != nil {
		return err
	}

	for _, st := range a.States {
		if err := s.exec(
			"CREATE (n:AutState {id: $id, formula_key: $key, num: $num, accepting: $acc})",
			map[string]any{
				"id":  stateID(key, st.ID),
				"key": key,
				"num": int64(st.ID),
				"acc": st.Accepting,
			},
		); err != nil {
			return err
		}
		if err := s.exec(
			`MATCH (f:Formula {key: $key}), (n:AutState {id: $id})
			 CREATE (f)-[:HAS_STATE]->(n)`,
			map[string]any{"key": key, "id": stateID(key, st.ID)},
		); err != nil {
			return err
		}
	}

	for _, st := range a.States {
		for i, e := range st.Edges {
			if err := s.exec(
				`MATCH (a:AutState {id: $src}), (b:AutState {id: $dst})
				 CREATE (a)-[:TRANSITION {label: $label, ord: $ord}]->(b)`,
				map[string]any{
					"src":   stateID(key, st.ID),
					"dst":   stateID(key, e.Dst),
					"label": e.Label,
					"ord":   int64(i),
				},
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---------- Read operations ----------

// LoadAutomaton rebuilds a stored automaton, or returns nil if absent.
func (s *KuzuStore) LoadAutomaton(_ context.Context, formula string) (*automaton.Automaton, error) {
	key := FormulaKey(formula)
	rows, err := s.query(
		"MATCH (f:Formula {key: $key}) RETURN f.initial, f.aps",
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	a := &automaton.Automaton{Initial: toInt(rows[0][0])}
	if err := json.Unmarshal([]byte(toString(rows[0][1])), &a.APs); err != nil {
		return nil, fmt.Errorf("kuzu: decode propositions: %w", err)
	}

	states, err := s.query(
		`MATCH (f:Formula {key: $key})-[:HAS_STATE]->(n:AutState)
		 RETURN n.num, n.accepting ORDER BY n.num`,
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	a.States = make([]automaton.State, len(states))
	for i, r := range states {
		a.States[i] = automaton.State{ID: toInt(r[0]), Accepting: toBool(r[1])}
	}

	edges, err := s.query(
		`MATCH (a:AutState)-[t:TRANSITION]->(b:AutState)
		 WHERE a.formula_key = $key
		 RETURN a.num, b.num, t.label, t.ord ORDER BY a.num, t.ord`,
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range edges {
		src, dst := toInt(r[0]), toInt(r[1])
		if src < 0 || src >= len(a.States) {
			return nil, fmt.Errorf("kuzu: transition from unknown state %d", src)
		}
		a.States[src].Edges = append(a.States[src].Edges, automaton.Edge{
			Dst:      dst,
			Label:    toString(r[2]),
			SelfLoop: src == dst,
		})
	}

	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("kuzu: stored automaton: %w", err)
	}
	return a, nil
}

// ---------- Stats ----------

// Stats returns counts of stored formulas, states and transitions.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	formulas, err := s.count("MATCH (f:Formula) RETURN count(f)")
	if err != nil {
		return nil, err
	}
	states, err := s.count("MATCH (n:AutState) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	transitions, err := s.count("MATCH ()-[t:TRANSITION]->() RETURN count(t)")
	if err != nil {
		return nil, err
	}
	return &Stats{FormulaCount: formulas, StateCount: states, TransitionCount: transitions}, nil
}

// ---------- Internal helpers ----------

func (s *KuzuStore) hasFormula(key string) (bool, error) {
	rows, err := s.query("MATCH (f:Formula {key: $key}) RETURN f.key", map[string]any{"key": key})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

func stateID(key string, num int) string {
	return fmt.Sprintf("%s:%d", key, num)
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
