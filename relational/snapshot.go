package relational

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// Snapshot is the canonical serializable form of a schema. Two builds of
// the same model produce byte-identical snapshots, which makes the
// fingerprint usable for drift detection between migration runs.
type Snapshot struct {
	Model     string             `msgpack:"model"`
	Tables    []TableSnapshot    `msgpack:"tables"`
	Views     []ViewSnapshot     `msgpack:"views"`
	Functions []FunctionSnapshot `msgpack:"functions"`
	Sequences []SequenceSnapshot `msgpack:"sequences"`
}

// TableSnapshot is the canonical form of one table.
type TableSnapshot struct {
	Name        string               `msgpack:"name"`
	Schema      string               `msgpack:"schema,omitempty"`
	Columns     []ColumnSnapshot     `msgpack:"columns"`
	PrimaryKey  string               `msgpack:"primary_key,omitempty"`
	Uniques     []ConstraintSnapshot `msgpack:"uniques,omitempty"`
	Indexes     []IndexSnapshot      `msgpack:"indexes,omitempty"`
	ForeignKeys []FKSnapshot         `msgpack:"foreign_keys,omitempty"`
	Entities    []string             `msgpack:"entities"`
	Shared      bool                 `msgpack:"shared,omitempty"`
	Excluded    bool                 `msgpack:"excluded,omitempty"`
}

// ViewSnapshot is the canonical form of one view.
type ViewSnapshot struct {
	Name     string           `msgpack:"name"`
	Schema   string           `msgpack:"schema,omitempty"`
	Columns  []ColumnSnapshot `msgpack:"columns"`
	Entities []string         `msgpack:"entities"`
	Shared   bool             `msgpack:"shared,omitempty"`
}

// FunctionSnapshot is the canonical form of one store function.
type FunctionSnapshot struct {
	Name       string           `msgpack:"name"`
	Schema     string           `msgpack:"schema,omitempty"`
	Parameters []string         `msgpack:"parameters"`
	ReturnType string           `msgpack:"return_type,omitempty"`
	Columns    []ColumnSnapshot `msgpack:"columns"`
	Entities   []string         `msgpack:"entities"`
}

// ColumnSnapshot is the canonical form of one column.
type ColumnSnapshot struct {
	Name      string `msgpack:"name"`
	StoreType string `msgpack:"store_type,omitempty"`
	Nullable  bool   `msgpack:"nullable,omitempty"`
}

// ConstraintSnapshot is the canonical form of one unique constraint.
type ConstraintSnapshot struct {
	Name    string   `msgpack:"name"`
	Columns []string `msgpack:"columns"`
	Primary bool     `msgpack:"primary,omitempty"`
}

// IndexSnapshot is the canonical form of one index.
type IndexSnapshot struct {
	Name    string   `msgpack:"name"`
	Columns []string `msgpack:"columns"`
	Unique  bool     `msgpack:"unique,omitempty"`
	Filter  string   `msgpack:"filter,omitempty"`
}

// FKSnapshot is the canonical form of one foreign-key constraint.
type FKSnapshot struct {
	Name             string   `msgpack:"name"`
	Columns          []string `msgpack:"columns"`
	PrincipalTable   string   `msgpack:"principal_table"`
	PrincipalColumns []string `msgpack:"principal_columns"`
	OnDelete         string   `msgpack:"on_delete"`
}

// SequenceSnapshot is the canonical form of one sequence.
type SequenceSnapshot struct {
	Name        string `msgpack:"name"`
	Schema      string `msgpack:"schema,omitempty"`
	StartValue  int64  `msgpack:"start_value"`
	IncrementBy int64  `msgpack:"increment_by"`
	Cyclic      bool   `msgpack:"cyclic,omitempty"`
}

// Snapshot returns the canonical serializable form of the schema. All
// collections come from the sorted accessors, so the result is
// deterministic across builds.
func (s *Schema) Snapshot() *Snapshot {
	snap := &Snapshot{Model: s.model.Name()}
	for _, t := range s.Tables() {
		ts := TableSnapshot{
			Name:     t.Name(),
			Schema:   t.Schema(),
			Columns:  columnSnapshots(t.Columns()),
			Entities: mappedEntityNames(t.EntityTypeMappings()),
			Shared:   t.IsShared(),
			Excluded: t.IsExcludedFromMigrations(),
		}
		if pk := t.PrimaryKey(); pk != nil {
			ts.PrimaryKey = pk.Name()
		}
		for _, uc := range t.UniqueConstraints() {
			ts.Uniques = append(ts.Uniques, ConstraintSnapshot{
				Name:    uc.Name(),
				Columns: columnNames(uc.Columns()),
				Primary: uc.IsPrimaryKey(),
			})
		}
		for _, idx := range t.Indexes() {
			ts.Indexes = append(ts.Indexes, IndexSnapshot{
				Name:    idx.Name(),
				Columns: columnNames(idx.Columns()),
				Unique:  idx.IsUnique(),
				Filter:  idx.Filter(),
			})
		}
		for _, fk := range t.ForeignKeyConstraints() {
			ts.ForeignKeys = append(ts.ForeignKeys, FKSnapshot{
				Name:             fk.Name(),
				Columns:          columnNames(fk.Columns()),
				PrincipalTable:   fk.PrincipalTable().ID().String(),
				PrincipalColumns: columnNames(fk.PrincipalColumns()),
				OnDelete:         fk.OnDelete().String(),
			})
		}
		snap.Tables = append(snap.Tables, ts)
	}
	for _, v := range s.Views() {
		snap.Views = append(snap.Views, ViewSnapshot{
			Name:     v.Name(),
			Schema:   v.Schema(),
			Columns:  columnSnapshots(v.Columns()),
			Entities: mappedEntityNames(v.EntityTypeMappings()),
			Shared:   v.IsShared(),
		})
	}
	for _, f := range s.Functions() {
		snap.Functions = append(snap.Functions, FunctionSnapshot{
			Name:       f.Name(),
			Schema:     f.Schema(),
			Parameters: f.ParameterTypes(),
			ReturnType: f.ReturnType(),
			Columns:    columnSnapshots(f.Columns()),
			Entities:   mappedEntityNames(f.EntityTypeMappings()),
		})
	}
	for _, seq := range s.Sequences() {
		snap.Sequences = append(snap.Sequences, SequenceSnapshot{
			Name:        seq.Name(),
			Schema:      seq.Schema(),
			StartValue:  seq.StartValue(),
			IncrementBy: seq.IncrementBy(),
			Cyclic:      seq.IsCyclic(),
		})
	}
	return snap
}

// Fingerprint returns a stable content hash of the schema. Equal models
// yield equal fingerprints regardless of build order or process.
func (s *Schema) Fingerprint() (string, error) {
	b, err := msgpack.Marshal(s.Snapshot())
	if err != nil {
		return "", fmt.Errorf("relational: encoding schema snapshot: %w", err)
	}
	sum := blake3.Sum256(b)
	return fmt.Sprintf("%x", sum), nil
}

func columnSnapshots(cols []*Column) []ColumnSnapshot {
	out := make([]ColumnSnapshot, len(cols))
	for i, c := range cols {
		out[i] = ColumnSnapshot{Name: c.Name(), StoreType: c.StoreType(), Nullable: c.IsNullable()}
	}
	return out
}

func columnNames(cols []*Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out
}

func mappedEntityNames(ms []EntityTypeMapping) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.EntityType().Name()
	}
	return out
}
