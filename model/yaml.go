package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The YAML document shape accepted by DecodeYAML. Names follow the model
// API: entities with base, store-object mappings, properties, keys,
// foreign keys, indexes and navigations, plus model-level functions and
// sequences.
type (
	yamlModel struct {
		Name      string         `yaml:"name"`
		Entities  []yamlEntity   `yaml:"entities"`
		Functions []yamlFunction `yaml:"functions"`
		Sequences []yamlSequence `yaml:"sequences"`
	}

	yamlEntity struct {
		Name        string           `yaml:"name"`
		Base        string           `yaml:"base"`
		Table       *yamlStoreName   `yaml:"table"`
		View        *yamlStoreName   `yaml:"view"`
		Function    string           `yaml:"function"`
		Properties  []yamlProperty   `yaml:"properties"`
		Keys        []yamlKey        `yaml:"keys"`
		ForeignKeys []yamlForeignKey `yaml:"foreignKeys"`
		Indexes     []yamlIndex      `yaml:"indexes"`
		Navigations []yamlNavigation `yaml:"navigations"`
	}

	yamlStoreName struct {
		Name   string `yaml:"name"`
		Schema string `yaml:"schema"`
	}

	yamlProperty struct {
		Name      string         `yaml:"name"`
		Column    string         `yaml:"column"`
		Type      string         `yaml:"type"`
		Nullable  bool           `yaml:"nullable"`
		Overrides []yamlOverride `yaml:"overrides"`
	}

	yamlOverride struct {
		Kind   string `yaml:"kind"` // table, view or function
		Name   string `yaml:"name"`
		Schema string `yaml:"schema"`
		Column string `yaml:"column"`
	}

	yamlKey struct {
		Properties []string `yaml:"properties"`
		Primary    bool     `yaml:"primary"`
		Name       string   `yaml:"name"`
	}

	yamlForeignKey struct {
		Properties []string `yaml:"properties"`
		Principal  string   `yaml:"principal"`
		Unique     bool     `yaml:"unique"`
		Required   bool     `yaml:"required"`
		OnDelete   string   `yaml:"onDelete"`
		Name       string   `yaml:"name"`
	}

	yamlIndex struct {
		Properties []string `yaml:"properties"`
		Unique     bool     `yaml:"unique"`
		Filter     string   `yaml:"filter"`
		Name       string   `yaml:"name"`
	}

	yamlNavigation struct {
		Name        string `yaml:"name"`
		Target      string `yaml:"target"`
		ForeignKey  int    `yaml:"foreignKey"` // index into the declaring entity's foreignKeys
		OnDependent bool   `yaml:"onDependent"`
	}

	yamlFunction struct {
		ModelName    string          `yaml:"modelName"`
		Name         string          `yaml:"name"`
		Schema       string          `yaml:"schema"`
		Parameters   []yamlParameter `yaml:"parameters"`
		Returns      string          `yaml:"returns"`       // scalar return store type
		ReturnEntity string          `yaml:"returnEntity"` // table-valued return entity
		Aggregate    bool            `yaml:"aggregate"`
	}

	yamlParameter struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	}

	yamlSequence struct {
		Name      string `yaml:"name"`
		Schema    string `yaml:"schema"`
		Start     int64  `yaml:"start"`
		Increment int64  `yaml:"increment"`
		Min       *int64 `yaml:"min"`
		Max       *int64 `yaml:"max"`
		Cyclic    bool   `yaml:"cyclic"`
	}
)

// DecodeYAML decodes a model description and returns the finalized model.
func DecodeYAML(data []byte) (*Model, error) {
	var doc yamlModel
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("model: decode yaml: %w", err)
	}
	m := New(doc.Name)
	// Entity types are created before anything refers to them.
	for _, e := range doc.Entities {
		if _, err := m.AddEntityType(e.Name); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Entities {
		if e.Base == "" {
			continue
		}
		base := m.FindEntityType(e.Base)
		if base == nil {
			return nil, fmt.Errorf("model: unknown base type %q for entity %q", e.Base, e.Name)
		}
		if err := m.FindEntityType(e.Name).SetBase(base); err != nil {
			return nil, err
		}
	}
	for _, f := range doc.Functions {
		fn, err := m.AddFunction(f.ModelName, f.Name, f.Schema)
		if err != nil {
			return nil, err
		}
		for _, p := range f.Parameters {
			fn.AddParameter(p.Name, p.Type)
		}
		if f.Returns != "" {
			fn.SetReturnType(f.Returns)
		}
		if f.ReturnEntity != "" {
			ret := m.FindEntityType(f.ReturnEntity)
			if ret == nil {
				return nil, fmt.Errorf("model: unknown return entity %q for function %q", f.ReturnEntity, f.ModelName)
			}
			fn.SetReturnEntityType(ret)
		}
		fn.SetAggregate(f.Aggregate)
	}
	for _, e := range doc.Entities {
		if err := decodeEntity(m, e); err != nil {
			return nil, err
		}
	}
	// Keys come before foreign keys: a foreign key targets the principal's
	// primary key, and navigations refer to foreign keys by position.
	for _, e := range doc.Entities {
		et := m.FindEntityType(e.Name)
		for _, k := range e.Keys {
			key, err := et.AddKey(k.Primary, k.Properties...)
			if err != nil {
				return nil, err
			}
			if k.Name != "" {
				key.SetName(k.Name)
			}
		}
	}
	for _, e := range doc.Entities {
		et := m.FindEntityType(e.Name)
		for _, f := range e.ForeignKeys {
			principal := m.FindEntityType(f.Principal)
			if principal == nil {
				return nil, fmt.Errorf("model: unknown principal %q for foreign key on %q", f.Principal, e.Name)
			}
			fk, err := et.AddForeignKey(principal, f.Properties...)
			if err != nil {
				return nil, err
			}
			fk.SetUnique(f.Unique).SetRequired(f.Required)
			if f.Name != "" {
				fk.SetName(f.Name)
			}
			behavior, err := parseDeleteBehavior(f.OnDelete)
			if err != nil {
				return nil, fmt.Errorf("model: foreign key on %q: %w", e.Name, err)
			}
			fk.SetDeleteBehavior(behavior)
		}
		for _, i := range e.Indexes {
			idx, err := et.AddIndex(i.Properties...)
			if err != nil {
				return nil, err
			}
			idx.SetUnique(i.Unique).SetFilter(i.Filter)
			if i.Name != "" {
				idx.SetDatabaseName(i.Name)
			}
		}
	}
	for _, e := range doc.Entities {
		et := m.FindEntityType(e.Name)
		for _, n := range e.Navigations {
			target := m.FindEntityType(n.Target)
			if target == nil {
				return nil, fmt.Errorf("model: unknown navigation target %q on %q", n.Target, e.Name)
			}
			fks := et.DeclaredForeignKeys()
			owner := et
			if !n.OnDependent {
				fks = target.DeclaredForeignKeys()
				owner = target
			}
			if n.ForeignKey < 0 || n.ForeignKey >= len(fks) {
				return nil, fmt.Errorf("model: navigation %q on %q refers to foreign key %d of %q, which does not exist", n.Name, e.Name, n.ForeignKey, owner.Name())
			}
			if _, err := et.AddNavigation(n.Name, target, fks[n.ForeignKey], n.OnDependent); err != nil {
				return nil, err
			}
		}
	}
	for _, s := range doc.Sequences {
		seq, err := m.AddSequence(s.Name, s.Schema)
		if err != nil {
			return nil, err
		}
		if s.Start != 0 {
			seq.SetStartValue(s.Start)
		}
		if s.Increment != 0 {
			seq.SetIncrementBy(s.Increment)
		}
		if s.Min != nil {
			seq.SetMinValue(*s.Min)
		}
		if s.Max != nil {
			seq.SetMaxValue(*s.Max)
		}
		seq.SetCyclic(s.Cyclic)
	}
	if err := m.Finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeEntity(m *Model, e yamlEntity) error {
	et := m.FindEntityType(e.Name)
	if e.Table != nil {
		et.SetTable(e.Table.Name, e.Table.Schema)
	}
	if e.View != nil {
		et.SetView(e.View.Name, e.View.Schema)
	}
	if e.Function != "" {
		if m.FindFunction(e.Function) == nil {
			return fmt.Errorf("model: unknown function %q for entity %q", e.Function, e.Name)
		}
		et.SetFunction(e.Function)
	}
	for _, pd := range e.Properties {
		p, err := et.AddProperty(pd.Name)
		if err != nil {
			return err
		}
		if pd.Column != "" {
			p.SetColumn(pd.Column)
		}
		p.SetStoreType(pd.Type).SetNullable(pd.Nullable)
		for _, o := range pd.Overrides {
			so, err := parseStoreObject(o)
			if err != nil {
				return fmt.Errorf("model: property %q on %q: %w", pd.Name, e.Name, err)
			}
			p.SetColumnIn(so, o.Column)
		}
	}
	return nil
}

func parseStoreObject(o yamlOverride) (StoreObject, error) {
	switch o.Kind {
	case "table":
		return TableObject(o.Name, o.Schema), nil
	case "view":
		return ViewObject(o.Name, o.Schema), nil
	case "function":
		return FunctionObject(o.Name, o.Schema), nil
	default:
		return StoreObject{}, fmt.Errorf("unknown store object kind %q", o.Kind)
	}
}

func parseDeleteBehavior(s string) (DeleteBehavior, error) {
	switch s {
	case "", "noAction":
		return DeleteNoAction, nil
	case "clientSetNull":
		return DeleteClientSetNull, nil
	case "clientCascade":
		return DeleteClientCascade, nil
	case "clientNoAction":
		return DeleteClientNoAction, nil
	case "restrict":
		return DeleteRestrict, nil
	case "cascade":
		return DeleteCascade, nil
	case "setNull":
		return DeleteSetNull, nil
	case "setDefault":
		return DeleteSetDefault, nil
	default:
		return DeleteNoAction, fmt.Errorf("unknown delete behavior %q", s)
	}
}
