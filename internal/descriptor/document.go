// Package descriptor discovers and validates record types before they reach
// the DDL synthesizer. Record types come either from a JSON document (Load)
// or from a Go struct via reflection (FromStruct).
//
// Example document:
//
//	{
//	  "types": [
//	    { "name": "Entity", "abstract": true,
//	      "fields": [ { "name": "id", "type": "long", "primary_key": true, "auto_increment": true } ] },
//	    { "name": "User", "table": "users", "parent": "Entity",
//	      "fields": [
//	        { "name": "email", "type": "string", "unique": true, "nullable": false },
//	        { "name": "active", "type": "boolean", "default": "1" },
//	        { "name": "cache", "type": "string", "ignore": true }
//	      ] }
//	  ]
//	}
package descriptor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"schemagen/internal/schema"
)

// Document is the on-disk shape of a descriptor file.
type Document struct {
	Types []TypeDoc `json:"types"`
}

// TypeDoc describes one record type.
type TypeDoc struct {
	Name     string     `json:"name"`
	Table    string     `json:"table,omitempty"`
	Parent   string     `json:"parent,omitempty"`
	Abstract bool       `json:"abstract,omitempty"`
	Kind     string     `json:"kind,omitempty"`
	Fields   []FieldDoc `json:"fields"`
}

// FieldDoc describes one field. Nullable, when present, overrides NotNull.
type FieldDoc struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	NotNull       bool   `json:"not_null,omitempty"`
	Nullable      *bool  `json:"nullable,omitempty"`
	Unique        bool   `json:"unique,omitempty"`
	Default       string `json:"default,omitempty"`
	Ignore        bool   `json:"ignore,omitempty"`
	PrimaryKey    bool   `json:"primary_key,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
}

// Catalog holds the record types of one or more documents, in document
// order, with parents resolved.
type Catalog struct {
	Types  []*schema.RecordType
	byName map[string]*schema.RecordType
}

// Lookup returns the record type called name.
func (c *Catalog) Lookup(name string) (*schema.RecordType, bool) {
	rt, ok := c.byName[normalize(name)]
	return rt, ok
}

// LoadFile opens path and decodes it with Load.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: open %s: %w", path, err)
	}
	defer f.Close()

	cat, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %s: %w", path, err)
	}
	return cat, nil
}

// Load decodes a Document from r and resolves it into a Catalog.
func Load(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return Resolve(doc)
}

// Resolve converts doc into a Catalog. Names are NFC-normalised and trimmed.
// Unknown parents, duplicate type names and inheritance cycles are reported
// as *ProcessingError.
func Resolve(doc Document) (*Catalog, error) {
	cat := &Catalog{byName: make(map[string]*schema.RecordType, len(doc.Types))}
	parents := make(map[*schema.RecordType]string, len(doc.Types))

	for i, td := range doc.Types {
		name := normalize(td.Name)
		if name == "" {
			return nil, newProcessingError("", "types[%d]: name must not be empty", i)
		}
		if _, dup := cat.byName[name]; dup {
			return nil, newProcessingError(name, "duplicate record type %s", name)
		}

		rt := &schema.RecordType{
			Name:     name,
			Table:    strings.TrimSpace(td.Table),
			Kind:     strings.TrimSpace(td.Kind),
			Abstract: td.Abstract,
			Fields:   make([]schema.Field, 0, len(td.Fields)),
		}
		for _, fd := range td.Fields {
			rt.Fields = append(rt.Fields, fd.field())
		}

		cat.byName[name] = rt
		cat.Types = append(cat.Types, rt)
		if p := normalize(td.Parent); p != "" {
			parents[rt] = p
		}
	}

	for _, rt := range cat.Types {
		pname, ok := parents[rt]
		if !ok {
			continue
		}
		parent, ok := cat.byName[pname]
		if !ok {
			return nil, newProcessingError(rt.Name, "unknown parent type %s", pname)
		}
		rt.Parent = parent
	}

	for _, rt := range cat.Types {
		if err := checkCycle(rt); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func (fd FieldDoc) field() schema.Field {
	f := schema.Field{
		Name:          normalize(fd.Name),
		Type:          schema.SemanticType(strings.TrimSpace(fd.Type)),
		NotNull:       fd.NotNull,
		Unique:        fd.Unique,
		Default:       strings.TrimSpace(fd.Default),
		Ignore:        fd.Ignore,
		PrimaryKey:    fd.PrimaryKey,
		AutoIncrement: fd.AutoIncrement,
	}
	if fd.Nullable != nil {
		f.NotNull = !*fd.Nullable
	}
	return f
}

// checkCycle walks rt's parent chain and fails if it revisits a type.
func checkCycle(rt *schema.RecordType) error {
	seen := map[*schema.RecordType]bool{}
	for cur := rt; cur != nil; cur = cur.Parent {
		if seen[cur] {
			return newProcessingError(rt.Name, "inheritance cycle through %s", cur.Name)
		}
		seen[cur] = true
	}
	return nil
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
