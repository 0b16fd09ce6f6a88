package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haulcraft/invoicemill/internal/common"
)

// templateSchema validates template JSON before it is trusted.
var templateSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"name": map[string]any{"type": "string", "minLength": 1},
		"patterns": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
		"field_hints": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "integer"},
		},
	},
	"required": []string{"name", "patterns"},
}

// Store manages supplier templates on disk (<dir>/<name>.json) with an
// in-memory compiled cache. Reads are safe for concurrent use; writes happen
// only through Save.
type Store struct {
	dir    string
	logger *slog.Logger
	schema *jsonschema.Schema

	mu        sync.RWMutex
	templates map[string]*Compiled
}

// NewStore loads every template in dir. A template whose JSON fails schema
// validation or whose patterns fail to compile is a load error: bad patterns
// must surface at startup, not mid-extraction.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir, logger: logger, schema: schema, templates: make(map[string]*Compiled)}

	// the built-in default is always present
	def, err := Default().Compile()
	if err != nil {
		return nil, err
	}
	s.templates[DefaultName] = def

	if dir != "" {
		if err := s.loadAll(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(templateSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal template schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("template.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add template schema: %w", err)
	}
	return compiler.Compile("template.json")
}

func (s *Store) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read templates dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		tpl, err := s.loadFile(path)
		if err != nil {
			return err
		}
		s.templates[tpl.Name] = tpl
		s.logger.Debug("template loaded", "name", tpl.Name, "patterns", len(tpl.Patterns))
	}
	s.logger.Info("templates loaded", "dir", s.dir, "count", len(s.templates))
	return nil
}

func (s *Store) loadFile(path string) (*Compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, common.NewAppError("TEMPLATE_PARSE", fmt.Sprintf("template %s is not valid JSON", path), err)
	}
	if err := s.schema.Validate(v); err != nil {
		return nil, common.NewAppError("TEMPLATE_SCHEMA", fmt.Sprintf("template %s does not match schema", path), err)
	}
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", path, err)
	}
	return tpl.Compile()
}

// Get returns the named template, falling back to the built-in default.
func (s *Store) Get(name string) *Compiled {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.templates[name]; ok {
		return t
	}
	return s.templates[DefaultName]
}

// Has reports whether a template with this exact name exists.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.templates[name]
	return ok
}

// List returns the names of all loaded templates.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	return names
}

// Save validates, compiles, persists, and caches a template. The compiled
// form replaces any cached template of the same name.
func (s *Store) Save(tpl Template) error {
	if strings.TrimSpace(tpl.Name) == "" {
		return common.NewAppError("TEMPLATE_NAME", "template name is required", common.ErrInvalidInput)
	}
	compiled, err := tpl.Compile()
	if err != nil {
		return err
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create templates dir: %w", err)
		}
		data, err := json.MarshalIndent(tpl, "", "  ")
		if err != nil {
			return fmt.Errorf("encode template: %w", err)
		}
		path := filepath.Join(s.dir, tpl.Name+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write template %s: %w", path, err)
		}
	}

	s.mu.Lock()
	s.templates[tpl.Name] = compiled
	s.mu.Unlock()
	s.logger.Info("template saved", "name", tpl.Name)
	return nil
}
