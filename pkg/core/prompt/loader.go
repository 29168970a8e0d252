package prompt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoadInto loads prompts and response schemas from baseDir:
//
//	baseDir/
//	  prompts/
//	    extraction/system.json      -> "extraction.system"
//	    segments/disclosure.json    -> "segments.disclosure"
//	  schemas/
//	    segment_disclosure.json     -> schema "segment_disclosure"
//
// A missing prompts directory is reported as an error wrapping
// os.ErrNotExist. The schemas directory is optional, but every schema in it
// must compile and every schema a prompt references must exist.
func LoadInto(r *Registry, baseDir string) error {
	if err := loadPrompts(r, filepath.Join(baseDir, "prompts")); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	if err := loadSchemas(r, filepath.Join(baseDir, "schemas")); err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	if err := r.checkSchemaRefs(); err != nil {
		return err
	}

	slog.Info("prompt.loader.loaded", "prompts", r.Count(), "schemas", len(r.schemas), "dir", baseDir)
	slog.Debug("prompt.loader.ids", "ids", r.ListPrompts())
	return nil
}

func loadPrompts(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("prompts directory not found: %s: %w", dir, os.ErrNotExist)
	}

	return walkJSON(dir, func(path string, data []byte) error {
		var t Template
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if t.ID == "" {
			t.ID = generateIDFromPath(path, dir)
		}
		if t.Category == "" {
			t.Category = detectCategory(path, dir)
		}
		return r.Register(&t)
	})
}

func loadSchemas(r *Registry, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return walkJSON(dir, func(path string, data []byte) error {
		s, err := CompileSchema(strings.TrimSuffix(filepath.Base(path), ".json"), data)
		if err != nil {
			return err
		}
		return r.RegisterSchema(s)
	})
}

func walkJSON(dir string, fn func(path string, data []byte) error) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return fn(path, data)
	})
}

func (r *Registry) checkSchemaRefs() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, t := range r.prompts {
		if t.ResponseSchema == "" {
			continue
		}
		if _, ok := r.schemas[t.ResponseSchema]; !ok {
			return fmt.Errorf("prompt %s references unknown schema %s", id, t.ResponseSchema)
		}
	}
	return nil
}

// generateIDFromPath turns "segments/disclosure.json" below baseDir into
// "segments.disclosure".
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, ".json")
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}
