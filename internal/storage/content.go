package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/scenario"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/world"
)

// Static content operations (filesystem-backed). Content is read once
// at startup; a malformed file aborts the boot with a ContentError
// rather than being skipped.

// LoadCatalog reads every card file under dataDir/cards. Each file
// holds a JSON array of card definitions.
func (r *RedisStorage) LoadCatalog(ctx context.Context) (*card.Catalog, error) {
	cardsDir := filepath.Join(r.dataDir, "cards")
	var defs []card.Card

	err := filepath.WalkDir(cardsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read card file %s: %w", path, err)
		}

		var batch []card.Card
		if err := json.Unmarshal(file, &batch); err != nil {
			return fmt.Errorf("failed to unmarshal card file %s: %w", path, err)
		}
		defs = append(defs, batch...)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to load card catalog", "dir", cardsDir, "error", err)
		return nil, err
	}

	catalog, err := card.NewCatalog(defs)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Card catalog loaded", "cards", catalog.Len())
	return catalog, nil
}

// LoadSceneTemplates reads every scene template under dataDir/scenes,
// one template per file, keyed by template id.
func (r *RedisStorage) LoadSceneTemplates(ctx context.Context) (map[string]*scene.Template, error) {
	scenesDir := filepath.Join(r.dataDir, "scenes")
	templates := make(map[string]*scene.Template)

	err := filepath.WalkDir(scenesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read scene file %s: %w", path, err)
		}

		var tpl scene.Template
		if err := json.Unmarshal(file, &tpl); err != nil {
			return fmt.Errorf("failed to unmarshal scene file %s: %w", path, err)
		}
		if err := tpl.Validate(); err != nil {
			return fmt.Errorf("scene file %s: %w", path, err)
		}
		if _, dup := templates[tpl.ID]; dup {
			return &card.ContentError{Reason: fmt.Sprintf("duplicate scene template id %q", tpl.ID)}
		}
		templates[tpl.ID] = &tpl
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to load scene templates", "dir", scenesDir, "error", err)
		return nil, err
	}

	r.logger.Info("Scene templates loaded", "templates", len(templates))
	return templates, nil
}

// ListScenarios maps scenario names to their file names.
func (r *RedisStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	scenariosDir := filepath.Join(r.dataDir, "scenarios")
	scenarios := make(map[string]string)

	err := filepath.WalkDir(scenariosDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read scenario file", "path", path, "error", err)
			return nil
		}

		var s scenario.Scenario
		if err := json.Unmarshal(file, &s); err != nil {
			r.logger.Warn("Failed to unmarshal scenario file", "path", path, "error", err)
			return nil
		}

		scenarios[s.Name] = filepath.Base(path)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to walk scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	return scenarios, nil
}

// GetScenario loads one scenario by file name.
func (r *RedisStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	path := filepath.Join(r.dataDir, "scenarios", filename)

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario %s: %w", filename, world.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s scenario.Scenario
	if err := json.Unmarshal(file, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	s.FileName = filename
	return &s, nil
}
