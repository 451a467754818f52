package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/scenario"
	"github.com/parley-engine/parley/pkg/scene"
)

// validate checks a content directory (cards, scenes, scenarios) the
// same way the API server does at boot, plus sustainability analysis
// that the server skips. Run it in CI before shipping content.
func main() {
	dataDir := os.Getenv("DATA_DIR")
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}
	if dataDir == "" {
		dataDir = "./data"
	}

	v := &ContentValidator{dataDir: dataDir}
	if err := v.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Content is valid!")
}

type ContentValidator struct {
	dataDir string
	errors  []string
}

func (v *ContentValidator) errorf(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *ContentValidator) run() error {
	fmt.Printf("Validating %s...\n", v.dataDir)

	catalog, err := v.loadCards()
	if err != nil {
		return err
	}
	templates, err := v.loadScenes()
	if err != nil {
		return err
	}
	if err := v.loadScenarios(catalog, templates); err != nil {
		return err
	}

	v.analyzeCatalog(catalog)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *ContentValidator) loadCards() (*card.Catalog, error) {
	var defs []card.Card
	err := v.walkJSON("cards", func(path string, data []byte) error {
		var batch []card.Card
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&batch); err != nil {
			return fmt.Errorf("card file %s failed strict JSON unmarshaling: %w", path, err)
		}
		for _, c := range batch {
			v.validateIDFormat("card ID", c.ID)
		}
		defs = append(defs, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	catalog, err := card.NewCatalog(defs)
	if err != nil {
		return nil, err
	}
	fmt.Printf("  %d cards loaded\n", catalog.Len())
	return catalog, nil
}

func (v *ContentValidator) loadScenes() (map[string]*scene.Template, error) {
	templates := make(map[string]*scene.Template)
	err := v.walkJSON("scenes", func(path string, data []byte) error {
		var tpl scene.Template
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&tpl); err != nil {
			return fmt.Errorf("scene file %s failed strict JSON unmarshaling: %w", path, err)
		}
		if err := tpl.Validate(); err != nil {
			return fmt.Errorf("scene file %s: %w", path, err)
		}
		v.validateIDFormat("scene ID", tpl.ID)
		if _, dup := templates[tpl.ID]; dup {
			return fmt.Errorf("duplicate scene template id %q in %s", tpl.ID, path)
		}
		templates[tpl.ID] = &tpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("  %d scene templates loaded\n", len(templates))
	return templates, nil
}

func (v *ContentValidator) loadScenarios(catalog *card.Catalog, templates map[string]*scene.Template) error {
	count := 0
	err := v.walkJSON("scenarios", func(path string, data []byte) error {
		baseName := filepath.Base(path)
		if !isValidContentFilename(strings.TrimSuffix(baseName, ".json")) {
			v.errorf("scenario filename %q must be lowercase snake_case", baseName)
		}

		var s scenario.Scenario
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&s); err != nil {
			return fmt.Errorf("scenario file %s failed strict JSON unmarshaling: %w", path, err)
		}
		if err := s.Validate(catalog); err != nil {
			return fmt.Errorf("scenario file %s: %w", path, err)
		}

		v.validateIDFormat("opening_location", s.OpeningLocation)
		for _, loc := range s.Locations {
			v.validateIDFormat("location ID", loc)
		}
		for npcID := range s.NPCs {
			v.validateIDFormat("NPC ID", npcID)
		}
		for _, sceneID := range s.Scenes {
			if _, ok := templates[sceneID]; !ok {
				v.errorf("scenario %q references unknown scene template %q", s.Name, sceneID)
			}
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("  %d scenarios loaded\n", count)
	return nil
}

// analyzeCatalog runs the sustainability checks: long conversations
// must never deplete the economy irreversibly, and every depth tier
// with cards must be reachable through cheaper tiers below it.
func (v *ContentValidator) analyzeCatalog(catalog *card.Catalog) {
	foundations := 0
	for _, c := range catalog.Enumerate(card.Filter{}) {
		if c.IsFoundation() {
			foundations++
		}
	}
	if foundations == 0 {
		v.errorf("catalog has no foundation card (depth <= 2, zero cost, echo); conversations cannot sustain initiative")
	}

	maxDepth := 0
	byDepth := make(map[int]int)
	for _, c := range catalog.Enumerate(card.Filter{}) {
		byDepth[c.Depth]++
		if c.Depth > maxDepth {
			maxDepth = c.Depth
		}
	}
	for d := 0; d <= maxDepth; d++ {
		if byDepth[d] == 0 {
			v.errorf("no cards at depth %d but deeper tiers exist (max %d); depth progression has a gap", d, maxDepth)
		}
	}

	fmt.Printf("  %d foundation cards, max depth %d\n", foundations, maxDepth)
}

// walkJSON visits every .json file under dataDir/sub. A missing
// directory is an error: content trees always carry all three.
func (v *ContentValidator) walkJSON(sub string, visit func(path string, data []byte) error) error {
	dir := filepath.Join(v.dataDir, sub)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("file %s contains invalid JSON", path)
		}
		return visit(path, data)
	})
}

var snakeCase = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func isValidContentFilename(name string) bool {
	return snakeCase.MatchString(name)
}

func (v *ContentValidator) validateIDFormat(kind, id string) {
	if id == "" {
		return
	}
	// Generated location ids carry a prefix; the part after it still
	// follows the same format rules.
	id = strings.TrimPrefix(id, "generated:")
	if !snakeCase.MatchString(id) {
		v.errorf("%s %q must be lowercase snake_case", kind, id)
	}
}
