// services/catalog.go - Achievement catalog and shop item loading
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"kandibot/models"
)

// Catalog is the immutable-per-run set of achievement definitions. Iteration
// order follows the content file, so unlock reporting stays deterministic
// for the whole process lifetime.
type Catalog struct {
	defs  []models.AchievementDefinition
	byKey map[string]models.AchievementDefinition
}

// LoadCatalog reads the achievement definitions from dir, bootstrapping the
// default catalog on first run. It returns a *ConfigError when a definition
// has an empty requirement or references an unknown record field.
func LoadCatalog(dir string) (*Catalog, error) {
	path := filepath.Join(dir, AchievementsFile)
	if err := ensureFile(path, defaultAchievements); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read achievement catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]models.AchievementDefinition)}
	err = decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var def models.AchievementDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return &ConfigError{Path: path, Reason: fmt.Sprintf("achievement %q: %v", key, err)}
		}
		def.Key = key

		if len(def.Requirement) == 0 {
			return &ConfigError{Path: path, Reason: fmt.Sprintf("achievement %q has an empty requirement", key)}
		}
		var probe models.UserRecord
		for field := range def.Requirement {
			if _, ok := probe.Counter(field); !ok {
				return &ConfigError{Path: path, Reason: fmt.Sprintf("achievement %q requires unknown field %q", key, field)}
			}
		}

		c.defs = append(c.defs, def)
		c.byKey[key] = def
		return nil
	})
	if err != nil {
		if _, ok := err.(*ConfigError); ok {
			return nil, err
		}
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	log.Printf("✅ Loaded %d achievement definitions", len(c.defs))
	return c, nil
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []models.AchievementDefinition {
	return c.defs
}

// Get looks up a definition by key.
func (c *Catalog) Get(key string) (models.AchievementDefinition, bool) {
	def, ok := c.byKey[key]
	return def, ok
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// LoadShopItems reads the shop inventory from dir, bootstrapping defaults on
// first run. Item order follows the content file.
func LoadShopItems(dir string) ([]models.ShopItem, error) {
	path := filepath.Join(dir, ShopItemsFile)
	if err := ensureFile(path, defaultShopItems); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shop items: %w", err)
	}

	var items []models.ShopItem
	err = decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var item models.ShopItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return &ConfigError{Path: path, Reason: fmt.Sprintf("item %q: %v", key, err)}
		}
		item.Key = key
		if item.Price < 0 {
			return &ConfigError{Path: path, Reason: fmt.Sprintf("item %q has a negative price", key)}
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		if _, ok := err.(*ConfigError); ok {
			return nil, err
		}
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	log.Printf("✅ Loaded %d shop items", len(items))
	return items, nil
}

// LoadQuestions reads the quiz question bank from dir, bootstrapping
// defaults on first run.
func LoadQuestions(dir string) ([]models.QuizQuestion, error) {
	path := filepath.Join(dir, QuestionsFile)
	if err := ensureFile(path, defaultQuestions); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var questions []models.QuizQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}
	if len(questions) == 0 {
		return nil, &ConfigError{Path: path, Reason: "question bank is empty"}
	}
	for i, q := range questions {
		if q.Text == "" || len(q.Options) == 0 || q.Answer == "" {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("question %d is incomplete", i)}
		}
	}

	log.Printf("✅ Loaded %d quiz questions", len(questions))
	return questions, nil
}
