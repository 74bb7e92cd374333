// services/content.go - JSON content loading with first-run bootstrapping
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// DataDirectory holds the JSON content files (achievement catalog, shop
// items, question bank). Missing files are written with defaults on first
// run so a fresh deployment starts with playable content.
const DataDirectory = "./data"

const (
	AchievementsFile = "achievements.json"
	ShopItemsFile    = "shop_items.json"
	QuestionsFile    = "questions.json"
)

// ConfigError marks malformed content definitions. It is fatal at load
// time; the process must not start with a broken catalog.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid content file %s: %s", e.Path, e.Reason)
}

// ensureFile writes defaultContent to path when the file does not exist yet.
func ensureFile(path string, defaultContent []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}

	log.Printf("Content file %s not found, writing defaults...", path)
	if err := os.WriteFile(path, defaultContent, 0644); err != nil {
		return fmt.Errorf("failed to write default content %s: %w", path, err)
	}
	return nil
}

// decodeOrderedObject walks a top-level JSON object and visits each entry in
// file order. encoding/json maps lose key order, which the catalog relies on
// for deterministic unlock reporting.
func decodeOrderedObject(data []byte, visit func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("entry %q: %w", key, err)
		}
		if err := visit(key, raw); err != nil {
			return err
		}
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

var defaultAchievements = []byte(`{
    "first_win": {
        "name": "First Answer!",
        "description": "Answer one quiz question correctly.",
        "requirement": {"correct_answers": 1}
    },
    "quiz_streak": {
        "name": "Great Answers!",
        "description": "Answer 10 quiz questions correctly.",
        "requirement": {"correct_answers": 10}
    },
    "buy_once": {
        "name": "Gimmie your money!!",
        "description": "Make your first purchase.",
        "requirement": {"purchases": 1}
    },
    "quiz_25": {
        "name": "Push Your Limits!",
        "description": "Answer 25 quiz questions correctly.",
        "requirement": {"correct_answers": 25}
    },
    "quiz_50": {
        "name": "Have You Lost Your Mind?",
        "description": "Answer 50 quiz questions correctly.",
        "requirement": {"correct_answers": 50}
    },
    "quiz_100": {
        "name": "Touch Some Grass, Man",
        "description": "Answer 100 quiz questions correctly.",
        "requirement": {"correct_answers": 100}
    },
    "rich": {
        "name": "Rich Man",
        "description": "Hold 100 points or more.",
        "requirement": {"points": 100}
    }
}
`)

var defaultShopItems = []byte(`{
    "vip": {"name": "VIP Role", "price": 100, "role": "VIP"},
    "champion": {"name": "Champion Role", "price": 150, "role": "Champion"},
    "badge": {"name": "Quiz Master Badge", "price": 50}
}
`)

var defaultQuestions = []byte(`[
    {
        "text": "What is the capital of Indonesia?",
        "options": ["A. Jakarta", "B. Surabaya", "C. Bandung", "D. Medan"],
        "answer": "A"
    },
    {
        "text": "Which planet is third from the Sun?",
        "options": ["A. Mars", "B. Venus", "C. Earth", "D. Jupiter"],
        "answer": "C"
    },
    {
        "text": "Who invented the light bulb?",
        "options": ["A. Newton", "B. Einstein", "C. Edison", "D. Tesla"],
        "answer": "C"
    }
]
`)
