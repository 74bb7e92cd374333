package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContentFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadCatalogBootstrapsDefaults(t *testing.T) {
	dir := t.TempDir()

	catalog, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, catalog.Len())

	// The defaults must have landed on disk for the next run.
	_, err = os.Stat(filepath.Join(dir, AchievementsFile))
	assert.NoError(t, err)

	def, ok := catalog.Get("first_win")
	require.True(t, ok)
	assert.Equal(t, "First Answer!", def.DisplayName)
	assert.Equal(t, map[string]int{"correct_answers": 1}, def.Requirement)
}

func TestLoadCatalogPreservesFileOrder(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, AchievementsFile, `{
        "zulu":  {"name": "Z", "description": "z", "requirement": {"points": 1}},
        "alpha": {"name": "A", "description": "a", "requirement": {"points": 2}},
        "mike":  {"name": "M", "description": "m", "requirement": {"points": 3}}
    }`)

	catalog, err := LoadCatalog(dir)
	require.NoError(t, err)

	var keys []string
	for _, def := range catalog.All() {
		keys = append(keys, def.Key)
	}
	assert.Equal(t, []string{"zulu", "alpha", "mike"}, keys)
}

func TestLoadCatalogRejectsEmptyRequirement(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, AchievementsFile, `{
        "bad": {"name": "Bad", "description": "no requirement", "requirement": {}}
    }`)

	_, err := LoadCatalog(dir)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "empty requirement")
}

func TestLoadCatalogRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, AchievementsFile, `{
        "bad": {"name": "Bad", "description": "bogus field", "requirement": {"karma": 5}}
    }`)

	_, err := LoadCatalog(dir)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "karma")
}

func TestLoadCatalogRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, AchievementsFile, `{"broken":`)

	_, err := LoadCatalog(dir)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadShopItemsBootstrapsDefaults(t *testing.T) {
	dir := t.TempDir()

	items, err := LoadShopItems(dir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "vip", items[0].Key)
	assert.Equal(t, 100, items[0].Price)
	assert.Equal(t, "VIP", items[0].Role)
	assert.Equal(t, "badge", items[2].Key)
	assert.Empty(t, items[2].Role, "badge grants no role")
}

func TestLoadShopItemsRejectsNegativePrice(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, ShopItemsFile, `{
        "freebie": {"name": "Freebie", "price": -1}
    }`)

	_, err := LoadShopItems(dir)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "negative price")
}

func TestLoadQuestionsBootstrapsDefaults(t *testing.T) {
	dir := t.TempDir()

	questions, err := LoadQuestions(dir)
	require.NoError(t, err)
	require.NotEmpty(t, questions)

	for _, q := range questions {
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Options)
		assert.NotEmpty(t, q.Answer)
	}
}

func TestLoadQuestionsRejectsEmptyBank(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, QuestionsFile, `[]`)

	_, err := LoadQuestions(dir)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "empty")
}

func TestLoadQuestionsRejectsIncompleteQuestion(t *testing.T) {
	dir := t.TempDir()
	writeContentFile(t, dir, QuestionsFile, `[
        {"text": "Half a question?", "options": [], "answer": "A"}
    ]`)

	_, err := LoadQuestions(dir)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
