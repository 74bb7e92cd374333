// models/achievement.go
package models

// AchievementDefinition is one entry of the achievement catalog, loaded once
// at startup from data/achievements.json and immutable for the process
// lifetime. Requirement maps record counter names to minimum thresholds; an
// achievement unlocks when every listed counter meets its threshold.
type AchievementDefinition struct {
	Key         string         `json:"-"`
	DisplayName string         `json:"name"`
	Description string         `json:"description"`
	Requirement map[string]int `json:"requirement"`
}
