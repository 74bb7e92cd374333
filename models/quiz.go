// models/quiz.go
package models

// QuizQuestion is one entry of the static question bank loaded from
// data/questions.json. Answer is the accepted option letter (A-D).
type QuizQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}
