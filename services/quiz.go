// services/quiz.go - Single-shot quiz sessions
package services

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"kandibot/models"

	"github.com/google/uuid"
)

// DefaultAnswerTimeout bounds how long a quiz session waits for a reply.
const DefaultAnswerTimeout = 15 * time.Second

// Outcome is the result of one quiz exchange. Timeout is a first-class
// branch, not an error path.
type Outcome string

const (
	OutcomeCorrect   Outcome = "CORRECT"
	OutcomeIncorrect Outcome = "INCORRECT"
	OutcomeExpired   Outcome = "EXPIRED"
)

// ErrQuizActive is returned when the requester already has an open quiz
// session in the channel.
var ErrQuizActive = errors.New("a quiz is already running in this channel")

var acceptedAnswers = map[string]bool{"A": true, "B": true, "C": true, "D": true}

// QuizSession is one ephemeral question/answer exchange. It resolves
// exactly once: with a matching reply or with its own timeout.
type QuizSession struct {
	ID        string
	AuthorID  string
	ChannelID string
	Question  models.QuizQuestion

	registry *QuizRegistry
	answers  chan string
}

// QuizRegistry tracks open sessions and routes platform messages to them.
type QuizRegistry struct {
	bank        []models.QuizQuestion
	progression *Progression

	mu       sync.Mutex
	sessions map[string]*QuizSession
}

func NewQuizRegistry(bank []models.QuizQuestion, progression *Progression) *QuizRegistry {
	return &QuizRegistry{
		bank:        bank,
		progression: progression,
		sessions:    make(map[string]*QuizSession),
	}
}

// Start opens a session for the requester with one question picked
// uniformly at random from the bank. Repeats across sessions are allowed.
func (r *QuizRegistry) Start(authorID, channelID string) (*QuizSession, error) {
	key := sessionKey(authorID, channelID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[key]; exists {
		return nil, ErrQuizActive
	}

	s := &QuizSession{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		ChannelID: channelID,
		Question:  r.bank[rand.Intn(len(r.bank))],
		registry:  r,
		answers:   make(chan string, 1),
	}
	r.sessions[key] = s
	return s, nil
}

// HandleMessage feeds a free-text platform message to the matching open
// session, if any. Only a message from the original requester in the same
// channel whose content is one of the accepted answer letters is consumed;
// everything else is ignored and left to other conversations.
func (r *QuizRegistry) HandleMessage(authorID, channelID, content string) bool {
	answer := strings.ToUpper(strings.TrimSpace(content))
	if !acceptedAnswers[answer] {
		return false
	}

	r.mu.Lock()
	s, ok := r.sessions[sessionKey(authorID, channelID)]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case s.answers <- answer:
		return true
	default:
		// Session already resolved.
		return false
	}
}

func (r *QuizRegistry) remove(s *QuizSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey(s.AuthorID, s.ChannelID)
	if r.sessions[key] == s {
		delete(r.sessions, key)
	}
}

// AwaitAnswer suspends until a matching reply arrives or the timeout
// elapses. On a correct answer it records the result with the progression
// engine and returns the newly unlocked achievement names.
func (s *QuizSession) AwaitAnswer(timeout time.Duration) (Outcome, []string, error) {
	defer s.registry.remove(s)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case answer := <-s.answers:
		if !strings.EqualFold(answer, s.Question.Answer) {
			return OutcomeIncorrect, nil, nil
		}
		unlocked, err := s.registry.progression.RecordCorrectAnswer(s.AuthorID)
		if err != nil {
			return OutcomeCorrect, nil, err
		}
		return OutcomeCorrect, unlocked, nil
	case <-timer.C:
		return OutcomeExpired, nil, nil
	}
}

func sessionKey(authorID, channelID string) string {
	return channelID + ":" + authorID
}
