package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/duelhub/debate-dueler/internal/capture"
	"github.com/duelhub/debate-dueler/internal/deck"
	"github.com/duelhub/debate-dueler/internal/scoring"
	ws "github.com/duelhub/debate-dueler/pkg/ws"
)

// Sender pushes a message to the server over the player's channel.
type Sender func(msg ws.Message) error

// Player is the client-side integration: it runs the answer-capture machine
// over a delivered snapshot, scores each answer locally under the session's
// scoring mode, and sends COMPLETE_GAME exactly once, when the last question
// has been answered. Answer submission and game completion stay distinct:
// intermediate answers never leave the client.
type Player struct {
	deckSnapshot deck.Deck
	session      deck.PlayerSession
	engine       *scoring.Engine
	send         Sender
	machine      *capture.Machine

	answers    []deck.PlayerAnswer
	totalScore int
	sent       bool
}

// NewPlayer builds the client game from an INIT_RESPONSE/GIVE_POST_DATA
// snapshot. checkpoints may be nil.
func NewPlayer(snapshot ws.PostDataPayload, engine *scoring.Engine, send Sender, checkpoints capture.CheckpointStore, logger zerolog.Logger) *Player {
	p := &Player{
		deckSnapshot: snapshot.Deck,
		session:      snapshot.PlayerSession,
		engine:       engine,
		send:         send,
		totalScore:   snapshot.PlayerSession.TotalScore,
		answers:      append([]deck.PlayerAnswer(nil), snapshot.PlayerSession.Answers...),
	}
	p.machine = capture.NewMachine(snapshot.Deck, snapshot.PlayerSession, p.submit, checkpoints, capture.Options{}, logger)
	return p
}

// Machine exposes the underlying state machine to the UI and to runners.
func (p *Player) Machine() *capture.Machine { return p.machine }

// TotalScore is the locally accumulated score.
func (p *Player) TotalScore() int { return p.totalScore }

func (p *Player) submit(ctx context.Context, ans deck.PlayerAnswer) (capture.SubmitResult, error) {
	q, _, ok := p.deckSnapshot.QuestionByID(ans.QuestionID)
	if !ok {
		return capture.SubmitResult{}, fmt.Errorf("question %s not in delivered deck", ans.QuestionID)
	}

	score := p.engine.Score(q, p.deckSnapshot.StatsFor(q.ID), ans, p.session.ScoringMode)
	ans.Score = score

	answered := len(p.answers) + 1
	complete := answered >= len(p.deckSnapshot.Questions)

	if complete && !p.sent {
		finalSession := p.session
		finalSession.CurrentQuestionIndex = answered
		finalSession.TotalScore = p.totalScore + score
		finalSession.Answers = nil // carried in the payload's answers field

		msg, err := ws.NewMessage(ws.TypeCompleteGame, ws.CompleteGamePayload{
			Answers:     append(append([]deck.PlayerAnswer(nil), p.answers...), ans),
			TotalScore:  p.totalScore + score,
			SessionData: finalSession,
		})
		if err != nil {
			return capture.SubmitResult{}, err
		}
		if err := p.send(msg); err != nil {
			// Leave local state untouched so the machine re-enables input and
			// the submit can be retried.
			return capture.SubmitResult{}, fmt.Errorf("send complete_game: %w", err)
		}
		p.sent = true
	}

	p.answers = append(p.answers, ans)
	p.totalScore += score

	return capture.SubmitResult{
		Score:          score,
		TotalScore:     p.totalScore,
		IsGameComplete: complete,
	}, nil
}
