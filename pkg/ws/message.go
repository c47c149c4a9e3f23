package ws

import (
	"encoding/json"

	"github.com/duelhub/debate-dueler/internal/deck"
)

// MessageType constants for the webview protocol.
const (
	// Client -> Server
	TypeInit               = "INIT"
	TypeGetPostData        = "GET_POST_DATA"
	TypeCompleteGame       = "COMPLETE_GAME"
	TypeGetLeaderboardData = "GET_LEADERBOARD_DATA"
	TypeAddQuestion        = "ADD_QUESTION"
	TypeEditQuestion       = "EDIT_QUESTION"
	TypeDeleteQuestion     = "DELETE_QUESTION"
	TypeCreateNewPost      = "CREATE_NEW_POST"

	// Server -> Client
	TypeInitResponse        = "INIT_RESPONSE"
	TypeGivePostData        = "GIVE_POST_DATA"
	TypeConfirmSave         = "CONFIRM_SAVE_PLAYER_DATA"
	TypeGiveLeaderboardData = "GIVE_LEADERBOARD_DATA"
	TypeError               = "ERROR"
)

// RequestTypes is the closed set of client request tags. Dispatch switches
// over it exhaustively; anything else is a protocol violation.
var RequestTypes = []string{
	TypeInit,
	TypeGetPostData,
	TypeCompleteGame,
	TypeGetLeaderboardData,
	TypeAddQuestion,
	TypeEditQuestion,
	TypeDeleteQuestion,
	TypeCreateNewPost,
}

// Message wraps every payload with its type discriminator.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals a payload into an envelope. Marshal errors surface to
// the caller instead of silently producing an empty payload.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: data}, nil
}

// Client Messages (incoming)

// CompleteGamePayload carries the finished game's answer sheet.
type CompleteGamePayload struct {
	Answers     []deck.PlayerAnswer `json:"answers"`
	TotalScore  int                 `json:"totalScore"`
	SessionData deck.PlayerSession  `json:"sessionData"`
}

type AddQuestionPayload struct {
	Question deck.Question `json:"question"`
}

type EditQuestionPayload struct {
	Question deck.Question `json:"question"`
}

type DeleteQuestionPayload struct {
	QuestionID string `json:"questionId"`
}

type CreateNewPostPayload struct {
	PostData deck.Deck `json:"postData"`
}

// Server Messages (outgoing)

// PostDataPayload is the full deck+session+rank+identity snapshot returned by
// INIT_RESPONSE and GIVE_POST_DATA. PlayerRank is nil when the player has no
// session yet.
type PostDataPayload struct {
	PostID        string             `json:"postId"`
	Deck          deck.Deck          `json:"deck"`
	PlayerSession deck.PlayerSession `json:"playerSession"`
	PlayerRank    *int               `json:"playerRank"`
	UserID        string             `json:"userId"`
	Username      string             `json:"username"`
	IsAdmin       bool               `json:"isAdmin"`
}

type ConfirmSavePayload struct {
	IsSaved bool `json:"isSaved"`
}

// LeaderboardEntry is one ranked row of a post's leaderboard.
type LeaderboardEntry struct {
	UserID     string `json:"userId"`
	Username   string `json:"username,omitempty"`
	TotalScore int    `json:"totalScore"`
	Rank       int    `json:"rank"`
}

// LeaderboardPayload answers GET_LEADERBOARD_DATA. PlayerScore stays unset in
// this flow.
type LeaderboardPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	PlayerRank  *int               `json:"playerRank"`
	PlayerScore *int               `json:"playerScore"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
