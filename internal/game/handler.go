package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/duelhub/debate-dueler/internal/deck"
	"github.com/duelhub/debate-dueler/internal/host"
	"github.com/duelhub/debate-dueler/internal/identity"
	"github.com/duelhub/debate-dueler/internal/metrics"
	"github.com/duelhub/debate-dueler/internal/store"
	httperrors "github.com/duelhub/debate-dueler/pkg/http/errors"
	ws "github.com/duelhub/debate-dueler/pkg/ws"
)

// HandlerOptions tunes the router.
type HandlerOptions struct {
	DealSize int // max questions per delivery; 0 means deck.MaxDealSize
}

// MessageSink is the slice of the hub the router needs to push responses.
type MessageSink interface {
	SendToUser(userID string, msg ws.Message) error
	JoinPost(postID, userID string)
}

// Handler is the server-side request router: one entry point dispatching on
// the closed request-type set, mutating deck/session/leaderboard state only
// through the persistence interface. Requests from different players share no
// in-process mutable state.
type Handler struct {
	store    store.Store
	archive  store.Archive // may be nil
	resolver *store.DeckResolver
	hub      MessageSink
	perms    identity.PermissionSource
	actions  host.Actions
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	dealSize int
	now      func() time.Time
	newRand  func() *rand.Rand
}

// NewHandler wires the router.
func NewHandler(s store.Store, archive store.Archive, hub MessageSink, perms identity.PermissionSource, actions host.Actions, m *metrics.Metrics, opts HandlerOptions, logger zerolog.Logger) *Handler {
	dealSize := opts.DealSize
	if dealSize <= 0 {
		dealSize = deck.MaxDealSize
	}
	return &Handler{
		store:    s,
		archive:  archive,
		resolver: store.NewDeckResolver(s, archive),
		hub:      hub,
		perms:    perms,
		actions:  actions,
		metrics:  m,
		logger:   logger.With().Str("component", "game-router").Logger(),
		dealSize: dealSize,
		now:      time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// HandleMessage routes one incoming request. Unknown types are logged and
// answered with an error payload; they never crash the router.
func (h *Handler) HandleMessage(ctx context.Context, req identity.Requester, postID string, msg ws.Message) error {
	outcome := "ok"
	err := h.dispatch(ctx, req, postID, msg)
	if err != nil {
		outcome = "error"
	}
	if h.metrics != nil {
		h.metrics.RequestsTotal.WithLabelValues(msg.Type, outcome).Inc()
	}
	return err
}

func (h *Handler) dispatch(ctx context.Context, req identity.Requester, postID string, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeInit:
		return h.handlePostData(ctx, req, postID, ws.TypeInitResponse, true)
	case ws.TypeGetPostData:
		return h.handlePostData(ctx, req, postID, ws.TypeGivePostData, true)
	case ws.TypeCompleteGame:
		return h.handleCompleteGame(ctx, req, postID, msg.Payload)
	case ws.TypeGetLeaderboardData:
		return h.handleGetLeaderboard(ctx, req, postID)
	case ws.TypeAddQuestion:
		return h.handleAddQuestion(ctx, req, postID, msg.Payload)
	case ws.TypeEditQuestion:
		return h.handleEditQuestion(ctx, req, postID, msg.Payload)
	case ws.TypeDeleteQuestion:
		return h.handleDeleteQuestion(ctx, req, postID, msg.Payload)
	case ws.TypeCreateNewPost:
		return h.handleCreateNewPost(ctx, req, msg.Payload)
	default:
		h.logger.Error().Str("type", msg.Type).Str("user_id", req.UserID).Msg("unknown message type")
		return h.sendError(req.UserID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

// handlePostData answers INIT and GET_POST_DATA, and pushes the refreshed
// snapshot after deck edits. dealt controls the delivery-only shuffle and
// truncation; snapshot refreshes send the deck verbatim.
func (h *Handler) handlePostData(ctx context.Context, req identity.Requester, postID, responseType string, dealt bool) error {
	if postID == "" {
		return h.sendError(req.UserID, httperrors.ErrCodeMissingField, "Post id is required")
	}

	payload, err := h.buildSnapshot(ctx, req, postID, dealt)
	if err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Msg("snapshot build failed")
		return h.sendError(req.UserID, httperrors.ErrCodeDeckFetchFailed, "Could not load post data")
	}

	h.hub.JoinPost(postID, req.UserID)

	msg, err := ws.NewMessage(responseType, payload)
	if err != nil {
		return err
	}
	return h.hub.SendToUser(req.UserID, msg)
}

// buildSnapshot resolves the three pieces of per-request context: the deck
// (default substituted and persisted once if absent), the player's session
// (defaults if absent) and the player's rank.
func (h *Handler) buildSnapshot(ctx context.Context, req identity.Requester, postID string, dealt bool) (ws.PostDataPayload, error) {
	d, err := h.resolver.Resolve(ctx, postID)
	if err != nil {
		return ws.PostDataPayload{}, fmt.Errorf("resolve deck: %w", err)
	}

	session, err := h.store.GetPlayerSession(ctx, postID, req.UserID)
	if errors.Is(err, store.ErrSessionNotFound) {
		session = deck.NewSession(req.UserID, req.Username, h.now())
	} else if err != nil {
		return ws.PostDataPayload{}, fmt.Errorf("load session: %w", err)
	}

	// Questions may have been deleted under a running game; an index past the
	// deck is reported as exactly complete, never clamped onto a question the
	// player did not answer.
	if session.CurrentQuestionIndex > len(d.Questions) {
		session.CurrentQuestionIndex = len(d.Questions)
	}

	var rank *int
	if r, ok, err := h.store.GetPlayerRank(ctx, postID, req.UserID); err != nil {
		h.logger.Warn().Err(err).Str("post_id", postID).Msg("rank lookup failed")
	} else if ok {
		rank = &r
	}

	if dealt {
		d = deck.Deal(h.newRand(), d, h.dealSize)
	}

	return ws.PostDataPayload{
		PostID:        postID,
		Deck:          d,
		PlayerSession: session,
		PlayerRank:    rank,
		UserID:        req.UserID,
		Username:      req.Username,
		IsAdmin:       h.elevated(ctx, req),
	}, nil
}

func (h *Handler) handleCompleteGame(ctx context.Context, req identity.Requester, postID string, payload json.RawMessage) error {
	if postID == "" || req.UserID == "" {
		return h.sendError(req.UserID, httperrors.ErrCodeMissingField, "Post id and user id are required")
	}

	var body ws.CompleteGamePayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeInvalidPayload, "Invalid COMPLETE_GAME payload")
	}

	saved := true
	start := h.now()
	if err := h.store.SaveUserGameData(ctx, postID, req.UserID, body.Answers, body.TotalScore, body.SessionData); err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Str("user_id", req.UserID).Msg("game save failed")
		saved = false
	}
	if h.metrics != nil {
		h.metrics.PersistenceSeconds.WithLabelValues("save_game").Observe(time.Since(start).Seconds())
	}

	msg, err := ws.NewMessage(ws.TypeConfirmSave, ws.ConfirmSavePayload{IsSaved: saved})
	if err != nil {
		return err
	}
	return h.hub.SendToUser(req.UserID, msg)
}

func (h *Handler) handleGetLeaderboard(ctx context.Context, req identity.Requester, postID string) error {
	if postID == "" {
		return h.sendError(req.UserID, httperrors.ErrCodeMissingField, "Post id is required")
	}

	entries, err := h.store.GetLeaderboard(ctx, postID)
	if err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Msg("leaderboard fetch failed")
		return h.sendError(req.UserID, httperrors.ErrCodeLeaderboardFetchFailed, "Could not load leaderboard")
	}

	rows := make([]ws.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ws.LeaderboardEntry{
			UserID:     e.UserID,
			Username:   e.Username,
			TotalScore: e.TotalScore,
			Rank:       e.Rank,
		})
	}

	var rank *int
	if r, ok, err := h.store.GetPlayerRank(ctx, postID, req.UserID); err == nil && ok {
		rank = &r
	}

	// PlayerScore stays unset in this flow.
	msg, err := ws.NewMessage(ws.TypeGiveLeaderboardData, ws.LeaderboardPayload{
		Leaderboard: rows,
		PlayerRank:  rank,
	})
	if err != nil {
		return err
	}
	return h.hub.SendToUser(req.UserID, msg)
}

func (h *Handler) handleAddQuestion(ctx context.Context, req identity.Requester, postID string, payload json.RawMessage) error {
	if postID == "" {
		return h.sendError(req.UserID, httperrors.ErrCodeMissingField, "Post id is required")
	}

	var body ws.AddQuestionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeInvalidPayload, "Invalid ADD_QUESTION payload")
	}

	q := body.Question
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.AuthorUsername = req.Username
	if err := q.Validate(); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeValidationFailed, err.Error())
	}

	if err := h.store.AddQuestionToDeck(ctx, postID, q); err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Msg("add question failed")
		return h.sendError(req.UserID, httperrors.ErrCodeQuestionAddFailed, "Could not add question")
	}
	// No direct response; the next snapshot fetch reflects the new question.
	return nil
}

func (h *Handler) handleEditQuestion(ctx context.Context, req identity.Requester, postID string, payload json.RawMessage) error {
	if postID == "" {
		return h.sendError(req.UserID, httperrors.ErrCodeMissingField, "Post id is required")
	}

	var body ws.EditQuestionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeInvalidPayload, "Invalid EDIT_QUESTION payload")
	}
	if err := body.Question.Validate(); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeValidationFailed, err.Error())
	}

	if err := h.store.EditQuestionInDeck(ctx, postID, body.Question); err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Str("question_id", body.Question.ID).Msg("edit question failed")
		return h.sendError(req.UserID, httperrors.ErrCodeQuestionEditFailed, "Could not edit question")
	}

	return h.handlePostData(ctx, req, postID, ws.TypeGivePostData, false)
}

func (h *Handler) handleDeleteQuestion(ctx context.Context, req identity.Requester, postID string, payload json.RawMessage) error {
	if postID == "" {
		return h.sendError(req.UserID, httperrors.ErrCodeMissingField, "Post id is required")
	}

	var body ws.DeleteQuestionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeInvalidPayload, "Invalid DELETE_QUESTION payload")
	}

	if err := h.store.DeleteQuestionFromDeck(ctx, postID, body.QuestionID); err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Str("question_id", body.QuestionID).Msg("delete question failed")
		return h.sendError(req.UserID, httperrors.ErrCodeQuestionDeleteFailed, "Could not delete question")
	}

	return h.handlePostData(ctx, req, postID, ws.TypeGivePostData, false)
}

func (h *Handler) handleCreateNewPost(ctx context.Context, req identity.Requester, payload json.RawMessage) error {
	var body ws.CreateNewPostPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeInvalidPayload, "Invalid CREATE_NEW_POST payload")
	}

	d := body.PostData
	if err := d.Validate(); err != nil {
		return h.sendError(req.UserID, httperrors.ErrCodeValidationFailed, err.Error())
	}
	d.Source = deck.SourceStored

	title := fmt.Sprintf("%s by %s", d.Title, d.CreatedBy)
	postID, err := h.actions.CreatePost(ctx, host.PostRequest{Title: title, Subreddit: req.Subreddit})
	if err != nil {
		h.logger.Error().Err(err).Str("title", title).Msg("post creation failed")
		return h.sendError(req.UserID, httperrors.ErrCodePostCreationFailed, "Could not create post")
	}

	if err := h.store.SaveDeck(ctx, postID, d); err != nil {
		h.logger.Error().Err(err).Str("post_id", postID).Msg("deck save failed")
		return h.sendError(req.UserID, httperrors.ErrCodeDeckSaveFailed, "Could not save deck")
	}
	if h.archive != nil {
		if err := h.archive.SaveDeck(ctx, postID, d); err != nil {
			// The primary store has the deck; losing the archive copy is
			// recoverable and must not fail the request.
			h.logger.Warn().Err(err).Str("post_id", postID).Msg("deck archive write failed")
		}
	}

	if err := h.actions.Notify(ctx, req.UserID, "Created post!"); err != nil {
		h.logger.Warn().Err(err).Msg("notify failed")
	}
	if err := h.actions.Navigate(ctx, req.UserID, postID); err != nil {
		h.logger.Warn().Err(err).Msg("navigate failed")
	}
	return nil
}

// elevated recomputes the privilege flag from the requester's moderation
// permissions on every request so permission changes apply immediately.
func (h *Handler) elevated(ctx context.Context, req identity.Requester) bool {
	perms, err := h.perms.ModeratorPermissions(ctx, req.Username, req.Subreddit)
	if err != nil {
		h.logger.Warn().Err(err).Str("username", req.Username).Msg("permission lookup failed")
		return false
	}
	return identity.Elevated(perms)
}

func (h *Handler) sendError(userID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return h.hub.SendToUser(userID, msg)
}
