package game

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelhub/debate-dueler/internal/deck"
	"github.com/duelhub/debate-dueler/internal/host"
	"github.com/duelhub/debate-dueler/internal/identity"
	"github.com/duelhub/debate-dueler/internal/metrics"
	"github.com/duelhub/debate-dueler/internal/store"
	httperrors "github.com/duelhub/debate-dueler/pkg/http/errors"
	ws "github.com/duelhub/debate-dueler/pkg/ws"
)

// recordingSink captures everything the router pushes, per user.
type recordingSink struct {
	mu     sync.Mutex
	joined map[string][]string
	msgs   map[string][]ws.Message
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		joined: make(map[string][]string),
		msgs:   make(map[string][]ws.Message),
	}
}

func (s *recordingSink) SendToUser(userID string, msg ws.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs[userID] = append(s.msgs[userID], msg)
	return nil
}

func (s *recordingSink) JoinPost(postID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[postID] = append(s.joined[postID], userID)
}

func (s *recordingSink) last(t *testing.T, userID string) ws.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.msgs[userID]
	require.NotEmpty(t, msgs, "no message delivered to %s", userID)
	return msgs[len(msgs)-1]
}

func (s *recordingSink) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs[userID])
}

// fakeStore is an in-memory Store mirroring the persistence contract.
type fakeStore struct {
	mu       sync.Mutex
	decks    map[string]deck.Deck
	sessions map[string]deck.PlayerSession
	saveErr  error
	now      time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		decks:    make(map[string]deck.Deck),
		sessions: make(map[string]deck.PlayerSession),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) sessionKey(postID, userID string) string { return postID + "/" + userID }

func (f *fakeStore) GetDeck(_ context.Context, postID string) (deck.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.decks[postID]
	if !ok {
		return deck.Deck{}, store.ErrDeckNotFound
	}
	d.Source = deck.SourceStored
	return d, nil
}

func (f *fakeStore) SaveDeck(_ context.Context, postID string, d deck.Deck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks[postID] = d
	return nil
}

func (f *fakeStore) GetPlayerSession(_ context.Context, postID, userID string) (deck.PlayerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[f.sessionKey(postID, userID)]
	if !ok {
		return deck.PlayerSession{}, store.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeStore) SaveUserGameData(_ context.Context, postID, userID string, answers []deck.PlayerAnswer, totalScore int, session deck.PlayerSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	session.UserID = userID
	session.Answers = answers
	session.TotalScore = totalScore
	if session.CompletedAt == nil {
		completed := f.now
		session.CompletedAt = &completed
	}
	f.sessions[f.sessionKey(postID, userID)] = session
	return nil
}

func (f *fakeStore) GetLeaderboard(_ context.Context, postID string) ([]store.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []store.Entry
	for key, s := range f.sessions {
		if !strings.HasPrefix(key, postID+"/") || s.CompletedAt == nil {
			continue
		}
		entries = append(entries, store.Entry{
			UserID:      s.UserID,
			Username:    s.Username,
			TotalScore:  s.TotalScore,
			CompletedAt: *s.CompletedAt,
		})
	}
	return store.RankEntries(entries), nil
}

func (f *fakeStore) GetPlayerRank(ctx context.Context, postID, userID string) (int, bool, error) {
	entries, err := f.GetLeaderboard(ctx, postID)
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e.Rank, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeStore) AddQuestionToDeck(ctx context.Context, postID string, q deck.Question) error {
	d, err := f.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	d.Questions = append(d.Questions, q)
	return f.SaveDeck(ctx, postID, d)
}

func (f *fakeStore) EditQuestionInDeck(ctx context.Context, postID string, q deck.Question) error {
	d, err := f.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	_, idx, ok := d.QuestionByID(q.ID)
	if !ok {
		return store.ErrQuestionNotFound
	}
	d.Questions[idx] = q
	return f.SaveDeck(ctx, postID, d)
}

func (f *fakeStore) DeleteQuestionFromDeck(ctx context.Context, postID, questionID string) error {
	d, err := f.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	_, idx, ok := d.QuestionByID(questionID)
	if !ok {
		return store.ErrQuestionNotFound
	}
	d.Questions = append(d.Questions[:idx], d.Questions[idx+1:]...)
	return f.SaveDeck(ctx, postID, d)
}

// fakeActions records platform side effects.
type fakeActions struct {
	postID    string
	created   []host.PostRequest
	notified  []string
	navigated []string
}

func (a *fakeActions) CreatePost(_ context.Context, req host.PostRequest) (string, error) {
	a.created = append(a.created, req)
	return a.postID, nil
}

func (a *fakeActions) Notify(_ context.Context, _, text string) error {
	a.notified = append(a.notified, text)
	return nil
}

func (a *fakeActions) Navigate(_ context.Context, _, postID string) error {
	a.navigated = append(a.navigated, postID)
	return nil
}

type handlerFixture struct {
	handler *Handler
	store   *fakeStore
	sink    *recordingSink
	actions *fakeActions
}

func newHandlerFixture(perms identity.PermissionSource) *handlerFixture {
	if perms == nil {
		perms = identity.StaticPermissions{}
	}
	fs := newFakeStore()
	sink := newRecordingSink()
	actions := &fakeActions{postID: "t3_created"}
	m := metrics.New(prometheus.NewRegistry())
	h := NewHandler(fs, nil, sink, perms, actions, m, HandlerOptions{}, zerolog.Nop())
	return &handlerFixture{handler: h, store: fs, sink: sink, actions: actions}
}

func requester() identity.Requester {
	return identity.Requester{UserID: "u1", Username: "dueler", Subreddit: "debates"}
}

func decodePayload[T any](t *testing.T, msg ws.Message) T {
	t.Helper()
	var payload T
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload
}

func storedDeck(n int) deck.Deck {
	d := deck.Deck{ID: "stored", Title: "Stored", CreatedBy: "mod"}
	for i := 0; i < n; i++ {
		d.Questions = append(d.Questions, deck.Question{
			ID:           fmt.Sprintf("q%d", i),
			Prompt:       fmt.Sprintf("Question %d", i),
			QuestionType: deck.TypeSingle,
			TimeLimit:    20,
			Cards:        []deck.Card{{ID: "a"}, {ID: "b"}},
		})
	}
	return d
}

func TestInitSeedsDefaultDeck(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()

	err := fx.handler.HandleMessage(ctx, requester(), "t3_fresh", ws.Message{Type: ws.TypeInit})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeInitResponse, msg.Type)

	payload := decodePayload[ws.PostDataPayload](t, msg)
	assert.Equal(t, "t3_fresh", payload.PostID)
	assert.Equal(t, deck.DefaultDeck().ID, payload.Deck.ID)
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "dueler", payload.Username)
	assert.False(t, payload.IsAdmin)
	assert.Nil(t, payload.PlayerRank, "no session, no rank")
	assert.Equal(t, deck.ModeDefault, payload.PlayerSession.ScoringMode)

	// The substituted default is now the stored deck for the post.
	stored, err := fx.store.GetDeck(ctx, "t3_fresh")
	require.NoError(t, err)
	assert.Equal(t, deck.DefaultDeck().ID, stored.ID)

	assert.Equal(t, []string{"u1"}, fx.sink.joined["t3_fresh"])
}

func TestInitElevatesModerators(t *testing.T) {
	fx := newHandlerFixture(identity.StaticPermissions{"dueler": {"all"}})

	err := fx.handler.HandleMessage(context.Background(), requester(), "t3_x", ws.Message{Type: ws.TypeInit})
	require.NoError(t, err)

	payload := decodePayload[ws.PostDataPayload](t, fx.sink.last(t, "u1"))
	assert.True(t, payload.IsAdmin)
}

func TestGetPostDataDealsAtMostTen(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()
	require.NoError(t, fx.store.SaveDeck(ctx, "t3_big", storedDeck(25)))

	err := fx.handler.HandleMessage(ctx, requester(), "t3_big", ws.Message{Type: ws.TypeGetPostData})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeGivePostData, msg.Type)
	payload := decodePayload[ws.PostDataPayload](t, msg)
	assert.Len(t, payload.Deck.Questions, deck.MaxDealSize)

	stored, err := fx.store.GetDeck(ctx, "t3_big")
	require.NoError(t, err)
	assert.Len(t, stored.Questions, 25, "delivery never mutates the stored deck")
	ids := map[string]bool{}
	for _, q := range stored.Questions {
		ids[q.ID] = true
	}
	for _, q := range payload.Deck.Questions {
		assert.True(t, ids[q.ID])
	}
}

func TestPostDataRequiresPostID(t *testing.T) {
	fx := newHandlerFixture(nil)

	err := fx.handler.HandleMessage(context.Background(), requester(), "", ws.Message{Type: ws.TypeInit})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeError, msg.Type)
	payload := decodePayload[ws.ErrorPayload](t, msg)
	assert.Equal(t, httperrors.ErrCodeMissingField, payload.Code)
}

func TestCompleteGamePersistsAndAcks(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()

	session := deck.NewSession("u1", "dueler", fx.store.now.Add(-time.Minute))
	session.CurrentQuestionIndex = 2
	body, err := json.Marshal(ws.CompleteGamePayload{
		Answers: []deck.PlayerAnswer{
			{QuestionID: "q1", CardIDs: []string{"a"}, Score: 150},
			{QuestionID: "q2", CardIDs: []string{"b"}, Score: 100},
		},
		TotalScore:  250,
		SessionData: session,
	})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(ctx, requester(), "t3_x", ws.Message{Type: ws.TypeCompleteGame, Payload: body})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeConfirmSave, msg.Type)
	assert.True(t, decodePayload[ws.ConfirmSavePayload](t, msg).IsSaved)

	saved, err := fx.store.GetPlayerSession(ctx, "t3_x", "u1")
	require.NoError(t, err)
	assert.Equal(t, 250, saved.TotalScore)
	assert.Len(t, saved.Answers, 2)
	assert.NotNil(t, saved.CompletedAt)
}

func TestCompleteGameAcksFailure(t *testing.T) {
	fx := newHandlerFixture(nil)
	fx.store.saveErr = assert.AnError

	body, err := json.Marshal(ws.CompleteGamePayload{TotalScore: 100})
	require.NoError(t, err)
	err = fx.handler.HandleMessage(context.Background(), requester(), "t3_x", ws.Message{Type: ws.TypeCompleteGame, Payload: body})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeConfirmSave, msg.Type)
	assert.False(t, decodePayload[ws.ConfirmSavePayload](t, msg).IsSaved)
}

func TestUnknownMessageTypeAnsweredWithError(t *testing.T) {
	fx := newHandlerFixture(nil)

	err := fx.handler.HandleMessage(context.Background(), requester(), "t3_x", ws.Message{Type: "SELF_DESTRUCT"})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeError, msg.Type)
	payload := decodePayload[ws.ErrorPayload](t, msg)
	assert.Equal(t, httperrors.ErrCodeUnknownMessageType, payload.Code)
	assert.Contains(t, payload.Message, "SELF_DESTRUCT")
}

func TestLeaderboardPayload(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()

	s1 := deck.NewSession("u1", "dueler", fx.store.now)
	require.NoError(t, fx.store.SaveUserGameData(ctx, "t3_x", "u1", nil, 100, s1))
	s2 := deck.NewSession("u2", "rival", fx.store.now)
	require.NoError(t, fx.store.SaveUserGameData(ctx, "t3_x", "u2", nil, 200, s2))

	err := fx.handler.HandleMessage(ctx, requester(), "t3_x", ws.Message{Type: ws.TypeGetLeaderboardData})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeGiveLeaderboardData, msg.Type)
	payload := decodePayload[ws.LeaderboardPayload](t, msg)
	require.Len(t, payload.Leaderboard, 2)
	assert.Equal(t, "u2", payload.Leaderboard[0].UserID)
	assert.Equal(t, 1, payload.Leaderboard[0].Rank)
	assert.Equal(t, "u1", payload.Leaderboard[1].UserID)
	require.NotNil(t, payload.PlayerRank)
	assert.Equal(t, 2, *payload.PlayerRank)
	assert.Nil(t, payload.PlayerScore)
}

func TestAddQuestionStampsIDAndAuthor(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()
	require.NoError(t, fx.store.SaveDeck(ctx, "t3_x", storedDeck(2)))

	body, err := json.Marshal(ws.AddQuestionPayload{Question: deck.Question{
		Prompt:       "Cats or dogs?",
		QuestionType: deck.TypeSingle,
		TimeLimit:    20,
		Cards:        []deck.Card{{ID: "cats"}, {ID: "dogs"}},
	}})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(ctx, requester(), "t3_x", ws.Message{Type: ws.TypeAddQuestion, Payload: body})
	require.NoError(t, err)
	assert.Equal(t, 0, fx.sink.count("u1"), "add has no direct response")

	d, err := fx.store.GetDeck(ctx, "t3_x")
	require.NoError(t, err)
	require.Len(t, d.Questions, 3)
	added := d.Questions[2]
	assert.NotEmpty(t, added.ID, "missing id is generated")
	assert.Equal(t, "dueler", added.AuthorUsername)
}

func TestAddQuestionRejectsInvalid(t *testing.T) {
	fx := newHandlerFixture(nil)

	body, err := json.Marshal(ws.AddQuestionPayload{Question: deck.Question{
		Prompt:       "No cards",
		QuestionType: deck.TypeSingle,
		TimeLimit:    20,
	}})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(context.Background(), requester(), "t3_x", ws.Message{Type: ws.TypeAddQuestion, Payload: body})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeError, msg.Type)
	assert.Equal(t, httperrors.ErrCodeValidationFailed, decodePayload[ws.ErrorPayload](t, msg).Code)
}

func TestEditQuestionPushesVerbatimSnapshot(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()
	require.NoError(t, fx.store.SaveDeck(ctx, "t3_x", storedDeck(12)))

	edited := deck.Question{
		ID:           "q5",
		Prompt:       "Edited prompt",
		QuestionType: deck.TypeSingle,
		TimeLimit:    25,
		Cards:        []deck.Card{{ID: "a"}, {ID: "b"}},
	}
	body, err := json.Marshal(ws.EditQuestionPayload{Question: edited})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(ctx, requester(), "t3_x", ws.Message{Type: ws.TypeEditQuestion, Payload: body})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeGivePostData, msg.Type)
	payload := decodePayload[ws.PostDataPayload](t, msg)
	// Editor snapshots carry the whole deck untouched, in stored order.
	require.Len(t, payload.Deck.Questions, 12)
	for i, q := range payload.Deck.Questions {
		assert.Equal(t, fmt.Sprintf("q%d", i), q.ID)
	}
	assert.Equal(t, "Edited prompt", payload.Deck.Questions[5].Prompt)
}

func TestDeleteQuestionPushesVerbatimSnapshot(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()
	require.NoError(t, fx.store.SaveDeck(ctx, "t3_x", storedDeck(12)))

	body, err := json.Marshal(ws.DeleteQuestionPayload{QuestionID: "q5"})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(ctx, requester(), "t3_x", ws.Message{Type: ws.TypeDeleteQuestion, Payload: body})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeGivePostData, msg.Type)
	payload := decodePayload[ws.PostDataPayload](t, msg)
	require.Len(t, payload.Deck.Questions, 11)
	var ids []string
	for _, q := range payload.Deck.Questions {
		ids = append(ids, q.ID)
	}
	assert.NotContains(t, ids, "q5")
	// Remaining questions keep their relative order.
	assert.Equal(t, "q4", ids[4])
	assert.Equal(t, "q6", ids[5])
}

func TestCreateNewPost(t *testing.T) {
	fx := newHandlerFixture(nil)
	ctx := context.Background()

	body, err := json.Marshal(ws.CreateNewPostPayload{PostData: storedDeck(3)})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(ctx, requester(), "", ws.Message{Type: ws.TypeCreateNewPost, Payload: body})
	require.NoError(t, err)

	require.Len(t, fx.actions.created, 1)
	assert.Equal(t, "Stored by mod", fx.actions.created[0].Title)
	assert.Equal(t, "debates", fx.actions.created[0].Subreddit)

	d, err := fx.store.GetDeck(ctx, "t3_created")
	require.NoError(t, err)
	assert.Len(t, d.Questions, 3)

	assert.Equal(t, []string{"Created post!"}, fx.actions.notified)
	assert.Equal(t, []string{"t3_created"}, fx.actions.navigated)
}

func TestCreateNewPostRejectsEmptyDeck(t *testing.T) {
	fx := newHandlerFixture(nil)

	body, err := json.Marshal(ws.CreateNewPostPayload{PostData: deck.Deck{ID: "empty"}})
	require.NoError(t, err)

	err = fx.handler.HandleMessage(context.Background(), requester(), "", ws.Message{Type: ws.TypeCreateNewPost, Payload: body})
	require.NoError(t, err)

	msg := fx.sink.last(t, "u1")
	assert.Equal(t, ws.TypeError, msg.Type)
	assert.Equal(t, httperrors.ErrCodeValidationFailed, decodePayload[ws.ErrorPayload](t, msg).Code)
	assert.Empty(t, fx.actions.created)
}
