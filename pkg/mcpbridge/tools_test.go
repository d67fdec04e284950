package mcpbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
	"github.com/vango-go/vai-character/pkg/roster"
	"github.com/vango-go/vai-character/pkg/transcript"
	character "github.com/vango-go/vai-character/sdk"
)

type mockSession struct {
	status     character.Status
	sessionID  string
	characters []protocol.CharacterData
	lastErr    *core.Error
	queued     int
	awaiting   int
	sendErr    error

	lastText    string
	lastTrigger string
	lastParams  []protocol.TriggerParameter
	lastTargets []string
	nextTurns   int
	feedback    []character.Feedback
	feedbackIDs []string
	history     string
}

func (m *mockSession) Status() character.Status             { return m.status }
func (m *mockSession) SessionID() string                    { return m.sessionID }
func (m *mockSession) Characters() []protocol.CharacterData { return m.characters }
func (m *mockSession) LastError() *core.Error               { return m.lastErr }
func (m *mockSession) Pending() (int, int)                  { return m.queued, m.awaiting }

func (m *mockSession) SendText(text string, brainNames ...string) error {
	m.lastText = text
	m.lastTargets = brainNames
	return m.sendErr
}

func (m *mockSession) SendTrigger(name string, params []protocol.TriggerParameter, brainNames ...string) error {
	m.lastTrigger = name
	m.lastParams = params
	m.lastTargets = brainNames
	return m.sendErr
}

func (m *mockSession) NextTurn() error {
	m.nextTurns++
	return m.sendErr
}

func (m *mockSession) SendFeedback(ctx context.Context, interactionID, correlationID string, fb character.Feedback) error {
	m.feedback = append(m.feedback, fb)
	m.feedbackIDs = append(m.feedbackIDs, interactionID+"/"+correlationID)
	return m.sendErr
}

func (m *mockSession) LoadHistory(ctx context.Context) (string, error) {
	return m.history, m.sendErr
}

const testRoster = `
version: 1
scenes:
  - name: workspaces/acme/scenes/tavern
    characters:
      - brain_name: workspaces/acme/characters/ann
        given_name: Ann
      - brain_name: workspaces/acme/characters/bob
        given_name: Bob
`

func newRoster(t *testing.T) *roster.Roster {
	t.Helper()
	r, err := roster.Parse([]byte(testRoster))
	if err != nil {
		t.Fatalf("parse roster: %v", err)
	}
	return r
}

func TestSessionStatus(t *testing.T) {
	session := &mockSession{
		status:    character.StatusLostConnect,
		sessionID: "session-1",
		queued:    3,
		awaiting:  1,
		lastErr:   core.NewTransportError("connection reset", nil),
	}
	server := NewServer(session, "test")

	_, out, err := server.handleSessionStatus(context.Background(), nil, SessionStatusInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != "LOST_CONNECT" || out.SessionID != "session-1" || out.Queued != 3 || out.Awaiting != 1 {
		t.Fatalf("unexpected status output: %+v", out)
	}
	if out.LastError == "" {
		t.Fatalf("last error not reported")
	}
}

func TestListCharacters_MergesRoster(t *testing.T) {
	session := &mockSession{characters: []protocol.CharacterData{
		{AgentID: "agent-a", BrainName: "workspaces/acme/characters/ann", GivenName: "Ann"},
	}}
	server := NewServer(session, "test", WithRoster(newRoster(t), "workspaces/acme/scenes/tavern"))

	_, out, err := server.handleListCharacters(context.Background(), nil, ListCharactersInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Characters) != 2 {
		t.Fatalf("unexpected characters: %+v", out.Characters)
	}
	if !out.Characters[0].Loaded || out.Characters[0].AgentID != "agent-a" {
		t.Fatalf("ann should be live: %+v", out.Characters[0])
	}
	if out.Characters[1].Loaded || out.Characters[1].GivenName != "Bob" {
		t.Fatalf("bob should come from the roster: %+v", out.Characters[1])
	}
}

func TestSendText_ResolvesGivenNames(t *testing.T) {
	session := &mockSession{}
	server := NewServer(session, "test", WithRoster(newRoster(t), ""))

	_, out, err := server.handleSendText(context.Background(), nil, SendTextInput{Text: "hello", Characters: []string{"bob", "workspaces/x/characters/zed"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Queued || session.lastText != "hello" {
		t.Fatalf("unexpected send: %+v text=%q", out, session.lastText)
	}
	want := []string{"workspaces/acme/characters/bob", "workspaces/x/characters/zed"}
	if len(session.lastTargets) != 2 || session.lastTargets[0] != want[0] || session.lastTargets[1] != want[1] {
		t.Fatalf("targets=%v, want %v", session.lastTargets, want)
	}
}

func TestSendText_Validation(t *testing.T) {
	server := NewServer(&mockSession{}, "test")

	if _, _, err := server.handleSendText(context.Background(), nil, SendTextInput{Text: "  "}); err == nil {
		t.Fatalf("expected error for empty text")
	}
	if _, _, err := server.handleSendText(context.Background(), nil, SendTextInput{Text: "hi", Characters: []string{""}}); err == nil {
		t.Fatalf("expected error for empty character name")
	}
}

func TestSendText_PropagatesSendError(t *testing.T) {
	session := &mockSession{sendErr: protocol.ErrNoResolvableTarget}
	server := NewServer(session, "test")

	_, _, err := server.handleSendText(context.Background(), nil, SendTextInput{Text: "hi", Characters: []string{"nobody"}})
	if !errors.Is(err, protocol.ErrNoResolvableTarget) {
		t.Fatalf("err=%v, want ErrNoResolvableTarget", err)
	}
}

func TestSendTrigger_SortsParameters(t *testing.T) {
	session := &mockSession{}
	server := NewServer(session, "test")

	_, _, err := server.handleSendTrigger(context.Background(), nil, SendTriggerInput{
		Name:       "greet",
		Parameters: map[string]string{"b": "2", "a": "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.lastTrigger != "greet" || len(session.lastParams) != 2 || session.lastParams[0].Name != "a" {
		t.Fatalf("unexpected trigger: %s %+v", session.lastTrigger, session.lastParams)
	}
	if _, _, err := server.handleSendTrigger(context.Background(), nil, SendTriggerInput{}); err == nil {
		t.Fatalf("expected error for empty trigger name")
	}
}

func TestRecentTranscript(t *testing.T) {
	ctx := context.Background()
	store := transcript.NewMemoryStore()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, text := range []string{"one", "two", "three"} {
		if err := store.Append(ctx, transcript.Entry{SessionID: "session-1", Direction: transcript.DirectionIn, Kind: "text", Text: text, At: at}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	server := NewServer(&mockSession{sessionID: "session-1"}, "test", WithTranscript(store))
	_, out, err := server.handleRecentTranscript(ctx, nil, RecentTranscriptInput{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Entries) != 2 || out.Entries[0].Text != "two" || out.Entries[1].Text != "three" {
		t.Fatalf("unexpected entries: %+v", out.Entries)
	}
	if out.Entries[0].At != "2026-01-02T03:04:05.0000000Z" {
		t.Fatalf("at=%q", out.Entries[0].At)
	}
}

func TestRecentTranscript_Unavailable(t *testing.T) {
	server := NewServer(&mockSession{sessionID: "session-1"}, "test")
	if _, _, err := server.handleRecentTranscript(context.Background(), nil, RecentTranscriptInput{}); err == nil {
		t.Fatalf("expected error without a transcript store")
	}

	server = NewServer(&mockSession{}, "test", WithTranscript(transcript.NewMemoryStore()))
	if _, _, err := server.handleRecentTranscript(context.Background(), nil, RecentTranscriptInput{}); err == nil {
		t.Fatalf("expected error before a session starts")
	}
}

func TestNextTurn(t *testing.T) {
	session := &mockSession{}
	server := NewServer(session, "test")

	_, out, err := server.handleNextTurn(context.Background(), nil, NextTurnInput{})
	if err != nil || !out.Triggered || session.nextTurns != 1 {
		t.Fatalf("out=%+v err=%v turns=%d", out, err, session.nextTurns)
	}

	session.sendErr = core.NewPreconditionError("next turn needs a group conversation")
	if _, _, err := server.handleNextTurn(context.Background(), nil, NextTurnInput{}); err == nil {
		t.Fatalf("expected the session error")
	}
}

func TestSendFeedback_MapsDislikeReasons(t *testing.T) {
	session := &mockSession{}
	server := NewServer(session, "test")

	_, out, err := server.handleSendFeedback(context.Background(), nil, SendFeedbackInput{
		InteractionID: "i-1",
		CorrelationID: "c-1",
		Dislike:       []string{"Repetition", " untrue "},
		Comment:       "said that already",
	})
	if err != nil || !out.Sent {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if len(session.feedback) != 1 || session.feedbackIDs[0] != "i-1/c-1" {
		t.Fatalf("feedback=%+v ids=%v", session.feedback, session.feedbackIDs)
	}
	fb := session.feedback[0]
	if fb.IsLike || fb.Comment != "said that already" || len(fb.Types) != 2 ||
		fb.Types[0] != character.DislikeRepetition || fb.Types[1] != character.DislikeUntrue {
		t.Fatalf("feedback=%+v", fb)
	}
}

func TestSendFeedback_RejectsBadInput(t *testing.T) {
	session := &mockSession{}
	server := NewServer(session, "test")

	cases := []SendFeedbackInput{
		{CorrelationID: "c-1", Like: true},
		{InteractionID: "i-1", CorrelationID: "c-1", Dislike: []string{"boring"}},
		{InteractionID: "i-1", CorrelationID: "c-1", Like: true, Dislike: []string{"unsafe"}},
	}
	for _, input := range cases {
		if _, _, err := server.handleSendFeedback(context.Background(), nil, input); err == nil {
			t.Fatalf("input %+v: expected error", input)
		}
	}
	if len(session.feedback) != 0 {
		t.Fatalf("feedback reached the session: %+v", session.feedback)
	}
}

func TestLoadHistory(t *testing.T) {
	session := &mockSession{history: "c2F2ZWQ="}
	server := NewServer(session, "test")

	_, out, err := server.handleLoadHistory(context.Background(), nil, LoadHistoryInput{})
	if err != nil || out.State != "c2F2ZWQ=" {
		t.Fatalf("out=%+v err=%v", out, err)
	}

	session.sendErr = errors.New("session endpoint returned 404")
	if _, _, err := server.handleLoadHistory(context.Background(), nil, LoadHistoryInput{}); err == nil {
		t.Fatalf("expected the session error")
	}
}
