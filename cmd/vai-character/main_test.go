package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/vai-character/pkg/config"
	"github.com/vango-go/vai-character/pkg/protocol"
	"github.com/vango-go/vai-character/pkg/roster"
	character "github.com/vango-go/vai-character/sdk"
)

type sentCall struct {
	kind    string
	body    string
	params  []protocol.TriggerParameter
	targets []string
}

type fakeChatSession struct {
	mu       sync.Mutex
	sent     []sentCall
	observer func(*protocol.Packet)
	chars    []protocol.CharacterData
	sendErr  error
}

func (f *fakeChatSession) record(c sentCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return f.sendErr
}

func (f *fakeChatSession) SendText(text string, brainNames ...string) error {
	return f.record(sentCall{kind: "text", body: text, targets: brainNames})
}

func (f *fakeChatSession) SendNarrativeAction(content string, brainNames ...string) error {
	return f.record(sentCall{kind: "action", body: content, targets: brainNames})
}

func (f *fakeChatSession) SendTrigger(name string, params []protocol.TriggerParameter, brainNames ...string) error {
	return f.record(sentCall{kind: "trigger", body: name, params: params, targets: brainNames})
}

func (f *fakeChatSession) SendFeedback(_ context.Context, interactionID, correlationID string, fb character.Feedback) error {
	verdict := "dislike"
	if fb.IsLike {
		verdict = "like"
	}
	return f.record(sentCall{kind: "feedback", body: interactionID + "/" + correlationID + " " + verdict + ": " + fb.Comment})
}

func (f *fakeChatSession) NextTurn() error {
	return f.record(sentCall{kind: "next_turn"})
}

func (f *fakeChatSession) OnPacketReceived(fn func(*protocol.Packet)) func() {
	f.mu.Lock()
	f.observer = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.observer = nil
		f.mu.Unlock()
	}
}

func (f *fakeChatSession) Characters() []protocol.CharacterData { return f.chars }

func (f *fakeChatSession) calls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.sent...)
}

func TestRunChat_DispatchesLines(t *testing.T) {
	session := &fakeChatSession{}
	in := strings.NewReader("hello there\n\n/action waves\n/trigger greet mood=happy\n/quit\nnot sent\n")
	var out bytes.Buffer

	err := runChat(context.Background(), session, in, &out, []string{"workspaces/acme/characters/ann"})
	require.NoError(t, err)

	calls := session.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, sentCall{kind: "text", body: "hello there", targets: []string{"workspaces/acme/characters/ann"}}, calls[0])
	assert.Equal(t, "action", calls[1].kind)
	assert.Equal(t, "waves", calls[1].body)
	assert.Equal(t, "greet", calls[2].body)
	assert.Equal(t, []protocol.TriggerParameter{{Name: "mood", Value: "happy"}}, calls[2].params)
}

func TestRunChat_ReportsErrorsAndContinues(t *testing.T) {
	session := &fakeChatSession{sendErr: protocol.ErrNoResolvableTarget}
	in := strings.NewReader("hi\n/bogus\n/trigger\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), session, in, &out, nil))
	text := out.String()
	assert.Contains(t, text, "error: "+protocol.ErrNoResolvableTarget.Error())
	assert.Contains(t, text, "error: unknown command: /bogus")
	assert.Contains(t, text, "usage: /trigger")
}

func TestRunChat_StopsOnContextCancel(t *testing.T) {
	session := &fakeChatSession{}
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runChat(ctx, session, pr, io.Discard, nil) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runChat did not return after cancel")
	}
}

func TestFormatIncoming(t *testing.T) {
	chars := []protocol.CharacterData{{AgentID: "agent-a", BrainName: "workspaces/acme/characters/ann", GivenName: "Ann"}}

	text := protocol.NewTextPacket("well met")
	text.Routing = protocol.Routing{Source: protocol.Source{Name: "agent-a", Type: protocol.SourceAgent}}
	line, ok := formatIncoming(text, chars)
	require.True(t, ok)
	assert.Equal(t, "Ann: well met", line)

	action := protocol.NewNarrativeActionPacket("bows")
	action.Routing = protocol.Routing{Source: protocol.Source{Name: "agent-x", Type: protocol.SourceAgent}}
	line, ok = formatIncoming(action, chars)
	require.True(t, ok)
	assert.Equal(t, "agent-x *bows*", line)

	partial := protocol.NewTextPacket("well")
	partial.Text.Final = false
	partial.Routing = text.Routing
	_, ok = formatIncoming(partial, chars)
	assert.False(t, ok)

	own := protocol.NewTextPacket("me")
	own.Routing = protocol.NewRouting("Player")
	_, ok = formatIncoming(own, chars)
	assert.False(t, ok)
}

func TestParseTrigger(t *testing.T) {
	name, params, err := parseTrigger(" open door=north key=")
	require.NoError(t, err)
	assert.Equal(t, "open", name)
	assert.Equal(t, []protocol.TriggerParameter{{Name: "door", Value: "north"}, {Name: "key", Value: ""}}, params)

	_, _, err = parseTrigger(" open =x")
	assert.EqualError(t, err, "invalid trigger parameter: =x")
}

func TestResolveNames(t *testing.T) {
	r, err := roster.Parse([]byte("version: 1\nscenes:\n  - name: s\n    characters:\n      - brain_name: workspaces/acme/characters/ann\n        given_name: Ann\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"workspaces/acme/characters/ann", "zed"}, resolveNames(r, []string{"ann", "zed"}))
	assert.Equal(t, []string{"ann"}, resolveNames(nil, []string{"ann"}))
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewClient_RequiresCredentialsAndTarget(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := config.Config{
		WebHost:        "web.local",
		RuntimeHost:    "rt.local",
		TickInterval:   time.Second,
		MaxAwaitingAck: 10,
		BackoffBase:    time.Second,
		MaxBackoff:     time.Second,
		ConnectTimeout: time.Second,
	}

	_, err := newClient(base, logger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY")

	base.APIKey, base.APISecret = "key", "secret"
	_, err = newClient(base, logger, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCENE")

	base.Scene = "workspaces/acme/scenes/tavern"
	client, err := newClient(base, logger, nil)
	require.NoError(t, err)
	assert.Equal(t, "workspaces/acme/scenes/tavern", client.Scene())
	require.NoError(t, client.Close(context.Background()))
}

func TestNewClient_FindsSceneForCharacters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := roster.Parse([]byte(`
version: 1
scenes:
  - name: workspaces/acme/scenes/tavern
    characters:
      - brain_name: workspaces/acme/characters/ann
      - brain_name: workspaces/acme/characters/bob
  - name: workspaces/acme/scenes/market
    characters:
      - brain_name: workspaces/acme/characters/cy
`))
	require.NoError(t, err)
	cfg := config.Config{
		APIKey:     "key",
		APISecret:  "secret",
		Scene:      "workspaces/acme/scenes/ignored",
		Characters: []string{"workspaces/acme/characters/bob", "workspaces/acme/characters/ann"},
	}

	client, err := newClient(cfg, logger, r)
	require.NoError(t, err)
	assert.Equal(t, "workspaces/acme/scenes/tavern", client.Scene())
	require.NoError(t, client.Close(context.Background()))

	cfg.Characters = []string{"workspaces/acme/characters/ann", "workspaces/acme/characters/cy"}
	client, err = newClient(cfg, logger, r)
	require.NoError(t, err)
	assert.Empty(t, client.Scene(), "no scene holds both, characters load one by one")
	require.NoError(t, client.Close(context.Background()))

	client, err = newClient(cfg, logger, nil)
	require.NoError(t, err)
	assert.Empty(t, client.Scene())
	require.NoError(t, client.Close(context.Background()))
}

func TestChat_RatesLastResponse(t *testing.T) {
	session := &fakeChatSession{}
	c := &chat{session: session}

	_, err := c.handleLine(context.Background(), "/like")
	assert.EqualError(t, err, "no response to rate yet")

	c.remember(protocol.PacketID{InteractionID: "i-1", CorrelationID: "c-1"})
	_, err = c.handleLine(context.Background(), "/dislike  too long ")
	require.NoError(t, err)
	_, err = c.handleLine(context.Background(), "/next")
	require.NoError(t, err)

	calls := session.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, sentCall{kind: "feedback", body: "i-1/c-1 dislike: too long"}, calls[0])
	assert.Equal(t, "next_turn", calls[1].kind)
}

type fakeHistory struct {
	state string
	err   error
}

func (f fakeHistory) LoadHistory(context.Context) (string, error) { return f.state, f.err }

func TestHistoryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")

	state, err := readHistory(path)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, saveHistory(context.Background(), fakeHistory{state: "c2F2ZWQ="}, path))
	state, err = readHistory(path)
	require.NoError(t, err)
	assert.Equal(t, "c2F2ZWQ=", state)

	require.NoError(t, saveHistory(context.Background(), fakeHistory{}, path))
	state, err = readHistory(path)
	require.NoError(t, err)
	assert.Equal(t, "c2F2ZWQ=", state, "an empty state keeps the previous file")
}

func TestVersionCommand(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("VAI_CHARACTER_DATABASE_URL", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Chdir(t.TempDir())
	root := rootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"migrate"})
	err := root.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "DATABASE_URL"), err.Error())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VAI_CHARACTER_PLAYER_NAME=Tess\nVAI_CHARACTER_LANGUAGE=fr-FR\n"), 0o600))
	t.Setenv("VAI_CHARACTER_LANGUAGE", "de-DE")
	t.Setenv("VAI_CHARACTER_PLAYER_NAME", "")
	os.Unsetenv("VAI_CHARACTER_PLAYER_NAME")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "Tess", os.Getenv("VAI_CHARACTER_PLAYER_NAME"))
	assert.Equal(t, "de-DE", os.Getenv("VAI_CHARACTER_LANGUAGE"))
}
