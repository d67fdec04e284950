package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-go/vai-character/pkg/protocol"
	"github.com/vango-go/vai-character/pkg/roster"
	"github.com/vango-go/vai-character/pkg/transcript"
	character "github.com/vango-go/vai-character/sdk"
)

const shutdownTimeout = 5 * time.Second

// chatSession is the client surface the chat loop needs.
type chatSession interface {
	SendText(text string, brainNames ...string) error
	SendNarrativeAction(content string, brainNames ...string) error
	SendTrigger(name string, params []protocol.TriggerParameter, brainNames ...string) error
	SendFeedback(ctx context.Context, interactionID, correlationID string, fb character.Feedback) error
	NextTurn() error
	OnPacketReceived(fn func(*protocol.Packet)) func()
	Characters() []protocol.CharacterData
}

func chatCmd() *cobra.Command {
	var record bool
	var historyPath string
	cmd := &cobra.Command{
		Use:   "chat [character...]",
		Short: "Chat with characters over stdin",
		Long: "Chat with characters over stdin. Lines are sent as text; " +
			"/action <text> narrates, /trigger <name> [k=v...] fires a trigger, " +
			"/like or /dislike [comment] rates the last response, /next passes the turn " +
			"in a group conversation, /quit exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatCmd(cmd, args, record, historyPath)
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "record the conversation to the transcript store")
	cmd.Flags().StringVar(&historyPath, "history", "", "file holding saved session state; resumed on start and refreshed on exit")
	return cmd
}

func runChatCmd(cmd *cobra.Command, args []string, record bool, historyPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, cmd.ErrOrStderr())
	r, err := loadRoster(cfg)
	if err != nil {
		return err
	}
	var extra []character.ClientOption
	if historyPath != "" {
		state, err := readHistory(historyPath)
		if err != nil {
			return err
		}
		extra = append(extra, character.WithSessionHistory(state))
	}
	client, err := newClient(cfg, logger, r, extra...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if historyPath != "" {
			if err := saveHistory(closeCtx, client, historyPath); err != nil {
				logger.Warn("session history not saved", "path", historyPath, "error", err)
			}
		}
		_ = client.Close(closeCtx)
	}()

	if record {
		store, err := openTranscript(ctx, cfg)
		if err != nil {
			return err
		}
		recorder := transcript.NewRecorder(store, client, transcript.WithLogger(logger))
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = recorder.Close(closeCtx)
			_ = store.Close(closeCtx)
		}()
	}

	client.Reconnect()
	return runChat(ctx, client, cmd.InOrStdin(), cmd.OutOrStdout(), resolveNames(r, args))
}

// readHistory returns the saved state in path, or "" when it does not exist.
func readHistory(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session history: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

type historyLoader interface {
	LoadHistory(ctx context.Context) (string, error)
}

func saveHistory(ctx context.Context, h historyLoader, path string) error {
	state, err := h.LoadHistory(ctx)
	if err != nil {
		return err
	}
	if state == "" {
		return nil
	}
	return os.WriteFile(path, []byte(state+"\n"), 0o600)
}

// resolveNames maps given names to brain names; unknown names pass through.
func resolveNames(r *roster.Roster, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if c, ok := r.Find(name); ok {
			name = c.BrainName
		}
		out = append(out, name)
	}
	return out
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
}

// runChat reads lines from in until EOF, /quit or ctx ends, and prints final
// character text and actions to out.
func runChat(ctx context.Context, s chatSession, in io.Reader, out io.Writer, targets []string) error {
	w := &syncWriter{w: out}
	c := &chat{session: s, targets: targets}
	unsubscribe := s.OnPacketReceived(func(p *protocol.Packet) {
		if line, ok := formatIncoming(p, s.Characters()); ok {
			c.remember(p.PacketID)
			w.printf("%s\n", line)
		}
	})
	defer unsubscribe()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			quit, err := c.handleLine(ctx, line)
			if err != nil {
				w.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// chat is the state of one chat loop: the targets of every line and the
// last character response, which /like and /dislike rate.
type chat struct {
	session chatSession
	targets []string

	mu   sync.Mutex
	last protocol.PacketID
}

func (c *chat) remember(id protocol.PacketID) {
	if id.InteractionID == "" {
		return
	}
	c.mu.Lock()
	c.last = id
	c.mu.Unlock()
}

func (c *chat) lastResponse() protocol.PacketID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *chat) handleLine(ctx context.Context, line string) (quit bool, err error) {
	s, targets := c.session, c.targets
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/quit" || line == "/exit":
		return true, nil
	case line == "/next":
		return false, s.NextTurn()
	case line == "/like" || strings.HasPrefix(line, "/like "):
		return false, c.rate(ctx, true, strings.TrimPrefix(line, "/like"))
	case line == "/dislike" || strings.HasPrefix(line, "/dislike "):
		return false, c.rate(ctx, false, strings.TrimPrefix(line, "/dislike"))
	case strings.HasPrefix(line, "/action "):
		return false, s.SendNarrativeAction(strings.TrimSpace(strings.TrimPrefix(line, "/action ")), targets...)
	case strings.HasPrefix(line, "/trigger"):
		name, params, err := parseTrigger(strings.TrimPrefix(line, "/trigger"))
		if err != nil {
			return false, err
		}
		return false, s.SendTrigger(name, params, targets...)
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("unknown command: %s", strings.Fields(line)[0])
	default:
		return false, s.SendText(line, targets...)
	}
}

func (c *chat) rate(ctx context.Context, like bool, comment string) error {
	last := c.lastResponse()
	if last.InteractionID == "" {
		return errors.New("no response to rate yet")
	}
	fb := character.Feedback{IsLike: like, Comment: strings.TrimSpace(comment)}
	return c.session.SendFeedback(ctx, last.InteractionID, last.CorrelationID, fb)
}

func parseTrigger(rest string) (string, []protocol.TriggerParameter, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("usage: /trigger <name> [key=value...]")
	}
	var params []protocol.TriggerParameter
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return "", nil, fmt.Errorf("invalid trigger parameter: %s", f)
		}
		params = append(params, protocol.TriggerParameter{Name: k, Value: v})
	}
	return fields[0], params, nil
}

func formatIncoming(p *protocol.Packet, characters []protocol.CharacterData) (string, bool) {
	if p.Routing.Source.Type != protocol.SourceAgent {
		return "", false
	}
	speaker := p.Routing.Source.Name
	for _, c := range characters {
		if c.AgentID == speaker {
			speaker = c.BrainName
			if c.GivenName != "" {
				speaker = c.GivenName
			}
			break
		}
	}
	switch {
	case p.Text != nil && p.Text.Final:
		return speaker + ": " + p.Text.Text, true
	case p.Action != nil && p.Action.NarratedAction != nil:
		return speaker + " *" + p.Action.NarratedAction.Content + "*", true
	default:
		return "", false
	}
}
