package mcpbridge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vango-go/vai-character/pkg/protocol"
	character "github.com/vango-go/vai-character/sdk"
)

const defaultTranscriptLimit = 20

type SessionStatusInput struct{}

type SessionStatusOutput struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Queued    int    `json:"queued"`
	Awaiting  int    `json:"awaiting"`
	LastError string `json:"last_error,omitempty"`
}

type ListCharactersInput struct{}

type CharacterOutput struct {
	BrainName string `json:"brain_name"`
	GivenName string `json:"given_name,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	Loaded    bool   `json:"loaded"`
}

type ListCharactersOutput struct {
	Characters []CharacterOutput `json:"characters"`
}

type SendTextInput struct {
	Text       string   `json:"text" jsonschema:"what the player says"`
	Characters []string `json:"characters,omitempty" jsonschema:"brain or given names to address; empty addresses the scene"`
}

type SendTriggerInput struct {
	Name       string            `json:"name" jsonschema:"trigger name"`
	Parameters map[string]string `json:"parameters,omitempty" jsonschema:"trigger parameters"`
	Characters []string          `json:"characters,omitempty" jsonschema:"brain or given names to address"`
}

type SendOutput struct {
	Queued  bool     `json:"queued"`
	Targets []string `json:"targets,omitempty"`
}

type NextTurnInput struct{}

type NextTurnOutput struct {
	Triggered bool `json:"triggered"`
}

type SendFeedbackInput struct {
	InteractionID string   `json:"interaction_id" jsonschema:"interaction the rated responses belong to"`
	CorrelationID string   `json:"correlation_id" jsonschema:"response group within the interaction"`
	Like          bool     `json:"like" jsonschema:"true to like the responses, false to dislike them"`
	Dislike       []string `json:"dislike,omitempty" jsonschema:"dislike reasons: irrelevant, unsafe, untrue, incorrect_knowledge, unexpected_action, unexpected_goal, repetition"`
	Comment       string   `json:"comment,omitempty" jsonschema:"free text comment"`
}

type SendFeedbackOutput struct {
	Sent bool `json:"sent"`
}

type LoadHistoryInput struct{}

type LoadHistoryOutput struct {
	State string `json:"state,omitempty"`
}

var dislikeReasons = map[string]character.FeedbackDislike{
	"irrelevant":          character.DislikeIrrelevant,
	"unsafe":              character.DislikeUnsafe,
	"untrue":              character.DislikeUntrue,
	"incorrect_knowledge": character.DislikeIncorrectKnowledge,
	"unexpected_action":   character.DislikeUnexpectedAction,
	"unexpected_goal":     character.DislikeUnexpectedGoal,
	"repetition":          character.DislikeRepetition,
}

type RecentTranscriptInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return"`
}

type TranscriptEntryOutput struct {
	Direction string   `json:"direction"`
	Kind      string   `json:"kind"`
	Source    string   `json:"source,omitempty"`
	Targets   []string `json:"targets,omitempty"`
	Text      string   `json:"text"`
	At        string   `json:"at"`
}

type RecentTranscriptOutput struct {
	Entries []TranscriptEntryOutput `json:"entries"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "session_status",
		Description: "Report the connection status of the character session",
	}, s.handleSessionStatus)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_characters",
		Description: "List the characters of the scene and whether they are live",
	}, s.handleListCharacters)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "send_text",
		Description: "Say something to one or more characters",
	}, s.handleSendText)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "send_trigger",
		Description: "Fire a named trigger at one or more characters",
	}, s.handleSendTrigger)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "next_turn",
		Description: "Let the next character speak in a group conversation",
	}, s.handleNextTurn)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "send_feedback",
		Description: "Like or dislike the responses to one interaction",
	}, s.handleSendFeedback)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "load_history",
		Description: "Fetch the saved state of the session so the next session continues it",
	}, s.handleLoadHistory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "recent_transcript",
		Description: "Return the latest transcript entries of the session",
	}, s.handleRecentTranscript)
}

func (s *Server) handleSessionStatus(ctx context.Context, req *sdk.CallToolRequest, input SessionStatusInput) (*sdk.CallToolResult, SessionStatusOutput, error) {
	queued, awaiting := s.session.Pending()
	out := SessionStatusOutput{
		Status:    s.session.Status().String(),
		SessionID: s.session.SessionID(),
		Queued:    queued,
		Awaiting:  awaiting,
	}
	if err := s.session.LastError(); err != nil {
		out.LastError = err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleListCharacters(ctx context.Context, req *sdk.CallToolRequest, input ListCharactersInput) (*sdk.CallToolResult, ListCharactersOutput, error) {
	byBrain := make(map[string]CharacterOutput)
	for _, c := range s.session.Characters() {
		byBrain[c.BrainName] = CharacterOutput{
			BrainName: c.BrainName,
			GivenName: c.GivenName,
			AgentID:   c.AgentID,
			Loaded:    c.AgentID != "",
		}
	}
	if scene, ok := s.roster.Scene(s.scene); ok {
		for _, c := range scene.Characters {
			if _, live := byBrain[c.BrainName]; live {
				continue
			}
			byBrain[c.BrainName] = CharacterOutput{BrainName: c.BrainName, GivenName: c.GivenName}
		}
	}

	out := make([]CharacterOutput, 0, len(byBrain))
	for _, c := range byBrain {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BrainName < out[j].BrainName })
	return nil, ListCharactersOutput{Characters: out}, nil
}

func (s *Server) handleSendText(ctx context.Context, req *sdk.CallToolRequest, input SendTextInput) (*sdk.CallToolResult, SendOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, SendOutput{}, fmt.Errorf("text is required")
	}
	targets, err := s.resolveTargets(input.Characters)
	if err != nil {
		return nil, SendOutput{}, err
	}
	if err := s.session.SendText(input.Text, targets...); err != nil {
		return nil, SendOutput{}, err
	}
	return nil, SendOutput{Queued: true, Targets: targets}, nil
}

func (s *Server) handleSendTrigger(ctx context.Context, req *sdk.CallToolRequest, input SendTriggerInput) (*sdk.CallToolResult, SendOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, SendOutput{}, fmt.Errorf("name is required")
	}
	targets, err := s.resolveTargets(input.Characters)
	if err != nil {
		return nil, SendOutput{}, err
	}
	names := make([]string, 0, len(input.Parameters))
	for name := range input.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]protocol.TriggerParameter, 0, len(names))
	for _, name := range names {
		params = append(params, protocol.TriggerParameter{Name: name, Value: input.Parameters[name]})
	}
	if err := s.session.SendTrigger(input.Name, params, targets...); err != nil {
		return nil, SendOutput{}, err
	}
	return nil, SendOutput{Queued: true, Targets: targets}, nil
}

func (s *Server) handleNextTurn(ctx context.Context, req *sdk.CallToolRequest, input NextTurnInput) (*sdk.CallToolResult, NextTurnOutput, error) {
	if err := s.session.NextTurn(); err != nil {
		return nil, NextTurnOutput{}, err
	}
	return nil, NextTurnOutput{Triggered: true}, nil
}

func (s *Server) handleSendFeedback(ctx context.Context, req *sdk.CallToolRequest, input SendFeedbackInput) (*sdk.CallToolResult, SendFeedbackOutput, error) {
	if input.InteractionID == "" || input.CorrelationID == "" {
		return nil, SendFeedbackOutput{}, fmt.Errorf("interaction_id and correlation_id are required")
	}
	fb := character.Feedback{IsLike: input.Like, Comment: input.Comment}
	if input.Like && len(input.Dislike) > 0 {
		return nil, SendFeedbackOutput{}, fmt.Errorf("dislike reasons need like=false")
	}
	for _, reason := range input.Dislike {
		t, ok := dislikeReasons[strings.ToLower(strings.TrimSpace(reason))]
		if !ok {
			return nil, SendFeedbackOutput{}, fmt.Errorf("unknown dislike reason %q", reason)
		}
		fb.Types = append(fb.Types, t)
	}
	if err := s.session.SendFeedback(ctx, input.InteractionID, input.CorrelationID, fb); err != nil {
		return nil, SendFeedbackOutput{}, err
	}
	return nil, SendFeedbackOutput{Sent: true}, nil
}

func (s *Server) handleLoadHistory(ctx context.Context, req *sdk.CallToolRequest, input LoadHistoryInput) (*sdk.CallToolResult, LoadHistoryOutput, error) {
	state, err := s.session.LoadHistory(ctx)
	if err != nil {
		return nil, LoadHistoryOutput{}, err
	}
	return nil, LoadHistoryOutput{State: state}, nil
}

func (s *Server) handleRecentTranscript(ctx context.Context, req *sdk.CallToolRequest, input RecentTranscriptInput) (*sdk.CallToolResult, RecentTranscriptOutput, error) {
	if s.transcript == nil {
		return nil, RecentTranscriptOutput{}, fmt.Errorf("transcript recording is not enabled")
	}
	sessionID := s.session.SessionID()
	if sessionID == "" {
		return nil, RecentTranscriptOutput{}, fmt.Errorf("no session has started yet")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}
	entries, err := s.transcript.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, RecentTranscriptOutput{}, err
	}

	out := make([]TranscriptEntryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, TranscriptEntryOutput{
			Direction: string(e.Direction),
			Kind:      e.Kind,
			Source:    e.Source,
			Targets:   e.Targets,
			Text:      e.Text,
			At:        protocol.FormatTimestamp(e.At),
		})
	}
	return nil, RecentTranscriptOutput{Entries: out}, nil
}

// resolveTargets maps given names to brain names through the roster. Names
// the roster does not know are passed through unchanged.
func (s *Server) resolveTargets(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("character names must not be empty")
		}
		if c, ok := s.roster.Find(name); ok {
			name = c.BrainName
		}
		out = append(out, name)
	}
	return out, nil
}
