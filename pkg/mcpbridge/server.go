// Package mcpbridge exposes a live character session as MCP tools, so an
// assistant can talk to characters and read the transcript.
package mcpbridge

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
	"github.com/vango-go/vai-character/pkg/roster"
	"github.com/vango-go/vai-character/pkg/transcript"
	character "github.com/vango-go/vai-character/sdk"
)

// Session is the client surface the tools drive. *character.Client
// satisfies it.
type Session interface {
	Status() character.Status
	SessionID() string
	Characters() []protocol.CharacterData
	LastError() *core.Error
	Pending() (queued, awaiting int)
	SendText(text string, brainNames ...string) error
	SendTrigger(name string, params []protocol.TriggerParameter, brainNames ...string) error
	NextTurn() error
	SendFeedback(ctx context.Context, interactionID, correlationID string, fb character.Feedback) error
	LoadHistory(ctx context.Context) (string, error)
}

var _ Session = (*character.Client)(nil)

type Server struct {
	session    Session
	transcript transcript.Store
	roster     *roster.Roster
	scene      string
	mcp        *sdk.Server
}

type Option func(*Server)

// WithTranscript enables recent_transcript.
func WithTranscript(store transcript.Store) Option {
	return func(s *Server) { s.transcript = store }
}

// WithRoster lets tools address characters by given name and lists the
// scene's characters before they are live.
func WithRoster(r *roster.Roster, scene string) Option {
	return func(s *Server) {
		s.roster = r
		s.scene = scene
	}
}

func NewServer(session Session, version string, opts ...Option) *Server {
	s := &Server{
		session: session,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "vai-character",
			Version: version,
		}, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
