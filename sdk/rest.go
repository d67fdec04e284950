package character

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-go/vai-character/pkg/auth"
	"github.com/vango-go/vai-character/pkg/core"
)

const sessionIDHeader = "Grpc-Metadata-session-id"

// FeedbackDislike names a reason a response was disliked.
type FeedbackDislike string

const (
	DislikeIrrelevant         FeedbackDislike = "INTERACTION_DISLIKE_TYPE_IRRELEVANT"
	DislikeUnsafe             FeedbackDislike = "INTERACTION_DISLIKE_TYPE_UNSAFE"
	DislikeUntrue             FeedbackDislike = "INTERACTION_DISLIKE_TYPE_UNTRUE"
	DislikeIncorrectKnowledge FeedbackDislike = "INTERACTION_DISLIKE_TYPE_INCORRECT_USE_KNOWLEDGE"
	DislikeUnexpectedAction   FeedbackDislike = "INTERACTION_DISLIKE_TYPE_UNEXPECTED_ACTION"
	DislikeUnexpectedGoal     FeedbackDislike = "INTERACTION_DISLIKE_TYPE_UNEXPECTED_GOAL_BEHAVIOR"
	DislikeRepetition         FeedbackDislike = "INTERACTION_DISLIKE_TYPE_REPETITION"
)

// Feedback rates the responses of one interaction.
type Feedback struct {
	IsLike  bool              `json:"isLike"`
	Types   []FeedbackDislike `json:"type,omitempty"`
	Comment string            `json:"comment,omitempty"`
}

type sessionStateResponse struct {
	State        string `json:"state"`
	CreationTime string `json:"creationTime,omitempty"`
}

// SendFeedback rates the responses to one interaction of the current
// session. correlationID selects the response group within the interaction.
func (c *Client) SendFeedback(ctx context.Context, interactionID, correlationID string, fb Feedback) error {
	if interactionID == "" || correlationID == "" {
		return core.NewPreconditionError("feedback needs an interaction id and a correlation id")
	}
	ctx, span := c.tracer.Start(ctx, "character.feedback")
	defer span.End()

	tok, fullName, err := c.sessionRef()
	if err != nil {
		return err
	}
	url := c.server.FeedbackURL(fullName, interactionID, correlationID)
	if err := c.restCall(ctx, http.MethodPost, url, tok, fb, nil); err != nil {
		span.RecordError(err)
		c.logger.Warn("character feedback failed", "interaction_id", interactionID, "error", err)
		return err
	}
	c.logger.Debug("character feedback sent", "interaction_id", interactionID, "like", fb.IsLike)
	return nil
}

// LoadHistory fetches the saved state of the current session and keeps it,
// so the next session opened by this client continues from it. The state is
// opaque and can be persisted for WithSessionHistory.
func (c *Client) LoadHistory(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "character.history")
	defer span.End()

	tok, fullName, err := c.sessionRef()
	if err != nil {
		return "", err
	}
	var resp sessionStateResponse
	if err := c.restCall(ctx, http.MethodGet, c.server.StateURL(fullName), tok, nil, &resp); err != nil {
		span.RecordError(err)
		c.logger.Warn("character history load failed", "error", err)
		return "", err
	}
	if resp.State == "" {
		return "", nil
	}
	c.mu.Lock()
	c.history = resp.State
	c.mu.Unlock()
	return resp.State, nil
}

// SessionHistory returns the state sent as continuation on the next open.
func (c *Client) SessionHistory() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history
}

// sessionRef returns the current token and the full session resource name.
func (c *Client) sessionRef() (*auth.Token, string, error) {
	c.mu.RLock()
	tok := c.token
	scene := c.liveScene
	if scene == "" {
		scene = c.scene
	}
	c.mu.RUnlock()

	if !tok.IsValid(c.now()) {
		return nil, "", core.NewPreconditionError("no valid session token")
	}
	fullName := auth.SessionFullName(scene, tok.SessionID)
	if fullName == "" {
		return nil, "", core.NewPreconditionError(fmt.Sprintf("no session resource for scene %q", scene))
	}
	return tok, fullName, nil
}

func (c *Client) restCall(ctx context.Context, method, url string, tok *auth.Token, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return core.NewClientError("encode request: " + err.Error())
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return core.NewClientError("build request: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	req.Header.Set(sessionIDHeader, tok.SessionID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewTransportError(method+" session endpoint failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.NewTransportError("read session endpoint response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		httpErr := core.NewTransportError(fmt.Sprintf("session endpoint returned %d: %s", resp.StatusCode, msg), nil)
		httpErr.Code = resp.StatusCode
		return httpErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return core.NewDecodeError("decode session endpoint response", err)
	}
	return nil
}
