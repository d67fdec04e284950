package auth

import (
	"net/url"
	"strings"
)

// Server names the hosts of one deployment.
type Server struct {
	// Runtime is the host signed into the authorization header.
	Runtime string
	// Web is the host serving tokens, sessions and feedback.
	Web string
	// Insecure switches to http/ws, for local fakes.
	Insecure bool
}

// DefaultServer is the public deployment.
var DefaultServer = Server{
	Runtime: "api-engine.inworld.ai",
	Web:     "api.inworld.ai",
}

func (s Server) httpScheme() string {
	if s.Insecure {
		return "http"
	}
	return "https"
}

func (s Server) wsScheme() string {
	if s.Insecure {
		return "ws"
	}
	return "wss"
}

// TokenURL is the token generation endpoint.
func (s Server) TokenURL() string {
	return s.httpScheme() + "://" + s.Web + "/v1/sessionTokens/token:generate"
}

// SessionURL is the WebSocket endpoint for sessionID.
func (s Server) SessionURL(sessionID string) string {
	return s.wsScheme() + "://" + s.Web + "/v1/session/open?session_id=" + url.QueryEscape(sessionID)
}

// SessionFullName derives "workspaces/{ws}/sessions/{id}" from a scene name of
// the form "workspaces/{ws}/scenes/{scene}". It returns "" for other shapes.
func SessionFullName(sceneName, sessionID string) string {
	parts := strings.Split(sceneName, "/")
	if len(parts) != 4 || sessionID == "" {
		return ""
	}
	return "workspaces/" + parts[1] + "/sessions/" + sessionID
}

// StateURL returns the endpoint holding the saved state of a session.
func (s Server) StateURL(sessionFullName string) string {
	return s.httpScheme() + "://" + s.Web + "/v1/" + sessionFullName + "/state?name=" + url.QueryEscape(sessionFullName)
}

// FeedbackURL returns the endpoint for feedback on one interaction group.
func (s Server) FeedbackURL(sessionFullName, interactionID, correlationID string) string {
	ref := sessionFullName + "/interactions/" + interactionID + "/groups/" + correlationID
	return s.httpScheme() + "://" + s.Web + "/v1/feedback/" + ref + "/feedbacks"
}
