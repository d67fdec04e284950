package protocol

import "encoding/json"

// TextEvent carries one utterance of text.
type TextEvent struct {
	Text       string `json:"text"`
	SourceType string `json:"sourceType,omitempty"`
	Final      bool   `json:"final"`
}

// PhonemeInfo aligns a phoneme with an offset into its audio chunk.
type PhonemeInfo struct {
	Phoneme     string  `json:"phoneme,omitempty"`
	StartOffset float64 `json:"startOffset,omitempty"`
}

// DataChunk carries base64 encoded audio.
type DataChunk struct {
	Type                  string        `json:"type"`
	Chunk                 string        `json:"chunk"`
	AdditionalPhonemeInfo []PhonemeInfo `json:"additionalPhonemeInfo,omitempty"`
}

// TriggerParameter is a named trigger argument.
type TriggerParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CustomEvent is a named trigger with optional parameters.
type CustomEvent struct {
	Type       string             `json:"type,omitempty"`
	Name       string             `json:"name"`
	Parameters []TriggerParameter `json:"parameters,omitempty"`
}

// EmotionEvent reports the speaker's emotional state.
type EmotionEvent struct {
	Joy      float64         `json:"joy"`
	Fear     float64         `json:"fear"`
	Trust    float64         `json:"trust"`
	Surprise float64         `json:"surprise"`
	Behavior EmotionBehavior `json:"behavior,omitempty"`
	Strength EmotionStrength `json:"strength,omitempty"`
}

type NarratedAction struct {
	Content string `json:"content"`
}

// ActionEvent carries a narrated action such as "*waves*".
type ActionEvent struct {
	NarratedAction *NarratedAction `json:"narratedAction,omitempty"`
}

// ControlEvent is a session or interaction control message. At most one of
// the sub-payloads is populated.
type ControlEvent struct {
	Action      ControlType `json:"action"`
	Description string      `json:"description,omitempty"`

	AudioSessionStart    *AudioSessionStartPayload    `json:"audioSessionStart,omitempty"`
	ConversationUpdate   *ConversationUpdatePayload   `json:"conversationUpdate,omitempty"`
	SessionConfiguration *SessionConfigurationPayload `json:"sessionConfiguration,omitempty"`
	SessionControl       json.RawMessage              `json:"sessionControl,omitempty"`
	CurrentSceneStatus   *CurrentSceneStatusPayload   `json:"currentSceneStatus,omitempty"`
}

type AudioSessionStartPayload struct {
	Mode              MicrophoneMode    `json:"mode"`
	UnderstandingMode UnderstandingMode `json:"understandingMode,omitempty"`
}

// ConversationUpdatePayload lists the agents taking part in a group conversation.
type ConversationUpdatePayload struct {
	Participants []Source `json:"participants"`
}

// SessionConfigurationPayload is sent once after the socket opens.
type SessionConfigurationPayload struct {
	SessionConfiguration      *SessionConfiguration `json:"sessionConfiguration,omitempty"`
	UserConfiguration         *UserConfiguration    `json:"userConfiguration,omitempty"`
	ClientConfiguration       *ClientConfiguration  `json:"clientConfiguration,omitempty"`
	CapabilitiesConfiguration *Capabilities         `json:"capabilitiesConfiguration,omitempty"`
	Continuation              *Continuation         `json:"continuation,omitempty"`
}

type SessionConfiguration struct {
	GameSessionID string `json:"gameSessionId,omitempty"`
}

type UserConfiguration struct {
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`
}

type ClientConfiguration struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Continuation resumes a previous session from externally saved state.
type Continuation struct {
	ContinuationType     string `json:"continuationType,omitempty"`
	ExternallySavedState string `json:"externallySavedState,omitempty"`
}

const ContinuationExternallySavedState = "CONTINUATION_TYPE_EXTERNALLY_SAVED_STATE"

// NewSavedStateContinuation resumes from state as returned by the session
// state endpoint. It returns nil for an empty state.
func NewSavedStateContinuation(state string) *Continuation {
	if state == "" {
		return nil
	}
	return &Continuation{
		ContinuationType:     ContinuationExternallySavedState,
		ExternallySavedState: state,
	}
}

// Capabilities declares which event kinds the client can handle.
type Capabilities struct {
	Audio                  bool `json:"audio"`
	Emotions               bool `json:"emotions"`
	Interruptions          bool `json:"interruptions"`
	NarratedActions        bool `json:"narratedActions"`
	RegenerateResponse     bool `json:"regenerateResponse"`
	Text                   bool `json:"text"`
	Triggers               bool `json:"triggers"`
	PhonemeInfo            bool `json:"phonemeInfo"`
	Relations              bool `json:"relations"`
	DebugInfo              bool `json:"debugInfo"`
	MultiAgent             bool `json:"multiAgent"`
	PingPongReport         bool `json:"pingPongReport"`
	PerceivedLatencyReport bool `json:"perceivedLatencyReport"`
	Logs                   bool `json:"logs"`
	LogsWarning            bool `json:"logsWarning"`
	LogsInfo               bool `json:"logsInfo"`
	LogsDebug              bool `json:"logsDebug"`
}

// DefaultCapabilities enables text, triggers, emotions and ping-pong latency reports.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Emotions:               true,
		Interruptions:          true,
		NarratedActions:        true,
		Text:                   true,
		Triggers:               true,
		MultiAgent:             true,
		PingPongReport:         true,
		PerceivedLatencyReport: true,
		Logs:                   true,
		LogsWarning:            true,
		LogsInfo:               true,
	}
}

// CurrentSceneStatusPayload lists the agents live in the loaded scene.
type CurrentSceneStatusPayload struct {
	Agents           []CharacterData `json:"agents"`
	SceneName        string          `json:"sceneName,omitempty"`
	SceneDescription string          `json:"sceneDescription,omitempty"`
	SceneDisplayName string          `json:"sceneDisplayName,omitempty"`
}

// CharacterData describes one agent of a live session.
type CharacterData struct {
	AgentID         string                `json:"agentId"`
	BrainName       string                `json:"brainName"`
	GivenName       string                `json:"givenName,omitempty"`
	Language        string                `json:"language,omitempty"`
	Description     *CharacterDescription `json:"description,omitempty"`
	CharacterAssets *CharacterAssets      `json:"characterAssets,omitempty"`
}

type CharacterDescription struct {
	GivenName   string   `json:"givenName,omitempty"`
	Description string   `json:"description,omitempty"`
	Pronoun     string   `json:"pronoun,omitempty"`
	NickNames   []string `json:"nickNames,omitempty"`
	Motivation  string   `json:"motivation,omitempty"`
}

type CharacterAssets struct {
	RPMModelURI       string `json:"rpmModelUri,omitempty"`
	RPMImageURI       string `json:"rpmImageUri,omitempty"`
	AvatarImg         string `json:"avatarImg,omitempty"`
	AvatarImgOriginal string `json:"avatarImgOriginal,omitempty"`
}

// MutationEvent changes server-side session state. At most one field is set.
type MutationEvent struct {
	RegenerateResponse *RegenerateResponse `json:"regenerateResponse,omitempty"`
	ApplyResponse      *ApplyResponse      `json:"applyResponse,omitempty"`
	CancelResponses    *CancelResponses    `json:"cancelResponses,omitempty"`
	LoadScene          *LoadScene          `json:"loadScene,omitempty"`
	LoadCharacters     *LoadCharacters     `json:"loadCharacters,omitempty"`
	UnloadCharacters   *UnloadCharacters   `json:"unloadCharacters,omitempty"`
}

type RegenerateResponse struct {
	InteractionID string `json:"interactionId"`
}

type ApplyResponse struct {
	PacketID PacketID `json:"packetId"`
}

// CancelResponses interrupts an interaction, optionally only some utterances.
type CancelResponses struct {
	InteractionID string   `json:"interactionId,omitempty"`
	UtteranceID   []string `json:"utteranceId,omitempty"`
}

type LoadScene struct {
	Name string `json:"name"`
}

type CharacterName struct {
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode,omitempty"`
}

type LoadCharacters struct {
	Name []CharacterName `json:"name"`
}

type UnloadCharacters struct {
	Agents []CharacterData `json:"agents"`
}

// LatencyReportEvent carries either a ping-pong exchange or a perceived latency sample.
type LatencyReportEvent struct {
	PingPong         *PingPongReport         `json:"pingPong,omitempty"`
	PerceivedLatency *PerceivedLatencyReport `json:"perceivedLatency,omitempty"`
}

type PingPongReport struct {
	Type          PingPongType `json:"type"`
	PingPacketID  *PacketID    `json:"pingPacketId,omitempty"`
	PingTimestamp string       `json:"pingTimestamp,omitempty"`
}

// PerceivedLatencyReport reports latency as a duration string such as "0.42s".
type PerceivedLatencyReport struct {
	Precision LatencyPrecision `json:"precision"`
	Latency   string           `json:"latency"`
}

type LogDetail struct {
	Text   string          `json:"text"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// LogEvent is a server-side log line delivered to the client.
type LogEvent struct {
	Text    string      `json:"text"`
	Level   LogLevel    `json:"level,omitempty"`
	Details []LogDetail `json:"details,omitempty"`
}

// RelationState is a set of relationship scores between the player and a character.
type RelationState struct {
	Trust       int `json:"trust"`
	Respect     int `json:"respect"`
	Familiar    int `json:"familiar"`
	Flirtatious int `json:"flirtatious"`
	Attraction  int `json:"attraction"`
}

type Relation struct {
	RelationState  RelationState `json:"relationState"`
	RelationUpdate RelationState `json:"relationUpdate"`
}

// RelationEvent is delivered under the debugInfo key.
type RelationEvent struct {
	Relation *Relation `json:"relation,omitempty"`
}

type LoadedAgents struct {
	Agents []CharacterData `json:"agents"`
}

// SessionControlResponse acknowledges a scene or character load.
type SessionControlResponse struct {
	LoadedScene      *LoadedAgents `json:"loadedScene,omitempty"`
	LoadedCharacters *LoadedAgents `json:"loadedCharacters,omitempty"`
}

type OperationStatusDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// OperationStatus reports the result of a server-side operation.
type OperationStatus struct {
	Status *OperationStatusDetail `json:"status,omitempty"`
}
