package protocol

// ControlType is the action of a control event.
type ControlType string

const (
	ControlUnknown              ControlType = "UNKNOWN"
	ControlAudioSessionStart    ControlType = "AUDIO_SESSION_START"
	ControlAudioSessionEnd      ControlType = "AUDIO_SESSION_END"
	ControlInteractionEnd       ControlType = "INTERACTION_END"
	ControlTTSPlaybackStart     ControlType = "TTS_PLAYBACK_START"
	ControlTTSPlaybackEnd       ControlType = "TTS_PLAYBACK_END"
	ControlTTSPlaybackMute      ControlType = "TTS_PLAYBACK_MUTE"
	ControlTTSPlaybackUnmute    ControlType = "TTS_PLAYBACK_UNMUTE"
	ControlWarning              ControlType = "WARNING"
	ControlSessionEnd           ControlType = "SESSION_END"
	ControlConversationStart    ControlType = "CONVERSATION_START"
	ControlConversationUpdate   ControlType = "CONVERSATION_UPDATE"
	ControlConversationStarted  ControlType = "CONVERSATION_STARTED"
	ControlConversationEvent    ControlType = "CONVERSATION_EVENT"
	ControlCurrentSceneStatus   ControlType = "CURRENT_SCENE_STATUS"
	ControlSessionConfiguration ControlType = "SESSION_CONFIGURATION"
)

// MicrophoneMode is the audio session mode announced by AUDIO_SESSION_START.
type MicrophoneMode string

const (
	MicrophoneUnspecified    MicrophoneMode = "UNSPECIFIED"
	MicrophoneOpenMic        MicrophoneMode = "OPEN_MIC"
	MicrophoneExpectAudioEnd MicrophoneMode = "EXPECT_AUDIO_END"
)

// UnderstandingMode selects how the server treats incoming audio.
type UnderstandingMode string

const (
	UnderstandingUnspecified UnderstandingMode = "UNSPECIFIED_UNDERSTANDING_MODE"
	UnderstandingFull        UnderstandingMode = "FULL"
	UnderstandingSpeechOnly  UnderstandingMode = "SPEECH_RECOGNITION_ONLY"
)

// EmotionStrength qualifies an emotion behavior.
type EmotionStrength string

const (
	StrengthUnspecified EmotionStrength = "UNSPECIFIED"
	StrengthWeak        EmotionStrength = "WEAK"
	StrengthStrong      EmotionStrength = "STRONG"
	StrengthNormal      EmotionStrength = "NORMAL"
)

// EmotionBehavior is the SPAFF behavior code of an emotion event.
type EmotionBehavior string

const (
	BehaviorNeutral       EmotionBehavior = "NEUTRAL"
	BehaviorDisgust       EmotionBehavior = "DISGUST"
	BehaviorContempt      EmotionBehavior = "CONTEMPT"
	BehaviorBelligerence  EmotionBehavior = "BELLIGERENCE"
	BehaviorDomineering   EmotionBehavior = "DOMINEERING"
	BehaviorCriticism     EmotionBehavior = "CRITICISM"
	BehaviorAnger         EmotionBehavior = "ANGER"
	BehaviorTension       EmotionBehavior = "TENSION"
	BehaviorTenseHumor    EmotionBehavior = "TENSE_HUMOR"
	BehaviorDefensiveness EmotionBehavior = "DEFENSIVENESS"
	BehaviorWhining       EmotionBehavior = "WHINING"
	BehaviorSadness       EmotionBehavior = "SADNESS"
	BehaviorStonewalling  EmotionBehavior = "STONEWALLING"
	BehaviorInterest      EmotionBehavior = "INTEREST"
	BehaviorValidation    EmotionBehavior = "VALIDATION"
	BehaviorAffection     EmotionBehavior = "AFFECTION"
	BehaviorHumor         EmotionBehavior = "HUMOR"
	BehaviorSurprise      EmotionBehavior = "SURPRISE"
	BehaviorJoy           EmotionBehavior = "JOY"
)

// PingPongType distinguishes the halves of a latency check.
type PingPongType string

const (
	PingPongUnspecified PingPongType = "UNSPECIFIED"
	PingPongPing        PingPongType = "PING"
	PingPongPong        PingPongType = "PONG"
)

// LatencyPrecision describes how a perceived latency sample was measured.
type LatencyPrecision string

const (
	PrecisionUnspecified LatencyPrecision = "UNSPECIFIED"
	PrecisionFine        LatencyPrecision = "FINE"
	PrecisionEstimated   LatencyPrecision = "ESTIMATED"
	PrecisionPushToTalk  LatencyPrecision = "PUSH_TO_TALK"
	PrecisionNonSpeech   LatencyPrecision = "NON_SPEECH"
)

// LogLevel is the severity of a server log packet.
type LogLevel string

const (
	LogUnspecified LogLevel = "UNSPECIFIED"
	LogWarning     LogLevel = "WARNING"
	LogInfo        LogLevel = "INFO"
	LogDebug       LogLevel = "DEBUG"
)

const (
	// DataTypeAudio marks a data chunk carrying base64 audio.
	DataTypeAudio = "AUDIO"
	// CustomTypeTrigger marks a custom event as a trigger.
	CustomTypeTrigger = "TRIGGER"
	// TextSourceTypedIn marks text typed by the player.
	TextSourceTypedIn = "TYPED_IN"
	// TriggerNextTurn asks a group conversation to let the next character speak.
	TriggerNextTurn = "inworld.conversation.next_turn"
)
