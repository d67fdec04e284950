package protocol

// ControlVariant names the sub-payload carried by a control event.
type ControlVariant string

const (
	ControlVariantBase               ControlVariant = "base"
	ControlVariantAudioSession       ControlVariant = "audio_session"
	ControlVariantConversationUpdate ControlVariant = "conversation_update"
	ControlVariantSessionConfig      ControlVariant = "session_config"
	ControlVariantSceneStatus        ControlVariant = "scene_status"
)

func (c *ControlEvent) Variant() ControlVariant {
	switch {
	case c == nil:
		return ""
	case c.AudioSessionStart != nil:
		return ControlVariantAudioSession
	case c.ConversationUpdate != nil:
		return ControlVariantConversationUpdate
	case c.SessionConfiguration != nil || len(c.SessionControl) > 0:
		return ControlVariantSessionConfig
	case c.CurrentSceneStatus != nil:
		return ControlVariantSceneStatus
	default:
		return ControlVariantBase
	}
}

// MutationVariant names the sub-payload carried by a mutation event.
type MutationVariant string

const (
	MutationVariantBase             MutationVariant = "base"
	MutationVariantRegenerate       MutationVariant = "regenerate_response"
	MutationVariantApply            MutationVariant = "apply_response"
	MutationVariantCancel           MutationVariant = "cancel_responses"
	MutationVariantLoadScene        MutationVariant = "load_scene"
	MutationVariantLoadCharacters   MutationVariant = "load_characters"
	MutationVariantUnloadCharacters MutationVariant = "unload_characters"
)

func (m *MutationEvent) Variant() MutationVariant {
	switch {
	case m == nil:
		return ""
	case m.RegenerateResponse != nil:
		return MutationVariantRegenerate
	case m.ApplyResponse != nil:
		return MutationVariantApply
	case m.CancelResponses != nil:
		return MutationVariantCancel
	case m.LoadScene != nil:
		return MutationVariantLoadScene
	case m.LoadCharacters != nil:
		return MutationVariantLoadCharacters
	case m.UnloadCharacters != nil:
		return MutationVariantUnloadCharacters
	default:
		return MutationVariantBase
	}
}
