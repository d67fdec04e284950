package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/vai-character/pkg/core"
)

func roundTrip(t *testing.T, p *Packet) *Packet {
	t.Helper()
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(%s): %v", data, err)
	}
	if got.Kind != p.Kind {
		t.Fatalf("kind=%s, want %s (frame %s)", got.Kind, p.Kind, data)
	}
	if got.PacketID != p.PacketID {
		t.Fatalf("packetId=%+v, want %+v", got.PacketID, p.PacketID)
	}
	return got
}

func TestCodec_RoundTripPreservesVariantPayload(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		got := roundTrip(t, NewTextPacket("hello", "x"))
		if got.Text.Text != "hello" || !got.Text.Final || got.Text.SourceType != TextSourceTypedIn {
			t.Fatalf("text=%+v", got.Text)
		}
	})
	t.Run("control", func(t *testing.T) {
		got := roundTrip(t, NewAudioSessionStartPacket(MicrophoneOpenMic, "x"))
		if got.ControlAction() != ControlAudioSessionStart || got.Control.Variant() != ControlVariantAudioSession {
			t.Fatalf("control=%+v", got.Control)
		}
		if got.Control.AudioSessionStart.Mode != MicrophoneOpenMic {
			t.Fatalf("mode=%q", got.Control.AudioSessionStart.Mode)
		}
	})
	t.Run("trigger", func(t *testing.T) {
		params := []TriggerParameter{{Name: "mood", Value: "happy"}, {Name: "level", Value: "2"}}
		got := roundTrip(t, NewTriggerPacket("greet", params, "x"))
		if got.Custom.Name != "greet" || got.Custom.Type != CustomTypeTrigger {
			t.Fatalf("custom=%+v", got.Custom)
		}
		if len(got.Custom.Parameters) != 2 || got.Custom.Parameters[1] != params[1] {
			t.Fatalf("params=%+v", got.Custom.Parameters)
		}
	})
	t.Run("emotion", func(t *testing.T) {
		p := newPacket(KindEmotion, nil)
		p.Emotion = &EmotionEvent{Joy: 0.5, Behavior: BehaviorHumor, Strength: StrengthStrong}
		got := roundTrip(t, p)
		if got.Emotion.Behavior != BehaviorHumor || got.Emotion.Strength != StrengthStrong || got.Emotion.Joy != 0.5 {
			t.Fatalf("emotion=%+v", got.Emotion)
		}
	})
	t.Run("audio", func(t *testing.T) {
		got := roundTrip(t, NewAudioPacket([]byte{1, 2, 3}, "x"))
		if got.DataChunk.Chunk != "AQID" || got.DataChunk.Type != DataTypeAudio {
			t.Fatalf("chunk=%+v", got.DataChunk)
		}
	})
	t.Run("action", func(t *testing.T) {
		got := roundTrip(t, NewNarrativeActionPacket("waves", "x"))
		if got.Action.NarratedAction.Content != "waves" {
			t.Fatalf("action=%+v", got.Action.NarratedAction)
		}
	})
	t.Run("mutation", func(t *testing.T) {
		got := roundTrip(t, NewCancelResponsesPacket("i-1", []string{"u-1"}, "x"))
		if got.Mutation.Variant() != MutationVariantCancel || got.Mutation.CancelResponses.InteractionID != "i-1" {
			t.Fatalf("mutation=%+v", got.Mutation)
		}
	})
	t.Run("items", func(t *testing.T) {
		items := []EntityItem{{ID: "lantern", DisplayName: "Lantern", Properties: map[string]string{"lit": "true"}}}
		got := roundTrip(t, NewCreateOrUpdateItemsPacket(items, []string{"inventory"}))
		op := got.ItemsOperation.CreateOrUpdateItems
		if op == nil || len(op.Items) != 1 || op.Items[0].Properties["lit"] != "true" {
			t.Fatalf("items=%+v", got.ItemsOperation)
		}
		if len(op.AddToEntities) != 1 || op.AddToEntities[0] != "inventory" {
			t.Fatalf("entities=%v", op.AddToEntities)
		}
	})
	t.Run("latency", func(t *testing.T) {
		got := roundTrip(t, NewPerceivedLatencyPacket(PrecisionFine, 420*time.Millisecond))
		if got.LatencyReport.PerceivedLatency == nil || got.LatencyReport.PerceivedLatency.Latency != "0.420s" {
			t.Fatalf("latency=%+v", got.LatencyReport)
		}
	})
}

func TestEncode_RejectsAmbiguousPackets(t *testing.T) {
	t.Parallel()

	p := NewTextPacket("hi")
	p.Emotion = &EmotionEvent{}
	if _, err := Encode(p); err == nil {
		t.Fatalf("expected error for two payloads")
	}

	empty := newPacket(KindText, nil)
	if _, err := Encode(empty); err == nil {
		t.Fatalf("expected error for missing payload")
	}

	mismatched := NewTextPacket("hi")
	mismatched.Kind = KindEmotion
	var decodeErr *DecodeError
	if _, err := Encode(mismatched); !errors.As(err, &decodeErr) {
		t.Fatalf("err=%v, want *DecodeError", err)
	}
}

func TestEncode_OmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	data, err := Encode(NewTextPacket("hi"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	frame := string(data)
	for _, absent := range []string{"correlationId", "conversationId", `"target"`, `"targets"`, `"control"`, `"emotion"`} {
		if strings.Contains(frame, absent) {
			t.Fatalf("frame %s should not contain %s", frame, absent)
		}
	}
}

func TestDecode_FirstMatchingKeyWins(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		frame string
		want  Kind
	}{
		{"text beats control", `{"text":{"text":"a"},"control":{"action":"WARNING"}}`, KindText},
		{"control beats emotion", `{"emotion":{"joy":1},"control":{"action":"INTERACTION_END"}}`, KindControl},
		{"non audio data chunk skipped", `{"dataChunk":{"type":"ANIMATION"},"custom":{"name":"t"}}`, KindCustom},
		{"audio data chunk", `{"dataChunk":{"type":"AUDIO","chunk":"AA=="},"custom":{"name":"t"}}`, KindAudio},
		{"session response before log", `{"log":{"text":"x"},"sessionControlResponse":{}}`, KindSessionResponse},
		{"operation status", `{"operationStatus":{"status":{"code":0}}}`, KindOperationStatus},
		{"latency before log", `{"log":{"text":"x"},"latencyReport":{"pingPong":{"type":"PING"}}}`, KindLatencyReport},
		{"relation", `{"debugInfo":{"relation":{"relationState":{"trust":3}}}}`, KindRelation},
		{"null payload ignored", `{"text":null,"emotion":{"joy":1}}`, KindEmotion},
		{"unknown shape", `{"packetId":{"packetId":"p"},"somethingNew":{}}`, KindUnknown},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.frame))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Kind != tc.want {
				t.Fatalf("kind=%s, want %s", got.Kind, tc.want)
			}
			if n := len(got.payloadKinds()); tc.want != KindUnknown && n != 1 {
				t.Fatalf("payload count=%d, want 1", n)
			}
		})
	}
}

func TestDecode_ControlSubVariantsInPriorityOrder(t *testing.T) {
	t.Parallel()

	frame := `{"control":{"action":"CURRENT_SCENE_STATUS",
		"conversationUpdate":{"participants":[{"name":"a","type":"AGENT"}]},
		"currentSceneStatus":{"agents":[{"agentId":"42","brainName":"x"}]}}}`
	got, err := Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Control.Variant() != ControlVariantConversationUpdate {
		t.Fatalf("variant=%s, want conversation_update", got.Control.Variant())
	}
	if got.Control.CurrentSceneStatus != nil {
		t.Fatalf("lower priority sub-payload should be dropped")
	}

	scene, err := Decode([]byte(`{"control":{"action":"CURRENT_SCENE_STATUS","currentSceneStatus":{"sceneName":"s","agents":[{"agentId":"42","brainName":"x"}]}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if scene.Control.Variant() != ControlVariantSceneStatus || scene.Control.CurrentSceneStatus.Agents[0].AgentID != "42" {
		t.Fatalf("scene=%+v", scene.Control)
	}

	base, err := Decode([]byte(`{"control":{"action":"INTERACTION_END"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if base.Control.Variant() != ControlVariantBase || base.ControlAction() != ControlInteractionEnd {
		t.Fatalf("base=%+v", base.Control)
	}
}

func TestDecode_MutationSubVariantsInPriorityOrder(t *testing.T) {
	t.Parallel()

	got, err := Decode([]byte(`{"mutation":{"loadScene":{"name":"s"},"applyResponse":{"packetId":{"packetId":"p"}}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Mutation.Variant() != MutationVariantApply {
		t.Fatalf("variant=%s, want apply_response", got.Mutation.Variant())
	}
	if got.Mutation.LoadScene != nil {
		t.Fatalf("lower priority sub-payload should be dropped")
	}
}

func TestDecode_MalformedFramesReturnDecodeError(t *testing.T) {
	t.Parallel()

	for _, frame := range []string{`not json`, `[1,2]`, `null`, `{"text":"not an object"}`, `{"routing":7,"text":{}}`} {
		_, err := Decode([]byte(frame))
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("Decode(%s) err=%v, want *DecodeError", frame, err)
		}
	}
}

func TestDecodeResponse_ErrorTakesPrecedence(t *testing.T) {
	t.Parallel()

	frame := `{"result":{"text":{"text":"ignored"}},"error":{"code":16,"message":"Session closed due to inactivity",
		"details":[{"errorType":"SESSION_EXPIRED","reconnectType":"TIMEOUT","reconnectTime":"5s","maxRetries":3}]}}`
	resp, err := DecodeResponse([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Result != nil {
		t.Fatalf("result should be nil when error is present")
	}
	coreErr := resp.Error.Err()
	if coreErr.Kind != core.ErrProtocol || coreErr.Code != 16 {
		t.Fatalf("err=%+v", coreErr)
	}
	if coreErr.ServerType != core.ErrorTypeSessionExpired || coreErr.Reconnect != core.ReconnectTimeout || coreErr.MaxRetries != 3 {
		t.Fatalf("details not applied: %+v", coreErr)
	}
	if coreErr.RetryAfter == nil || *coreErr.RetryAfter != 5*time.Second {
		t.Fatalf("retryAfter=%v, want 5s", coreErr.RetryAfter)
	}
}

func TestDecodeResponse_EmptyErrorMessageFallsThroughToResult(t *testing.T) {
	t.Parallel()

	resp, err := DecodeResponse([]byte(`{"result":{"text":{"text":"hi"}},"error":{"code":0,"message":""}}`))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Error != nil || resp.Result == nil || resp.Result.Text.Text != "hi" {
		t.Fatalf("resp=%+v", resp)
	}

	if _, err := DecodeResponse([]byte(`{"result":null}`)); err == nil {
		t.Fatalf("expected error for missing result")
	}
}

func TestDecodeResponse_FoldsTypographicQuotes(t *testing.T) {
	t.Parallel()

	resp, err := DecodeResponse([]byte(`{"result":{"text":{"text":"it’s “fine”"}}}`))
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got := resp.Result.Text.Text; got != `it's "fine"` {
		t.Fatalf("text=%q", got)
	}
}

func TestEncodeResponse_WrapsPacket(t *testing.T) {
	t.Parallel()

	data, err := EncodeResponse(NewTextPacket("hi"))
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := envelope["result"]; !ok {
		t.Fatalf("envelope=%s missing result", data)
	}
}
