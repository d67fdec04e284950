package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeError reports a frame that could not be decoded at all.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Param)
}

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_frame", Message: message, Param: param}
}

func badPacket(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_packet", Message: message, Param: param}
}

// Encode serializes p. The packet must carry exactly one payload.
func Encode(p *Packet) ([]byte, error) {
	if p == nil {
		return nil, badPacket("packet must not be nil", "")
	}
	kinds := p.payloadKinds()
	switch {
	case len(kinds) == 0:
		return nil, badPacket("packet has no payload", "")
	case len(kinds) > 1:
		return nil, badPacket(fmt.Sprintf("packet has %d payloads", len(kinds)), kinds[1].String())
	case p.Kind != KindUnknown && p.Kind != kinds[0]:
		return nil, badPacket(fmt.Sprintf("packet kind %s does not match payload %s", p.Kind, kinds[0]), kinds[0].String())
	}
	return json.Marshal(p)
}

// packetSniffer claims a frame when its key is present and match (if any)
// accepts the raw value.
type packetSniffer struct {
	key    string
	kind   Kind
	match  func(raw json.RawMessage) bool
	decode func(p *Packet, raw json.RawMessage) error
}

// packetSniffers is evaluated in order; the first match wins.
var packetSniffers = []packetSniffer{
	{key: "text", kind: KindText, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.Text, raw)
	}},
	{key: "control", kind: KindControl, decode: decodeControl},
	{key: "dataChunk", kind: KindAudio, match: isAudioChunk, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.DataChunk, raw)
	}},
	{key: "custom", kind: KindCustom, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.Custom, raw)
	}},
	{key: "emotion", kind: KindEmotion, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.Emotion, raw)
	}},
	{key: "action", kind: KindAction, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.Action, raw)
	}},
	{key: "sessionControlResponse", kind: KindSessionResponse, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.SessionControlResponse, raw)
	}},
	{key: "operationStatus", kind: KindOperationStatus, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.OperationStatus, raw)
	}},
	{key: "latencyReport", kind: KindLatencyReport, decode: decodeLatencyReport},
	{key: "log", kind: KindLog, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.Log, raw)
	}},
	{key: "debugInfo", kind: KindRelation, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.DebugInfo, raw)
	}},
	{key: "mutation", kind: KindMutation, decode: decodeMutation},
	{key: "entitiesItemsOperation", kind: KindItemsOperation, decode: func(p *Packet, raw json.RawMessage) error {
		return into(&p.ItemsOperation, raw)
	}},
}

// Decode reads one packet. A frame of unknown shape decodes to a header-only
// packet of KindUnknown with a nil error; only malformed JSON is an error.
func Decode(data []byte) (*Packet, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, badFrame("invalid json packet", "")
	}
	if fields == nil {
		return nil, badFrame("packet must be a json object", "")
	}
	return decodeFields(fields)
}

func decodeFields(fields map[string]json.RawMessage) (*Packet, error) {
	p := &Packet{}
	if err := decodeHeader(p, fields); err != nil {
		return nil, err
	}
	for _, s := range packetSniffers {
		raw, ok := present(fields, s.key)
		if !ok {
			continue
		}
		if s.match != nil && !s.match(raw) {
			continue
		}
		if err := s.decode(p, raw); err != nil {
			return nil, badPacket("invalid "+s.key+" payload", s.key)
		}
		p.Kind = s.kind
		return p, nil
	}
	p.Kind = KindUnknown
	return p, nil
}

func decodeHeader(p *Packet, fields map[string]json.RawMessage) error {
	if raw, ok := present(fields, "packetId"); ok {
		if err := json.Unmarshal(raw, &p.PacketID); err != nil {
			return badPacket("invalid packetId", "packetId")
		}
	}
	if raw, ok := present(fields, "routing"); ok {
		if err := json.Unmarshal(raw, &p.Routing); err != nil {
			return badPacket("invalid routing", "routing")
		}
	}
	if raw, ok := present(fields, "timestamp"); ok {
		if err := json.Unmarshal(raw, &p.Timestamp); err != nil {
			return badPacket("invalid timestamp", "timestamp")
		}
	}
	return nil
}

func isAudioChunk(raw json.RawMessage) bool {
	var chunk struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return false
	}
	return chunk.Type == DataTypeAudio
}

// controlSubKeys is the sub-variant priority for control payloads.
var controlSubKeys = []string{"audioSessionStart", "conversationUpdate", "sessionControl", "sessionConfiguration", "currentSceneStatus"}

func decodeControl(p *Packet, raw json.RawMessage) error {
	fields, err := objectFields(raw)
	if err != nil {
		return err
	}
	ev := &ControlEvent{}
	if v, ok := present(fields, "action"); ok {
		if err := json.Unmarshal(v, &ev.Action); err != nil {
			return err
		}
	}
	if v, ok := present(fields, "description"); ok {
		if err := json.Unmarshal(v, &ev.Description); err != nil {
			return err
		}
	}
	for _, key := range controlSubKeys {
		v, ok := present(fields, key)
		if !ok {
			continue
		}
		switch key {
		case "audioSessionStart":
			err = into(&ev.AudioSessionStart, v)
		case "conversationUpdate":
			err = into(&ev.ConversationUpdate, v)
		case "sessionControl":
			ev.SessionControl = append(json.RawMessage(nil), v...)
		case "sessionConfiguration":
			err = into(&ev.SessionConfiguration, v)
		case "currentSceneStatus":
			err = into(&ev.CurrentSceneStatus, v)
		}
		if err != nil {
			return err
		}
		break
	}
	p.Control = ev
	return nil
}

// mutationSubKeys is the sub-variant priority for mutation payloads.
var mutationSubKeys = []string{"regenerateResponse", "applyResponse", "cancelResponses", "loadScene", "loadCharacters", "unloadCharacters"}

func decodeMutation(p *Packet, raw json.RawMessage) error {
	fields, err := objectFields(raw)
	if err != nil {
		return err
	}
	ev := &MutationEvent{}
	for _, key := range mutationSubKeys {
		v, ok := present(fields, key)
		if !ok {
			continue
		}
		switch key {
		case "regenerateResponse":
			err = into(&ev.RegenerateResponse, v)
		case "applyResponse":
			err = into(&ev.ApplyResponse, v)
		case "cancelResponses":
			err = into(&ev.CancelResponses, v)
		case "loadScene":
			err = into(&ev.LoadScene, v)
		case "loadCharacters":
			err = into(&ev.LoadCharacters, v)
		case "unloadCharacters":
			err = into(&ev.UnloadCharacters, v)
		}
		if err != nil {
			return err
		}
		break
	}
	p.Mutation = ev
	return nil
}

func decodeLatencyReport(p *Packet, raw json.RawMessage) error {
	fields, err := objectFields(raw)
	if err != nil {
		return err
	}
	ev := &LatencyReportEvent{}
	if v, ok := present(fields, "pingPong"); ok {
		err = into(&ev.PingPong, v)
	} else if v, ok := present(fields, "perceivedLatency"); ok {
		err = into(&ev.PerceivedLatency, v)
	}
	if err != nil {
		return err
	}
	p.LatencyReport = ev
	return nil
}

func objectFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

// present returns the value for key unless it is missing or JSON null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func into[T any](dst **T, raw json.RawMessage) error {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	*dst = v
	return nil
}
