package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"campus-card-ledger/internal/core/domain"
)

// Envelope is the wire frame on both websocket endpoints: a type tag and a
// typed payload. Unknown types are rejected at the boundary so the core only
// ever sees the closed event set.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Terminal command types (inbound on /ws/terminal).
const (
	CommandArm    = "arm"
	CommandCancel = "cancel"
)

// ArmCommand carries the cart the UI wants to charge against the next tap.
type ArmCommand struct {
	Lines []domain.CartLine `json:"lines"`
}

// DecodeReaderMessage parses one hardware-feed frame into a typed event.
func DecodeReaderMessage(raw []byte) (domain.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch domain.EventType(env.Type) {
	case domain.EventCardPresent:
		var evt domain.CardPresentEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, fmt.Errorf("card-present payload: %w", err)
		}
		if evt.CardUID == "" {
			return nil, fmt.Errorf("card-present requires card_uid")
		}
		if evt.At.IsZero() {
			evt.At = time.Now().UTC()
		}
		return evt, nil

	case domain.EventCardRemoved:
		var evt domain.CardRemovedEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, fmt.Errorf("card-removed payload: %w", err)
		}
		if evt.CardUID == "" {
			return nil, fmt.Errorf("card-removed requires card_uid")
		}
		if evt.At.IsZero() {
			evt.At = time.Now().UTC()
		}
		return evt, nil

	case domain.EventReaderStatus:
		var evt domain.ReaderStatusEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			return nil, fmt.Errorf("reader-status payload: %w", err)
		}
		switch evt.Status {
		case domain.ReaderConnected, domain.ReaderDisconnected, domain.ReaderError:
		default:
			return nil, fmt.Errorf("reader-status has unknown status %q", evt.Status)
		}
		if evt.At.IsZero() {
			evt.At = time.Now().UTC()
		}
		return evt, nil

	default:
		return nil, fmt.Errorf("unknown reader message type %q", env.Type)
	}
}

// DecodeTerminalCommand parses one UI frame. Only arm and cancel exist.
func DecodeTerminalCommand(raw []byte) (string, *ArmCommand, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Type {
	case CommandArm:
		var cmd ArmCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			return "", nil, fmt.Errorf("arm payload: %w", err)
		}
		return CommandArm, &cmd, nil
	case CommandCancel:
		return CommandCancel, nil, nil
	default:
		return "", nil, fmt.Errorf("unknown terminal command %q", env.Type)
	}
}

// EncodeEvent wraps an outbound event in the wire envelope.
func EncodeEvent(evt domain.Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return json.Marshal(Envelope{Type: string(evt.Kind()), Data: data})
}
