// Package facewire carries the RPC envelope between the auth process and the
// face verification worker over a persistent duplex channel. Every envelope
// is correlated by an opaque id carried alongside the payload, never inside
// it, so unrelated exchanges can interleave on one connection.
package facewire

import (
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"
)

// Kind tags the payload variant of an envelope.
type Kind string

const (
	KindHandshakeRequest  Kind = "handshake.request"
	KindHandshakeResponse Kind = "handshake.response"
	KindFrame             Kind = "frame"
	KindResult            Kind = "result"
	KindPingRequest       Kind = "ping.request"
	KindPingResponse      Kind = "ping.response"
)

// ResultCode is the worker's terminal answer for one verification session.
type ResultCode string

const (
	ResultNext          ResultCode = "next"
	ResultSuccess       ResultCode = "success"
	ResultNoFaces       ResultCode = "no_faces"
	ResultLowResolution ResultCode = "low_resolution"
	ResultInternalError ResultCode = "internal_error"
	ResultCancelled     ResultCode = "cancelled"
)

// Envelope is the unit framed onto the wire.
type Envelope struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handshake opens a verification session with the worker.
type Handshake struct {
	SessionID string `json:"session_id"`
}

// Frame is one captured image pushed toward the worker.
type Frame struct {
	Format  string `json:"format"`
	Width   int    `json:"width"`
	Content []byte `json:"content"`
}

// Result carries the worker's answer.
type Result struct {
	Code ResultCode `json:"code"`
}

// NewEnvelope builds an envelope around a payload value.
func NewEnvelope(id string, kind Kind, payload any) (Envelope, error) {
	env := Envelope{ID: id, Kind: kind}
	if payload == nil {
		return env, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode envelope payload")
	}
	env.Payload = raw

	return env, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return goerrors.New("envelope has no payload", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(e.Kind)})
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode envelope payload")
	}
	return nil
}

// ValidateKind rejects envelopes outside the closed kind set.
func (e Envelope) ValidateKind() error {
	switch e.Kind {
	case KindHandshakeRequest, KindHandshakeResponse, KindFrame, KindResult, KindPingRequest, KindPingResponse:
		return nil
	}
	return goerrors.New("unknown envelope kind", goerrors.CategoryBadInput).
		WithMetadata(map[string]any{"kind": string(e.Kind)})
}
