package facewire

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-authflow/correlate"
)

// Client drives worker sessions over a channel: liveness pings, session
// handshakes, and cancellation. Deadlines come from the caller's context;
// the bus itself never times out.
type Client struct {
	ch  *Channel
	bus *correlate.Bus[string, Envelope]
}

// NewClient builds a client over an open channel. The bus must be the same
// one the channel's ReadPump publishes into.
func NewClient(ch *Channel, bus *correlate.Bus[string, Envelope]) *Client {
	return &Client{ch: ch, bus: bus}
}

// Ping checks that the worker is alive and answering.
func (c *Client) Ping(ctx context.Context) error {
	id := uuid.NewString()

	env, err := NewEnvelope(id, KindPingRequest, nil)
	if err != nil {
		return err
	}
	if err := c.ch.Send(env); err != nil {
		return err
	}

	reply, err := c.bus.AwaitReply(ctx, id)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "worker ping got no answer")
	}

	if reply.Kind != KindPingResponse {
		return goerrors.New("unexpected reply to ping", goerrors.CategoryExternal).
			WithMetadata(map[string]any{"kind": string(reply.Kind)})
	}

	return nil
}

// Verify opens a session with the worker and waits for its terminal result.
// Frame streaming happens worker-side under the same session id; this call
// only observes the answer.
func (c *Client) Verify(ctx context.Context, sessionID string) (ResultCode, error) {
	env, err := NewEnvelope(sessionID, KindHandshakeRequest, Handshake{SessionID: sessionID})
	if err != nil {
		return "", err
	}
	if err := c.ch.Send(env); err != nil {
		return "", err
	}

	for {
		reply, err := c.bus.AwaitReply(ctx, sessionID)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryExternal, "worker session got no answer")
		}

		switch reply.Kind {
		case KindHandshakeResponse:
			// session acknowledged, result still pending
			continue
		case KindResult:
			var result Result
			if err := reply.DecodePayload(&result); err != nil {
				return "", err
			}
			return result.Code, nil
		default:
			return "", goerrors.New("unexpected reply in session", goerrors.CategoryExternal).
				WithMetadata(map[string]any{"kind": string(reply.Kind)})
		}
	}
}

// Cancel tells the worker to release a session. Without it the worker is
// left believing the session is still active.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	env, err := NewEnvelope(sessionID, KindResult, Result{Code: ResultCancelled})
	if err != nil {
		return err
	}
	return c.ch.Send(env)
}
