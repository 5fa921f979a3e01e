// Package signin runs the client side of a federated sign-in: an ephemeral
// local listener for the provider callback, the browser hand-off, and the
// race between completion, deadline, and cancellation.
package signin

import (
	"context"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-authflow"
	"github.com/goliatone/go-authflow/correlate"
)

// Status is the terminal state of one sign-in flow.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Outcome is what a finished flow resolves to. Tokens is set only for
// StatusCompleted.
type Outcome struct {
	Status Status
	Tokens *auth.SessionTokenPair
}

// DefaultDeadline bounds how long a flow waits for the provider callback.
const DefaultDeadline = 5 * time.Minute

// BrowserLauncher opens the authorization URL in the platform browser.
type BrowserLauncher func(url string) error

// AuthorizeURLBuilder renders the provider authorization URL for this
// attempt, embedding the callback port and request id.
type AuthorizeURLBuilder func(port int, requestID string) string

// Flow is a single sign-in attempt. A Flow is not reusable; build a new one
// per attempt.
type Flow struct {
	requestID string
	deadline  time.Duration

	bus      *correlate.Bus[string, auth.SessionTokenPair]
	build    AuthorizeURLBuilder
	launcher BrowserLauncher
	logger   auth.Logger

	app      *fiber.App
	listener net.Listener
	port     int

	cancelWait context.CancelFunc
	cancelled  atomic.Bool
	teardown   sync.Once
}

// Option customizes flow construction.
type Option func(*Flow)

// WithDeadline overrides the callback deadline.
func WithDeadline(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.deadline = d
		}
	}
}

// WithBrowserLauncher injects the platform browser opener.
func WithBrowserLauncher(launcher BrowserLauncher) Option {
	return func(f *Flow) {
		if launcher != nil {
			f.launcher = launcher
		}
	}
}

// WithLogger sets the flow logger.
func WithLogger(logger auth.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRequestID pins the correlation id, mostly for tests.
func WithRequestID(id string) Option {
	return func(f *Flow) {
		if id != "" {
			f.requestID = id
		}
	}
}

// New builds a flow. build renders the authorization URL once the callback
// port is known.
func New(build AuthorizeURLBuilder, opts ...Option) *Flow {
	f := &Flow{
		requestID: uuid.NewString(),
		deadline:  DefaultDeadline,
		bus:       correlate.New[string, auth.SessionTokenPair](),
		build:     build,
		logger:    auth.NewDefaultLogger(),
	}
	f.launcher = func(u string) error {
		f.logger.Info("open %s to continue sign in", u)
		return nil
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// RequestID returns the correlation id for this attempt.
func (f *Flow) RequestID() string { return f.requestID }

// Port returns the callback port, valid once Run has bound the listener.
func (f *Flow) Port() int { return f.port }

// Run executes the flow to its terminal state. A listener bind failure is
// fatal to this attempt only. The listener is always torn down before Run
// returns, whichever branch wins the race.
func (f *Flow) Run(ctx context.Context) (*Outcome, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to bind callback listener")
	}
	f.listener = listener
	f.port = listener.Addr().(*net.TCPAddr).Port

	f.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	f.app.Post("/", f.handleCallback)

	go func() {
		if err := f.app.Listener(listener); err != nil {
			f.logger.Debug("callback listener stopped: %v", err)
		}
	}()

	defer f.stop()

	authorizeURL := f.build(f.port, f.requestID)
	if err := f.launcher(authorizeURL); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to launch browser")
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.deadline)
	f.cancelWait = cancel
	defer cancel()

	pair, err := f.bus.AwaitReply(waitCtx, f.requestID)
	if err != nil {
		if f.cancelled.Load() {
			return &Outcome{Status: StatusCancelled}, nil
		}
		return &Outcome{Status: StatusTimedOut}, nil
	}

	return &Outcome{
		Status: StatusCompleted,
		Tokens: &pair,
	}, nil
}

// Cancel aborts the flow. The listener is shut down and its port released
// before Cancel returns, so a follow-up attempt can bind immediately.
func (f *Flow) Cancel() {
	f.cancelled.Store(true)
	if f.cancelWait != nil {
		f.cancelWait()
	}
	f.stop()
}

// HandleDeepLink feeds a deep-link callback of the shape
// app://oauth/callback?t=<access>&r=<refresh>&i=<requestId> into the same
// completion path as the local POST.
func (f *Flow) HandleDeepLink(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed deep link")
	}

	q := u.Query()
	access := q.Get("t")
	requestID := q.Get("i")
	if access == "" || requestID == "" {
		return goerrors.New("deep link missing token or request id", goerrors.CategoryBadInput)
	}

	f.bus.Publish(requestID, auth.SessionTokenPair{
		AccessToken:  access,
		RefreshToken: q.Get("r"),
	})

	return nil
}

type callbackPayload struct {
	RequestID    string `json:"request_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (f *Flow) handleCallback(c *fiber.Ctx) error {
	payload := new(callbackPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if payload.AccessToken == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	requestID := payload.RequestID
	if requestID == "" {
		requestID = f.requestID
	}

	f.bus.Publish(requestID, auth.SessionTokenPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// stop tears the listener down exactly once. Shutdown is synchronous: when it
// returns the port is released.
func (f *Flow) stop() {
	f.teardown.Do(func() {
		if f.app != nil {
			if err := f.app.Shutdown(); err != nil {
				f.logger.Debug("callback listener shutdown: %v", err)
			}
		}
	})
}
