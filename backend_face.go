package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// FaceResult is the worker's terminal answer for a face verification session.
type FaceResult string

const (
	FaceNext          FaceResult = "next"
	FaceSuccess       FaceResult = "success"
	FaceNoFaces       FaceResult = "no_faces"
	FaceLowResolution FaceResult = "low_resolution"
	FaceInternalError FaceResult = "internal_error"
	FaceCancelled     FaceResult = "cancelled"
)

// FaceWorker is the face verification worker as seen from the orchestration
// side. facewire.Client satisfies it over a persistent duplex channel.
type FaceWorker interface {
	Ping(ctx context.Context) error
	Verify(ctx context.Context, sessionID string) (FaceResult, error)
	Cancel(ctx context.Context, sessionID string) error
}

// DefaultFaceLivenessTimeout bounds the worker ping performed before a face
// verification slot is promised to the client.
const DefaultFaceLivenessTimeout = 5 * time.Second

// FaceBackend delegates verification to an out-of-process worker. Frames are
// streamed worker-side; only liveness and the terminal result pass through
// here.
type FaceBackend struct {
	worker          FaceWorker
	livenessTimeout time.Duration
	logger          Logger
}

var _ Backend = (*FaceBackend)(nil)

// NewFaceBackend builds a face backend over the given worker. A zero timeout
// falls back to DefaultFaceLivenessTimeout.
func NewFaceBackend(worker FaceWorker, livenessTimeout time.Duration, logger Logger) *FaceBackend {
	if livenessTimeout <= 0 {
		livenessTimeout = DefaultFaceLivenessTimeout
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &FaceBackend{
		worker:          worker,
		livenessTimeout: livenessTimeout,
		logger:          logger,
	}
}

// Request pings the worker before promising the client a verification slot.
// An unreachable worker times out rather than leaving the request hanging.
func (b *FaceBackend) Request(ctx context.Context, cred Credential) (*RequestOutcome, error) {
	pingCtx, cancel := context.WithTimeout(ctx, b.livenessTimeout)
	defer cancel()

	if err := b.worker.Ping(pingCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || pingCtx.Err() == context.DeadlineExceeded {
			b.logger.Warn("face worker liveness check timed out")
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "face worker unavailable").
				WithTextCode(textCodeTimedOut)
		}
		b.logger.Error("face worker ping failed: %v", err)
		return nil, sanitizeBackendErr(err)
	}

	return &RequestOutcome{NeedsSecondFactor: false}, nil
}

// Confirm runs the worker session and relays its terminal result. A caller
// abort mid-session tells the worker to release the session before returning.
func (b *FaceBackend) Confirm(ctx context.Context, attempt Attempt) (*ConfirmOutcome, error) {
	result, err := b.worker.Verify(ctx, attempt.RequestID)
	if err != nil {
		if ctx.Err() != nil {
			// the worker must not be left believing the session is active
			if cancelErr := b.worker.Cancel(context.WithoutCancel(ctx), attempt.RequestID); cancelErr != nil {
				b.logger.Warn("failed to cancel face session %s: %v", attempt.RequestID, cancelErr)
			}
			return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "face verification aborted").
				WithTextCode(textCodeCancelled)
		}
		b.logger.Error("face verification failed: %v", err)
		return nil, sanitizeBackendErr(err)
	}

	switch result {
	case FaceSuccess:
		return &ConfirmOutcome{Success: true}, nil
	case FaceCancelled:
		return nil, goerrors.New("face verification cancelled", goerrors.CategoryOperation).
			WithTextCode(textCodeCancelled)
	case FaceInternalError:
		return nil, goerrors.New("face worker reported an internal error", goerrors.CategoryExternal).
			WithTextCode(textCodeBackendFailure)
	default:
		// next, no_faces, low_resolution: the attempt failed but may retry
		return &ConfirmOutcome{Success: false}, nil
	}
}
