package auth

import (
	"context"

	"github.com/goliatone/go-authflow/facewire"
)

// faceWorkerClient adapts facewire.Client onto the FaceWorker surface the
// face backend consumes.
type faceWorkerClient struct {
	client *facewire.Client
}

var _ FaceWorker = (*faceWorkerClient)(nil)

// NewFaceWorkerClient wraps a facewire client as a FaceWorker.
func NewFaceWorkerClient(client *facewire.Client) FaceWorker {
	return &faceWorkerClient{client: client}
}

func (w *faceWorkerClient) Ping(ctx context.Context) error {
	return w.client.Ping(ctx)
}

func (w *faceWorkerClient) Verify(ctx context.Context, sessionID string) (FaceResult, error) {
	code, err := w.client.Verify(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return FaceResult(code), nil
}

func (w *faceWorkerClient) Cancel(ctx context.Context, sessionID string) error {
	return w.client.Cancel(ctx, sessionID)
}
