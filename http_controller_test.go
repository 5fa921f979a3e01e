package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-authflow"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type jsonCapture struct {
	status int
	body   any
}

func captureJSON(ctx *router.MockContext, out *jsonCapture) {
	ctx.On("JSON", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out.status = args.Int(0)
		out.body = args.Get(1)
	})
}

func TestRequestVerificationRejectsUnknownCredentialType(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t, &captureSender{})
	controller := auth.NewAuthController(orchestrator)

	ctx := router.NewMockContext()
	ctx.On("Param", "credentialType", "").Return("passport")

	var captured jsonCapture
	captureJSON(ctx, &captured)

	require.NoError(t, controller.RequestVerification(ctx))
	assert.Equal(t, router.StatusBadRequest, captured.status)
}

func TestRequestVerificationHappyPath(t *testing.T) {
	sender := &captureSender{}
	orchestrator, _, _ := newTestOrchestrator(t, sender)
	controller := auth.NewAuthController(orchestrator)

	ctx := router.NewMockContext()
	ctx.On("Param", "credentialType", "").Return("email")
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*auth.RequestVerificationPayload)
		payload.Credential = "user@example.com"
	})
	ctx.On("Context").Return(context.Background())

	var captured jsonCapture
	captureJSON(ctx, &captured)

	require.NoError(t, controller.RequestVerification(ctx))
	require.Equal(t, router.StatusOK, captured.status)
	require.Len(t, sender.sent, 1)
}

func TestRequestVerificationRejectsEmptyPayload(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t, &captureSender{})
	controller := auth.NewAuthController(orchestrator)

	ctx := router.NewMockContext()
	ctx.On("Param", "credentialType", "").Return("email")
	ctx.On("Bind", mock.Anything).Return(nil)

	var captured jsonCapture
	captureJSON(ctx, &captured)

	require.NoError(t, controller.RequestVerification(ctx))
	assert.Equal(t, router.StatusBadRequest, captured.status)
}

func TestConfirmVerificationRequiresToken(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t, &captureSender{})
	controller := auth.NewAuthController(orchestrator)

	ctx := router.NewMockContext()
	ctx.On("Query", "token", "").Return("")

	var captured jsonCapture
	captureJSON(ctx, &captured)

	require.NoError(t, controller.ConfirmVerification(ctx))
	assert.Equal(t, router.StatusUnauthorized, captured.status)
}

func TestConfirmVerificationRejectsForgedToken(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t, &captureSender{})
	controller := auth.NewAuthController(orchestrator)

	ctx := router.NewMockContext()
	ctx.On("Query", "token", "").Return("not-a-real-token")
	ctx.On("Bind", mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background())

	var captured jsonCapture
	captureJSON(ctx, &captured)

	require.NoError(t, controller.ConfirmVerification(ctx))
	assert.Equal(t, router.StatusUnauthorized, captured.status)
}

type stubAuthorizeURLs struct {
	url string
	err error
}

func (s stubAuthorizeURLs) AuthorizeURL(provider string) (string, error) {
	return s.url, s.err
}

func TestOAuthEntryRedirectsToProvider(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t, &captureSender{})
	controller := auth.NewAuthController(orchestrator,
		auth.WithControllerOAuth(stubAuthorizeURLs{url: "https://provider.example.com/authorize"}))

	ctx := router.NewMockContext()
	ctx.On("Query", "provider", "").Return("google")
	ctx.On("Redirect", "https://provider.example.com/authorize", router.StatusSeeOther).Return(nil)

	require.NoError(t, controller.OAuthEntry(ctx))
	ctx.AssertExpectations(t)
}

func TestOAuthEntryWithoutBuilderIsNotFound(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(t, &captureSender{})
	controller := auth.NewAuthController(orchestrator)

	ctx := router.NewMockContext()

	var captured jsonCapture
	captureJSON(ctx, &captured)

	require.NoError(t, controller.OAuthEntry(ctx))
	assert.Equal(t, 404, captured.status)
}
