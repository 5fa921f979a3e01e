package signin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-authflow/signin"
)

func buildURL(port int, requestID string) string {
	return fmt.Sprintf("https://provider.example.com/authorize?port=%d&state=%s", port, requestID)
}

func postCallback(t *testing.T, port int, body map[string]string) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("http://127.0.0.1:%d/", port),
		"application/json",
		bytes.NewReader(payload),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestFlowCompletesOnCallback(t *testing.T) {
	launched := make(chan string, 1)
	flow := signin.New(buildURL,
		signin.WithDeadline(5*time.Second),
		signin.WithBrowserLauncher(func(u string) error {
			launched <- u
			return nil
		}),
	)

	go func() {
		u := <-launched
		assert.Contains(t, u, flow.RequestID())
		postCallback(t, flow.Port(), map[string]string{
			"request_id":    flow.RequestID(),
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
		})
	}()

	outcome, err := flow.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, signin.StatusCompleted, outcome.Status)
	require.NotNil(t, outcome.Tokens)
	assert.Equal(t, "access-1", outcome.Tokens.AccessToken)
	assert.Equal(t, "refresh-1", outcome.Tokens.RefreshToken)

	// the port is released once Run returns
	requireBindable(t, flow.Port())
}

func TestFlowTimesOutWithoutCallback(t *testing.T) {
	flow := signin.New(buildURL, signin.WithDeadline(50*time.Millisecond))

	outcome, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signin.StatusTimedOut, outcome.Status)
	assert.Nil(t, outcome.Tokens)

	requireBindable(t, flow.Port())
}

func TestFlowCancelledBeatsDeadline(t *testing.T) {
	launched := make(chan struct{})
	flow := signin.New(buildURL,
		signin.WithDeadline(5*time.Second),
		signin.WithBrowserLauncher(func(string) error {
			close(launched)
			return nil
		}),
	)

	go func() {
		<-launched
		flow.Cancel()
	}()

	outcome, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signin.StatusCancelled, outcome.Status)
	assert.Nil(t, outcome.Tokens)

	requireBindable(t, flow.Port())
}

func TestFlowRejectsCallbackWithoutToken(t *testing.T) {
	launched := make(chan struct{})
	flow := signin.New(buildURL,
		signin.WithDeadline(300*time.Millisecond),
		signin.WithBrowserLauncher(func(string) error {
			close(launched)
			return nil
		}),
	)

	go func() {
		<-launched
		payload, _ := json.Marshal(map[string]string{"request_id": flow.RequestID()})
		resp, err := http.Post(
			fmt.Sprintf("http://127.0.0.1:%d/", flow.Port()),
			"application/json",
			bytes.NewReader(payload),
		)
		if err == nil {
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()
		}
	}()

	outcome, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signin.StatusTimedOut, outcome.Status)
}

func TestFlowHandleDeepLink(t *testing.T) {
	flow := signin.New(buildURL,
		signin.WithDeadline(5*time.Second),
		signin.WithRequestID("deep-link-attempt"),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		outcome, err := flow.Run(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, signin.StatusCompleted, outcome.Status)
		assert.Equal(t, "access-deep", outcome.Tokens.AccessToken)
	}()

	// wait for the flow to be listening before feeding the link
	time.Sleep(50 * time.Millisecond)
	err := flow.HandleDeepLink("app://oauth/callback?t=access-deep&r=refresh-deep&i=deep-link-attempt")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flow never completed from deep link")
	}
}

func TestFlowHandleDeepLinkRejectsIncompleteLinks(t *testing.T) {
	flow := signin.New(buildURL)

	err := flow.HandleDeepLink("app://oauth/callback?r=refresh-only")
	require.Error(t, err)

	err = flow.HandleDeepLink("app://oauth/callback?t=access-only")
	require.Error(t, err)
}

func requireBindable(t *testing.T, port int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			l.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("port %d still bound: %v", port, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
