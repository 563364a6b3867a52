package pds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluesky-social/indigo/atproto/atclient"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuth_DoWithAuth(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	auth := &bearerAuth{token: "token.with.dots_and-dashes"}
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := auth.DoWithAuth(&http.Client{}, req, syntax.NSID("com.atproto.test"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer token.with.dots_and-dashes", captured)
}

func TestNewFromAccessToken(t *testing.T) {
	tests := []struct {
		name        string
		host        string
		did         string
		accessToken string
		wantErr     string
	}{
		{name: "valid", host: "https://pds.example.com", did: "did:plc:abc123", accessToken: "tok"},
		{name: "empty host", did: "did:plc:abc123", accessToken: "tok", wantErr: "host is required"},
		{name: "empty did", host: "https://pds.example.com", accessToken: "tok", wantErr: "did is required"},
		{name: "empty token", host: "https://pds.example.com", did: "did:plc:abc123", wantErr: "accessToken is required"},
		{name: "malformed did", host: "https://pds.example.com", did: "not-a-did", accessToken: "tok", wantErr: "invalid did"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewFromAccessToken(tt.host, tt.did, tt.accessToken)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.did, c.DID())
			assert.Equal(t, tt.host, c.HostURL())
		})
	}
}

func TestNewFromPasswordAuth_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := NewFromPasswordAuth(ctx, "", "alice.test", "pw")
	assert.ErrorContains(t, err, "host is required")
	_, err = NewFromPasswordAuth(ctx, "https://pds.example.com", "", "pw")
	assert.ErrorContains(t, err, "handle is required")
	_, err = NewFromPasswordAuth(ctx, "https://pds.example.com", "alice.test", "")
	assert.ErrorContains(t, err, "password is required")
}

func TestWrapAPIError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTyped error
	}{
		{name: "400", err: &atclient.APIError{StatusCode: 400, Name: "InvalidRequest", Message: "bad"}, wantTyped: ErrBadRequest},
		{name: "400 record not found", err: &atclient.APIError{StatusCode: 400, Name: "RecordNotFound", Message: "gone"}, wantTyped: ErrNotFound},
		{name: "400 invalid swap", err: &atclient.APIError{StatusCode: 400, Name: "InvalidSwap", Message: "changed"}, wantTyped: ErrConflict},
		{name: "401", err: &atclient.APIError{StatusCode: 401, Name: "AuthRequired"}, wantTyped: ErrUnauthorized},
		{name: "403", err: &atclient.APIError{StatusCode: 403, Name: "Forbidden"}, wantTyped: ErrForbidden},
		{name: "404", err: &atclient.APIError{StatusCode: 404, Name: "NotFound"}, wantTyped: ErrNotFound},
		{name: "409", err: &atclient.APIError{StatusCode: 409, Name: "Conflict"}, wantTyped: ErrConflict},
		{name: "413", err: &atclient.APIError{StatusCode: 413, Name: "PayloadTooLarge"}, wantTyped: ErrPayloadTooLarge},
		{name: "429", err: &atclient.APIError{StatusCode: 429, Name: "RateLimitExceeded"}, wantTyped: ErrRateLimited},
		{name: "500", err: &atclient.APIError{StatusCode: 500, Name: "InternalError"}},
		{name: "transport", err: errors.New("network timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := wrapAPIError(tt.err, "putRecord")
			require.Error(t, result)
			assert.True(t, strings.Contains(result.Error(), "putRecord"))
			if tt.wantTyped != nil {
				assert.ErrorIs(t, result, tt.wantTyped)
			}
		})
	}

	assert.NoError(t, wrapAPIError(nil, "op"))
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsAuthError(wrapAPIError(&atclient.APIError{StatusCode: 401}, "op")))
	assert.True(t, IsAuthError(ErrForbidden))
	assert.False(t, IsAuthError(ErrNotFound))

	assert.True(t, IsRetryable(wrapAPIError(&atclient.APIError{StatusCode: 429}, "op")))
	assert.True(t, IsRetryable(ErrConflict))
	assert.False(t, IsRetryable(ErrBadRequest))
}

func TestClient_RecordRoundTrip(t *testing.T) {
	f := newFakePDS(t)
	c := f.client(t)
	ctx := context.Background()

	uri, cid, err := c.CreateRecord(ctx, PostCollection, "", map[string]any{"title": "t"})
	require.NoError(t, err)
	assert.NotEmpty(t, cid)

	rkey, err := rkeyFromURI(uri)
	require.NoError(t, err)

	got, err := c.GetRecord(ctx, PostCollection, rkey)
	require.NoError(t, err)
	assert.Equal(t, cid, got.CID)

	var value map[string]any
	require.NoError(t, got.Decode(&value))
	assert.Equal(t, "t", value["title"])

	_, _, err = c.PutRecord(ctx, PostCollection, rkey, map[string]any{"title": "u"}, "stale-cid")
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = c.PutRecord(ctx, PostCollection, rkey, map[string]any{"title": "u"}, cid)
	require.NoError(t, err)

	require.NoError(t, c.DeleteRecord(ctx, PostCollection, rkey))
	_, err = c.GetRecord(ctx, PostCollection, rkey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Unauthorized(t *testing.T) {
	f := newFakePDS(t)
	c, err := NewFromAccessToken(f.server.URL, testDID, "wrong-token")
	require.NoError(t, err)

	_, err = c.ListRecords(context.Background(), PostCollection, 10, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsAuthError(err))
}

func TestRKeyFromURI(t *testing.T) {
	rkey, err := rkeyFromURI("at://did:plc:abc/app.memories.post/3lmem00000001")
	require.NoError(t, err)
	assert.Equal(t, "3lmem00000001", rkey)

	_, err = rkeyFromURI("not a uri")
	assert.Error(t, err)

	_, err = rkeyFromURI("at://did:plc:abc/app.memories.post")
	assert.Error(t, err)
}
