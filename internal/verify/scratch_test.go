package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifierWithServer(t *testing.T, handler http.Handler) *ScratchVerifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	v := NewScratchVerifier("1260682528", 20)
	v.BaseURL = server.URL
	return v
}

const commentsBody = `[
	{"id": 1, "content": "cool project", "author": {"id": 7, "username": "somebody"}},
	{"id": 2, "content": "verify: ABC123", "author": {"id": 42, "username": "Alice"}},
	{"id": 3, "content": "hello", "author": {"id": 9, "username": "bob"}}
]`

func TestVerifyMatchesCodeCaseInsensitiveAuthor(t *testing.T) {
	v := newVerifierWithServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/1260682528/comments", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		fmt.Fprint(w, commentsBody)
	}))

	// 作者名不区分大小写
	ok, err := v.Verify(context.Background(), "alice", "ABC123")
	require.NoError(t, err)
	assert.True(t, ok)

	// 验证码必须精确包含
	ok, err = v.Verify(context.Background(), "alice", "XYZ999")
	require.NoError(t, err)
	assert.False(t, ok)

	// 别人发的验证码不算数
	ok, err = v.Verify(context.Background(), "bob", "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUpstreamError(t *testing.T) {
	v := newVerifierWithServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := v.Verify(context.Background(), "alice", "ABC123")
	assert.Error(t, err)
}

func TestLookupUserID(t *testing.T) {
	v := newVerifierWithServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/alice", r.URL.Path)
		fmt.Fprint(w, `{"id": 123456, "username": "alice"}`)
	}))

	uid, err := v.LookupUserID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "123456", uid)
}
