package testutils

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestServer wraps httptest.Server with a cookie-jar client so session
// cookies survive across requests, and with form-post helpers matching the
// application's form-encoded routes. Redirects are not followed so tests can
// assert on them.
type TestServer struct {
	*httptest.Server
	Client *http.Client
	t      *testing.T
}

func NewTestServer(t *testing.T, handler http.Handler) *TestServer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &TestServer{
		Server: server,
		Client: client,
		t:      t,
	}
}

func (ts *TestServer) GET(path string) *http.Response {
	resp, err := ts.Client.Get(ts.URL + path)
	require.NoError(ts.t, err)
	return resp
}

func (ts *TestServer) PostForm(path string, form url.Values) *http.Response {
	resp, err := ts.Client.Post(ts.URL+path, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	require.NoError(ts.t, err)
	return resp
}

func (ts *TestServer) PostJSON(path, body string) *http.Response {
	resp, err := ts.Client.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(ts.t, err)
	return resp
}
