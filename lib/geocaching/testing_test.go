package geocaching

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"geoscrape/lib/session"

	"github.com/stretchr/testify/require"
)

const loginFormPage = `<html><body><form>
<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="dDwtNTE2" />
</form></body></html>`

// testServer routes fixture pages by path and counts the requests each
// path receives. The login endpoint is always wired so sessions can be
// brought into the logged-in state.
type testServer struct {
	mux      *http.ServeMux
	requests atomic.Int64
	server   *httptest.Server
}

func newTestServer(t *testing.T) (*testServer, *session.Client) {
	ts := &testServer{mux: http.NewServeMux()}

	ts.mux.HandleFunc("/login/default.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "deadbeef"})
		}
		fmt.Fprint(w, loginFormPage)
	})

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		ts.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.server.Close)

	s, err := session.New(session.Options{BaseURL: ts.server.URL})
	require.NoError(t, err)
	return ts, s
}

// page serves a static fixture document at the given path.
func (ts *testServer) page(path, body string) {
	ts.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})
}

func (ts *testServer) handle(path string, handler http.HandlerFunc) {
	ts.mux.HandleFunc(path, handler)
}

func login(t *testing.T, s *session.Client) {
	err := s.Login(context.Background(), "jack", "hunter2")
	require.NoError(t, err)
	require.True(t, s.LoggedIn())
}
