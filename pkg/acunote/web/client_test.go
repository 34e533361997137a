package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
	"github.com/harrisonrobin/planbridge/pkg/sprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcunote serves just enough of the Acunote UI for the client.
type fakeAcunote struct {
	mu       sync.Mutex
	sprints  map[string]string // id -> name
	nextID   int
	imported map[string]string // id -> csv body
	token    string
}

func newFakeAcunote() *fakeAcunote {
	return &fakeAcunote{
		sprints:  map[string]string{"11": "Existing"},
		nextID:   12,
		imported: map[string]string{},
		token:    "tok123",
	}
}

func (f *fakeAcunote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprintf(w, `<html><head><meta name="csrf-token" content="%s"></head><body><form></form></body></html>`, f.token)
			return
		}
		r.ParseForm()
		if r.FormValue("authenticity_token") != f.token || r.FormValue("login[password]") != "pw" {
			fmt.Fprint(w, `<html><body>bad login</body></html>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "welcome")
	})
	mux.HandleFunc("/projects/7/sprints", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "ok" {
			http.Error(w, "login required", http.StatusForbidden)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodPost {
			r.ParseForm()
			id := fmt.Sprint(f.nextID)
			f.nextID++
			f.sprints[id] = r.FormValue("sprint[name]")
			http.Redirect(w, r, "/projects/7/sprints/"+id, http.StatusFound)
			return
		}
		var sb strings.Builder
		sb.WriteString(`<html><body><ul>`)
		sb.WriteString(`<li><a href="/projects/7/backlog">Backlog</a></li>`)
		for id, name := range f.sprints {
			fmt.Fprintf(&sb, `<li><a href="/projects/7/sprints/%s"><span>%s</span></a></li>`, id, name)
		}
		sb.WriteString(`</ul></body></html>`)
		fmt.Fprint(w, sb.String())
	})
	mux.HandleFunc("/projects/7/sprints/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		id := parts[3]
		f.mu.Lock()
		_, known := f.sprints[id]
		f.mu.Unlock()
		if !known {
			http.NotFound(w, r)
			return
		}
		if len(parts) == 5 && parts[4] == "import" && r.Method == http.MethodPost {
			file, _, err := r.FormFile("data")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			body, _ := io.ReadAll(file)
			f.mu.Lock()
			f.imported[id] = string(body)
			f.mu.Unlock()
			fmt.Fprint(w, "imported")
			return
		}
		fmt.Fprint(w, "sprint page")
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAcunote, password string) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", "7", Credentials{Username: "bf", Password: password}, srv.Client())
	require.NoError(t, err)
	return c
}

func TestFindSprintByName(t *testing.T) {
	c := newTestClient(t, newFakeAcunote(), "pw")
	ctx := context.Background()

	ref, err := c.FindSprintByName(ctx, "Existing")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "/projects/7/sprints/11", ref.Href)
	assert.Equal(t, "11", ref.ID())

	ref, err = c.FindSprintByName(ctx, "Backlog")
	require.NoError(t, err)
	assert.Nil(t, ref, "non-sprint links are ignored")
}

func TestResolveCreatesSprint(t *testing.T) {
	f := newFakeAcunote()
	c := newTestClient(t, f, "pw")

	ref, err := sprint.Resolve(context.Background(), c, nil, "Q3 Launch")
	require.NoError(t, err)
	assert.Equal(t, "12", ref.ID())
	assert.Equal(t, "Q3 Launch", f.sprints["12"])

	again, err := sprint.Resolve(context.Background(), c, nil, "Q3 Launch")
	require.NoError(t, err)
	assert.Equal(t, ref, again)
	assert.Len(t, f.sprints, 2)
}

func TestUpload(t *testing.T) {
	f := newFakeAcunote()
	c := newTestClient(t, f, "pw")

	var rec acunote.Record
	rec[acunote.FieldLevel] = "1"
	rec[acunote.FieldDescription] = "Build it"
	err := c.Upload(context.Background(), sprint.Ref{Name: "Existing", Href: "/projects/7/sprints/11"}, []acunote.Record{rec})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(f.imported["11"]), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, acunote.Header, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,,Build it,"))
}

func TestUploadToDeletedSprint(t *testing.T) {
	c := newTestClient(t, newFakeAcunote(), "pw")
	err := c.Upload(context.Background(), sprint.Ref{Name: "Gone", Href: "/projects/7/sprints/99"}, nil)
	assert.ErrorIs(t, err, sprint.ErrNotFound)
}

func TestUploadWithoutID(t *testing.T) {
	c := newTestClient(t, newFakeAcunote(), "pw")
	err := c.Upload(context.Background(), sprint.Ref{Name: "x"}, nil)
	assert.Error(t, err)
}

func TestLoginFailure(t *testing.T) {
	c := newTestClient(t, newFakeAcunote(), "wrong")

	_, err := c.FindSprintByName(context.Background(), "Existing")
	assert.ErrorIs(t, err, ErrLoginFailed)
}
