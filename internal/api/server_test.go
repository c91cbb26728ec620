package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresucko/vistalista/internal/api"
	"github.com/andresucko/vistalista/internal/auth"
	"github.com/andresucko/vistalista/internal/list"
	"github.com/andresucko/vistalista/internal/service"
	"github.com/andresucko/vistalista/internal/share"
	"github.com/andresucko/vistalista/internal/snapshot"
	"github.com/andresucko/vistalista/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := testutil.NewTestLogger()
	items := testutil.NewItemStore()
	saved := testutil.NewSavedListStore()
	grants := testutil.NewGrantStore()
	users := testutil.NewUserStore()
	sessions := testutil.NewSessionStore()

	provider := auth.NewPasswordProvider(users, sessions, time.Hour, "en", logger)
	svc := service.New(logger, provider,
		list.NewRegistry(items, logger),
		snapshot.NewStore(saved, logger),
		share.NewWorkflow(saved, grants, "https://vistalista.example", logger),
		users)

	ts := httptest.NewServer(api.NewServer(svc, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// signUp registers an account through the API and returns its bearer token.
func signUp(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp := doJSON(t, ts, http.MethodPost, "/api/auth/signup", "",
		map[string]string{"email": email, "password": "hunter22"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var sess struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &sess)
	if sess.Token == "" {
		t.Fatal("signup returned no token")
	}
	return sess.Token
}

func TestServer_Auth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	t.Run("signup then signin", func(t *testing.T) {
		signUp(t, ts, "ana@example.com")

		resp := doJSON(t, ts, http.MethodPost, "/api/auth/signin", "",
			map[string]string{"email": "ana@example.com", "password": "hunter22"})
		if resp.StatusCode != http.StatusOK {
			t.Errorf("signin status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		signUp(t, ts, "dup@example.com")
		resp := doJSON(t, ts, http.MethodPost, "/api/auth/signup", "",
			map[string]string{"email": "dup@example.com", "password": "hunter22"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("duplicate signup status = %d, want %d", resp.StatusCode, http.StatusConflict)
		}
	})

	t.Run("wrong password unauthorized", func(t *testing.T) {
		signUp(t, ts, "pw@example.com")
		resp := doJSON(t, ts, http.MethodPost, "/api/auth/signin", "",
			map[string]string{"email": "pw@example.com", "password": "wrong"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("signin status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("signout invalidates the token", func(t *testing.T) {
		token := signUp(t, ts, "out@example.com")

		resp := doJSON(t, ts, http.MethodPost, "/api/auth/signout", token, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("signout status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}

		resp = doJSON(t, ts, http.MethodGet, "/api/items", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("items status after signout = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("missing token unauthorized", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/items", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("items status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})
}

type itemsBody struct {
	Entries []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Price     string `json:"price"`
		Completed bool   `json:"completed"`
	} `json:"entries"`
	Total        string `json:"total"`
	PendingTotal string `json:"pending_total"`
	AddedTotal   string `json:"added_total"`
	FetchFailed  bool   `json:"fetch_failed"`
}

func getItems(t *testing.T, ts *httptest.Server, token, query string) itemsBody {
	t.Helper()
	resp := doJSON(t, ts, http.MethodGet, "/api/items"+query, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("items status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body itemsBody
	decodeBody(t, resp, &body)
	return body
}

func TestServer_Items(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := signUp(t, ts, "ana@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/items", token,
		map[string]string{"text": "milk, bread, eggs"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add items status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	body := getItems(t, ts, token, "")
	if len(body.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(body.Entries))
	}
	if body.Total != "0.00" {
		t.Errorf("total = %q, want %q", body.Total, "0.00")
	}

	milk := body.Entries[0]
	resp = doJSON(t, ts, http.MethodPut, "/api/items/"+milk.ID+"/price", token,
		map[string]string{"price": "2.50"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update price status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp = doJSON(t, ts, http.MethodPut, "/api/items/"+milk.ID+"/toggle", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body = getItems(t, ts, token, "?show_completed=true")
	if len(body.Entries) != 1 || body.Entries[0].Name != "milk" {
		t.Fatalf("completed entries = %+v, want just milk", body.Entries)
	}
	if body.AddedTotal != "2.50" || body.PendingTotal != "0.00" {
		t.Errorf("totals = added %q pending %q, want 2.50 / 0.00", body.AddedTotal, body.PendingTotal)
	}

	resp = doJSON(t, ts, http.MethodDelete, "/api/items/"+milk.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp = doJSON(t, ts, http.MethodDelete, "/api/items/"+milk.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete twice status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp = doJSON(t, ts, http.MethodDelete, "/api/items", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("reset status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	body = getItems(t, ts, token, "")
	if len(body.Entries) != 0 || body.Total != "0.00" {
		t.Errorf("after reset entries = %d total %q, want 0 / 0.00", len(body.Entries), body.Total)
	}
}

func TestServer_SavedListsAndSharing(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := signUp(t, ts, "ana@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/items", token,
		map[string]string{"text": "milk, eggs"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add items status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	resp = doJSON(t, ts, http.MethodPost, "/api/lists", token, map[string]string{"name": "weekly"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save list status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var saved struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, resp, &saved)
	if saved.Name != "weekly" {
		t.Errorf("saved name = %q, want weekly", saved.Name)
	}

	t.Run("blank name rejected", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPost, "/api/lists", token, map[string]string{"name": "  "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("save blank status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("load copies items back", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPost, "/api/lists/"+saved.ID+"/load", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("load status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		body := getItems(t, ts, token, "")
		if len(body.Entries) != 4 {
			t.Errorf("entries after load = %d, want 4", len(body.Entries))
		}
	})

	t.Run("load unknown list is 404", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPost, "/api/lists/nope/load", token, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("load unknown status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})

	t.Run("share link is stable and resolvable", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPost, "/api/lists/"+saved.ID+"/share", token,
			map[string]string{"email": "friend@example.com"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("share status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		var shared struct {
			Link string `json:"link"`
		}
		decodeBody(t, resp, &shared)

		resp = doJSON(t, ts, http.MethodPost, "/api/lists/"+saved.ID+"/share-link", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("share-link status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var again struct {
			Link string `json:"link"`
		}
		decodeBody(t, resp, &again)
		if again.Link != shared.Link {
			t.Errorf("share-link = %q, want stable %q", again.Link, shared.Link)
		}

		tok := shared.Link[len("https://vistalista.example/lists/shared/"):]
		resp = doJSON(t, ts, http.MethodGet, "/api/lists/shared/"+tok, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("resolve status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var view struct {
			Name  string `json:"name"`
			Items []struct {
				Name string `json:"name"`
			} `json:"items"`
		}
		decodeBody(t, resp, &view)
		if view.Name != "weekly" || len(view.Items) != 2 {
			t.Errorf("shared view = %q with %d items, want weekly with 2", view.Name, len(view.Items))
		}
	})

	t.Run("share with bad email is 400", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodPost, "/api/lists/"+saved.ID+"/share", token,
			map[string]string{"email": "not-an-email"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("share status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("resolve unknown token is 404", func(t *testing.T) {
		resp := doJSON(t, ts, http.MethodGet, "/api/lists/shared/deadbeef", token, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("resolve status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}

func TestServer_Language(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := signUp(t, ts, "ana@example.com")

	for lang, want := range map[string]int{
		"es": http.StatusOK,
		"en": http.StatusOK,
		"fr": http.StatusBadRequest,
	} {
		resp := doJSON(t, ts, http.MethodPut, "/api/me/language", token,
			map[string]string{"language": lang})
		if resp.StatusCode != want {
			t.Errorf("set language %q status = %d, want %d", lang, resp.StatusCode, want)
		}
	}
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, err := ts.Client().Get(fmt.Sprintf("%s/metrics", ts.URL))
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
