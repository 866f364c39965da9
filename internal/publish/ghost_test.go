package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// 32-byte hex secret, as Ghost issues them.
const testAdminKey = "64f1b2c3d4e5f60718293a4b:0001020304050607080910111213141516171819202122232425262728293031"

func testNewsletter() *model.Newsletter {
	return &model.Newsletter{
		WeekOf:   "2026-08-24",
		Title:    "Lebo Board Watch — Week of August 24, 2026",
		Markdown: "# 🚨 The Headlines\n- Big news\n\n# 🏛️ The Deep Dive\nAnalysis.\n",
	}
}

func TestCreateDraft(t *testing.T) {
	var gotAuth string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ghost/api/admin/posts/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"posts":[{"id":"abc123","uuid":"uuid-1","title":"Lebo Board Watch — Week of August 24, 2026","status":"draft","url":"https://example.com/post/"}]}`)
	}))
	defer srv.Close()

	p, err := New(Config{
		APIURL:   srv.URL,
		AdminKey: testAdminKey,
		Footer:   `<p>Keep Lebo Watch running.</p>`,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	post, err := p.CreateDraft(context.Background(), testNewsletter())
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	if post.ID != "abc123" || post.Status != "draft" {
		t.Errorf("post = %+v", post)
	}
	if post.PreviewURL != srv.URL+"/p/uuid-1/" {
		t.Errorf("PreviewURL = %q", post.PreviewURL)
	}

	if !strings.HasPrefix(gotAuth, "Ghost ") {
		t.Fatalf("Authorization = %q, want Ghost token scheme", gotAuth)
	}
	verifyToken(t, strings.TrimPrefix(gotAuth, "Ghost "))

	var req struct {
		Posts []struct {
			Title     string `json:"title"`
			Mobiledoc string `json:"mobiledoc"`
			Status    string `json:"status"`
		} `json:"posts"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(req.Posts) != 1 || req.Posts[0].Status != "draft" {
		t.Fatalf("request posts = %+v", req.Posts)
	}

	var mobiledoc struct {
		Cards [][2]json.RawMessage `json:"cards"`
	}
	if err := json.Unmarshal([]byte(req.Posts[0].Mobiledoc), &mobiledoc); err != nil {
		t.Fatalf("mobiledoc: %v", err)
	}
	if len(mobiledoc.Cards) != 1 {
		t.Fatalf("cards = %d, want 1 html card", len(mobiledoc.Cards))
	}
	var card struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(mobiledoc.Cards[0][1], &card); err != nil {
		t.Fatalf("html card: %v", err)
	}
	if !strings.Contains(card.HTML, "The Headlines") {
		t.Errorf("card missing rendered content:\n%s", card.HTML)
	}
	if !strings.Contains(card.HTML, "Keep Lebo Watch running") {
		t.Errorf("footer not appended")
	}
	// Markdown must arrive rendered, not raw.
	if !strings.Contains(card.HTML, "<h1") {
		t.Errorf("headings not rendered to HTML:\n%s", card.HTML)
	}
}

func verifyToken(t *testing.T, raw string) {
	t.Helper()

	id, secret, err := splitAdminKey(testAdminKey)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("/admin/"))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if kid, _ := tok.Header["kid"].(string); kid != id {
		t.Errorf("kid = %q, want %q", kid, id)
	}

	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("exp claim: %v", err)
	}
	if until := time.Until(exp.Time); until > tokenTTL+time.Minute {
		t.Errorf("token lives %s, want at most ~5m", until)
	}
}

func TestCreateDraftAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errors":[{"message":"Invalid token"}]}`)
	}))
	defer srv.Close()

	p, err := New(Config{APIURL: srv.URL, AdminKey: testAdminKey}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.CreateDraft(context.Background(), testNewsletter())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v, want API status error", err)
	}
}

func TestNewRejectsBadAdminKey(t *testing.T) {
	for name, key := range map[string]string{
		"no separator": "justonepart",
		"empty secret": "id:",
		"not hex":      "id:zzzz",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := New(Config{APIURL: "https://example.com", AdminKey: key}, zap.NewNop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
