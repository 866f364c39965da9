package publish

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// tokenTTL is the lifetime of the signed Admin API token. Ghost rejects
// tokens valid for longer than five minutes.
const tokenTTL = 5 * time.Minute

// Config holds Ghost Admin API settings.
type Config struct {
	// APIURL is the Ghost site base URL (e.g. https://lebowatch.ghost.io).
	APIURL string

	// AdminKey is the Admin API key in "{id}:{hex secret}" form.
	AdminKey string

	// Footer is optional HTML appended after the rendered newsletter.
	Footer string

	Timeout time.Duration
}

// Post is the subset of the Ghost post resource the pipeline records.
type Post struct {
	ID         string
	Title      string
	Status     string
	URL        string
	PreviewURL string
}

// Publisher creates review drafts on a Ghost site. Posts are always created
// as drafts; a human decides when they go live.
type Publisher struct {
	cfg    Config
	client *http.Client
	md     goldmark.Markdown
	log    *zap.Logger
}

// New creates a Publisher. The admin key format is validated up front so a
// bad key fails before any newsletter work happens.
func New(cfg Config, log *zap.Logger) (*Publisher, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("ghost: api url not configured")
	}
	if _, _, err := splitAdminKey(cfg.AdminKey); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Publisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:    log,
	}, nil
}

// CreateDraft renders the newsletter to HTML and posts it as a Ghost draft.
func (p *Publisher) CreateDraft(ctx context.Context, nl *model.Newsletter) (*Post, error) {
	token, err := p.token(time.Now())
	if err != nil {
		return nil, err
	}

	var htmlBody bytes.Buffer
	if err := p.md.Convert([]byte(nl.Markdown), &htmlBody); err != nil {
		return nil, fmt.Errorf("ghost: render markdown: %w", err)
	}
	if p.cfg.Footer != "" {
		htmlBody.WriteString(p.cfg.Footer)
	}

	// Ghost expects content wrapped in a mobiledoc structure with a
	// single html card.
	mobiledoc, err := json.Marshal(map[string]any{
		"version": "0.3.1",
		"markups": []any{},
		"atoms":   []any{},
		"cards":   []any{[]any{"html", map[string]string{"cardName": "html", "html": htmlBody.String()}}},
		"sections": []any{
			[]any{10, 0},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ghost: encode mobiledoc: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"posts": []map[string]any{{
			"title":     nl.Title,
			"mobiledoc": string(mobiledoc),
			"status":    "draft",
			"tags": []map[string]string{
				{"name": "Board Watch"},
				{"name": "Mt. Lebanon"},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("ghost: encode post: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.APIURL, "/") + "/ghost/api/admin/posts/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ghost: create request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ghost: post draft: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ghost: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ghost: api returned %d: %s", resp.StatusCode, clip(respBody, 200))
	}

	var parsed struct {
		Posts []struct {
			ID     string `json:"id"`
			UUID   string `json:"uuid"`
			Title  string `json:"title"`
			Status string `json:"status"`
			URL    string `json:"url"`
		} `json:"posts"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("ghost: decode response: %w", err)
	}
	if len(parsed.Posts) == 0 {
		return nil, fmt.Errorf("ghost: response contained no posts")
	}

	created := parsed.Posts[0]
	preview := created.UUID
	if preview == "" {
		preview = created.ID
	}

	post := &Post{
		ID:         created.ID,
		Title:      created.Title,
		Status:     created.Status,
		URL:        created.URL,
		PreviewURL: strings.TrimRight(p.cfg.APIURL, "/") + "/p/" + preview + "/",
	}

	p.log.Info("created ghost draft",
		zap.String("post_id", post.ID),
		zap.String("title", post.Title),
		zap.String("preview_url", post.PreviewURL))

	return post, nil
}

// token signs a short-lived HS256 JWT for the Admin API. Ghost identifies
// the key by the kid header and expects the audience claim "/admin/".
func (p *Publisher) token(now time.Time) (string, error) {
	keyID, secret, err := splitAdminKey(p.cfg.AdminKey)
	if err != nil {
		return "", err
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
		"aud": "/admin/",
	})
	tok.Header["kid"] = keyID

	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("ghost: sign token: %w", err)
	}
	return signed, nil
}

func splitAdminKey(adminKey string) (keyID string, secret []byte, err error) {
	id, hexSecret, ok := strings.Cut(adminKey, ":")
	if !ok || id == "" || hexSecret == "" {
		return "", nil, fmt.Errorf("ghost: admin key must be in id:secret form")
	}
	secret, err = hex.DecodeString(hexSecret)
	if err != nil {
		return "", nil, fmt.Errorf("ghost: admin key secret is not hex: %w", err)
	}
	return id, secret, nil
}

func clip(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
