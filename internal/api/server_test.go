package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adforge/internal/adcopy"
	"adforge/internal/campaign"
	"adforge/internal/gallery"
	"adforge/internal/session"
	"adforge/internal/studio"
	"adforge/internal/webhook"
)

type senderFunc func(ctx context.Context, payload any) webhook.Result

func (f senderFunc) Send(ctx context.Context, payload any) webhook.Result { return f(ctx, payload) }

type testEnv struct {
	srv *httptest.Server
	hub *Hub
}

func newTestEnv(t *testing.T, sender studio.Sender) *testEnv {
	t.Helper()

	hub := NewHub(HubOptions{AllowedOrigins: []string{"*"}})
	st, err := studio.New(studio.Options{
		Synthesizer: adcopy.New(adcopy.Options{Picker: adcopy.NewPicker(7)}),
		Webhook:     sender,
		Store:       session.NewMemoryStore(session.Options{}),
		Observer:    hub.Publish,
	})
	require.NoError(t, err)

	s := New(Options{
		Studio:  st,
		Gallery: gallery.New(gallery.Options{}),
		Hub:     hub,
		Static:  fstest.MapFS{"index.html": {Data: []byte("<h1>AdForge</h1>")}},
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &testEnv{srv: srv, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, sid, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if sid != "" {
		req.Header.Set(SessionHeader, sid)
	}
	if body != "" {
		req.Header.Set("content-type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealthAndStatic(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","subscribers":0}`, string(body))

	resp, body = env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "AdForge")
}

func TestSessionIDIsMintedAndEchoed(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/ads", "", "")
	assert.NotEmpty(t, resp.Header.Get(SessionHeader))

	resp, _ = env.do(t, http.MethodGet, "/api/v1/ads", "abc", "")
	assert.Equal(t, "abc", resp.Header.Get(SessionHeader))

	resp, _ = env.do(t, http.MethodGet, "/api/v1/ads?session=from-query", "", "")
	assert.Equal(t, "from-query", resp.Header.Get(SessionHeader))
}

func TestPlatforms(t *testing.T) {
	env := newTestEnv(t, nil)

	_, body := env.do(t, http.MethodGet, "/api/v1/platforms", "", "")
	var got platformsResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "brand", got.Variant)
	assert.Equal(t, "instagram", got.Default)
	assert.Equal(t, "instagram", got.Options[0].Key)

	_, body = env.do(t, http.MethodGet, "/api/v1/platforms?variant=PITCH", "", "")
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "pitch", got.Variant)
	keys := make([]string, 0, len(got.Options))
	for _, o := range got.Options {
		keys = append(keys, o.Key)
	}
	assert.Contains(t, keys, "tiktok")
}

func TestPromptAndTips(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/v1/prompt", "", `{"brandName":"Acme","platform":"reels"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prompt map[string]string
	require.NoError(t, json.Unmarshal(body, &prompt))
	assert.Contains(t, prompt["prompt"], "Acme")

	resp, body = env.do(t, http.MethodPost, "/api/v1/tips", "", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tips adcopy.TipReport
	require.NoError(t, json.Unmarshal(body, &tips))
	assert.NotEmpty(t, tips.Actionable)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/prompt", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateAndHistoryFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	sid := "flow"

	var ids []string
	for i := 0; i < 3; i++ {
		resp, body := env.do(t, http.MethodPost, "/api/v1/ads", sid, `{"brandName":"Acme","socialPlatform":"youtube","goal":"Shop the sale"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		var ad campaign.Ad
		require.NoError(t, json.Unmarshal(body, &ad))
		assert.Equal(t, "youtube", ad.Platform)
		assert.NotEmpty(t, ad.Headline)
		ids = append(ids, ad.ID)
	}

	_, body := env.do(t, http.MethodGet, "/api/v1/ads", sid, "")
	var list struct {
		Ads []campaign.Ad `json:"ads"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Ads, 3)
	assert.Equal(t, ids[2], list.Ads[0].ID)

	_, body = env.do(t, http.MethodGet, "/api/v1/ads/current", sid, "")
	var cur campaign.Ad
	require.NoError(t, json.Unmarshal(body, &cur))
	assert.Equal(t, ids[2], cur.ID)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/ads/"+ids[0]+"/select", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = env.do(t, http.MethodGet, "/api/v1/ads/current", sid, "")
	require.NoError(t, json.Unmarshal(body, &cur))
	assert.Equal(t, ids[0], cur.ID)

	resp, body = env.do(t, http.MethodGet, "/api/v1/ads/"+ids[1]+"/export?download=1", sid, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("content-type"))
	assert.Contains(t, resp.Header.Get("content-disposition"), "ad-"+ids[1]+".txt")
	assert.Equal(t, 3, len(strings.Split(string(body), "\n\n")))

	resp, _ = env.do(t, http.MethodGet, "/api/v1/ads/missing", sid, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/ads/"+ids[0], "other-session", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/ads", sid, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/ads/current", sid, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateBusyReturnsConflict(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	env := newTestEnv(t, senderFunc(func(context.Context, any) webhook.Result {
		close(entered)
		<-unblock
		return webhook.Result{OK: true}
	}))

	done := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/ads", strings.NewReader(`{}`))
		req.Header.Set(SessionHeader, "busy")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-entered

	resp, _ := env.do(t, http.MethodPost, "/api/v1/ads", "busy", `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(unblock)
	assert.Equal(t, http.StatusCreated, <-done)
}

func TestSaveAndGallery(t *testing.T) {
	env := newTestEnv(t, senderFunc(func(context.Context, any) webhook.Result {
		return webhook.Result{OK: true, Data: map[string]any{"image": "https://cdn.example.com/a.png", "prompt": "studio shot"}}
	}))
	sid := "gal"

	_, body := env.do(t, http.MethodPost, "/api/v1/ads", sid, `{"brandName":"Acme"}`)
	var ad campaign.Ad
	require.NoError(t, json.Unmarshal(body, &ad))
	require.NotEmpty(t, ad.ImageExternalURL)

	resp, body := env.do(t, http.MethodPost, "/api/v1/ads/"+ad.ID+"/save", sid, `{"title":"Hero"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var stored gallery.Stored
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, "https://cdn.example.com/a.png", stored.ImageURL)

	_, body = env.do(t, http.MethodGet, "/api/v1/gallery", sid, "")
	var list struct {
		Items []gallery.Record `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Hero", list.Items[0].Title)
	assert.Equal(t, "studio shot", list.Items[0].Prompt)

	_, body = env.do(t, http.MethodGet, "/api/v1/gallery", "empty", "")
	assert.JSONEq(t, `{"items":[]}`, string(body))
}

func TestSaveWithoutImage(t *testing.T) {
	env := newTestEnv(t, nil)

	_, body := env.do(t, http.MethodPost, "/api/v1/ads", "s", `{}`)
	var ad campaign.Ad
	require.NoError(t, json.Unmarshal(body, &ad))

	resp, _ := env.do(t, http.MethodPost, "/api/v1/ads/"+ad.ID+"/save", "s", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestWebsocketReceivesStateEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/ws?session=live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello wsMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, "live", hello.Session)
	assert.Equal(t, 1, env.hub.Count())

	resp, _ := env.do(t, http.MethodPost, "/api/v1/ads", "live", `{"brandName":"Acme"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var states []studio.State
	for len(states) < 3 {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.NotNil(t, msg.Event)
		states = append(states, msg.Event.State)
	}
	assert.Equal(t, []studio.State{studio.Generating, studio.Delivered, studio.Idle}, states)
}
