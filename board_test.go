/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	arbiter *SessionArbiter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &Config{subscriberBuffer: 16}
	arbiter := newTestArbiter()

	errs := make(chan error, 64)
	srv := httptest.NewServer(newRouter(cfg, arbiter, errs))

	t.Cleanup(func() {
		arbiter.Close()
		srv.Close()
	})

	return &testServer{Server: srv, arbiter: arbiter}
}

// client returns an HTTP client that does not follow redirects.
func (s *testServer) client() *http.Client {
	c := s.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, s.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := s.client().Do(req)
	require.NoError(t, err)

	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func TestServeIndexAsksForName(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.client().Get(s.URL + "/")
	require.NoError(t, err)

	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="name"`)
}

func TestServeRegister(t *testing.T) {
	s := newTestServer(t)

	resp := s.postForm(t, "/", url.Values{"name": {"  "}})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Please enter a name.")
	assert.Empty(t, resp.Cookies())

	resp = s.postForm(t, "/", url.Values{"name": {"Ada Lovelace"}})
	body = readBody(t, resp)
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, `id="board"`)

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, identityCookie, cookies[0].Name)
	assert.Equal(t, 365*24*60*60, cookies[0].MaxAge)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(cookies[0])

	resp, err = s.client().Do(req)
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), `data-fen="`+startFEN+`"`)
}

func TestServeMakeMove(t *testing.T) {
	s := newTestServer(t)

	var ok map[string]string
	decodeJSON(t, s.postForm(t, "/make_move", url.Values{"move": {"e2e4"}},
		&http.Cookie{Name: identityCookie, Value: "Alice"}), &ok)

	assert.Equal(t, "ok", ok["status"])
	assert.Equal(t, "black", ok["orientation"])
	assert.Equal(t, s.arbiter.Status().FEN, ok["fen"])
	assert.Equal(t, "Alice", s.arbiter.state.Moves()[0].AttributedTo)

	var illegal map[string]string
	decodeJSON(t, s.postForm(t, "/make_move", url.Values{"move": {"e2e4"}}), &illegal)
	assert.Equal(t, map[string]string{"status": "error", "message": "Illegal move."}, illegal)

	var malformed map[string]string
	decodeJSON(t, s.postForm(t, "/make_move", url.Values{"move": {"zz99"}}), &malformed)
	assert.Equal(t, map[string]string{"status": "error", "message": "Invalid move syntax."}, malformed)

	assert.Len(t, s.arbiter.state.Moves(), 1)
}

func TestServeLegalMoves(t *testing.T) {
	s := newTestServer(t)

	var res struct {
		Moves []string `json:"moves"`
	}

	decodeJSON(t, s.postForm(t, "/legal_moves", url.Values{"square": {"b1"}}), &res)
	assert.ElementsMatch(t, []string{"a3", "c3"}, res.Moves)

	for _, sq := range []string{"e4", "nope", ""} {
		res.Moves = nil
		decodeJSON(t, s.postForm(t, "/legal_moves", url.Values{"square": {sq}}), &res)
		assert.NotNil(t, res.Moves, sq)
		assert.Empty(t, res.Moves, sq)
	}
}

func TestServeGameStatusAndReset(t *testing.T) {
	s := newTestServer(t)

	_, err := s.arbiter.SubmitMove(nil, "e2e4")
	require.NoError(t, err)

	resp, err := s.client().Get(s.URL + "/game_status")
	require.NoError(t, err)

	var status map[string]string
	decodeJSON(t, resp, &status)
	assert.Equal(t, "Black to move.", status["statusText"])
	assert.Equal(t, "black", status["orientation"])
	assert.Contains(t, status["pgn"], "1. e4 {Move made by Anonymous} *")
	assert.NotEmpty(t, status["fen"])

	resp, err = s.client().Get(s.URL + "/reset")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	assert.Equal(t, startFEN, s.arbiter.Status().FEN)
	assert.Equal(t, White, s.arbiter.Status().Orientation)
}

func dialBoard(t *testing.T, s *testServer, name string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if name != "" {
		header.Set("Cookie", identityCookie+"="+url.QueryEscape(name))
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws", header)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWebsocketReceivesBoardUpdates(t *testing.T) {
	s := newTestServer(t)

	viewer := dialBoard(t, s, "")

	first := readMessage(t, viewer)
	assert.Equal(t, "board_update", first["type"])
	assert.Equal(t, startFEN, first["fen"])
	assert.Equal(t, "white", first["orientation"])

	resp := s.postForm(t, "/make_move", url.Values{"move": {"zz99"}})
	resp.Body.Close()

	resp = s.postForm(t, "/make_move", url.Values{"move": {"e2e4"}},
		&http.Cookie{Name: identityCookie, Value: "Alice"})
	resp.Body.Close()

	update := readMessage(t, viewer)
	assert.Equal(t, "board_update", update["type"], "the rejected move produced no update")
	assert.Equal(t, "Black to move.", update["statusText"])
	assert.Equal(t, "black", update["orientation"])
	assert.Contains(t, update["pgn"], "{Move made by Alice}")
}

func TestWebsocketMoves(t *testing.T) {
	s := newTestServer(t)

	player := dialBoard(t, s, "Bob Smith")
	watcher := dialBoard(t, s, "")

	readMessage(t, player)
	readMessage(t, watcher)

	require.NoError(t, player.WriteJSON(ClientMessage{Type: "legal_moves", Square: "g1"}))
	legal := readMessage(t, player)
	assert.Equal(t, "legal_moves", legal["type"])
	assert.ElementsMatch(t, []any{"f3", "h3"}, legal["moves"])

	require.NoError(t, player.WriteJSON(ClientMessage{Type: "move", Move: "a1a5"}))
	rejected := readMessage(t, player)
	assert.Equal(t, "move_result", rejected["type"])
	assert.Equal(t, "error", rejected["status"])
	assert.Equal(t, "Illegal move.", rejected["message"])

	require.NoError(t, player.WriteJSON(ClientMessage{Type: "move", Move: "g1f3"}))

	// the mover gets the broadcast of its move before the ack
	broadcast := readMessage(t, player)
	assert.Equal(t, "board_update", broadcast["type"])
	assert.Equal(t, "Black to move.", broadcast["statusText"])

	ack := readMessage(t, player)
	assert.Equal(t, "move_result", ack["type"])
	assert.Equal(t, "ok", ack["status"])
	assert.Equal(t, "black", ack["orientation"])
	assert.Equal(t, broadcast["fen"], ack["fen"])

	update := readMessage(t, watcher)
	assert.Equal(t, "board_update", update["type"])
	assert.Contains(t, update["pgn"], "1. Nf3 {Move made by Bob Smith} *")

	require.NoError(t, watcher.WriteJSON(ClientMessage{Type: "status"}))
	status := readMessage(t, watcher)
	assert.Equal(t, update["fen"], status["fen"])
}

func TestServeMisc(t *testing.T) {
	s := newTestServer(t)

	for _, tt := range []struct {
		path, want string
	}{
		{"/healthz", "Ok\n"},
		{"/version", "officechess v" + releaseVersion + "\n"},
		{"/favicons/favicon.svg", "<svg"},
		{"/favicons/site.webmanifest", "Office Chess"},
		{"/assets/board.js", "board_update"},
		{"/robots.txt", "Disallow"},
	} {
		resp, err := s.client().Get(s.URL + tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, tt.path)
		assert.Contains(t, readBody(t, resp), tt.want, tt.path)
	}

	resp, err := s.client().Get(s.URL + "/assets/missing.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = s.client().Get(s.URL + "/qr")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestServeErrorPage(t *testing.T) {
	cfg := &Config{subscriberBuffer: 16}
	mux := newRouter(cfg, newTestArbiter(), make(chan error, 1))
	mux.GET("/boom", func(http.ResponseWriter, *http.Request, httprouter.Params) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "An error has occurred. Please try again.")
}
