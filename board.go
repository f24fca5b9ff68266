/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Office Chess
//
// One board for the whole office. Anyone who opens the page sees the same
// game and may move either side; every accepted move is pushed to all open
// browsers at once.
//
// Features:
// - Players pick a display name once; it is kept in a cookie for a year
// - Every move is credited to its player in the PGN record
// - The board flips for all viewers after every move
// - Moves over HTTP (/make_move) or over the websocket (/ws)
// - Live updates over the websocket; slow viewers are dropped, never waited on
// - In-browser QR button to share the board, backed by go-qrcode

package main

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

// Messages coming from clients
type ClientMessage struct {
	Type   string `json:"type"`             // "move", "legal_moves", "status"
	Move   string `json:"move,omitempty"`   // move
	Square string `json:"square,omitempty"` // legal_moves
}

// BoardUpdateMessage is pushed to every viewer after each accepted move and
// reset, and to a single viewer on connect or when it asks for the status.
type BoardUpdateMessage struct {
	Type string `json:"type"` // "board_update"
	Snapshot
}

// MoveResultMessage answers a move sent over the websocket, to its sender only.
type MoveResultMessage struct {
	Type        string      `json:"type"`   // "move_result"
	Status      string      `json:"status"` // "ok" or "error"
	FEN         string      `json:"fen,omitempty"`
	Orientation Orientation `json:"orientation,omitempty"`
	Message     string      `json:"message,omitempty"`
}

type LegalMovesMessage struct {
	Type   string   `json:"type"` // "legal_moves"
	Square string   `json:"square"`
	Moves  []string `json:"moves"`
}

type Client struct {
	conn   *websocket.Conn
	req    *http.Request
	sub    *Subscriber
	direct chan any
	done   chan struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

//go:embed templates/*
var templateFiles embed.FS

var pages = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

type pageData struct {
	Prefix   string
	Name     string
	Error    string
	Snapshot Snapshot
}

func renderPage(cfg *Config, w http.ResponseWriter, name string, data pageData, errs chan<- error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	data.Prefix = cfg.prefix

	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		errs <- err
	}
}

func serveJSON(cfg *Config, w http.ResponseWriter, r *http.Request, v any, errs chan<- error) {
	startTime := time.Now()

	body, err := json.Marshal(v)
	if err != nil {
		errs <- err

		http.Error(w, "encoding failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	written, err := w.Write(body)
	if err != nil {
		errs <- err

		return
	}

	logf(cfg, "SERVE: %s (%s) to %s in %s",
		r.URL.Path,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

// serveIndex shows the board to registered players and the name prompt to
// everyone else.
func serveIndex(cfg *Config, arbiter *SessionArbiter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		name, ok := arbiter.identity.Lookup(r)
		if !ok {
			renderPage(cfg, w, "login.html", pageData{}, errs)

			return
		}

		renderPage(cfg, w, "index.html", pageData{
			Name:     name,
			Snapshot: arbiter.Status(),
		}, errs)
	}
}

func serveRegister(cfg *Config, arbiter *SessionArbiter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		cookie, err := arbiter.RegisterIdentity(r.PostFormValue("name"))
		if errors.Is(err, ErrMissingIdentity) {
			renderPage(cfg, w, "login.html", pageData{Error: "Please enter a name."}, errs)

			return
		}
		if err != nil {
			errs <- err

			serveErrorPage(cfg, w)

			return
		}

		http.SetCookie(w, cookie)

		name := strings.TrimSpace(r.PostFormValue("name"))

		logf(cfg, "CHESS: %q registered from %s", name, realIP(r))

		renderPage(cfg, w, "index.html", pageData{
			Name:     name,
			Snapshot: arbiter.Status(),
		}, errs)
	}
}

func serveLegalMoves(cfg *Config, arbiter *SessionArbiter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		serveJSON(cfg, w, r, map[string][]string{
			"moves": arbiter.LegalDestinations(r.PostFormValue("square")),
		}, errs)
	}
}

func serveMakeMove(cfg *Config, arbiter *SessionArbiter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ack, err := arbiter.SubmitMove(r, strings.TrimSpace(r.PostFormValue("move")))
		if err != nil {
			serveJSON(cfg, w, r, map[string]string{
				"status":  "error",
				"message": moveErrorMessage(err),
			}, errs)

			return
		}

		serveJSON(cfg, w, r, ack, errs)
	}
}

func serveGameStatus(cfg *Config, arbiter *SessionArbiter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		serveJSON(cfg, w, r, arbiter.Status(), errs)
	}
}

func serveReset(cfg *Config, arbiter *SessionArbiter) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		arbiter.Reset()

		logf(cfg, "CHESS: Reset requested by %q from %s", arbiter.identity.Resolve(r), realIP(r))

		http.Redirect(w, r, cfg.prefix+"/", http.StatusFound)
	}
}

func serveWS(cfg *Config, arbiter *SessionArbiter) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		// Join before the handshake completes so no move committed after the
		// client sees the upgrade can be missed.
		sub, _ := arbiter.Join(arbiter.identity.Resolve(r))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			arbiter.Leave(sub)

			logf(cfg, "WS: Upgrade failed for %s: %v", realIP(r), err)

			return
		}

		client := &Client{
			conn:   conn,
			req:    r,
			sub:    sub,
			direct: make(chan any, 8),
			done:   make(chan struct{}),
		}

		logf(cfg, "WS: %q connected as %s from %s", sub.Name, sub.ID, realIP(r))

		go client.writePump()
		client.readPump(arbiter)

		logf(cfg, "WS: %s disconnected", sub.ID)
	}
}

// reply queues msg for this client only. It gives up once the write pump
// has exited.
func (c *Client) reply(msg any) {
	select {
	case c.direct <- msg:
	case <-c.done:
	}
}

func (c *Client) readPump(arbiter *SessionArbiter) {
	defer func() {
		arbiter.Leave(c.sub)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "move":
			ack, err := arbiter.SubmitMove(c.req, strings.TrimSpace(msg.Move))
			if err != nil {
				c.reply(MoveResultMessage{
					Type:    "move_result",
					Status:  "error",
					Message: moveErrorMessage(err),
				})

				continue
			}

			c.reply(MoveResultMessage{
				Type:        "move_result",
				Status:      ack.Status,
				FEN:         ack.FEN,
				Orientation: ack.Orientation,
			})
		case "legal_moves":
			c.reply(LegalMovesMessage{
				Type:   "legal_moves",
				Square: msg.Square,
				Moves:  arbiter.LegalDestinations(msg.Square),
			})
		case "status":
			c.reply(BoardUpdateMessage{
				Type:     "board_update",
				Snapshot: arbiter.Status(),
			})
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		_ = c.conn.Close()
	}()

	updates := c.sub.Updates()

	for {
		var (
			msg  any
			snap Snapshot
			ok   = true
			got  bool
		)

		// A move's broadcast is queued before its move_result, so draining
		// updates first keeps them in that order on the wire.
		select {
		case snap, ok = <-updates:
			got = true
		default:
			select {
			case snap, ok = <-updates:
				got = true
			case msg = <-c.direct:
			case <-ticker.C:
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}

				continue
			}
		}

		if got {
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}
			msg = BoardUpdateMessage{Type: "board_update", Snapshot: snap}
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the board URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/"

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// registerChessBoard sets up routes so that:
//   - /              → name prompt or board
//   - /legal_moves   → destinations for a square
//   - /make_move     → submit a move
//   - /game_status   → current snapshot
//   - /reset         → new game for everyone
//   - /ws            → live updates and in-band moves
//   - /qr            → PNG QR code for the board URL
func registerChessBoard(cfg *Config, arbiter *SessionArbiter, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/", serveIndex(cfg, arbiter, errs))
	mux.POST(cfg.prefix+"/", serveRegister(cfg, arbiter, errs))

	mux.POST(cfg.prefix+"/legal_moves", serveLegalMoves(cfg, arbiter, errs))
	mux.POST(cfg.prefix+"/make_move", serveMakeMove(cfg, arbiter, errs))
	mux.GET(cfg.prefix+"/game_status", serveGameStatus(cfg, arbiter, errs))
	mux.GET(cfg.prefix+"/reset", serveReset(cfg, arbiter))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, arbiter))

	mux.GET(cfg.prefix+"/qr", qrHandler(cfg))
}
