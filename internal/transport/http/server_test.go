package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paranoia/internal/app"
	"paranoia/internal/config"
	"paranoia/internal/domain"
)

func newTestServer(t *testing.T) (*Server, *app.RoomHub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := app.NewRoomHub(domain.DefaultSettings(), logger)
	t.Cleanup(hub.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080},
	}
	return NewServer(cfg, hub, logger), hub
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Error("health response not successful")
	}
}

func TestStats(t *testing.T) {
	s, hub := newTestServer(t)

	session, err := hub.CreateRoom("host-1", 3)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := session.Join("a", "alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeResponse(t, rec)
	stats, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("stats data = %T, want object", resp.Data)
	}
	if stats["activeRooms"] != float64(1) || stats["totalPlayers"] != float64(1) {
		t.Errorf("stats = %v, want 1 room and 1 player", stats)
	}
}

func TestGetRoom(t *testing.T) {
	s, hub := newTestServer(t)

	session, err := hub.CreateRoom("host-1", 3)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	t.Run("known room, case-insensitive code", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/rooms/"+strings.ToLower(session.Code()))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		resp := decodeResponse(t, rec)
		room, ok := resp.Data.(map[string]any)
		if !ok {
			t.Fatalf("room data = %T, want object", resp.Data)
		}
		if room["roomCode"] != session.Code() {
			t.Errorf("roomCode = %v, want %s", room["roomCode"], session.Code())
		}
		if room["phase"] != string(domain.PhaseWaiting) {
			t.Errorf("phase = %v, want waiting", room["phase"])
		}
		if room["canJoin"] != true {
			t.Errorf("canJoin = %v, want true", room["canJoin"])
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/rooms/ZZZZ")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Error == nil || resp.Error.Code != "ROOM_NOT_FOUND" {
			t.Errorf("error = %+v, want ROOM_NOT_FOUND", resp.Error)
		}
	})
}

func TestRoomQR(t *testing.T) {
	s, hub := newTestServer(t)

	session, err := hub.CreateRoom("host-1", 3)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	t.Run("serves a PNG", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/rooms/"+session.Code()+"/qr")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("content type = %q, want image/png", ct)
		}
		body := rec.Body.Bytes()
		if len(body) < 8 || string(body[1:4]) != "PNG" {
			t.Error("body does not look like a PNG")
		}
	})

	t.Run("unknown room", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/rooms/ZZZZ/qr")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/health")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}

	rec = doRequest(t, s, http.MethodOptions, "/api/health")
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
}
