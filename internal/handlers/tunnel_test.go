package handlers

import (
	"net/http"
	"testing"
)

func TestStartTunnelValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		body   interface{}
		status int
		msg    string
	}{
		{"missing body", nil, http.StatusBadRequest, "Request body is missing."},
		{"no provider", map[string]interface{}{"provider": "none"}, http.StatusBadRequest, "No tunnel provider specified."},
		{"unsupported", map[string]interface{}{"provider": "ngrok"}, http.StatusBadRequest, "Unsupported tunnel provider: ngrok"},
		{"bad port", map[string]interface{}{"provider": "cloudflare", "local_port": 70000}, http.StatusBadRequest, "Invalid port number provided."},
		{"string port", map[string]interface{}{"provider": "cloudflare", "local_port": "abc"}, http.StatusBadRequest, "Invalid port number provided."},
		{"fractional port", map[string]interface{}{"provider": "cloudflare", "local_port": 8080.5}, http.StatusBadRequest, "Invalid port number provided."},
		{"object port", map[string]interface{}{"provider": "cloudflare", "local_port": map[string]int{"n": 1}}, http.StatusBadRequest, "Invalid port number provided."},
		{"numeric string port", map[string]interface{}{"provider": "cloudflare", "local_port": " 5000 "}, http.StatusInternalServerError, "cloudflared executable not found."},
		{"pinggy token", map[string]interface{}{"provider": "pinggy"}, http.StatusBadRequest, "Pinggy access token not provided or configured."},
		{"no cloudflared", map[string]interface{}{"provider": "cloudflare"}, http.StatusInternalServerError, "cloudflared executable not found."},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodPost, "/api/tunnel/start", tc.body)
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, w.Code, w.Body.String())
		}
		body := decode(t, w)
		if body["status"] != "error" || body["message"] != tc.msg {
			t.Fatalf("%s: unexpected body %#v", tc.name, body)
		}
	}
}

func TestTunnelStopAndStatusWithoutTunnel(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodPost, "/api/tunnel/stop", nil))
	if body["status"] != "success" || body["message"] != "No active tunnel to stop." {
		t.Fatalf("unexpected stop body %#v", body)
	}

	body = decode(t, env.do(t, http.MethodGet, "/api/tunnel/status", nil))
	if body["status"] != "stopped" || body["provider"] != "none" {
		t.Fatalf("unexpected status body %#v", body)
	}
}
