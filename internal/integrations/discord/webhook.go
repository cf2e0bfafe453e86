// Package discord posts gallery announcements to a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gallery/internal/models"
)

// Embed is the subset of a Discord embed the gallery sends.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

// WebhookPayload is the JSON body of a webhook call.
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

var client = &http.Client{Timeout: 8 * time.Second}

// Post sends payload to webhookURL and returns the HTTP status code.
func Post(ctx context.Context, webhookURL string, payload WebhookPayload) (int, error) {
	if webhookURL == "" {
		return 0, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

const colorGreen = 0x2ecc71

// TunnelAnnouncer posts the public URL of every newly established tunnel.
type TunnelAnnouncer struct {
	webhook func() string
	logf    func(format string, args ...interface{})

	mu   sync.Mutex
	last string
}

// NewTunnelAnnouncer reads the webhook URL through webhook on every event so
// configuration changes apply without a restart. logf may be nil.
func NewTunnelAnnouncer(webhook func() string, logf func(format string, args ...interface{})) *TunnelAnnouncer {
	return &TunnelAnnouncer{webhook: webhook, logf: logf}
}

// Handle consumes a tunnel status event. Each distinct URL is announced once;
// a stopped tunnel resets the memory so a restart is announced again.
func (a *TunnelAnnouncer) Handle(st models.TunnelStatus) {
	a.mu.Lock()
	if st.Status != models.TunnelStatusRunning {
		a.last = ""
		a.mu.Unlock()
		return
	}
	if st.URL == "" || st.URL == a.last {
		a.mu.Unlock()
		return
	}
	a.last = st.URL
	a.mu.Unlock()

	wh := strings.TrimSpace(a.webhook())
	if wh == "" {
		return
	}
	embed := Embed{
		Title:       "Gallery is online",
		Description: fmt.Sprintf("Public link via %s: %s", st.Provider, st.URL),
		URL:         st.URL,
		Color:       colorGreen,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      &EmbedFooter{Text: "gallery"},
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		status, err := Post(ctx, wh, WebhookPayload{Embeds: []Embed{embed}})
		if (err != nil || status < 200 || status >= 300) && a.logf != nil {
			a.logf("Discord announce failed (status=%d): %v", status, err)
		}
	}()
}
