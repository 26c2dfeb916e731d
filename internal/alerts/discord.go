// Package alerts posts operator notifications to a Discord webhook.
package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/logging"
)

const (
	colorOrange = 0xFFA500
	colorRed    = 0xFF4444
	colorGreen  = 0x2ECC71
)

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Footer      *footer `json:"footer,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

// Notifier sends embeds with a per-category cooldown. A Notifier without a
// webhook URL, or a nil *Notifier, drops everything.
type Notifier struct {
	webhookURL string
	pingUserID string
	client     *http.Client
	logger     *log.Logger

	mu        sync.Mutex
	cooldowns map[string]time.Time
	closed    bool
	wg        sync.WaitGroup
}

func New(webhookURL, pingUserID string, client *http.Client, logger *log.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		webhookURL: webhookURL,
		pingUserID: pingUserID,
		client:     client,
		logger:     logging.OrDefault(logger),
		cooldowns:  make(map[string]time.Time),
	}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// Wait stops accepting new alerts and blocks until queued sends finish.
// Call before exit so the stop notice is not lost.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) send(category string, cooldown time.Duration, ping bool, color int, title, description string, fields map[string]string) {
	if !n.Enabled() {
		return
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	now := time.Now()
	if cooldown > 0 {
		if last, ok := n.cooldowns[category]; ok && now.Sub(last) < cooldown {
			n.mu.Unlock()
			return
		}
	}
	n.cooldowns[category] = now
	n.wg.Add(1)
	n.mu.Unlock()

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var embedFields []field
	for _, k := range names {
		v := fields[k]
		if v == "" {
			continue
		}
		embedFields = append(embedFields, field{Name: k, Value: truncate(v, 1024), Inline: true})
	}

	p := payload{
		Embeds: []embed{{
			Title:       title,
			Description: truncate(description, 2048),
			Color:       color,
			Fields:      embedFields,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      &footer{Text: "appxzip " + config.Version},
		}},
	}

	if ping && n.pingUserID != "" {
		p.Content = fmt.Sprintf("<@%s>", n.pingUserID)
	}

	body, _ := json.Marshal(p)
	go func() {
		defer n.wg.Done()
		resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			n.logger.Warn("Alert send failed", "category", category, "err", err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			n.logger.Warn("Alert rejected", "category", category, "status", resp.StatusCode)
		}
	}()
}

func (n *Notifier) BotStarted(platform string) {
	n.send("bot-start", 0, false, colorGreen, "Bot Started", fmt.Sprintf("appxzip %s connected to %s", config.Version, platform), nil)
}

func (n *Notifier) BotStopping(platform string) {
	n.send("bot-stop", 0, false, colorOrange, "Bot Stopping", fmt.Sprintf("appxzip is disconnecting from %s", platform), nil)
}

// PipelineFailed reports a failed run. kind is the failure kind name.
func (n *Notifier) PipelineFailed(user, url, kind string, err error) {
	n.send("pipeline", 5*time.Second, true, colorRed, "Pipeline Failed", err.Error(), map[string]string{
		"User":  user,
		"URL":   truncate(url, 200),
		"Kind":  kind,
		"Error": truncate(err.Error(), 500),
	})
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return s
}
