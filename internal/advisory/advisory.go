// Package advisory implements the LLM advisory client (spec §6):
// POST /advisory with a prompt, stream back a `data:` SSE response,
// and classify the resulting text into actionable commands and
// display-only recommendations.
//
// Grounded on the teacher's internal/integration/asgard.go named
// HTTP-client idiom, extended with an SSE line scanner in place of a
// single JSON decode, and rate-limited with golang.org/x/time/rate
// rather than a hand-rolled cooldown timer.
package advisory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ActionableCommand is one command parsed out of an advisory's text.
type ActionableCommand struct {
	Name  string
	Value float64
	HasValue bool
}

// Advisory is the parsed result of one advisory request.
type Advisory struct {
	Text       string
	Commands   []ActionableCommand
	Recommend  []string
	Error      bool
}

var actionableLine = regexp.MustCompile(`^(AP_\w+|HEADING_\w+|TOGGLE_\w+|YAW_\w+)(\s+(-?\d+(\.\d+)?|ON|OFF))?$`)

// Client queries the LLM advisory service over HTTP+SSE.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Entry
	limiter *rate.Limiter

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// NewClient builds an advisory client rate-limited to one request per
// 30 seconds (spec §6).
func NewClient(baseURL string, httpClient *http.Client, logger *logrus.Entry) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

// Request sends a prompt to the advisory service, streaming and
// aggregating the SSE response. A new request cancels any still
// in-flight one (spec §5's abort-on-supersede). Returns an error-flag
// advisory, never a Go error, per spec §7's "LLM advisory failure"
// handling — the caller is expected to deliver the result to its
// on_advisory callback regardless of success.
func (c *Client) Request(message string) Advisory {
	if !c.limiter.Allow() {
		return Advisory{Error: true, Text: "advisory rate limit exceeded"}
	}

	c.mu.Lock()
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelPrev = cancel
	c.mu.Unlock()

	body, _ := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: message})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/advisory", bytes.NewReader(body))
	if err != nil {
		return Advisory{Error: true, Text: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Warn("advisory request failed")
		}
		return Advisory{Error: true, Text: err.Error()}
	}
	defer resp.Body.Close()

	text, err := readSSE(resp)
	if err != nil {
		return Advisory{Error: true, Text: err.Error()}
	}

	return Classify(text)
}

// readSSE scans a `data: {...}` line stream, concatenating each
// payload's `chunk` field until a `done:true` payload or EOF.
func readSSE(resp *http.Response) (string, error) {
	scanner := bufio.NewScanner(resp.Body)
	var b strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		result := gjson.Parse(payload)
		b.WriteString(result.Get("chunk").String())
		if result.Get("done").Bool() {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("advisory stream read failed: %w", err)
	}
	return b.String(), nil
}

// Classify parses advisory text into actionable commands (either an
// embedded COMMANDS_JSON array or individual AP_*/HEADING_*/TOGGLE_*/
// YAW_* lines) and RECOMMEND: display-only lines (spec §6).
func Classify(text string) Advisory {
	adv := Advisory{Text: text}

	if idx := strings.Index(text, "COMMANDS_JSON:"); idx >= 0 {
		jsonPart := strings.TrimSpace(text[idx+len("COMMANDS_JSON:"):])
		for _, item := range gjson.Parse(jsonPart).Array() {
			cmd := ActionableCommand{Name: item.Get("name").String()}
			if v := item.Get("value"); v.Exists() {
				cmd.Value = v.Float()
				cmd.HasValue = true
			}
			if cmd.Name != "" {
				adv.Commands = append(adv.Commands, cmd)
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "RECOMMEND:") {
			adv.Recommend = append(adv.Recommend, strings.TrimSpace(strings.TrimPrefix(line, "RECOMMEND:")))
			continue
		}
		if actionableLine.MatchString(line) {
			adv.Commands = append(adv.Commands, parseActionableLine(line))
		}
	}

	return adv
}

func parseActionableLine(line string) ActionableCommand {
	fields := strings.Fields(line)
	cmd := ActionableCommand{Name: fields[0]}
	if len(fields) < 2 {
		return cmd
	}
	switch fields[1] {
	case "ON":
		cmd.Value = 1
		cmd.HasValue = true
	case "OFF":
		cmd.Value = 0
		cmd.HasValue = true
	default:
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			cmd.Value = v
			cmd.HasValue = true
		}
	}
	return cmd
}
