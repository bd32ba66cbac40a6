// Package sharing turns a list of tasks into a token that fits in a URL
// query value, and back.
//
// A token is the JSON array of tasks encoded with unpadded URL-safe base64.
// Failures never reach the caller: Encode yields the empty token and Decode
// yields an empty list, both after logging.
package sharing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"todo-share/app/metrics"
	"todo-share/app/models"
)

// Param is the URL query parameter carrying a share token.
const Param = "tasks"

// Empty is the token produced when encoding fails.
const Empty = ""

var errEmptyToken = errors.New("empty share token")

// Codec encodes and decodes share tokens, logging failures to its logger.
type Codec struct {
	logger *slog.Logger
}

// NewCodec creates a codec. A nil logger uses slog.Default().
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{logger: logger}
}

// Encode serializes tasks into a share token.
func (c *Codec) Encode(tasks []models.Task) (token string) {
	defer func() {
		if r := recover(); r != nil {
			c.encodeFailed(fmt.Errorf("panic: %v", r))
			token = Empty
		}
	}()

	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		c.encodeFailed(err)
		return Empty
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses a share token. It never fails; anything malformed gives an empty list.
func (c *Codec) Decode(token string) (tasks []models.Task) {
	defer func() {
		if r := recover(); r != nil {
			c.decodeFailed(fmt.Errorf("panic: %v", r))
			tasks = []models.Task{}
		}
	}()

	tasks, err := parse(token)
	if err != nil {
		c.decodeFailed(err)
		return []models.Task{}
	}
	return tasks
}

// Link returns base with the share token for tasks set as its query parameter.
func (c *Codec) Link(base string, tasks []models.Task) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse share base url: %w", err)
	}
	token := c.Encode(tasks)
	if token == Empty {
		return "", errors.New("encode shared tasks")
	}
	q := u.Query()
	q.Set(Param, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromURL decodes the share token carried by raw, if any.
func (c *Codec) FromURL(raw string) []models.Task {
	u, err := url.Parse(raw)
	if err != nil {
		c.decodeFailed(fmt.Errorf("parse share url: %w", err))
		return []models.Task{}
	}
	token := u.Query().Get(Param)
	if token == "" {
		return []models.Task{}
	}
	return c.Decode(token)
}

// StripParam removes the share parameter from raw, leaving the rest intact.
func StripParam(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse share url: %w", err)
	}
	q := u.Query()
	q.Del(Param)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenFrom accepts either a bare token or a URL carrying one.
func TokenFrom(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "?") && !strings.Contains(s, "=") {
		return s
	}
	if u, err := url.Parse(s); err == nil {
		if token := u.Query().Get(Param); token != "" {
			return token
		}
	}
	if i := strings.Index(s, Param+"="); i >= 0 {
		if v, err := url.QueryUnescape(s[i+len(Param)+1:]); err == nil {
			return v
		}
	}
	return s
}

func parse(token string) ([]models.Task, error) {
	token = normalize(token)
	if token == "" {
		return nil, errEmptyToken
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// normalize maps the standard base64 alphabet onto the URL-safe one, drops
// padding, and restores '+' that a query parser may have turned into ' '.
func normalize(token string) string {
	token = strings.Trim(token, "\t\r\n")
	token = strings.NewReplacer(" ", "-", "+", "-", "/", "_").Replace(token)
	return strings.TrimRight(token, "=")
}

func (c *Codec) encodeFailed(err error) {
	metrics.ShareFailures.WithLabelValues("encode").Inc()
	c.logger.Error("Failed to encode tasks", "error", err)
}

func (c *Codec) decodeFailed(err error) {
	metrics.ShareFailures.WithLabelValues("decode").Inc()
	c.logger.Error("Failed to decode tasks", "error", err)
}
