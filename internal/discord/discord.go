// Package discord implements a minimal Discord gateway client.
//
// The bot connects to the gateway over WebSocket, identifies, keeps the
// connection alive with heartbeats, and answers messages that mention it.
// Replies and channel history go over the REST API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kurtgav/tinker/internal/agent"
	"github.com/kurtgav/tinker/internal/llm"
)

const (
	defaultAPIBase    = "https://discord.com/api/v10"
	defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

	// Gateway intents: GUILDS, GUILD_MESSAGES, MESSAGE_CONTENT.
	gatewayIntents = 1 | 1<<9 | 1<<15

	greeting = "Hello! I am Tinker. How can I help you?"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// payload is the generic gateway frame.
type payload struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  int64           `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

type helloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

type readyData struct {
	User User `json:"user"`
}

// User is a Discord user as it appears on the wire.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

// Message is a Discord message as it appears on the wire.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    User   `json:"author"`
}

// Bot is a mention-triggered Discord bot backed by the agent.
type Bot struct {
	token string
	agent *agent.Agent
	rest  *restClient

	gatewayURL string
	conn       *websocket.Conn
	connMu     sync.Mutex
	sequence   atomic.Int64
	selfID     atomic.Value // string, set on READY

	logger *slog.Logger
}

// NewBot creates a Discord bot. The agent handles every triggering message.
func NewBot(token string, ag *agent.Agent, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		token:      token,
		agent:      ag,
		rest:       newRESTClient(defaultAPIBase, token, logger),
		gatewayURL: defaultGatewayURL,
		logger:     logger,
	}
}

// Run connects to the gateway and processes events until ctx is
// cancelled. Lost connections are redialed with a short backoff.
func (b *Bot) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := b.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Error("gateway session ended, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// session runs one gateway connection: dial, hello/identify handshake,
// heartbeats, then the dispatch loop until the connection drops.
func (b *Bot) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	b.connMu.Lock()
	b.conn = conn
	b.connMu.Unlock()

	var hello payload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello opcode, got %d", hello.Op)
	}
	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil {
		return fmt.Errorf("unmarshal hello: %w", err)
	}

	if err := b.writeJSON(identifyPayload(b.token)); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go b.heartbeatLoop(hbCtx, time.Duration(hd.HeartbeatInterval)*time.Millisecond)

	// Close the connection when ctx is cancelled so ReadJSON unblocks.
	go func() {
		<-hbCtx.Done()
		conn.Close()
	}()

	for {
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			return fmt.Errorf("gateway read: %w", err)
		}
		if p.S != 0 {
			b.sequence.Store(p.S)
		}

		switch p.Op {
		case opDispatch:
			b.handleDispatch(ctx, p)
		case opHeartbeat:
			if err := b.writeJSON(map[string]any{"op": opHeartbeat, "d": b.sequence.Load()}); err != nil {
				return fmt.Errorf("heartbeat reply: %w", err)
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway requested reconnect (op %d)", p.Op)
		case opHeartbeatACK:
			// keepalive acknowledged
		default:
			b.logger.Debug("unhandled gateway opcode", "op", p.Op)
		}
	}
}

func identifyPayload(token string) map[string]any {
	return map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   token,
			"intents": gatewayIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "tinker",
				"device":  "tinker",
			},
		},
	}
}

func (b *Bot) writeJSON(v any) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.conn.WriteJSON(v)
}

func (b *Bot) heartbeatLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 41250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.writeJSON(map[string]any{"op": opHeartbeat, "d": b.sequence.Load()}); err != nil {
				b.logger.Debug("heartbeat failed", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) handleDispatch(ctx context.Context, p payload) {
	switch p.T {
	case "READY":
		var rd readyData
		if err := json.Unmarshal(p.D, &rd); err != nil {
			b.logger.Error("unmarshal READY", "error", err)
			return
		}
		b.selfID.Store(rd.User.ID)
		b.logger.Info("logged in to Discord", "username", rd.User.Username, "id", rd.User.ID)

	case "MESSAGE_CREATE":
		var msg Message
		if err := json.Unmarshal(p.D, &msg); err != nil {
			b.logger.Error("unmarshal MESSAGE_CREATE", "error", err)
			return
		}
		go b.handleMessage(ctx, msg)

	default:
		b.logger.Debug("unhandled dispatch", "type", p.T)
	}
}

// handleMessage answers a single incoming message if it mentions the bot.
func (b *Bot) handleMessage(ctx context.Context, msg Message) {
	selfID, _ := b.selfID.Load().(string)
	if selfID == "" || msg.Author.ID == selfID {
		return
	}
	if !mentions(msg.Content, selfID) {
		return
	}

	content := stripMention(msg.Content, selfID)
	if content == "" {
		b.send(ctx, msg.ChannelID, greeting)
		return
	}

	history, err := b.channelHistory(ctx, msg.ChannelID, msg.ID, selfID)
	if err != nil {
		b.logger.Error("fetch channel history", "error", err, "channel_id", msg.ChannelID)
		// A missing transcript is not fatal, answer without it.
	}

	reply, err := b.agent.HandleMessage(ctx, content, history, msg.Author.ID)
	if err != nil {
		b.logger.Error("agent failed", "error", err, "channel_id", msg.ChannelID)
		b.send(ctx, msg.ChannelID, fmt.Sprintf("Oops! I encountered an error: %v", err))
		return
	}
	b.send(ctx, msg.ChannelID, reply)
}

// channelHistory fetches recent channel messages and converts them to
// agent history, oldest first, excluding the triggering message.
func (b *Bot) channelHistory(ctx context.Context, channelID, currentID, selfID string) ([]llm.Message, error) {
	recent, err := b.rest.recentMessages(ctx, channelID, historyLimit)
	if err != nil {
		return nil, err
	}
	return historyMessages(recent, currentID, selfID), nil
}

// historyMessages maps Discord messages (newest first, as the API
// returns them) to chat history, oldest first.
func historyMessages(recent []Message, currentID, selfID string) []llm.Message {
	history := make([]llm.Message, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.ID == currentID || m.Content == "" {
			continue
		}
		role := llm.RoleUser
		if m.Author.ID == selfID {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}
	return history
}

func (b *Bot) send(ctx context.Context, channelID, text string) {
	for _, chunk := range chunkMessage(text, maxMessageLen) {
		if err := b.rest.createMessage(ctx, channelID, chunk); err != nil {
			b.logger.Error("send message", "error", err, "channel_id", channelID)
			return
		}
	}
}

// mentions reports whether content mentions the given user id.
func mentions(content, userID string) bool {
	return strings.Contains(content, "<@"+userID+">") ||
		strings.Contains(content, "<@!"+userID+">")
}

// stripMention removes mention tokens for the given user id and trims
// the remainder.
func stripMention(content, userID string) string {
	content = strings.ReplaceAll(content, "<@"+userID+">", "")
	content = strings.ReplaceAll(content, "<@!"+userID+">", "")
	return strings.TrimSpace(content)
}
