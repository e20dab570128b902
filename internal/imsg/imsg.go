// Package imsg answers iMessage conversations on macOS.
//
// Incoming messages are read by polling the Messages chat.db sqlite
// database for rows past the last seen ROWID. Replies go out through
// osascript driving the Messages app. Reading chat.db requires Full
// Disk Access for the process.
package imsg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurtgav/tinker/internal/agent"
)

const (
	pollInterval = 2 * time.Second

	greeting = "Hello! I am Tinker. How can I help you?"
)

// DefaultDBPath returns the standard location of the Messages database.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

// incoming is one new message pulled from chat.db.
type incoming struct {
	rowID  int64
	text   string
	sender string
}

// sendFunc delivers a reply to a recipient. Production uses osascript.
type sendFunc func(ctx context.Context, recipient, text string) error

// Poller watches chat.db for new messages addressed to the bot.
type Poller struct {
	db      *sql.DB
	agent   *agent.Agent
	trigger string
	send    sendFunc
	lastID  int64
	logger  *slog.Logger
}

// NewPoller opens the Messages database read-only and positions the
// poller after the newest existing message so only new traffic is seen.
func NewPoller(dbPath, trigger string, ag *agent.Agent, logger *slog.Logger) (*Poller, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath()
	}
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open chat.db: %w", err)
	}

	p := &Poller{
		db:      db,
		agent:   ag,
		trigger: trigger,
		send:    sendViaMessages,
		logger:  logger,
	}

	if err := db.QueryRow("SELECT COALESCE(MAX(ROWID), 0) FROM message").Scan(&p.lastID); err != nil {
		db.Close()
		return nil, fmt.Errorf("read last message id (is Full Disk Access granted?): %w", err)
	}
	return p, nil
}

// Close releases the database handle.
func (p *Poller) Close() error {
	return p.db.Close()
}

// Run polls for new messages until ctx is cancelled. A permission
// error stops the loop since retrying cannot succeed.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting iMessage polling loop", "last_message_id", p.lastID, "trigger", p.trigger)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				if isPermissionErr(err) {
					return fmt.Errorf("chat.db access denied, grant Full Disk Access: %w", err)
				}
				p.logger.Error("poll failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// poll drains messages newer than lastID and handles the triggered ones.
func (p *Poller) poll(ctx context.Context) error {
	msgs, err := p.fetchNew(ctx)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		p.lastID = m.rowID
		if !p.triggered(m.text) {
			continue
		}
		p.logger.Info("received message", "sender", m.sender, "rowid", m.rowID)
		p.handle(ctx, m)
	}
	return nil
}

func (p *Poller) fetchNew(ctx context.Context) ([]incoming, error) {
	const query = `
		SELECT message.ROWID, message.text, handle.id
		FROM message
		JOIN handle ON message.handle_id = handle.ROWID
		WHERE message.ROWID > ? AND message.text IS NOT NULL AND message.is_from_me = 0
		ORDER BY message.ROWID ASC`

	rows, err := p.db.QueryContext(ctx, query, p.lastID)
	if err != nil {
		return nil, fmt.Errorf("query new messages: %w", err)
	}
	defer rows.Close()

	var msgs []incoming
	for rows.Next() {
		var m incoming
		if err := rows.Scan(&m.rowID, &m.text, &m.sender); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (p *Poller) handle(ctx context.Context, m incoming) {
	text := p.stripTrigger(m.text)
	if text == "" {
		p.reply(ctx, m.sender, greeting)
		return
	}

	// The sender handle doubles as the memory user id.
	response, err := p.agent.HandleMessage(ctx, text, nil, m.sender)
	if err != nil {
		p.logger.Error("agent failed", "error", err, "sender", m.sender)
		p.reply(ctx, m.sender, fmt.Sprintf("Oops! Error: %v", err))
		return
	}
	p.reply(ctx, m.sender, response)
}

func (p *Poller) reply(ctx context.Context, recipient, text string) {
	if err := p.send(ctx, recipient, text); err != nil {
		p.logger.Error("send reply", "error", err, "recipient", recipient)
		return
	}
	p.logger.Debug("sent reply", "recipient", recipient)
}

// triggered reports whether text addresses the bot, case-insensitively.
func (p *Poller) triggered(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(p.trigger))
}

// stripTrigger removes every case variant of the trigger token.
func (p *Poller) stripTrigger(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); {
		if n := foldPrefixLen(text[i:], p.trigger); n > 0 {
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+size])
		i += size
	}
	return strings.TrimSpace(b.String())
}

// foldPrefixLen returns the byte length of the prefix of s that matches
// token under Unicode case folding, or 0 when s does not start with the
// token. Folding can change byte widths (Kelvin sign to "k"), so the
// match is taken rune by rune against the original string.
func foldPrefixLen(s, token string) int {
	end := 0
	for range token {
		if end >= len(s) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	if !strings.EqualFold(s[:end], token) {
		return 0
	}
	return end
}

func isPermissionErr(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "unable to open database")
}

// sendViaMessages drives the Messages app through osascript.
func sendViaMessages(ctx context.Context, recipient, text string) error {
	safe := strings.ReplaceAll(text, `\`, `\\`)
	safe = strings.ReplaceAll(safe, `"`, `\"`)
	safeRecipient := strings.ReplaceAll(recipient, `"`, `\"`)

	script := fmt.Sprintf(`
	tell application "Messages"
		set targetService to 1st service whose service type = iMessage
		set targetBuddy to buddy "%s" of targetService
		send "%s" to targetBuddy
	end tell`, safeRecipient, safe)

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
