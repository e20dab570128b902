package discord

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/kurtgav/tinker/internal/llm"
)

func TestChunkMessage(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "short text untouched",
			text: "hello",
			max:  10,
			want: []string{"hello"},
		},
		{
			name: "exact boundary",
			text: "abcde",
			max:  5,
			want: []string{"abcde"},
		},
		{
			name: "hard split without newlines",
			text: "abcdefghij",
			max:  4,
			want: []string{"abcd", "efgh", "ij"},
		},
		{
			name: "prefers newline break",
			text: "line one\nline two",
			max:  12,
			want: []string{"line one\n", "line two"},
		},
		{
			name: "empty",
			text: "",
			max:  10,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkMessage(tt.text, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("chunks = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkMessageMultibyte(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 300)
	for _, chunk := range chunkMessage(text, maxMessageLen) {
		if n := len([]rune(chunk)); n > maxMessageLen {
			t.Errorf("chunk has %d runes, limit %d", n, maxMessageLen)
		}
	}
}

func TestMentions(t *testing.T) {
	if !mentions("<@123> hello", "123") {
		t.Error("plain mention not detected")
	}
	if !mentions("hey <@!123> there", "123") {
		t.Error("nickname mention not detected")
	}
	if mentions("<@456> hello", "123") {
		t.Error("other user's mention matched")
	}
	if mentions("no mention here", "123") {
		t.Error("matched without any mention")
	}
}

func TestStripMention(t *testing.T) {
	if got := stripMention("<@123>  what is the weather?", "123"); got != "what is the weather?" {
		t.Errorf("stripped = %q", got)
	}
	if got := stripMention("<@!123>", "123"); got != "" {
		t.Errorf("stripped = %q, want empty", got)
	}
}

func TestHistoryMessages(t *testing.T) {
	// Newest first, as the REST API returns them.
	recent := []Message{
		{ID: "5", Author: User{ID: "bot"}, Content: "most recent answer"},
		{ID: "4", Author: User{ID: "alice"}, Content: "trigger message"},
		{ID: "3", Author: User{ID: "alice"}, Content: ""},
		{ID: "2", Author: User{ID: "bot"}, Content: "earlier answer"},
		{ID: "1", Author: User{ID: "alice"}, Content: "earlier question"},
	}

	got := historyMessages(recent, "4", "bot")
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "earlier question"},
		{Role: llm.RoleAssistant, Content: "earlier answer"},
		{Role: llm.RoleAssistant, Content: "most recent answer"},
	}
	if len(got) != len(want) {
		t.Fatalf("history = %+v, want %+v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRecentMessages(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "2", "channel_id": "c1", "content": "hi", "author": {"id": "alice"}}]`))
	}))
	defer srv.Close()

	c := newRESTClient(srv.URL, "tok", slog.Default())
	msgs, err := c.recentMessages(context.Background(), "c1", 10)
	if err != nil {
		t.Fatalf("recentMessages: %v", err)
	}
	if gotPath != "/channels/c1/messages?limit=10" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bot tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" || msgs[0].Author.ID != "alice" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestCreateMessage(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newRESTClient(srv.URL, "tok", slog.Default())
	if err := c.createMessage(context.Background(), "c1", "hello"); err != nil {
		t.Fatalf("createMessage: %v", err)
	}
	if gotBody["content"] != "hello" {
		t.Errorf("content = %q", gotBody["content"])
	}
}

func TestCreateMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Missing Access"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := newRESTClient(srv.URL, "tok", slog.Default())
	err := c.createMessage(context.Background(), "c1", "hello")
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v", err)
	}
}

func TestGatewayIdentify(t *testing.T) {
	upgrader := websocket.Upgrader{}
	identified := make(chan map[string]any, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]any{"op": opHello, "d": map[string]any{"heartbeat_interval": 45000}})

		var identify map[string]any
		if err := conn.ReadJSON(&identify); err != nil {
			t.Errorf("read identify: %v", err)
			return
		}
		identified <- identify
	}))
	defer srv.Close()

	b := NewBot("test-token", nil, slog.Default())
	b.gatewayURL = "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.session(ctx)
		close(done)
	}()

	identify := <-identified
	cancel()
	<-done

	if op, _ := identify["op"].(float64); int(op) != opIdentify {
		t.Errorf("op = %v, want identify", identify["op"])
	}
	d, _ := identify["d"].(map[string]any)
	if d["token"] != "test-token" {
		t.Errorf("token = %v", d["token"])
	}
	if intents, _ := d["intents"].(float64); int(intents) != gatewayIntents {
		t.Errorf("intents = %v, want %d", d["intents"], gatewayIntents)
	}
}
