package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/assistant"
	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/parser"
)

// telegramServer records the requests a bot sends to the Bot API.
type telegramServer struct {
	mu    sync.Mutex
	calls []apiCall
}

type apiCall struct {
	Method string
	Fields map[string]string
}

func (s *telegramServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	fields := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, apiCall{Method: method, Fields: fields})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "answerCallbackQuery":
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	default:
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}
}

// sent returns the texts of all sendMessage calls.
func (s *telegramServer) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var texts []string
	for _, c := range s.calls {
		if c.Method == "sendMessage" {
			texts = append(texts, c.Fields["text"])
		}
	}
	return texts
}

func newTestBot(t *testing.T) (*bot.Bot, *telegramServer) {
	t.Helper()
	ts := &telegramServer{}
	srv := httptest.NewServer(ts)
	t.Cleanup(srv.Close)

	b, err := bot.New("123456:test-token", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("bot.New: %v", err)
	}
	return b, ts
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{Token: "123456:test-token", AdminUserID: 42},
		Matching: config.MatchingConfig{DefaultMode: "any", ResultLimit: 5},
		Messages: config.MessagesConfig{
			GeneralError:       "error",
			Unauthorized:       "unauthorized",
			InventoryEmpty:     "empty",
			InventoryHeader:    "Fridge:",
			NothingParsed:      "nothing",
			ItemsAddedHeader:   "Added:",
			InvalidQuantity:    "invalid",
			RemoveUsage:        "remove usage",
			RemovedFmt:         "Removed %s.",
			ReducedFmt:         "%s: %s left.",
			NotInInventoryFmt:  "no %s",
			ProductNotFoundFmt: "unknown %s",
			RecipeNotFound:     "no recipe",
			CookedFmt:          "Enjoy %s!",
			VoiceUnavailable:   "no voice",
			StatsFmt:           "%d %d %d %d",
		},
	}
}

type fakeStore struct {
	database.Store

	mu        sync.Mutex
	inventory []database.InventoryItem
	upserts   []string
	removed   []int64
}

func (f *fakeStore) UpsertUser(_ context.Context, telegramID int64, firstName string) (*database.User, error) {
	return &database.User{ID: telegramID * 10, TelegramID: telegramID, FirstName: firstName}, nil
}

func (f *fakeStore) ListInventory(context.Context, int64) ([]database.InventoryItem, error) {
	return f.inventory, nil
}

func (f *fakeStore) AddOrUpdateInventoryItem(_ context.Context, userID int64, name string, qty decimal.NullDecimal, unit string) (*database.InventoryItem, error) {
	if qty.Valid && qty.Decimal.IsNegative() {
		return nil, database.ErrValidation
	}
	f.mu.Lock()
	f.upserts = append(f.upserts, name)
	f.mu.Unlock()
	return &database.InventoryItem{UserID: userID, ProductName: name, Quantity: qty, Unit: unit}, nil
}

func (f *fakeStore) FindProductByName(_ context.Context, name string) (*database.Product, error) {
	if name == "tomato" {
		return &database.Product{ID: 7, Name: "tomato"}, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) RemoveInventoryItem(_ context.Context, _, productID int64) error {
	f.removed = append(f.removed, productID)
	return nil
}

func (f *fakeStore) DecreaseInventoryItem(_ context.Context, _, _ int64, amount decimal.Decimal, unit string) (*database.InventoryItem, error) {
	if unit != "pcs" {
		return nil, database.ErrValidation
	}
	left := decimal.NewFromInt(5).Sub(amount)
	return &database.InventoryItem{ProductName: "tomato", Quantity: decimal.NewNullDecimal(left), Unit: unit}, nil
}

func (f *fakeStore) ConsumeRecipe(_ context.Context, _, recipeID int64) (*database.ConsumeReport, error) {
	if recipeID != 3 {
		return nil, database.ErrNotFound
	}
	return &database.ConsumeReport{RecipeName: "Pasta", UsedUp: []string{"tomato"}}, nil
}

func (f *fakeStore) Stats(context.Context) (*database.Stats, error) {
	return &database.Stats{Users: 1, Products: 2, Recipes: 3, InventoryItems: 4}, nil
}

func testDeps(store database.Store) HandlerDeps {
	return HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: testConfig(),
		Store:  store,
	}
}

func textUpdate(text string) *models.Update {
	return &models.Update{Message: &models.Message{
		Text: text,
		From: &models.User{ID: 5, FirstName: "Ann"},
		Chat: models.Chat{ID: 100, Type: models.ChatTypePrivate},
	}}
}

func userCtx() context.Context {
	return withUser(context.Background(), &database.User{ID: 50, TelegramID: 5})
}

func TestFridgeHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []database.InventoryItem
		want  string
	}{
		{name: "empty", want: "empty"},
		{
			name: "items",
			items: []database.InventoryItem{
				{ProductName: "basil"},
				{ProductName: "tomato", Quantity: decimal.NewNullDecimal(decimal.NewFromInt(3)), Unit: "pcs"},
			},
			want: "Fridge:\n- basil\n- tomato: 3 pcs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ts := newTestBot(t)
			NewFridgeHandler(testDeps(&fakeStore{inventory: tt.items}))(userCtx(), b, textUpdate("/fridge"))

			sent := ts.sent()
			if len(sent) != 1 || sent[0] != tt.want {
				t.Errorf("sent %q, want %q", sent, tt.want)
			}
		})
	}
}

func TestMessageHandlerAddsParsedProducts(t *testing.T) {
	t.Parallel()

	b, ts := newTestBot(t)
	store := &fakeStore{}
	NewMessageHandler(testDeps(store))(userCtx(), b, textUpdate("Tomato 3 pcs, pasta 200 g"))

	if strings.Join(store.upserts, ",") != "tomato,pasta" {
		t.Errorf("upserted %q", store.upserts)
	}
	sent := ts.sent()
	if len(sent) != 1 || sent[0] != "Added:\n- tomato: 3 pcs\n- pasta: 200 g" {
		t.Errorf("sent %q", sent)
	}
}

func TestMessageHandlerIgnoresGroupsAndCommands(t *testing.T) {
	t.Parallel()

	b, ts := newTestBot(t)
	store := &fakeStore{}
	h := NewMessageHandler(testDeps(store))

	group := textUpdate("tomato")
	group.Message.Chat.Type = models.ChatTypeGroup
	h(userCtx(), b, group)
	h(userCtx(), b, textUpdate("/unknown"))

	if len(store.upserts) != 0 || len(ts.sent()) != 0 {
		t.Errorf("expected no activity, got upserts %q sent %q", store.upserts, ts.sent())
	}
}

func TestVoiceWithoutLanguageModel(t *testing.T) {
	t.Parallel()

	b, ts := newTestBot(t)
	update := textUpdate("")
	update.Message.Voice = &models.Voice{FileID: "voice-1"}
	NewMessageHandler(testDeps(&fakeStore{}))(userCtx(), b, update)

	if sent := ts.sent(); len(sent) != 1 || sent[0] != "no voice" {
		t.Errorf("sent %q", sent)
	}
}

type fakeAssistant struct {
	transcript string
	parseErr   error
	// answer, when set, is decoded as the model's JSON reply.
	answer string
}

func (f fakeAssistant) ParseProducts(_ context.Context, text string) ([]parser.ParsedProduct, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	if f.answer != "" {
		return assistant.DecodeProducts(f.answer)
	}
	return parser.ParseProductList(text), nil
}

func (f fakeAssistant) Transcribe(context.Context, string, []byte) (string, error) {
	return f.transcript, nil
}

func TestVoiceIsTranscribedAndAdded(t *testing.T) {
	t.Parallel()

	downloads := make(chan string, 1)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/file/bot") {
			downloads <- r.URL.Path
			_, _ = io.WriteString(w, "OggS-audio")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getFile") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"file_id": "voice-1", "file_path": "voice/file.oga", "file_size": 10},
			})
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}))
	t.Cleanup(api.Close)

	b, err := bot.New("123456:test-token", bot.WithServerURL(api.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("bot.New: %v", err)
	}

	store := &fakeStore{}
	deps := testDeps(store)
	deps.Assistant = fakeAssistant{transcript: "milk 1 l", parseErr: errors.New("quota")}

	update := textUpdate("")
	update.Message.Voice = &models.Voice{FileID: "voice-1", MimeType: "audio/ogg"}
	NewMessageHandler(deps)(userCtx(), b, update)

	select {
	case path := <-downloads:
		if path != "/file/bot123456:test-token/voice/file.oga" {
			t.Errorf("downloaded %q, want the file path under the bot's server URL", path)
		}
	default:
		t.Error("voice file was not downloaded")
	}
	if strings.Join(store.upserts, ",") != "milk" {
		t.Errorf("upserted %q, want milk", store.upserts)
	}
}

func TestMessageHandlerRejectsNegativeModelQuantity(t *testing.T) {
	t.Parallel()

	b, ts := newTestBot(t)
	store := &fakeStore{}
	deps := testDeps(store)
	deps.Assistant = fakeAssistant{answer: `[{"name": "salt", "quantity": -1, "unit": "g"}, {"name": "milk", "quantity": 1, "unit": "l"}]`}
	NewMessageHandler(deps)(userCtx(), b, textUpdate("salt minus one gram and a litre of milk"))

	if strings.Join(store.upserts, ",") != "milk" {
		t.Errorf("upserted %q, want only milk", store.upserts)
	}
	sent := ts.sent()
	if len(sent) != 2 || sent[0] != "invalid" || sent[1] != "Added:\n- milk: 1 l" {
		t.Errorf("sent %q", sent)
	}
}

func TestRemoveHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "whole product", text: "/remove tomato", want: "Removed tomato."},
		{name: "partial", text: "/remove tomato 2 pcs", want: "tomato: 3 pcs left."},
		{name: "unknown product", text: "/remove durian", want: "unknown durian"},
		{name: "no args", text: "/remove", want: "remove usage"},
		{name: "list", text: "/remove tomato 1,5 pcs, durian", want: "tomato: 3.5 pcs left.\nunknown durian"},
		{name: "bad unit", text: "/remove tomato 2 l", want: "tomato: invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ts := newTestBot(t)
			NewRemoveHandler(testDeps(&fakeStore{}))(userCtx(), b, textUpdate(tt.text))

			if sent := ts.sent(); len(sent) != 1 || sent[0] != tt.want {
				t.Errorf("sent %q, want %q", sent, tt.want)
			}
		})
	}
}

func TestCookCallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want string
	}{
		{data: "cook_3", want: "Enjoy Pasta!\nRemoved tomato."},
		{data: "cook_9", want: "no recipe"},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			t.Parallel()
			b, ts := newTestBot(t)
			update := &models.Update{CallbackQuery: &models.CallbackQuery{
				ID:   "cb",
				From: models.User{ID: 5},
				Data: tt.data,
				Message: models.MaybeInaccessibleMessage{
					Message: &models.Message{Chat: models.Chat{ID: 100}},
				},
			}}
			NewCookCallbackHandler(testDeps(&fakeStore{}))(userCtx(), b, update)

			if sent := ts.sent(); len(sent) != 1 || sent[0] != tt.want {
				t.Errorf("sent %q, want %q", sent, tt.want)
			}
		})
	}
}

func TestRegisterUserMiddleware(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t)
	var got *database.User
	next := func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got, _ = userFromContext(ctx)
	}
	RegisterUser(testDeps(&fakeStore{}))(next)(context.Background(), b, textUpdate("hi"))

	if got == nil || got.ID != 50 || got.FirstName != "Ann" {
		t.Errorf("user in context = %+v", got)
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		senderID   int64
		wantCalled bool
		wantSent   []string
	}{
		{name: "admin", senderID: 42, wantCalled: true},
		{name: "stranger", senderID: 5, wantSent: []string{"unauthorized"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, ts := newTestBot(t)
			called := false
			next := func(context.Context, *bot.Bot, *models.Update) { called = true }

			update := textUpdate("/stats")
			update.Message.From.ID = tt.senderID
			AdminOnly(testDeps(&fakeStore{}))(next)(context.Background(), b, update)

			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
			if sent := ts.sent(); strings.Join(sent, "|") != strings.Join(tt.wantSent, "|") {
				t.Errorf("sent %q, want %q", sent, tt.wantSent)
			}
		})
	}
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	registered := RegisterAllCommands(testDeps(&fakeStore{}))
	for _, key := range []string{"/start", "/fridge", "/recipes", "/unrestrict", "/stats", "recipe_", "cook_"} {
		h, ok := registered[key]
		if !ok || h.Handler == nil {
			t.Errorf("handler %q not registered", key)
		}
	}
	if got := registered["/stats"].Middleware; len(got) != 1 {
		t.Errorf("/stats middleware count = %d, want 1", len(got))
	}
	if registered["/stats"].Description != "" || registered["/fridge"].Description == "" {
		t.Error("admin commands must stay out of the menu, user commands must be described")
	}
	if got := registered["cook_"].HandlerType; got != bot.HandlerTypeCallbackQueryData {
		t.Errorf("cook_ handler type = %v", got)
	}
}
