package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-home/internal/home"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-home/internal/scripting"
	"github.com/nerrad567/gray-logic-home/internal/scripting/lua"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// lampScript is the Lua source every test entity runs.
const lampScript = `-- supports: device, room
function setup(ctx)
  ctx:property("power", "boolean", false, "visible", "store", "initiate_update")
  ctx:property("level", "integer", 0, "visible")
  ctx:property("hits", "integer", 0, "store")
  ctx:attribute("vendor", '"acme"')
  ctx:event("toggled")

  ctx:method("toggle", "unknown", function()
    ctx:set("power", not ctx:get("power"))
    ctx:raise("toggled", ctx:get("power"))
    return true
  end)

  ctx:method("dim", "integer", function(level)
    if level < 0 or level > 100 then
      return false
    end
    return ctx:set("level", level)
  end)

  ctx:method("count", "unknown", function()
    ctx:set("hits", ctx:get("hits") + 1)
    return true
  end)
end
`

// publishedEvent is one call received by capturePublisher.
type publishedEvent struct {
	kind    string
	id      uint32
	payload string
}

// capturePublisher records state broadcasts next to the hub.
type capturePublisher struct {
	mu     sync.Mutex
	states []publishedEvent
	config []publishedEvent
}

func (p *capturePublisher) PublishState(t script.ViewType, id uint32, state json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, publishedEvent{kind: t.String(), id: id, payload: string(state)})
	return nil
}

func (p *capturePublisher) PublishConfig(t script.ViewType, id uint32, cfg json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = append(p.config, publishedEvent{kind: t.String(), id: id, payload: string(cfg)})
	return nil
}

func (p *capturePublisher) snapshot() (states, cfg []publishedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.states...), append([]publishedEvent(nil), p.config...)
}

// testEnv is a Server over a real Home and a Lua-backed script manager.
type testEnv struct {
	*Server
	home      *home.Home
	repo      *home.MemoryRepository
	scripts   *scripting.Manager
	publisher *capturePublisher
	lampID    uint32
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "discard"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}
}

// testServer creates a Server with one Lua source ("lamp") registered.
func testServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := testLogger()

	manager := scripting.NewManager()
	if err := manager.AddProvider(lua.NewProvider("")); err != nil {
		t.Fatalf("AddProvider: %v", err)
	}
	if err := manager.Bootstrap(ctx, scripting.NewMemorySourceRepository()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	lamp, err := manager.AddSource(ctx, lua.ProviderName, "lamp", lampScript)
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	hub := NewHub(testWSConfig(), log)
	publisher := &capturePublisher{}
	repo := home.NewMemoryRepository()
	h := home.New(home.Deps{
		Name:       "Test Site",
		Scripts:    manager,
		Repository: repo,
		Publisher:  home.Publishers{hub, publisher},
	})
	t.Cleanup(h.Close)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS:      testWSConfig(),
		Logger:  log,
		Home:    h,
		Scripts: manager,
		Hub:     hub,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck // not started; only clears bindings

	return &testEnv{
		Server:    srv,
		home:      h,
		repo:      repo,
		scripts:   manager,
		publisher: publisher,
		lampID:    lamp.ID(),
	}
}

// do sends a request through the router and returns the recorder.
func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.buildRouter().ServeHTTP(w, req)
	return w
}

// createDevice creates a device running the lamp script and returns its id.
func (env *testEnv) createDevice(t *testing.T, name string) uint32 {
	t.Helper()
	body := `{"name":` + strconv.Quote(name) + `,"script_source_id":` + uitoa(env.lampID) + `}`
	w := env.do(t, http.MethodPost, "/api/v1/devices", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create device status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp entityResponse
	decode(t, w, &resp)
	return resp.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func path(kind string, id uint32, rest string) string {
	return "/api/v1/" + kind + "/" + uitoa(id) + rest
}

func uitoa(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiredDeps(t *testing.T) {
	h := home.New(home.Deps{})
	manager := scripting.NewManager()

	tests := []struct {
		name string
		deps Deps
	}{
		{name: "no logger", deps: Deps{Home: h, Scripts: manager}},
		{name: "no home", deps: Deps{Logger: testLogger(), Scripts: manager}},
		{name: "no scripts", deps: Deps{Logger: testLogger(), Home: h}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want missing dependency")
			}
		})
	}

	srv, err := New(Deps{Logger: testLogger(), Home: h, Scripts: manager})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Hub() == nil {
		t.Error("Hub() = nil, want internal hub")
	}
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}
}

// ─── Health and Metrics ────────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decode(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["site"] != "Test Site" {
		t.Errorf("site = %v, want Test Site", resp["site"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestMetrics(t *testing.T) {
	env := testServer(t)
	env.createDevice(t, "Desk lamp")
	if w := env.do(t, http.MethodPost, "/api/v1/rooms", `{"name":"Office"}`); w.Code != http.StatusCreated {
		t.Fatalf("create room status = %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}

	var m SystemMetrics
	decode(t, w, &m)
	if m.Version != "test" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.Runtime.Goroutines == 0 {
		t.Error("Runtime.Goroutines = 0")
	}
	if m.MQTT.Enabled {
		t.Error("MQTT.Enabled = true without a client")
	}
	if m.Scripts.Sources != 1 || m.Scripts.ByProvider["lua"] != 1 {
		t.Errorf("Scripts = %+v, want one lua source", m.Scripts)
	}
	if m.Entities.Total != 2 || m.Entities.ByType["device"] != 1 || m.Entities.ByType["room"] != 1 {
		t.Errorf("Entities = %+v", m.Entities)
	}
	if m.Entities.WithScript != 1 || m.Entities.ByState["initialized"] != 1 {
		t.Errorf("Entities script counts = %+v", m.Entities)
	}
}

// brokerStatus is a fixed ConnectionStatus.
type brokerStatus struct {
	connected bool
	routes    int
}

func (b brokerStatus) IsConnected() bool      { return b.connected }
func (b brokerStatus) SubscriptionCount() int { return b.routes }

func TestMetrics_MQTT(t *testing.T) {
	env := testServer(t)
	env.mqtt = brokerStatus{connected: true, routes: 1}

	w := env.do(t, http.MethodGet, "/api/v1/metrics", "")
	var m SystemMetrics
	decode(t, w, &m)
	if !m.MQTT.Enabled || !m.MQTT.Connected || m.MQTT.Subscriptions != 1 {
		t.Errorf("MQTT = %+v, want enabled, connected, 1 subscription", m.MQTT)
	}
}

// ─── Script Catalogue ──────────────────────────────────────────────

func TestListProviders(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/scripts/providers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Providers []string `json:"providers"`
		Count     int      `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 1 || resp.Providers[0] != "lua" {
		t.Errorf("providers = %+v, want [lua]", resp)
	}
}

func TestScriptSources(t *testing.T) {
	env := testServer(t)

	// List omits content.
	w := env.do(t, http.MethodGet, "/api/v1/scripts/sources", "")
	var list struct {
		Sources []scripting.SourceInfo `json:"sources"`
		Count   int                    `json:"count"`
	}
	decode(t, w, &list)
	if list.Count != 1 || list.Sources[0].Name != "lamp" || list.Sources[0].Content != "" {
		t.Fatalf("sources = %+v", list)
	}
	if list.Sources[0].Flags != "room|device" {
		t.Errorf("flags = %q, want room|device", list.Sources[0].Flags)
	}

	// Create.
	w = env.do(t, http.MethodPost, "/api/v1/scripts/sources",
		`{"provider":"lua","name":"fan","content":"-- supports: service\nfunction setup(ctx) end"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created scripting.SourceInfo
	decode(t, w, &created)
	if created.ID == 0 || created.ID == env.lampID || created.Flags != "service" {
		t.Errorf("created = %+v", created)
	}

	// Get includes content.
	w = env.do(t, http.MethodGet, "/api/v1/scripts/sources/"+uitoa(created.ID), "")
	var got scripting.SourceInfo
	decode(t, w, &got)
	if !strings.Contains(got.Content, "supports: service") {
		t.Errorf("content = %q", got.Content)
	}

	// Update content.
	w = env.do(t, http.MethodPut, "/api/v1/scripts/sources/"+uitoa(created.ID)+"/content",
		`{"content":"-- supports: room\nfunction setup(ctx) end"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &got)
	if got.Flags != "room" {
		t.Errorf("flags after update = %q, want room", got.Flags)
	}

	// Provider filter.
	w = env.do(t, http.MethodGet, "/api/v1/scripts/sources?provider=native", "")
	decode(t, w, &list)
	if list.Count != 0 {
		t.Errorf("native sources = %d, want 0", list.Count)
	}
}

func TestScriptSources_Errors(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "invalid JSON", method: http.MethodPost, path: "/api/v1/scripts/sources", body: `{`, want: http.StatusBadRequest},
		{name: "missing name", method: http.MethodPost, path: "/api/v1/scripts/sources", body: `{"provider":"lua"}`, want: http.StatusBadRequest},
		{name: "unknown provider", method: http.MethodPost, path: "/api/v1/scripts/sources", body: `{"provider":"python","name":"x"}`, want: http.StatusNotFound},
		{name: "no content", method: http.MethodPost, path: "/api/v1/scripts/sources", body: `{"provider":"lua","name":"empty"}`, want: http.StatusBadRequest},
		{name: "compile error", method: http.MethodPost, path: "/api/v1/scripts/sources", body: `{"provider":"lua","name":"bad","content":"function ("}`, want: http.StatusUnprocessableEntity},
		{name: "get missing", method: http.MethodGet, path: "/api/v1/scripts/sources/99", want: http.StatusNotFound},
		{name: "get invalid id", method: http.MethodGet, path: "/api/v1/scripts/sources/abc", want: http.StatusBadRequest},
		{name: "update missing", method: http.MethodPut, path: "/api/v1/scripts/sources/99/content", body: `{"content":"x"}`, want: http.StatusNotFound},
		{name: "update compile error", method: http.MethodPut, path: "/api/v1/scripts/sources/1/content", body: `{"content":"end end"}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
		})
	}
}

// ─── Entities ──────────────────────────────────────────────────────

func TestCreateAndGetEntity(t *testing.T) {
	env := testServer(t)
	id := env.createDevice(t, "Desk lamp")

	w := env.do(t, http.MethodGet, path("devices", id, ""), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp entityResponse
	decode(t, w, &resp)
	if resp.Name != "Desk lamp" || resp.Type != "device" || resp.SourceID != env.lampID {
		t.Errorf("entity = %+v", resp.Info)
	}
	if resp.Script == nil {
		t.Fatal("script = nil")
	}
	if resp.Script.Source != "lamp" || resp.Script.State != "initialized" {
		t.Errorf("script = %+v", resp.Script)
	}
	if strings.Join(resp.Script.Methods, ",") != "count,dim,toggle" {
		t.Errorf("methods = %v", resp.Script.Methods)
	}
	if string(resp.State) != `{"level":0,"power":false}` {
		t.Errorf("state = %s", resp.State)
	}

	_, cfg := env.publisher.snapshot()
	if len(cfg) != 1 || cfg[0].kind != "device" || cfg[0].id != id {
		t.Errorf("config broadcasts = %+v, want one for the new device", cfg)
	}
}

func TestCreateEntity_Errors(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "unknown kind", path: "/api/v1/widgets", body: `{"name":"x"}`, want: http.StatusNotFound},
		{name: "invalid JSON", path: "/api/v1/devices", body: `{`, want: http.StatusBadRequest},
		{name: "empty name", path: "/api/v1/devices", body: `{"name":"  "}`, want: http.StatusBadRequest},
		{name: "missing room", path: "/api/v1/devices", body: `{"name":"x","room_id":42}`, want: http.StatusNotFound},
		{name: "unknown source", path: "/api/v1/devices", body: `{"name":"x","script_source_id":99}`, want: http.StatusNotFound},
		{name: "unsupported type", path: "/api/v1/services", body: `{"name":"x","script_source_id":1}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	if n := len(env.home.Entities(script.ViewService)); n != 0 {
		t.Errorf("services after failed create = %d, want 0", n)
	}
}

func TestListEntities_RoomFilter(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/rooms", `{"name":"Office"}`)
	var room entityResponse
	decode(t, w, &room)

	env.createDevice(t, "Loose lamp")
	body := `{"name":"Office lamp","room_id":` + uitoa(room.ID) + `}`
	if w := env.do(t, http.MethodPost, "/api/v1/devices", body); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	var list struct {
		Entities []home.Info `json:"entities"`
		Count    int         `json:"count"`
	}
	decode(t, env.do(t, http.MethodGet, "/api/v1/devices", ""), &list)
	if list.Count != 2 {
		t.Errorf("devices = %d, want 2", list.Count)
	}

	decode(t, env.do(t, http.MethodGet, "/api/v1/devices?room_id="+uitoa(room.ID), ""), &list)
	if list.Count != 1 || list.Entities[0].Name != "Office lamp" {
		t.Errorf("room devices = %+v", list)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/devices?room_id=x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid room_id status = %d, want 400", w.Code)
	}
}

func TestRenameEntity(t *testing.T) {
	env := testServer(t)
	id := env.createDevice(t, "Desk lamp")

	w := env.do(t, http.MethodPatch, path("devices", id, ""), `{"name":"Reading lamp"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d", w.Code)
	}
	records, err := env.repo.List(context.Background(), script.ViewDevice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if records[0].Name != "Reading lamp" {
		t.Errorf("persisted name = %q", records[0].Name)
	}

	if w := env.do(t, http.MethodPatch, path("devices", id, ""), `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty rename status = %d, want 400", w.Code)
	}
}

func TestDeleteEntity(t *testing.T) {
	env := testServer(t)
	id := env.createDevice(t, "Desk lamp")

	if w := env.do(t, http.MethodDelete, path("devices", id, ""), ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, path("devices", id, ""), ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, path("devices", id, ""), ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/devices/0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("delete id 0 status = %d, want 400", w.Code)
	}
}

func TestAssignScript(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/rooms", `{"name":"Office"}`)
	var room entityResponse
	decode(t, w, &room)
	if room.Script != nil {
		t.Fatalf("new room script = %+v, want none", room.Script)
	}

	w = env.do(t, http.MethodPut, path("rooms", room.ID, "/script"), `{"script_source_id":`+uitoa(env.lampID)+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("assign status = %d, body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &room)
	if room.Script == nil || room.SourceID != env.lampID {
		t.Errorf("room after assign = %+v", room.Info)
	}

	w = env.do(t, http.MethodPut, path("rooms", room.ID, "/script"), `{"script_source_id":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	var cleared entityResponse
	decode(t, w, &cleared)
	if cleared.Script != nil || string(cleared.State) != `{}` {
		t.Errorf("room after clear = %+v state %s", cleared.Info, cleared.State)
	}
}

// ─── Properties, Attributes, Methods ───────────────────────────────

func TestSetProperties(t *testing.T) {
	env := testServer(t)
	id := env.createDevice(t, "Desk lamp")

	w := env.do(t, http.MethodPatch, path("devices", id, "/properties"), `{"power":true,"hits":9,"unknown":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp setPropertiesResponse
	decode(t, w, &resp)
	if resp.Applied != "visible|store|initiate_update" || !resp.Stored || !resp.Published {
		t.Errorf("response = %+v", resp)
	}
	if string(resp.Properties) != `{"level":0,"power":true}` {
		t.Errorf("properties = %s", resp.Properties)
	}

	// hits is Store only, so the Visible filter ignored it.
	records, err := env.repo.List(context.Background(), script.ViewDevice)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if string(records[0].Properties) != `{"hits":0,"power":true}` {
		t.Errorf("persisted = %s", records[0].Properties)
	}

	states, _ := env.publisher.snapshot()
	if len(states) != 1 || states[0].payload != `{"level":0,"power":true}` {
		t.Errorf("state broadcasts = %+v", states)
	}

	// Visible only: no persistence, no broadcast.
	w = env.do(t, http.MethodPatch, path("devices", id, "/properties"), `{"level":30}`)
	decode(t, w, &resp)
	if resp.Applied != "visible" || resp.Stored || resp.Published {
		t.Errorf("level response = %+v", resp)
	}

	// Unchanged values apply nothing.
	w = env.do(t, http.MethodPatch, path("devices", id, "/properties"), `{"power":true}`)
	decode(t, w, &resp)
	if resp.Applied != "none" {
		t.Errorf("unchanged applied = %q, want none", resp.Applied)
	}
	if states, _ := env.publisher.snapshot(); len(states) != 1 {
		t.Errorf("state broadcasts = %d, want 1", len(states))
	}

	if w := env.do(t, http.MethodPatch, path("devices", id, "/properties"), `[1,2]`); w.Code != http.StatusBadRequest {
		t.Errorf("array body status = %d, want 400", w.Code)
	}
}

func TestGetProperties(t *testing.T) {
	env := testServer(t)
	id := env.createDevice(t, "Desk lamp")

	tests := []struct {
		name  string
		query string
		want  int
		body  string
	}{
		{name: "default visible", want: http.StatusOK, body: `{"level":0,"power":false}`},
		{name: "store", query: "?flags=store", want: http.StatusOK, body: `{"hits":0,"power":false}`},
		{name: "all", query: "?flags=all", want: http.StatusOK, body: `{"hits":0,"level":0,"power":false}`},
		{name: "unknown flag", query: "?flags=bogus", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, path("devices", id, "/properties"+tt.query), "")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.body != "" && strings.TrimSpace(w.Body.String()) != tt.body {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.body)
			}
		})
	}

	w := env.do(t, http.MethodGet, path("devices", id, "/attributes"), "")
	if strings.TrimSpace(w.Body.String()) != `{"vendor":"acme"}` {
		t.Errorf("attributes = %s", w.Body.String())
	}
}

func TestInvokeMethod(t *testing.T) {
	env := testServer(t)
	id := env.createDevice(t, "Desk lamp")

	w := env.do(t, http.MethodPost, "/api/v1/rooms", `{"name":"Bare"}`)
	var bare entityResponse
	decode(t, w, &bare)

	tests := []struct {
		name   string
		path   string
		body   string
		want   int
		result bool
	}{
		{name: "action", path: path("devices", id, "/methods/toggle"), want: http.StatusOK, result: true},
		{name: "typed accepted", path: path("devices", id, "/methods/dim"), body: `40`, want: http.StatusOK, result: true},
		{name: "rejected by script", path: path("devices", id, "/methods/dim"), body: `400`, want: http.StatusOK, result: false},
		{name: "wrong kind", path: path("devices", id, "/methods/dim"), body: `"bright"`, want: http.StatusBadRequest},
		{name: "trailing data", path: path("devices", id, "/methods/dim"), body: `40 garbage`, want: http.StatusBadRequest},
		{name: "unknown method", path: path("devices", id, "/methods/explode"), want: http.StatusNotFound},
		{name: "unknown entity", path: path("devices", 99, "/methods/toggle"), want: http.StatusNotFound},
		{name: "no script", path: path("rooms", bare.ID, "/methods/toggle"), want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var resp invokeResponse
			decode(t, w, &resp)
			if resp.Result != tt.result {
				t.Errorf("result = %v, want %v", resp.Result, tt.result)
			}
		})
	}

	w = env.do(t, http.MethodGet, path("devices", id, "/properties"), "")
	if strings.TrimSpace(w.Body.String()) != `{"level":40,"power":true}` {
		t.Errorf("properties after invokes = %s", w.Body.String())
	}
}

// ─── Event Bindings ────────────────────────────────────────────────

func TestEventBindings(t *testing.T) {
	env := testServer(t)
	lamp := env.createDevice(t, "Lamp")
	counter := env.createDevice(t, "Counter")

	body := `{"target_type":"device","target_id":` + uitoa(counter) + `,"method":"count"}`
	w := env.do(t, http.MethodPost, path("devices", lamp, "/events/toggled/bindings"), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("bind status = %d, body = %s", w.Code, w.Body.String())
	}
	var binding Binding
	decode(t, w, &binding)
	if binding.ID == uuid.Nil || !binding.Active || binding.Event != "toggled" || binding.TargetID != counter {
		t.Errorf("binding = %+v", binding)
	}

	env.do(t, http.MethodPost, path("devices", lamp, "/methods/toggle"), "")
	w = env.do(t, http.MethodGet, path("devices", counter, "/properties?flags=store"), "")
	if strings.TrimSpace(w.Body.String()) != `{"hits":1,"power":false}` {
		t.Errorf("counter after toggle = %s", w.Body.String())
	}

	var list struct {
		Bindings []Binding `json:"bindings"`
		Count    int       `json:"count"`
	}
	decode(t, env.do(t, http.MethodGet, "/api/v1/bindings", ""), &list)
	if list.Count != 1 || list.Bindings[0].ID != binding.ID {
		t.Errorf("bindings = %+v", list)
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/bindings/"+binding.ID.String(), ""); w.Code != http.StatusNoContent {
		t.Fatalf("unbind status = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/bindings/"+binding.ID.String(), ""); w.Code != http.StatusNotFound {
		t.Errorf("second unbind status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/bindings/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid uuid status = %d, want 400", w.Code)
	}

	env.do(t, http.MethodPost, path("devices", lamp, "/methods/toggle"), "")
	w = env.do(t, http.MethodGet, path("devices", counter, "/properties?flags=store"), "")
	if strings.TrimSpace(w.Body.String()) != `{"hits":1,"power":false}` {
		t.Errorf("counter after unbind = %s, want unchanged", w.Body.String())
	}
}

func TestEventBindings_Errors(t *testing.T) {
	env := testServer(t)
	lamp := env.createDevice(t, "Lamp")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "unknown event", path: path("devices", lamp, "/events/exploded/bindings"), body: `{"target_type":"device","target_id":1,"method":"count"}`, want: http.StatusNotFound},
		{name: "missing target", path: path("devices", lamp, "/events/toggled/bindings"), body: `{"target_type":"device","target_id":99,"method":"count"}`, want: http.StatusNotFound},
		{name: "invalid target type", path: path("devices", lamp, "/events/toggled/bindings"), body: `{"target_type":"home","target_id":1,"method":"count"}`, want: http.StatusBadRequest},
		{name: "empty method", path: path("devices", lamp, "/events/toggled/bindings"), body: `{"target_type":"device","target_id":1,"method":" "}`, want: http.StatusBadRequest},
		{name: "invalid JSON", path: path("devices", lamp, "/events/toggled/bindings"), body: `{`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
	if n := env.bindings.len(); n != 0 {
		t.Errorf("bindings after errors = %d, want 0", n)
	}
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	env := testServer(t)
	router := env.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("generated X-Request-ID = %q, want UUID", w.Header().Get("X-Request-ID"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-42" {
		t.Errorf("X-Request-ID = %q, want client-42", got)
	}
}

func TestCORS(t *testing.T) {
	env := testServer(t)
	env.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}
	router := env.buildRouter()

	tests := []struct {
		name       string
		origin     string
		wantHeader string
	}{
		{name: "allowed origin", origin: "http://panel.local", wantHeader: "http://panel.local"},
		{name: "other origin", origin: "http://evil.example", wantHeader: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("preflight status = %d, want 204", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	env := testServer(t)
	handler := env.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	env := testServer(t)
	big := `{"provider":"lua","name":"big","content":"` + strings.Repeat("-", maxRequestBodySize) + `"}`

	w := env.do(t, http.MethodPost, "/api/v1/scripts/sources", big)
	if w.Code != http.StatusBadRequest {
		t.Errorf("oversized body status = %d, want 400", w.Code)
	}
}
