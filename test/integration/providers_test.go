package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	logrtesting "github.com/go-logr/logr/testing"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
	"github.com/yuriy-kovalchuk/yk-dyndns/internal/dns"
	_ "github.com/yuriy-kovalchuk/yk-dyndns/internal/dns/providers"
)

// storedRecord is the provider-neutral view of a record held by a fake.
type storedRecord struct {
	ID   string
	Type string
	Name string
	Data string
	TTL  int
}

// fakeAPI is what every scenario needs from a fake provider backend.
type fakeAPI interface {
	http.Handler
	seed(r storedRecord)
	snapshot() ([]storedRecord, []string)
}

// fakeDigitalOcean is a minimal in-memory Digital Ocean domains API serving
// the single domain example.com.
type fakeDigitalOcean struct {
	mu     sync.Mutex
	store  []storedRecord
	nextID int
	calls  []string // tracks endpoint calls in order
}

func (f *fakeDigitalOcean) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if r.Header.Get("Authorization") != "Bearer test-key" {
		writeStatus(w, http.StatusUnauthorized, map[string]string{"id": "unauthorized", "message": "Unable to authenticate you"})
		return
	}

	type wire struct {
		ID   int64  `json:"id,omitempty"`
		Type string `json:"type"`
		Name string `json:"name"`
		Data string `json:"data"`
		TTL  int    `json:"ttl"`
	}
	toWire := func(s storedRecord) wire {
		id, _ := strconv.ParseInt(s.ID, 10, 64)
		return wire{ID: id, Type: s.Type, Name: s.Name, Data: s.Data, TTL: s.TTL}
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/domains/example.com":
		writeJSON(w, map[string]any{"domain": map[string]any{"name": "example.com", "ttl": 1800}})
	case strings.HasPrefix(r.URL.Path, "/domains/") && !strings.HasPrefix(r.URL.Path, "/domains/example.com"):
		writeStatus(w, http.StatusNotFound, map[string]string{"id": "not_found", "message": "The resource you were accessing could not be found."})
	case r.Method == http.MethodGet && r.URL.Path == "/domains/example.com/records":
		out := []wire{}
		for _, s := range f.store {
			if s.Type == r.URL.Query().Get("type") {
				out = append(out, toWire(s))
			}
		}
		writeJSON(w, map[string]any{"domain_records": out})
	case r.Method == http.MethodPost && r.URL.Path == "/domains/example.com/records":
		var in wire
		if err := readJSON(r, &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nextID++
		s := storedRecord{ID: strconv.Itoa(f.nextID), Type: in.Type, Name: in.Name, Data: in.Data, TTL: in.TTL}
		f.store = append(f.store, s)
		writeStatus(w, http.StatusCreated, map[string]any{"domain_record": toWire(s)})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/domains/example.com/records/"):
		id := strings.TrimPrefix(r.URL.Path, "/domains/example.com/records/")
		var in wire
		if err := readJSON(r, &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i := range f.store {
			if f.store[i].ID == id {
				f.store[i] = storedRecord{ID: id, Type: in.Type, Name: in.Name, Data: in.Data, TTL: in.TTL}
				writeJSON(w, map[string]any{"domain_record": toWire(f.store[i])})
				return
			}
		}
		writeStatus(w, http.StatusNotFound, map[string]string{"id": "not_found", "message": "record not found"})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDigitalOcean) seed(r storedRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = strconv.Itoa(f.nextID)
	f.store = append(f.store, r)
}

func (f *fakeDigitalOcean) snapshot() ([]storedRecord, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storedRecord(nil), f.store...), append([]string(nil), f.calls...)
}

// fakeHetzner is a minimal in-memory Hetzner DNS API serving the single zone
// example.com.
type fakeHetzner struct {
	mu     sync.Mutex
	store  []storedRecord
	nextID int
	calls  []string
}

const hetznerZoneID = "zone-example"

func (f *fakeHetzner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if r.Header.Get("Auth-API-Token") != "test-key" {
		writeStatus(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "invalid authentication credentials", "code": 401}})
		return
	}

	type wire struct {
		ID     string `json:"id,omitempty"`
		ZoneID string `json:"zone_id"`
		Type   string `json:"type"`
		Name   string `json:"name"`
		Value  string `json:"value"`
		TTL    int    `json:"ttl"`
	}
	toWire := func(s storedRecord) wire {
		return wire{ID: s.ID, ZoneID: hetznerZoneID, Type: s.Type, Name: s.Name, Value: s.Data, TTL: s.TTL}
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/zones":
		zones := []map[string]any{}
		if r.URL.Query().Get("name") == "example.com" {
			zones = append(zones, map[string]any{"id": hetznerZoneID, "name": "example.com", "ttl": 86400})
		}
		writeJSON(w, map[string]any{"zones": zones})
	case r.Method == http.MethodGet && r.URL.Path == "/records":
		out := []wire{}
		if r.URL.Query().Get("zone_id") == hetznerZoneID {
			for _, s := range f.store {
				out = append(out, toWire(s))
			}
		}
		writeJSON(w, map[string]any{"records": out})
	case r.Method == http.MethodPost && r.URL.Path == "/records":
		var in wire
		if err := readJSON(r, &in); err != nil || in.ZoneID != hetznerZoneID {
			writeStatus(w, http.StatusUnprocessableEntity, map[string]any{"error": map[string]any{"message": "zone_id is invalid", "code": 422}})
			return
		}
		f.nextID++
		s := storedRecord{ID: fmt.Sprintf("rec-%d", f.nextID), Type: in.Type, Name: in.Name, Data: in.Value, TTL: in.TTL}
		f.store = append(f.store, s)
		writeJSON(w, map[string]any{"record": toWire(s)})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/records/"):
		id := strings.TrimPrefix(r.URL.Path, "/records/")
		var in wire
		if err := readJSON(r, &in); err != nil || in.ZoneID != hetznerZoneID {
			writeStatus(w, http.StatusUnprocessableEntity, map[string]any{"error": map[string]any{"message": "zone_id is invalid", "code": 422}})
			return
		}
		for i := range f.store {
			if f.store[i].ID == id {
				f.store[i] = storedRecord{ID: id, Type: in.Type, Name: in.Name, Data: in.Value, TTL: in.TTL}
				writeJSON(w, map[string]any{"record": toWire(f.store[i])})
				return
			}
		}
		writeStatus(w, http.StatusNotFound, map[string]any{"error": map[string]any{"message": "record not found", "code": 404}})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeHetzner) seed(r storedRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = fmt.Sprintf("rec-%d", f.nextID)
	f.store = append(f.store, r)
}

func (f *fakeHetzner) snapshot() ([]storedRecord, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storedRecord(nil), f.store...), append([]string(nil), f.calls...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeStatus(w, http.StatusOK, v)
}

func writeStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

type backend struct {
	name string
	fake func() fakeAPI
}

var backends = []backend{
	{name: "digitalocean", fake: func() fakeAPI { return &fakeDigitalOcean{} }},
	{name: "hetzner", fake: func() fakeAPI { return &fakeHetzner{} }},
}

// forEachBackend runs fn against every provider, each with a fresh fake.
func forEachBackend(t *testing.T, fn func(t *testing.T, fake fakeAPI, p dns.Provider)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fake := b.fake()
			srv := httptest.NewServer(fake)
			defer srv.Close()

			p, err := dns.NewProvider(b.name, logrtesting.NewTestLogger(t), map[string]string{
				"base_url": srv.URL,
				"api_key":  "test-key",
			})
			if err != nil {
				t.Fatalf("failed to create provider: %v", err)
			}
			fn(t, fake, p)
		})
	}
}

func countWrites(calls []string) int {
	n := 0
	for _, c := range calls {
		if strings.HasPrefix(c, "POST ") || strings.HasPrefix(c, "PUT ") {
			n++
		}
	}
	return n
}

func TestUpdateExistingRecord(t *testing.T) {
	forEachBackend(t, func(t *testing.T, fake fakeAPI, p dns.Provider) {
		fake.seed(storedRecord{Type: "A", Name: "@", Data: "1.1.1.1", TTL: 1800})

		req := dns.NewUpdateRecordRequest("example.com", dns.TypeA, "2.2.2.2")
		if err := p.UpdateRecord(context.Background(), req); err != nil {
			t.Fatalf("UpdateRecord: %v", err)
		}

		store, calls := fake.snapshot()
		if len(store) != 1 {
			t.Fatalf("expected 1 record, got %d", len(store))
		}
		if store[0].Data != "2.2.2.2" || store[0].TTL != 1800 || store[0].Name != "@" {
			t.Errorf("unexpected record after update: %+v", store[0])
		}
		if countWrites(calls) != 1 {
			t.Errorf("expected exactly one write, got calls %v", calls)
		}
	})
}

func TestCreateMissingRecord(t *testing.T) {
	forEachBackend(t, func(t *testing.T, fake fakeAPI, p dns.Provider) {
		fake.seed(storedRecord{Type: "A", Name: "@", Data: "1.1.1.1", TTL: 1800})

		req := dns.NewUpdateRecordRequest("example.com", dns.TypeA, "127.0.0.1")
		req.Subdomain = "non.existing.subdomain"
		if err := p.UpdateRecord(context.Background(), req); err != nil {
			t.Fatalf("UpdateRecord: %v", err)
		}

		store, calls := fake.snapshot()
		if len(store) != 2 {
			t.Fatalf("expected 2 records, got %d", len(store))
		}
		created := store[1]
		if created.Name != "non.existing.subdomain" || created.Data != "127.0.0.1" || created.TTL != 300 || created.Type != "A" {
			t.Errorf("unexpected created record: %+v", created)
		}
		// Creation is not read back.
		if last := calls[len(calls)-1]; !strings.HasPrefix(last, "POST ") {
			t.Errorf("expected the create to be the last call, got %v", calls)
		}
	})
}

func TestMissingRecordWithoutCreate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, fake fakeAPI, p dns.Provider) {
		req := dns.NewUpdateRecordRequest("example.com", dns.TypeAAAA, "2001:db8::1")
		req.Subdomain = "home"
		req.CreateIfNotExists = false

		err := p.UpdateRecord(context.Background(), req)
		if !errors.Is(err, apierror.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if want := "no record found on domain 'example.com' called 'home' with type 'AAAA'"; err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}

		_, calls := fake.snapshot()
		if countWrites(calls) != 0 {
			t.Errorf("expected no writes, got calls %v", calls)
		}
	})
}

func TestUpToDateAndForce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, fake fakeAPI, p dns.Provider) {
		fake.seed(storedRecord{Type: "A", Name: "vpn", Data: "10.0.0.1", TTL: 300})

		req := dns.NewUpdateRecordRequest("example.com", dns.TypeA, "10.0.0.1")
		req.Subdomain = "vpn"
		if err := p.UpdateRecord(context.Background(), req); err != nil {
			t.Fatalf("UpdateRecord: %v", err)
		}
		_, calls := fake.snapshot()
		if countWrites(calls) != 0 {
			t.Fatalf("expected no writes for an up to date record, got calls %v", calls)
		}

		req.ForceUpdate = true
		if err := p.UpdateRecord(context.Background(), req); err != nil {
			t.Fatalf("UpdateRecord (force): %v", err)
		}
		store, calls := fake.snapshot()
		if countWrites(calls) != 1 {
			t.Errorf("expected one forced write, got calls %v", calls)
		}
		if len(store) != 1 {
			t.Errorf("expected the forced write to keep a single record, got %d", len(store))
		}
	})
}

func TestUnknownDomain(t *testing.T) {
	forEachBackend(t, func(t *testing.T, fake fakeAPI, p dns.Provider) {
		err := p.UpdateRecord(context.Background(), dns.NewUpdateRecordRequest("unknown.org", dns.TypeA, "10.0.0.1"))
		if !errors.Is(err, apierror.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		_, calls := fake.snapshot()
		if len(calls) != 1 {
			t.Errorf("expected only the zone lookup, got calls %v", calls)
		}
	})
}

func TestWrongAPIKey(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			srv := httptest.NewServer(b.fake())
			defer srv.Close()

			p, err := dns.NewProvider(b.name, logrtesting.NewTestLogger(t), map[string]string{
				"base_url": srv.URL,
				"api_key":  "wrong-key",
			})
			if err != nil {
				t.Fatalf("failed to create provider: %v", err)
			}

			err = p.UpdateRecord(context.Background(), dns.NewUpdateRecordRequest("example.com", dns.TypeA, "10.0.0.1"))
			if !errors.Is(err, apierror.ErrAuthenticationFailed) {
				t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
			}
		})
	}
}

func TestFullLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, fake fakeAPI, p dns.Provider) {
		ctx := context.Background()
		req := dns.NewUpdateRecordRequest("example.com", dns.TypeA, "192.0.2.1")
		req.Subdomain = "web"

		// 1. Create
		if err := p.UpdateRecord(ctx, req); err != nil {
			t.Fatalf("step 1 create: %v", err)
		}
		// 2. Repeat, no write
		if err := p.UpdateRecord(ctx, req); err != nil {
			t.Fatalf("step 2 repeat: %v", err)
		}
		// 3. Address changes
		req.Data = "192.0.2.2"
		if err := p.UpdateRecord(ctx, req); err != nil {
			t.Fatalf("step 3 update: %v", err)
		}
		// 4. TTL changes
		req.TTL = 60
		if err := p.UpdateRecord(ctx, req); err != nil {
			t.Fatalf("step 4 ttl: %v", err)
		}

		store, calls := fake.snapshot()
		if len(store) != 1 {
			t.Fatalf("expected 1 record, got %d", len(store))
		}
		if store[0].Data != "192.0.2.2" || store[0].TTL != 60 {
			t.Errorf("unexpected final record %+v", store[0])
		}
		if countWrites(calls) != 3 {
			t.Errorf("expected 3 writes, got calls %v", calls)
		}
	})
}
