package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rcliao/lhn/internal/lhn"
	"github.com/rcliao/lhn/internal/model"
	"github.com/rcliao/lhn/internal/store"
)

const testMaxSequenceNumber = 10

type recorder struct {
	mu   sync.Mutex
	seen []lhn.Ordering
}

func (r *recorder) publish(o lhn.Ordering) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, o)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *recorder) last(t *testing.T) lhn.Ordering {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		t.Fatal("nothing published")
	}
	return r.seen[len(r.seen)-1]
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), store.Options{
		Collections: model.Collections,
	})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// startPipeline runs p until the test ends.
func startPipeline(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
}

func waitSynced(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func fakeReport(id string, participants ...string) map[string]any {
	if len(participants) == 0 {
		participants = []string{"email1@test.com", "email2@test.com"}
	}
	return map[string]any{
		"reportID":               id,
		"participants":           participants,
		"maxSequenceNumber":      testMaxSequenceNumber,
		"lastReadSequenceNumber": testMaxSequenceNumber,
	}
}

func with(r map[string]any, kv ...any) map[string]any {
	out := make(map[string]any, len(r)+len(kv)/2)
	for k, v := range r {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func js(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func multiSet(t *testing.T, s store.Store, values map[string]any) {
	t.Helper()
	raw := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		raw[k] = js(t, v)
	}
	if err := s.MultiSet(context.Background(), raw); err != nil {
		t.Fatalf("multiset: %v", err)
	}
}

func merge(t *testing.T, s store.Store, key string, v any) {
	t.Helper()
	if err := s.Merge(context.Background(), key, js(t, v)); err != nil {
		t.Fatalf("merge: %v", err)
	}
}

func TestExcludesReportWithNoParticipants(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	r := fakeReport("1")
	r["participants"] = []string{}
	multiSet(t, s, map[string]any{model.ReportKey("1"): r})
	waitSynced(t, p)

	if got := rec.last(t); len(got.ReportIDs) != 0 {
		t.Errorf("expected no reports, got %v", got.ReportIDs)
	}
}

func TestPolicyExpenseChatDependsOnBeta(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{
		model.KeyBetas:           []string{},
		model.ReportKey("1"):     with(fakeReport("1"), "chatType", model.ChatTypePolicyExpenseChat),
		model.KeyPersonalDetails: map[string]any{},
	})
	waitSynced(t, p)
	if got := rec.last(t); len(got.ReportIDs) != 0 {
		t.Fatalf("expected 0 reports without beta, got %v", got.ReportIDs)
	}

	multiSet(t, s, map[string]any{model.KeyBetas: []string{model.BetaPolicyExpenseChat}})
	waitSynced(t, p)
	if got := rec.last(t); len(got.ReportIDs) != 1 {
		t.Fatalf("expected 1 report with beta, got %v", got.ReportIDs)
	}
}

func TestBetaBeforeReport(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{model.KeyBetas: []string{model.BetaPolicyRooms}})
	waitSynced(t, p)
	multiSet(t, s, map[string]any{
		model.ReportKey("1"): with(fakeReport("1"), "chatType", model.ChatTypePolicyRoom),
	})
	waitSynced(t, p)

	if got := rec.last(t); !slices.Equal(got.ReportIDs, []model.ID{"1"}) {
		t.Fatalf("expected [1], got %v", got.ReportIDs)
	}
}

func TestDefaultRoomsDependOnBeta(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{
		model.KeyBetas:       []string{},
		model.ReportKey("1"): with(fakeReport("1"), "chatType", model.ChatTypePolicyAdmins),
		model.ReportKey("2"): with(fakeReport("2", "email3@test.com", "email4@test.com"), "chatType", model.ChatTypePolicyAnnounce),
		model.ReportKey("3"): with(fakeReport("3", "email5@test.com", "email6@test.com"), "chatType", model.ChatTypeDomainAll),
	})
	waitSynced(t, p)
	if got := rec.last(t); len(got.ReportIDs) != 0 {
		t.Fatalf("expected 0 reports, got %v", got.ReportIDs)
	}

	multiSet(t, s, map[string]any{model.KeyBetas: []string{model.BetaDefaultRooms}})
	waitSynced(t, p)
	if got := rec.last(t); len(got.ReportIDs) != 3 {
		t.Fatalf("expected 3 reports, got %v", got.ReportIDs)
	}
}

func TestDefaultRoomsOfFreePolicies(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{
		model.KeyBetas:       []string{},
		model.ReportKey("1"): with(fakeReport("1"), "chatType", model.ChatTypePolicyAdmins, "policyID", "1"),
		model.PolicyKey("1"): map[string]any{"policyID": "1", "type": model.PolicyTypeFree},
	})
	waitSynced(t, p)
	if got := rec.last(t); len(got.ReportIDs) != 1 {
		t.Fatalf("expected free policy room to show, got %v", got.ReportIDs)
	}

	merge(t, s, model.PolicyKey("1"), map[string]any{"type": model.PolicyTypeTeam})
	waitSynced(t, p)
	if got := rec.last(t); len(got.ReportIDs) != 0 {
		t.Fatalf("expected paid policy room to hide, got %v", got.ReportIDs)
	}
}

func TestFocusModeAndActiveReport(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{
		model.KeyPriorityMode:            model.PriorityModeFocus,
		model.KeyCurrentlyViewedReportID: "1",
		model.ReportKey("1"):             with(fakeReport("1"), "lastReadSequenceNumber", testMaxSequenceNumber-1, "lastMessageTimestamp", 300),
		model.ReportKey("2"):             with(fakeReport("2", "email3@test.com", "email4@test.com"), "lastReadSequenceNumber", testMaxSequenceNumber-1, "lastMessageTimestamp", 200),
		model.ReportKey("3"):             with(fakeReport("3", "email5@test.com", "email6@test.com"), "lastMessageTimestamp", 100),
	})
	waitSynced(t, p)
	// Report 1 is active and therefore read.
	if got := rec.last(t); !slices.Equal(got.ReportIDs, []model.ID{"2"}) {
		t.Fatalf("expected [2], got %v", got.ReportIDs)
	}

	merge(t, s, model.ReportKey("3"), map[string]any{"lastReadSequenceNumber": testMaxSequenceNumber - 1})
	waitSynced(t, p)
	if got := rec.last(t); !slices.Equal(got.ReportIDs, []model.ID{"2", "3"}) {
		t.Fatalf("expected [2 3], got %v", got.ReportIDs)
	}

	// Switching the active report re-evaluates both without other writes.
	merge(t, s, model.KeyCurrentlyViewedReportID, "2")
	waitSynced(t, p)
	if got := rec.last(t); !slices.Equal(got.ReportIDs, []model.ID{"1", "3"}) {
		t.Fatalf("expected [1 3], got %v", got.ReportIDs)
	}

	merge(t, s, model.ReportKey("1"), map[string]any{"lastReadSequenceNumber": testMaxSequenceNumber})
	waitSynced(t, p)
	if got := rec.last(t); !slices.Equal(got.ReportIDs, []model.ID{"3"}) {
		t.Fatalf("expected [3], got %v", got.ReportIDs)
	}
}

func TestDefaultModeOrdersUnreadFirst(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	p := New(s, rec.publish, Options{})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{
		model.ReportKey("1"): with(fakeReport("1"), "lastMessageTimestamp", 300),
		model.ReportKey("2"): with(fakeReport("2"), "lastMessageTimestamp", 100, "lastReadSequenceNumber", 1),
		model.ReportKey("3"): with(fakeReport("3"), "lastMessageTimestamp", 200),
	})
	waitSynced(t, p)

	got := rec.last(t)
	if !slices.Equal(got.ReportIDs, []model.ID{"2", "1", "3"}) {
		t.Fatalf("expected [2 1 3], got %v", got.ReportIDs)
	}
	if got.UnreadCount != 1 {
		t.Errorf("expected 1 unread, got %d", got.UnreadCount)
	}
}

func TestSkipsIdenticalPublication(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	m := NewMetrics(prometheus.NewRegistry())
	p := New(s, rec.publish, Options{Metrics: m})
	startPipeline(t, p)

	multiSet(t, s, map[string]any{model.ReportKey("1"): fakeReport("1")})
	waitSynced(t, p)
	before := rec.count()

	multiSet(t, s, map[string]any{
		model.KeySession:         map[string]any{"email": "email1@test.com"},
		model.KeyPersonalDetails: map[string]any{"email2@test.com": map[string]any{"firstName": "Two"}},
	})
	waitSynced(t, p)

	if rec.count() != before {
		t.Errorf("expected no new publication, got %d after %d", rec.count(), before)
	}
	if got := testutil.ToFloat64(m.Skipped); got < 1 {
		t.Errorf("expected a skipped publication, got %v", got)
	}
	if got := testutil.ToFloat64(m.Visible); got != 1 {
		t.Errorf("expected 1 visible report, got %v", got)
	}
}

func TestCoalescesChangesDuringPass(t *testing.T) {
	s := newTestStore(t)
	m := NewMetrics(prometheus.NewRegistry())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	rec := &recorder{}
	publish := func(o lhn.Ordering) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
		rec.publish(o)
	}

	p := New(s, publish, Options{Metrics: m})
	startPipeline(t, p)

	// Hold the initial pass inside publish.
	<-entered
	if p.State() != Recomputing {
		t.Errorf("expected recomputing, got %s", p.State())
	}
	for i := 1; i <= 5; i++ {
		id := string(rune('0' + i))
		multiSet(t, s, map[string]any{model.ReportKey(model.ID(id)): fakeReport(id)})
	}
	close(release)
	waitSynced(t, p)

	if got := testutil.ToFloat64(m.Passes); got != 2 {
		t.Errorf("expected 2 passes, got %v", got)
	}
	if got := testutil.ToFloat64(m.Coalesced); got != 4 {
		t.Errorf("expected 4 coalesced changes, got %v", got)
	}
	if got := rec.last(t); !slices.Equal(got.ReportIDs, []model.ID{"1", "2", "3", "4", "5"}) {
		t.Errorf("expected the latest state, got %v", got.ReportIDs)
	}
	if p.State() != Idle {
		t.Errorf("expected idle, got %s", p.State())
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) Subscribe(key string, fn func(store.Change)) *store.Subscription {
	return &store.Subscription{Key: key}
}

func (failingStore) Snapshot(ctx context.Context, keys, prefixes []string) (*store.Snapshot, error) {
	return nil, errors.New("disk unavailable")
}

func TestStoreFailureSurfaces(t *testing.T) {
	p := New(failingStore{}, nil, Options{})

	err := p.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk unavailable") {
		t.Fatalf("expected snapshot error, got %v", err)
	}
	if err := p.Sync(context.Background()); err == nil {
		t.Error("expected sync to report the failure")
	}
	if err := p.Run(context.Background()); err == nil {
		t.Error("expected second run to fail")
	}
}

func TestDecode(t *testing.T) {
	snap := &store.Snapshot{
		Values: map[string]json.RawMessage{
			model.KeyBetas:                   json.RawMessage(`["policyRooms"]`),
			model.KeyCurrentlyViewedReportID: json.RawMessage(`2`),
			model.KeyPriorityMode:            json.RawMessage(`"unknown"`),
			model.KeySession:                 json.RawMessage(`{"email":"me@test.com","accountID":9}`),
		},
		Collections: map[string]map[string]json.RawMessage{
			model.CollectionReport: {
				"report_2": json.RawMessage(`{"reportID":"999","participants":["a@test.com"]}`),
				"report_1": json.RawMessage(`{"participants":"not-a-list"}`),
				"report_3": json.RawMessage(`{"reportID":3}`),
			},
			model.CollectionPolicy: {
				"policy_1": json.RawMessage(`{"type":"free"}`),
			},
		},
	}

	st := Decode(snap, nil)
	if len(st.Reports) != 2 || st.Reports[0].ID != "2" || st.Reports[1].ID != "3" {
		t.Fatalf("unexpected reports %+v", st.Reports)
	}
	if st.Reports[1].HasParticipants() {
		t.Error("expected report without participants field to have none")
	}
	if st.ActiveReportID != "2" {
		t.Errorf("expected active report 2, got %q", st.ActiveReportID)
	}
	if st.PriorityMode != model.PriorityModeDefault {
		t.Errorf("expected default mode, got %q", st.PriorityMode)
	}
	if !st.Betas.Has(model.BetaPolicyRooms) {
		t.Error("expected policyRooms beta")
	}
	if st.Policies["1"].Type != model.PolicyTypeFree {
		t.Errorf("unexpected policies %+v", st.Policies)
	}
	if st.Session.AccountID != 9 {
		t.Errorf("unexpected session %+v", st.Session)
	}
}
