package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	stdsync "sync"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "drillwatch.org/drillwatch/api/v1"
	"drillwatch.org/drillwatch/capture"
	"drillwatch.org/drillwatch/infrastructure/filesystem"
	"drillwatch.org/drillwatch/model"
	"drillwatch.org/drillwatch/store"
	"drillwatch.org/drillwatch/utils"
)

// fakeAuthority implements the remote sync contract: localId-keyed dedup,
// created/duplicate statuses, referential checks on eventId, blob uploads.
type fakeAuthority struct {
	mu        stdsync.Mutex
	seen      map[string]string // localId -> serverId
	assigned  map[string]bool   // every serverId ever handed out
	events    map[string]bool   // known server event ids
	media     map[string]bool   // known server media ids
	requests  []string          // "<entity>:<localId>" in arrival order
	failures  map[string]int    // localId -> remaining 503 replies
	rejected  map[string]bool   // localId -> always reply 422
	blobs     map[string][]byte // serverId -> blob content
	nextID    int
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		seen:     map[string]string{},
		assigned: map[string]bool{},
		events:   map[string]bool{},
		media:    map[string]bool{},
		failures: map[string]int{},
		rejected: map[string]bool{},
		blobs:    map[string][]byte{},
	}
}

func (a *fakeAuthority) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"pong"}`))
	})
	mux.HandleFunc("POST /api/v1/sync/{entity}", a.push)
	mux.HandleFunc("PUT /api/v1/media/{id}/blob", a.blob)
	return mux
}

func (a *fakeAuthority) push(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entity := r.PathValue("entity")
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	localID, _ := body["localId"].(string)
	a.requests = append(a.requests, entity+":"+localID)

	if a.failures[localID] > 0 {
		a.failures[localID]--
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"code": "unavailable", "message": "try later"})
		return
	}
	if a.rejected[localID] {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"code": "invalid_record", "message": "rejected by authority"})
		return
	}

	// Children must arrive after their event has a server id.
	if eventID, ok := body["eventId"].(string); ok {
		if !a.events[eventID] {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{
				"code":    "unknown_event",
				"message": fmt.Sprintf("event %s not registered", eventID),
			})
			return
		}
	}

	if serverID, ok := a.seen[localID]; ok {
		json.NewEncoder(w).Encode(v1.PushResult{ServerID: serverID, Status: v1.PushDuplicate})
		return
	}
	// A device that already adopted a server id resends under that id.
	if a.assigned[localID] {
		json.NewEncoder(w).Encode(v1.PushResult{ServerID: localID, Status: v1.PushDuplicate})
		return
	}

	a.nextID++
	serverID := fmt.Sprintf("srv-%d", a.nextID)
	a.seen[localID] = serverID
	a.assigned[serverID] = true
	switch entity {
	case "events":
		a.events[serverID] = true
	case "media":
		a.media[serverID] = true
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(v1.PushResult{ServerID: serverID, Status: v1.PushCreated})
}

func (a *fakeAuthority) blob(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := r.PathValue("id")
	if !a.media[id] {
		http.Error(w, "unknown media", http.StatusNotFound)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)
	a.blobs[id] = content
	w.Write([]byte(`{}`))
}

func (a *fakeAuthority) requestLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

type stubConnectivity bool

func (c stubConnectivity) Online(context.Context) bool { return bool(c) }

type fixture struct {
	store      *store.Store
	session    *capture.Session
	reconciler *Reconciler
	authority  *fakeAuthority
	server     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)

	blobs, err := filesystem.NewLocalFilesystem(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	authority := newFakeAuthority()
	server := httptest.NewServer(authority.handler())
	t.Cleanup(server.Close)

	session := capture.NewSession(st, blobs, capture.FixedLocation{Lat: 28.6150, Lon: 77.2100, AccuracyM: 10})

	r := NewReconciler(st, v1.NewClient(server.URL, "test-token"), stubConnectivity(true), blobs)
	r.BackoffBase = time.Millisecond

	return &fixture{store: st, session: session, reconciler: r, authority: authority, server: server}
}

func (f *fixture) createEvent(t *testing.T) *model.Event {
	t.Helper()
	ev, err := f.session.CreateEvent(capture.EventInput{
		Name:                 "Flood response mock drill",
		Type:                 "mock_drill",
		ScheduledDate:        utils.MustParseDate("2026-02-10"),
		AllowedLat:           28.6139,
		AllowedLon:           77.2090,
		AllowedRadiusM:       500,
		ExpectedParticipants: 40,
	})
	require.NoError(t, err)
	return ev
}

func TestReconcileDrainsEverything(t *testing.T) {
	f := newFixture(t)
	ev := f.createEvent(t)

	med, err := f.session.AttachMedia(context.Background(), capture.MediaInput{
		EventID: ev.ID,
		Kind:    model.MediaPhoto,
		Content: strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)

	_, err = f.session.RecordAttendance(capture.AttendanceInput{
		EventID: ev.ID, TraineeID: "TR-1001", Status: model.Present, Method: model.MethodQR,
	})
	require.NoError(t, err)

	rep, err := f.session.SubmitDailyReport(context.Background(), capture.ReportInput{
		EventID:   ev.ID,
		DayNumber: 1,
		PhotoRefs: []model.ID{med.ID},
	})
	require.NoError(t, err)

	sum, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 4}, sum)

	counts, err := f.store.UnsyncedCounts()
	require.NoError(t, err)
	for kind, n := range counts {
		assert.Zero(t, n, "kind %s still has unsynced records", kind)
	}

	// The event id was remapped; the report now references the server ids
	// for both the event and the photo.
	serverEventID := model.RemoteID(f.authority.seen[ev.ID.String()])
	gotEv, err := f.store.GetEvent(serverEventID)
	require.NoError(t, err)
	assert.True(t, gotEv.Synced)

	serverMediaID := model.RemoteID(f.authority.seen[med.ID.String()])
	serverReportID := model.RemoteID(f.authority.seen[rep.ID.String()])
	gotRep, err := f.store.GetReport(serverReportID)
	require.NoError(t, err)
	assert.Equal(t, serverEventID, gotRep.EventID)
	require.Len(t, gotRep.PhotoRefs, 1)
	assert.Equal(t, serverMediaID, gotRep.PhotoRefs[0])

	// Blob arrived with the metadata's server id.
	assert.Equal(t, []byte("jpeg-bytes"), f.authority.blobs[serverMediaID.String()])

	// Parent-first: the event uploads before any child, media before the
	// report that references it.
	log := f.authority.requestLog()
	require.Len(t, log, 4)
	assert.True(t, strings.HasPrefix(log[0], "events:"))
	assert.True(t, strings.HasPrefix(log[1], "media:"))
	assert.True(t, strings.HasPrefix(log[3], "reports:"))
}

func TestReconcileTransientFailureLeavesRecordPending(t *testing.T) {
	f := newFixture(t)
	ev := f.createEvent(t)

	var atts []*model.Attendance
	for _, trainee := range []string{"TR-1", "TR-2", "TR-3"} {
		att, err := f.session.RecordAttendance(capture.AttendanceInput{
			EventID: ev.ID, TraineeID: trainee, Status: model.Present, Method: model.MethodManual,
		})
		require.NoError(t, err)
		atts = append(atts, att)
	}

	// The 2nd record fails with 503 on every attempt of the first pass.
	f.reconciler.MaxAttempts = 2
	f.authority.failures[atts[1].ID.String()] = 2

	sum, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 3, Deferred: 1}, sum) // event + 2 attendance

	pending, err := f.store.ListUnsyncedAttendance()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, atts[1].ID, pending[0].ID)
	assert.False(t, pending[0].SyncFailed, "transient failure is not terminal")

	// The follow-up pass retries only the deferred record.
	before := len(f.authority.requestLog())
	sum, err = f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 1}, sum)
	assert.Equal(t, before+1, len(f.authority.requestLog()))
}

func TestReconcilePermanentRejectionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ev := f.createEvent(t)

	att, err := f.session.RecordAttendance(capture.AttendanceInput{
		EventID: ev.ID, TraineeID: "TR-1", Status: model.Present, Method: model.MethodQR,
	})
	require.NoError(t, err)
	f.authority.rejected[att.ID.String()] = true

	var statuses []RecordStatus
	f.reconciler.OnRecord = func(st RecordStatus) { statuses = append(statuses, st) }

	sum, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 1, Rejected: 1}, sum)

	got, err := f.store.GetAttendance(att.ID)
	require.NoError(t, err)
	assert.True(t, got.SyncFailed)
	assert.Contains(t, got.SyncError, "invalid_record")

	// Never auto-retried.
	before := len(f.authority.requestLog())
	sum, err = f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Equal(t, before, len(f.authority.requestLog()))

	rejected := utils.Filter(statuses, func(st RecordStatus) bool { return st.Outcome == OutcomeRejected })
	require.Len(t, rejected, 1)
	assert.Equal(t, att.ID, rejected[0].ID)
}

func TestReconcileReplayAfterCrashGetsDuplicate(t *testing.T) {
	f := newFixture(t)
	ev := f.createEvent(t)

	// Simulate a crash after remote accept but before the local mark: the
	// authority already knows this localId, the device does not know that.
	f.authority.mu.Lock()
	f.authority.nextID++
	serverID := fmt.Sprintf("srv-%d", f.authority.nextID)
	f.authority.seen[ev.ID.String()] = serverID
	f.authority.assigned[serverID] = true
	f.authority.events[serverID] = true
	f.authority.mu.Unlock()

	var statuses []RecordStatus
	f.reconciler.OnRecord = func(st RecordStatus) { statuses = append(statuses, st) }

	sum, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 1}, sum)

	require.Len(t, statuses, 1)
	assert.Equal(t, serverID, statuses[0].ServerID)

	got, err := f.store.GetEvent(model.RemoteID(serverID))
	require.NoError(t, err)
	assert.True(t, got.Synced, "duplicate reply still completes the local transition")
}

func TestReconcileResendUnderServerIDDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)

	// The device holds a record that already carries the server id but is
	// still pending, e.g. the database was restored from a backup taken
	// after an earlier pass completed. The resend goes out with the server
	// id as its localId; the authority must answer duplicate, never mint a
	// second event.
	f.authority.mu.Lock()
	f.authority.nextID++
	serverID := fmt.Sprintf("srv-%d", f.authority.nextID)
	f.authority.events[serverID] = true
	f.authority.assigned[serverID] = true
	f.authority.mu.Unlock()

	ev := &model.Event{
		ID:                   model.RemoteID(serverID),
		Name:                 "Flood response mock drill",
		Type:                 "mock_drill",
		ScheduledDate:        utils.MustParseDate("2026-02-10"),
		AllowedLat:           28.6139,
		AllowedLon:           77.2090,
		AllowedRadiusM:       500,
		ExpectedParticipants: 40,
		Status:               model.EventActive,
		CreatedAt:            time.Now().UTC(),
	}
	require.NoError(t, f.store.Put(ev))

	sum, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 1}, sum)

	f.authority.mu.Lock()
	remoteEvents := len(f.authority.events)
	f.authority.mu.Unlock()
	assert.Equal(t, 1, remoteEvents, "resend must resolve to the existing row")

	got, err := f.store.GetEvent(model.RemoteID(serverID))
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.Equal(t, model.RemoteID(serverID), got.ID)
}

func TestReconcileOfflineIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.createEvent(t)

	f.reconciler.conn = stubConnectivity(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.reconciler.Run(ctx) }()

	f.reconciler.Trigger()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, f.authority.requestLog())
	counts, err := f.store.UnsyncedCounts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.KindEvent])
}

func TestRunOncePassesAreExclusive(t *testing.T) {
	f := newFixture(t)

	f.reconciler.mu.Lock()
	defer f.reconciler.mu.Unlock()

	_, err := f.reconciler.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrPassInFlight)

	// The lost pass was coalesced into a pending trigger.
	select {
	case <-f.reconciler.trigger:
	default:
		t.Fatal("expected a coalesced trigger")
	}
}

func TestTriggerCoalesces(t *testing.T) {
	f := newFixture(t)

	f.reconciler.Trigger()
	f.reconciler.Trigger()
	f.reconciler.Trigger()

	n := 0
	for {
		select {
		case <-f.reconciler.trigger:
			n++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, n)
}

func TestReconcileMissingBlobIsPermanent(t *testing.T) {
	f := newFixture(t)
	ev := f.createEvent(t)

	med, err := f.session.AttachMedia(context.Background(), capture.MediaInput{
		EventID: ev.ID,
		Kind:    model.MediaPhoto,
		Content: strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)

	// Lose the blob before sync.
	med.BlobRef = "gone.jpg"
	require.NoError(t, f.store.Put(med))

	sum, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Synced: 1, Rejected: 1}, sum)

	got, err := f.store.GetMedia(med.ID)
	require.NoError(t, err)
	assert.True(t, got.SyncFailed)
}
