// Package sync drains locally-captured records to the remote authority.
// Each record moves Pending -> InFlight -> Synced, or back to Pending on a
// transient failure. InFlight exists only in memory: a crash mid-upload
// leaves the record Pending on disk and the authority's localId-keyed
// dedup absorbs the replay.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	v1 "drillwatch.org/drillwatch/api/v1"
	"drillwatch.org/drillwatch/infrastructure/filesystem"
	"drillwatch.org/drillwatch/model"
	"drillwatch.org/drillwatch/store"
)

// ErrPassInFlight is returned when a reconciliation pass is already
// running; the new request has been coalesced into a pending trigger.
var ErrPassInFlight = errors.New("reconciliation pass already in flight")

type Outcome string

const (
	// OutcomeSynced: the authority accepted the record (created or
	// duplicate) and the local row is marked synced.
	OutcomeSynced Outcome = "synced"
	// OutcomeDeferred: transient failure, the record stays Pending and
	// the next pass retries it.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeRejected: permanent remote rejection, terminal until a user
	// corrects the record.
	OutcomeRejected Outcome = "rejected"
)

// RecordStatus is delivered to OnRecord for every record a pass touches.
type RecordStatus struct {
	Kind     model.Kind
	ID       model.ID
	ServerID string
	Outcome  Outcome
	Err      error
}

type Summary struct {
	Synced   int
	Deferred int
	Rejected int
}

type Reconciler struct {
	store  *store.Store
	client *v1.Client
	conn   Connectivity
	blobs  filesystem.BlobStore

	// MaxAttempts bounds per-record upload attempts within one pass.
	MaxAttempts int
	// BackoffBase doubles between attempts.
	BackoffBase time.Duration
	// OnRecord, if set, receives per-record outcomes. Called from the
	// reconciliation goroutine; never from capture flows.
	OnRecord func(RecordStatus)
	// OnPass, if set, receives each completed pass.
	OnPass func(Summary, error)

	mu      stdsync.Mutex
	trigger chan struct{}
}

func NewReconciler(st *store.Store, client *v1.Client, conn Connectivity, blobs filesystem.BlobStore) *Reconciler {
	return &Reconciler{
		store:       st,
		client:      client,
		conn:        conn,
		blobs:       blobs,
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
		trigger:     make(chan struct{}, 1),
	}
}

// Trigger requests a reconciliation pass. Triggers arriving while a pass
// runs collapse into at most one follow-up pass.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run services triggers until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.trigger:
			if !r.conn.Online(ctx) {
				continue
			}
			sum, err := r.RunOnce(ctx)
			if errors.Is(err, ErrPassInFlight) {
				continue
			}
			if r.OnPass != nil {
				r.OnPass(sum, err)
			}
		}
	}
}

// RunOnce executes a single reconciliation pass. Capture operations
// proceed freely against the store while a pass is in flight; only a
// second pass is excluded.
func (r *Reconciler) RunOnce(ctx context.Context) (Summary, error) {
	if !r.mu.TryLock() {
		r.Trigger()
		return Summary{}, ErrPassInFlight
	}
	defer r.mu.Unlock()

	var sum Summary
	for _, kind := range model.SyncOrder {
		items, err := r.pending(kind)
		if err != nil {
			return sum, err
		}
		for _, it := range items {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			st := r.push(ctx, it)
			if r.OnRecord != nil {
				r.OnRecord(st)
			}
			switch st.Outcome {
			case OutcomeSynced:
				sum.Synced++
			case OutcomeDeferred:
				sum.Deferred++
			case OutcomeRejected:
				sum.Rejected++
			}
		}
	}
	return sum, nil
}

type item struct {
	kind    model.Kind
	id      model.ID
	payload any
	blobRef string
}

func (r *Reconciler) pending(kind model.Kind) ([]item, error) {
	switch kind {
	case model.KindEvent:
		events, err := r.store.ListUnsyncedEvents()
		if err != nil {
			return nil, err
		}
		items := make([]item, 0, len(events))
		for _, ev := range events {
			items = append(items, item{kind: kind, id: ev.ID, payload: eventPayload(ev)})
		}
		return items, nil
	case model.KindMedia:
		media, err := r.store.ListUnsyncedMedia()
		if err != nil {
			return nil, err
		}
		items := make([]item, 0, len(media))
		for _, med := range media {
			items = append(items, item{kind: kind, id: med.ID, payload: mediaPayload(med), blobRef: med.BlobRef})
		}
		return items, nil
	case model.KindAttendance:
		rows, err := r.store.ListUnsyncedAttendance()
		if err != nil {
			return nil, err
		}
		items := make([]item, 0, len(rows))
		for _, att := range rows {
			items = append(items, item{kind: kind, id: att.ID, payload: attendancePayload(att)})
		}
		return items, nil
	case model.KindReport:
		reports, err := r.store.ListUnsyncedReports()
		if err != nil {
			return nil, err
		}
		items := make([]item, 0, len(reports))
		for _, rep := range reports {
			items = append(items, item{kind: kind, id: rep.ID, payload: reportPayload(rep)})
		}
		return items, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// push moves one record through the state machine. The order on success
// is fixed: blob transfer (media only), then a single atomic completion
// that adopts the server id and marks the record synced. A crash before
// the completion leaves the record Pending under its local id and the
// next pass replays it against a deduplicating authority.
func (r *Reconciler) push(ctx context.Context, it item) RecordStatus {
	res, err := r.attempt(ctx, it)
	if err != nil {
		if isTransient(err) {
			return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeDeferred, Err: err}
		}
		if markErr := r.store.MarkFailed(it.kind, it.id, err.Error()); markErr != nil {
			return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeDeferred, Err: markErr}
		}
		return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeRejected, Err: err}
	}

	if it.kind == model.KindMedia {
		if st, ok := r.transferBlob(ctx, it, res.ServerID); !ok {
			return st
		}
	}

	serverID := model.RemoteID(res.ServerID)
	if err := r.store.CompleteSync(it.kind, it.id, serverID); err != nil {
		return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeDeferred, Err: err}
	}

	return RecordStatus{Kind: it.kind, ID: serverID, ServerID: res.ServerID, Outcome: OutcomeSynced}
}

func (r *Reconciler) transferBlob(ctx context.Context, it item, serverID string) (RecordStatus, bool) {
	blob, err := r.blobs.Open(ctx, it.blobRef)
	if err != nil {
		// The blob is gone locally and cannot be recaptured by retrying.
		reason := fmt.Sprintf("media blob %s unavailable: %v", it.blobRef, err)
		if markErr := r.store.MarkFailed(it.kind, it.id, reason); markErr != nil {
			return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeDeferred, Err: markErr}, false
		}
		return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeRejected, Err: err}, false
	}
	defer blob.Close()

	if err := r.client.Media.UploadBlob(ctx, serverID, it.blobRef, blob); err != nil {
		if isTransient(err) {
			// Metadata is already accepted remotely; the next pass gets a
			// duplicate for it and retries only the blob.
			return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeDeferred, Err: err}, false
		}
		if markErr := r.store.MarkFailed(it.kind, it.id, err.Error()); markErr != nil {
			return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeDeferred, Err: markErr}, false
		}
		return RecordStatus{Kind: it.kind, ID: it.id, Outcome: OutcomeRejected, Err: err}, false
	}
	return RecordStatus{}, true
}

// attempt uploads with bounded retries and exponential backoff. Only
// transient failures are retried; a permanent rejection returns
// immediately.
func (r *Reconciler) attempt(ctx context.Context, it item) (*v1.PushResult, error) {
	var lastErr error
	for n := 0; n < r.MaxAttempts; n++ {
		if n > 0 {
			if err := sleep(ctx, r.BackoffBase<<(n-1)); err != nil {
				return nil, err
			}
		}

		res, err := r.client.Sync.Push(ctx, it.kind, it.payload)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTransient classifies an upload failure. A 4xx reply is a permanent
// rejection of the record itself; everything else (network errors,
// timeouts, 5xx, local storage trouble) is retryable. Retrying can never
// duplicate a record thanks to localId-keyed dedup, while a wrong
// permanent verdict would strand one, so unknown failures lean transient.
func isTransient(err error) bool {
	var se *v1.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
