package model

// Kind names an entity type as it appears in sync endpoint paths and in
// the store's per-type tables.
type Kind string

const (
	KindEvent      Kind = "events"
	KindReport     Kind = "reports"
	KindAttendance Kind = "attendance"
	KindMedia      Kind = "media"
)

// SyncOrder is the upload order for a reconciliation pass. Events carry the
// foreign keys everything else depends on; media precedes reports so that a
// report's photo refs are already remapped to server ids when the report
// itself uploads.
var SyncOrder = []Kind{KindEvent, KindMedia, KindAttendance, KindReport}

func (k Kind) Valid() bool {
	switch k {
	case KindEvent, KindReport, KindAttendance, KindMedia:
		return true
	}
	return false
}
