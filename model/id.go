package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ID is a record identifier tagged as either device-local or
// server-assigned. Local ids exist only on the capturing device; a server
// id is authoritative. The tag is part of the stored value, so an unsynced
// local id can never be mistaken for one the authority knows about.
type ID struct {
	value  string
	remote bool
}

const (
	localPrefix  = "local:"
	remotePrefix = "srv:"
)

// NewLocalID generates a device-local id. ULIDs are time-ordered and
// collision-free across uncoordinated devices.
func NewLocalID() ID {
	return ID{value: ulid.Make().String()}
}

func LocalID(value string) ID {
	return ID{value: value}
}

func RemoteID(value string) ID {
	return ID{value: value, remote: true}
}

// String returns the untagged identifier value as sent over the wire.
func (id ID) String() string {
	return id.value
}

func (id ID) IsRemote() bool {
	return id.remote
}

func (id ID) IsZero() bool {
	return id.value == ""
}

// ParseID reads an id in its tagged form ("local:..." or "srv:...").
// A bare value is taken as local, matching what operators see printed.
func ParseID(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("empty record id")
	}
	if !strings.HasPrefix(s, localPrefix) && !strings.HasPrefix(s, remotePrefix) {
		return LocalID(s), nil
	}
	return decodeID(s)
}

func (id ID) encode() string {
	if id.value == "" {
		return ""
	}
	if id.remote {
		return remotePrefix + id.value
	}
	return localPrefix + id.value
}

func decodeID(s string) (ID, error) {
	switch {
	case s == "":
		return ID{}, nil
	case strings.HasPrefix(s, remotePrefix):
		return RemoteID(strings.TrimPrefix(s, remotePrefix)), nil
	case strings.HasPrefix(s, localPrefix):
		return LocalID(strings.TrimPrefix(s, localPrefix)), nil
	}
	return ID{}, fmt.Errorf("malformed record id %q", s)
}

func (id ID) Value() (driver.Value, error) {
	if id.value == "" {
		return nil, nil
	}
	return id.encode(), nil
}

func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = ID{}
		return nil
	case string:
		decoded, err := decodeID(v)
		if err != nil {
			return err
		}
		*id = decoded
		return nil
	case []byte:
		return id.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into ID", src)
}

func (ID) GormDataType() string {
	return "text"
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.encode())
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := decodeID(s)
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}

// IDList is an ordered list of ids persisted as a single JSON text column.
type IDList []ID

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IDList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return l.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into IDList", src)
}

func (IDList) GormDataType() string {
	return "text"
}

func (l IDList) Contains(id ID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
