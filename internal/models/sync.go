package models

import "time"

// Sync queue action constants
const (
	SyncActionInsert = "INSERT"
	SyncActionUpdate = "UPDATE"
	SyncActionDelete = "DELETE"
)

// SyncQueueItem is one entry in the append-only mutation log. The payload is
// a snapshot taken at enqueue time; later mutations of the same record
// produce new items, never revisions of old ones. The persisted layout is
// shared with previously queued state and must not change.
type SyncQueueItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"not null" json:"action"`
	Table     string    `gorm:"column:table;not null;index" json:"table"`
	RecordID  string    `gorm:"not null;size:36" json:"record_id"`
	Payload   string    `gorm:"type:text" json:"payload"`
	Attempts  int       `gorm:"default:0" json:"attempts"`
	Processed bool      `gorm:"default:false;index" json:"processed"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for SyncQueueItem
func (SyncQueueItem) TableName() string {
	return "sync_queue"
}

// Sync conflict status constants
const (
	ConflictStatusPending  = "pending"
	ConflictStatusResolved = "resolved"
)

// Conflict resolution choice constants
const (
	ConflictChoiceLocal  = "local"
	ConflictChoiceRemote = "remote"
)

// SyncConflict records a local/remote divergence held for explicit manual
// resolution. Local state is not overwritten until the conflict is resolved.
type SyncConflict struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Table          string     `gorm:"column:table;not null;index" json:"table"`
	RecordID       string     `gorm:"not null;size:36" json:"record_id"`
	LocalSnapshot  string     `gorm:"type:text" json:"local_snapshot"`
	RemoteSnapshot string     `gorm:"type:text" json:"remote_snapshot"`
	Status         string     `gorm:"default:pending;not null;index" json:"status"`
	Resolution     *string    `json:"resolution"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for SyncConflict
func (SyncConflict) TableName() string {
	return "sync_conflicts"
}

// IsPending returns true while the conflict awaits explicit resolution
func (c *SyncConflict) IsPending() bool {
	return c.Status == ConflictStatusPending
}

// IDMapping maps a client-generated local id to the id the remote backend
// assigned on first push. Local records keep their id; lookups against
// remote state go through this table instead of rewriting ids in place.
type IDMapping struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Table     string    `gorm:"column:table;not null;uniqueIndex:ux_idmap_table_local,priority:1" json:"table"`
	LocalID   string    `gorm:"not null;uniqueIndex:ux_idmap_table_local,priority:2;size:36" json:"local_id"`
	RemoteID  string    `gorm:"not null;index;size:36" json:"remote_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for IDMapping
func (IDMapping) TableName() string {
	return "id_mappings"
}
