// Package storage implements the drone ops persistence contract with GORM
// on SQLite. Free-form mappings are stored as JSON-encoded TEXT columns and
// converted back to maps at the boundary (see converter.go).
package storage

import (
	"sync"
	"time"

	"github.com/skyward-ops/droneops/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteAdapter implements ports.OpsStore and ports.UserRepository.
type SQLiteAdapter struct {
	db *gorm.DB

	// sessionMu serializes active-session lookup against session creation
	// so that at most one session is ever active.
	sessionMu sync.Mutex
}

// SessionModel is the GORM model for collection sessions.
type SessionModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Mode      string
	Label     *string
	Operator  string
	Metadata  string // JSON encoded map
	StartedAt time.Time
	StoppedAt *time.Time `gorm:"index"`
	Summary   string     // JSON encoded map
}

func (SessionModel) TableName() string { return "drone_sessions" }

// DetectionModel is the GORM model for normalized detections.
// Upsert key is (session_id, source, identifier).
type DetectionModel struct {
	ID             int64 `gorm:"primaryKey;autoIncrement"`
	SessionID      *int64
	Source         string `gorm:"index"`
	Identifier     string `gorm:"index"`
	Classification string
	Confidence     float64
	Payload        string // JSON encoded map
	RemoteID       string // JSON encoded record, empty when absent
	FirstSeen      time.Time
	LastSeen       time.Time `gorm:"index"`
}

func (DetectionModel) TableName() string { return "drone_detections" }

// TrackModel is the GORM model for append-only track points.
type TrackModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	DetectionID int64 `gorm:"index"`
	Lat         float64
	Lon         float64
	AltitudeM   *float64
	SpeedMPS    *float64
	HeadingDeg  *float64
	Quality     *float64
	Source      string
	Timestamp   time.Time
}

func (TrackModel) TableName() string { return "drone_tracks" }

// CorrelationModel is the GORM model for drone/operator correlations.
type CorrelationModel struct {
	ID                 int64 `gorm:"primaryKey;autoIncrement"`
	DroneIdentifier    string
	OperatorIdentifier string
	Method             string
	Confidence         float64
	Evidence           string // JSON encoded map
	CreatedAt          time.Time
}

func (CorrelationModel) TableName() string { return "drone_correlations" }

// IncidentModel is the GORM model for incidents.
type IncidentModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Title     string
	Severity  string
	Status    string `gorm:"index"`
	OpenedBy  string
	OpenedAt  time.Time
	ClosedAt  *time.Time
	Summary   *string
	Metadata  string // JSON encoded map
	Artifacts []IncidentArtifactModel `gorm:"foreignKey:IncidentID"`
}

func (IncidentModel) TableName() string { return "drone_incidents" }

// IncidentArtifactModel is the GORM model for incident artifacts.
type IncidentArtifactModel struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	IncidentID   int64 `gorm:"index"`
	ArtifactType string
	ArtifactRef  string
	AddedBy      string
	AddedAt      time.Time
	Metadata     string // JSON encoded map
}

func (IncidentArtifactModel) TableName() string { return "drone_incident_artifacts" }

// ActionRequestModel is the GORM model for action requests.
type ActionRequestModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	IncidentID  int64 `gorm:"index"`
	ActionType  string
	RequestedBy string
	Payload     string // JSON encoded map
	Status      string `gorm:"index"`
	ExecutedBy  *string
	RequestedAt time.Time
	UpdatedAt   time.Time
	Approvals   []ActionApprovalModel `gorm:"foreignKey:RequestID"`
}

func (ActionRequestModel) TableName() string { return "action_requests" }

// ActionApprovalModel is the GORM model for per-approver verdicts.
type ActionApprovalModel struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	RequestID  int64 `gorm:"index"`
	ApprovedBy string
	Decision   string
	Notes      *string
	DecidedAt  time.Time
}

func (ActionApprovalModel) TableName() string { return "action_approvals" }

// ActionAuditModel is the GORM model for the append-only workflow audit log.
type ActionAuditModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	RequestID int64 `gorm:"index"`
	EventType string
	Actor     string
	Details   string // JSON encoded map
	CreatedAt time.Time
}

func (ActionAuditModel) TableName() string { return "action_audit_log" }

// ManifestModel is the GORM model for evidence manifests.
type ManifestModel struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	IncidentID int64 `gorm:"index"`
	Manifest   string // JSON encoded map, canonical body plus integrity
	HashAlgo   string
	Digest     string
	Signature  *string
	CreatedBy  string
	CreatedAt  time.Time
}

func (ManifestModel) TableName() string { return "evidence_manifests" }

// UserModel is the GORM model for control plane users.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	LastLogin    time.Time
}

func (UserModel) TableName() string { return "users" }

// NewSQLiteAdapter initializes the database and migrates the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&SessionModel{}, &DetectionModel{}, &TrackModel{}, &CorrelationModel{},
		&IncidentModel{}, &IncidentArtifactModel{},
		&ActionRequestModel{}, &ActionApprovalModel{}, &ActionAuditModel{},
		&ManifestModel{}, &UserModel{},
	); err != nil {
		return nil, err
	}

	// Upsert lookups hit (session_id, source, identifier) on every event.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_detections_upsert ON drone_detections(session_id, source, identifier)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_correlations_pair ON drone_correlations(drone_identifier, operator_identifier, method)")

	return &SQLiteAdapter{db: db}, nil
}

// Close releases the underlying connection pool.
func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var (
	_ ports.OpsStore       = (*SQLiteAdapter)(nil)
	_ ports.UserRepository = (*SQLiteAdapter)(nil)
)
