package pattern

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// DiscoveryRun is the persisted form of a discovery result. The full result
// is stored as a JSON document; the scalar columns exist for querying run
// history without unpacking the payload.
type DiscoveryRun struct {
	ID            uint           `gorm:"primaryKey"`
	RunID         string         `gorm:"uniqueIndex;size:64"`
	TotalPatients int            `gorm:"not null"`
	PatternCount  int            `gorm:"not null"`
	NoiseCount    int            `gorm:"not null"`
	Payload       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (DiscoveryRun) TableName() string {
	return "discovery_runs"
}

// Repository persists discovery runs to PostgreSQL.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&DiscoveryRun{})
}

func (r *Repository) SaveRun(result *models.DiscoveryResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	run := DiscoveryRun{
		RunID:         result.RunID,
		TotalPatients: result.TotalPatients,
		PatternCount:  len(result.Patterns),
		NoiseCount:    result.Noise,
		Payload:       datatypes.JSON(payload),
	}
	return r.db.Create(&run).Error
}

// LatestRun returns the most recent persisted discovery result, or nil when
// no run has been saved.
func (r *Repository) LatestRun() (*models.DiscoveryResult, error) {
	var run DiscoveryRun
	err := r.db.Order("created_at DESC").First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.DiscoveryResult
	if err := json.Unmarshal(run.Payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunHistory returns scalar summaries of the most recent runs, newest first.
func (r *Repository) RunHistory(limit int) ([]DiscoveryRun, error) {
	var runs []DiscoveryRun
	err := r.db.
		Select("id", "run_id", "total_patients", "pattern_count", "noise_count", "created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
