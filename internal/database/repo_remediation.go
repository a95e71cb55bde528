package database

import (
	"time"

	"gorm.io/gorm"
)

type RemediationRunRepo struct {
	db *gorm.DB
}

func NewRemediationRunRepo() *RemediationRunRepo {
	return &RemediationRunRepo{db: DB}
}

type RunFilter struct {
	PageFilter
	OwnerID   uint
	State     string
	Keyword   string
	SortOrder string
	StartTime string
	EndTime   string
}

func (r *RemediationRunRepo) Create(run *RemediationRun) error {
	return r.db.Create(run).Error
}

func (r *RemediationRunRepo) Save(run *RemediationRun) error {
	return r.db.Save(run).Error
}

func (r *RemediationRunRepo) GetByID(id uint) (*RemediationRun, error) {
	var run RemediationRun
	if err := r.db.First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// GetForOwner returns the run only when it belongs to owner.
func (r *RemediationRunRepo) GetForOwner(id, owner uint) (*RemediationRun, error) {
	var run RemediationRun
	if err := r.db.Where("id = ? AND owner_id = ?", id, owner).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RemediationRunRepo) List(filter RunFilter) ([]RemediationRun, int64, error) {
	var runs []RemediationRun
	var total int64

	q := r.db.Model(&RemediationRun{})
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.Keyword != "" {
		q = q.Where("file_name LIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.StartTime != "" {
		q = q.Where("created_at >= ?", filter.StartTime)
	}
	if filter.EndTime != "" {
		q = q.Where("created_at <= ?", filter.EndTime)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "desc"
	if filter.SortOrder == "asc" {
		order = "asc"
	}
	offset := filter.Offset()
	err := q.Order("created_at " + order + ", id " + order).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&runs).Error
	return runs, total, err
}

func (r *RemediationRunRepo) Recent(owner uint, limit int) ([]RemediationRun, error) {
	var runs []RemediationRun
	err := r.db.Where("owner_id = ?", owner).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *RemediationRunRepo) CountByState(owner uint, since time.Time) (map[string]int64, error) {
	type result struct {
		State string
		Count int64
	}
	var results []result
	err := r.db.Model(&RemediationRun{}).
		Select("state, count(*) as count").
		Where("owner_id = ? AND created_at >= ?", owner, since).
		Group("state").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(results))
	for _, row := range results {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// IssueTotals sums fixed, flagged and confirmed counts across the owner's runs.
func (r *RemediationRunRepo) IssueTotals(owner uint, since time.Time) (fixed, flagged, confirmed int64, err error) {
	var row struct {
		Fixed     int64
		Flagged   int64
		Confirmed int64
	}
	err = r.db.Model(&RemediationRun{}).
		Select("coalesce(sum(fixed_count),0) as fixed, coalesce(sum(flagged_count),0) as flagged, coalesce(sum(confirmed_count),0) as confirmed").
		Where("owner_id = ? AND created_at >= ?", owner, since).
		Scan(&row).Error
	return row.Fixed, row.Flagged, row.Confirmed, err
}
