package database

import (
	"time"

	"gorm.io/gorm"
)

type BatchRepo struct {
	db *gorm.DB
}

func NewBatchRepo() *BatchRepo {
	return &BatchRepo{db: DB}
}

func (r *BatchRepo) CreateSession(s *BatchSession) error {
	return r.db.Create(s).Error
}

func (r *BatchRepo) GetSession(sessionID string) (*BatchSession, error) {
	var s BatchSession
	if err := r.db.Where(&BatchSession{SessionID: sessionID}).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *BatchRepo) SaveSession(s *BatchSession) error {
	return r.db.Save(s).Error
}

func (r *BatchRepo) SetState(sessionID, state string) error {
	return r.db.Model(&BatchSession{}).
		Where("session_id = ?", sessionID).
		Update("state", state).Error
}

// RecordKeepAlive stores the outcome of one keep-alive ping.
func (r *BatchRepo) RecordKeepAlive(sessionID string, failures int, at *time.Time) error {
	updates := map[string]interface{}{"keep_alive_failures": failures}
	if at != nil {
		updates["last_keep_alive"] = *at
	}
	return r.db.Model(&BatchSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates).Error
}

// Rename moves a session and its files to the id issued by the backend.
func (r *BatchRepo) Rename(oldID, newID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&BatchSession{}).Where("session_id = ?", oldID).Update("session_id", newID).Error; err != nil {
			return err
		}
		return tx.Model(&BatchFile{}).Where("session_id = ?", oldID).Update("session_id", newID).Error
	})
}

// AddFiles stores per-file results and bumps the session counters.
func (r *BatchRepo) AddFiles(sessionID string, files []BatchFile) error {
	if len(files) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range files {
			files[i].SessionID = sessionID
		}
		if err := tx.Create(&files).Error; err != nil {
			return err
		}
		return tx.Model(&BatchSession{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]interface{}{
				"file_count":    gorm.Expr("file_count + ?", len(files)),
				"last_activity": time.Now().UTC(),
			}).Error
	})
}

func (r *BatchRepo) ListFiles(sessionID string) ([]BatchFile, error) {
	var files []BatchFile
	err := r.db.Where("session_id = ?", sessionID).Order("id asc").Find(&files).Error
	return files, err
}

type BatchFilter struct {
	PageFilter
	OwnerID   uint
	State     string
	SortOrder string
	StartTime string
	EndTime   string
}

func (r *BatchRepo) ListSessions(filter BatchFilter) ([]BatchSession, int64, error) {
	var list []BatchSession
	var total int64

	q := r.db.Model(&BatchSession{})
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
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
		Find(&list).Error
	return list, total, err
}

// ExpireStale marks sessions left active by a previous process as expired.
func (r *BatchRepo) ExpireStale(state, expired string) (int64, error) {
	res := r.db.Model(&BatchSession{}).Where("state = ?", state).Update("state", expired)
	return res.RowsAffected, res.Error
}

func (r *BatchRepo) CountActive(owner uint, state string) (int64, error) {
	var count int64
	err := r.db.Model(&BatchSession{}).
		Where("owner_id = ? AND state = ?", owner, state).
		Count(&count).Error
	return count, err
}
