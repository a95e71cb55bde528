package database

import (
	"gorm.io/gorm"
)

type AssignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo() *AssignmentRepo {
	return &AssignmentRepo{db: DB}
}

type AssignmentFilter struct {
	PageFilter
	OwnerID uint
	Class   string
	Keyword string
}

func (r *AssignmentRepo) Create(a *Assignment) error {
	return r.db.Create(a).Error
}

func (r *AssignmentRepo) List(filter AssignmentFilter) ([]Assignment, int64, error) {
	var list []Assignment
	var total int64

	q := r.db.Model(&Assignment{}).Where("owner_id = ?", filter.OwnerID)
	if filter.Class != "" {
		q = q.Where("class = ?", filter.Class)
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		q = q.Where("name LIKE ? OR extracted_text LIKE ?", kw, kw)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := filter.Offset()
	err := q.Order("updated_at desc, id desc").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&list).Error
	return list, total, err
}

// Get returns the assignment only when it belongs to owner.
func (r *AssignmentRepo) Get(id, owner uint) (*Assignment, error) {
	var a Assignment
	if err := r.db.Where("id = ? AND owner_id = ?", id, owner).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepo) Update(a *Assignment) error {
	return r.db.Save(a).Error
}

// Delete removes the owner's assignment. Missing rows yield gorm.ErrRecordNotFound.
func (r *AssignmentRepo) Delete(id, owner uint) error {
	res := r.db.Where("id = ? AND owner_id = ?", id, owner).Delete(&Assignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AssignmentRepo) Count(owner uint) (int64, error) {
	var count int64
	err := r.db.Model(&Assignment{}).Where("owner_id = ?", owner).Count(&count).Error
	return count, err
}
