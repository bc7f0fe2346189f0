package repository

import (
	"context"

	"helpdesk-go/internal/model"

	"gorm.io/gorm"
)

// RecordRepository 定义历史记录（推荐语料）的持久化操作。
type RecordRepository interface {
	Create(record *model.HistoricalRecord) error
	CreateBatch(records []model.HistoricalRecord) error
	FindWithPagination(offset, limit int) ([]model.HistoricalRecord, int64, error)
	Load(ctx context.Context) ([]model.HistoricalRecord, error)
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建一个新的 RecordRepository 实例。
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(record *model.HistoricalRecord) error {
	return r.db.Create(record).Error
}

// CreateBatch 分批写入，用于导入清洗后的数据集。
func (r *recordRepository) CreateBatch(records []model.HistoricalRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.CreateInBatches(records, 500).Error
}

func (r *recordRepository) FindWithPagination(offset, limit int) ([]model.HistoricalRecord, int64, error) {
	var records []model.HistoricalRecord
	var total int64

	db := r.db.Model(&model.HistoricalRecord{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("id").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Load 按主键顺序读取全部历史记录，使语料顺序稳定。
func (r *recordRepository) Load(ctx context.Context) ([]model.HistoricalRecord, error) {
	var records []model.HistoricalRecord
	err := r.db.WithContext(ctx).Order("id").Find(&records).Error
	return records, err
}
