package repository

import (
	"context"

	"github.com/shinyyama/evolon-market/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactRepository interface {
	Upsert(ctx context.Context, uid, notifyToken string) error
	FindByUID(ctx context.Context, uid string) (*model.UserContact, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Upsert(ctx context.Context, uid, notifyToken string) error {
	q, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return q.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"notify_token", "updated_at"}),
	}).Create(&model.UserContact{UID: uid, NotifyToken: notifyToken}).Error
}

func (r *contactRepository) FindByUID(ctx context.Context, uid string) (*model.UserContact, error) {
	q, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var c model.UserContact
	if err := q.Where("uid = ?", uid).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
