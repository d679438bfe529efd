package partners

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/refermate/partner-portal-backend/pkg/db/models"
)

// Repository handles partner and provider-account persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePartner(ctx context.Context, partner *models.Partner) error
	FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
	FindPartnerByEmail(ctx context.Context, email string) (*models.Partner, error)
	ListPartners(ctx context.Context) ([]models.Partner, error)
	CreateProviderAccount(ctx context.Context, account *models.ProviderAccount) error
	FindProviderAccountByPartnerID(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error)
	UpdateProviderAccount(ctx context.Context, account *models.ProviderAccount) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a partner repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePartner(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

func (r *repository) FindPartnerByID(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

func (r *repository) FindPartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&partner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

func (r *repository) ListPartners(ctx context.Context) ([]models.Partner, error) {
	var rows []models.Partner
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateProviderAccount(ctx context.Context, account *models.ProviderAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindProviderAccountByPartnerID(ctx context.Context, partnerID uuid.UUID) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	err := r.db.WithContext(ctx).Where("partner_id = ?", partnerID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateProviderAccount(ctx context.Context, account *models.ProviderAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}
