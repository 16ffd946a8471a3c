package billing

import (
	"errors"
	"time"

	"github.com/FitLifeApp/FitLife/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing subsystem.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByUUID(uuid string) (*models.User, error)
	GetOrCreateAccount(userID uint) (*models.MembershipAccount, error)
	GetAccountByUserID(userID uint) (*models.MembershipAccount, error)
	GetAccountByCustomerID(customerID string) (*models.MembershipAccount, error)
	SaveAccount(account *models.MembershipAccount) error
	CreateLedgerEntryIfNotExists(entry *models.PaymentLedgerEntry) (bool, error)
	ListLedgerEntriesByUser(userID uint) ([]models.PaymentLedgerEntry, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByUUID(uuid string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("uuid = ?", uuid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetOrCreateAccount(userID uint) (*models.MembershipAccount, error) {
	var account models.MembershipAccount
	err := r.db.Where("user_id = ?", userID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account = models.MembershipAccount{
		UserID: userID,
		Status: models.MEMBERSHIP_NONE,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&account).Error; err != nil {
		return nil, err
	}

	// Re-read to cover the concurrent-create case.
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) GetAccountByUserID(userID uint) (*models.MembershipAccount, error) {
	var account models.MembershipAccount
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) GetAccountByCustomerID(customerID string) (*models.MembershipAccount, error) {
	var account models.MembershipAccount
	if err := r.db.Where("stripe_customer_id = ? AND stripe_customer_id <> ''", customerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) SaveAccount(account *models.MembershipAccount) error {
	return r.db.Save(account).Error
}

func (r *gormRepository) CreateLedgerEntryIfNotExists(entry *models.PaymentLedgerEntry) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "invoice_id"},
			{Name: "outcome"},
		},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ListLedgerEntriesByUser(userID uint) ([]models.PaymentLedgerEntry, error) {
	var entries []models.PaymentLedgerEntry
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
