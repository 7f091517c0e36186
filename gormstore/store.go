package gormstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devconnect-io/otpgate"
)

// Store implements [otpgate.AccountStore] on PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL, runs schema migration, and returns the store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	return New(db)
}

// New wraps an existing GORM handle. The handle must have TranslateError
// enabled so unique-constraint violations map to [gorm.ErrDuplicatedKey].
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gorm handle is required")
	}

	if err := db.AutoMigrate(&accountModel{}, &developerProfileModel{}, &mentorProfileModel{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// CreateAccount inserts the account row and exactly one profile row in a
// single transaction. A unique-constraint violation on email or username
// rolls back everything and reports [otpgate.ErrDuplicateAccount].
func (s *Store) CreateAccount(ctx context.Context, input otpgate.CreateAccountInput) (otpgate.Account, error) {
	skills, err := json.Marshal(input.Skills)
	if err != nil {
		return otpgate.Account{}, err
	}

	account := accountModel{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Username:     input.Username,
		FullName:     input.FullName,
		Phone:        input.Phone,
		Role:         string(input.Role),
		PasswordHash: input.PasswordHash,
		Verified:     input.Verified,
		Active:       input.Active,
		Approved:     input.Approved,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		switch input.Role {
		case otpgate.RoleMentor:
			return tx.Create(&mentorProfileModel{
				AccountID:         account.ID,
				Skills:            string(skills),
				YearsOfExperience: input.YearsOfExperience,
				ProofPath:         input.ProofPath,
			}).Error
		default:
			return tx.Create(&developerProfileModel{
				AccountID: account.ID,
				Skills:    string(skills),
			}).Error
		}
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return otpgate.Account{}, otpgate.ErrDuplicateAccount
		}
		return otpgate.Account{}, err
	}

	return toAccount(account), nil
}

// GetAccountByID returns the account or [otpgate.ErrAccountNotFound].
func (s *Store) GetAccountByID(ctx context.Context, accountID string) (otpgate.Account, error) {
	var model accountModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return otpgate.Account{}, otpgate.ErrAccountNotFound
		}
		return otpgate.Account{}, err
	}
	return toAccount(model), nil
}

// GetAccountByEmail returns the account or [otpgate.ErrAccountNotFound].
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (otpgate.Account, error) {
	var model accountModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return otpgate.Account{}, otpgate.ErrAccountNotFound
		}
		return otpgate.Account{}, err
	}
	return toAccount(model), nil
}

// UpdateMentorProofPath records the permanent proof location after the staged
// file has been moved.
func (s *Store) UpdateMentorProofPath(ctx context.Context, accountID, proofPath string) error {
	result := s.db.WithContext(ctx).
		Model(&mentorProfileModel{}).
		Where("account_id = ?", accountID).
		Update("proof_path", proofPath)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return otpgate.ErrAccountNotFound
	}
	return nil
}

func toAccount(model accountModel) otpgate.Account {
	return otpgate.Account{
		ID:           model.ID,
		Email:        model.Email,
		Username:     model.Username,
		FullName:     model.FullName,
		Phone:        model.Phone,
		Role:         otpgate.Role(model.Role),
		PasswordHash: model.PasswordHash,
		Verified:     model.Verified,
		Active:       model.Active,
		Approved:     model.Approved,
	}
}
