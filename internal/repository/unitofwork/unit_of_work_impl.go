package unitofwork

import (
	"context"
	"fmt"

	"fanova-be/internal/repository/contract"
	"fanova-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // nil outside a transaction
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// Rollback is a no-op after Commit so it can always be deferred.
func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) ProfileRepository() contract.ProfileRepository {
	return implementation.NewProfileRepository(u.getDB())
}

func (u *UnitOfWorkImpl) PersonaRepository() contract.PersonaRepository {
	return implementation.NewPersonaRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GeneratedImageRepository() contract.GeneratedImageRepository {
	return implementation.NewGeneratedImageRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GenerationJobRepository() contract.GenerationJobRepository {
	return implementation.NewGenerationJobRepository(u.getDB())
}

func (u *UnitOfWorkImpl) CreditTransactionRepository() contract.CreditTransactionRepository {
	return implementation.NewCreditTransactionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ReferralRepository() contract.ReferralRepository {
	return implementation.NewReferralRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AdminActionRepository() contract.AdminActionRepository {
	return implementation.NewAdminActionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) PriceMappingRepository() contract.PriceMappingRepository {
	return implementation.NewPriceMappingRepository(u.getDB())
}

func (u *UnitOfWorkImpl) StripeEventRepository() contract.StripeEventRepository {
	return implementation.NewStripeEventRepository(u.getDB())
}
