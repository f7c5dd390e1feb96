package unitofwork

import (
	"context"

	"fanova-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ProfileRepository() contract.ProfileRepository
	PersonaRepository() contract.PersonaRepository
	GeneratedImageRepository() contract.GeneratedImageRepository
	GenerationJobRepository() contract.GenerationJobRepository
	CreditTransactionRepository() contract.CreditTransactionRepository
	ReferralRepository() contract.ReferralRepository
	AdminActionRepository() contract.AdminActionRepository
	PriceMappingRepository() contract.PriceMappingRepository
	StripeEventRepository() contract.StripeEventRepository
}
