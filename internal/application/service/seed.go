package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

// SeedDefaultUser provisions one default account when the store is empty, so
// a fresh server is usable immediately. Existing data is never touched.
func SeedDefaultUser(ctx context.Context, store port.LedgerStore, startingBalance decimal.Decimal) error {
	n, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	id, err := store.CreateUser(ctx, &domain.User{
		Email:     "default@example.com",
		FirstName: "John",
		LastName:  "Doe",
		UserName:  "johndoe",
		Password:  "password",
		Balance:   startingBalance,
	})
	if err != nil {
		return err
	}

	log.Info().Int64("user_id", id).Str("balance", startingBalance.StringFixed(2)).Msg("no users found, default user created")
	return nil
}
