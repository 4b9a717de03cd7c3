package purchases

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/auth"
	"github.com/angelmondragon/ttml-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
)

type stubProfiles map[uuid.UUID]*models.Profile

func (s stubProfiles) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	return s[id], nil
}

func TestReceiptOwnership(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ownerID := uuid.New()
	coupon := "SAVE20"
	purchase := &models.Purchase{
		ID:              uuid.New(),
		UserID:          ownerID,
		SubscriptionID:  uuid.New(),
		Plan:            "annual-basic",
		Amount:          decimal.RequireFromString("1910.40"),
		DiscountPercent: 20,
		CouponCode:      &coupon,
		PaymentProvider: "stub",
		PaymentID:       "pay_stub_1",
		PaymentStatus:   "succeeded",
		CreatedAt:       time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), purchase))

	svc, err := NewService(ServiceParams{
		Repository:  repo,
		Profiles:    stubProfiles{ownerID: {ID: ownerID, FullName: "Dana Client", Email: "dana@example.com"}},
		PlanNamer:   func(string) (string, string) { return "Annual Basic", "$2388.00" },
		CompanyName: "Talk To My Lawyer",
	})
	require.NoError(t, err)

	body, err := svc.Receipt(context.Background(), auth.Actor{UserID: ownerID, Role: enums.RoleUser}, purchase.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	_, err = svc.Receipt(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.RoleUser}, purchase.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Receipt(context.Background(), auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, purchase.ID)
	assert.NoError(t, err)

	_, err = svc.Receipt(context.Background(), auth.Actor{UserID: ownerID, Role: enums.RoleUser}, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	rows, err := svc.ListForUser(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1910.40", rows[0].Amount.StringFixed(2))
}
