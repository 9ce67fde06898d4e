package seed

import (
	"context"
	"fmt"

	"storefront-checkout/internal/domain"
	orderrepo "storefront-checkout/internal/repository/order"
	authsvc "storefront-checkout/internal/service/auth"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type userSeed struct {
	domain.User
	Password string
}

// DemoPassword is the password of every seeded user.
const DemoPassword = "demo1234"

// Apply inserts demo users and, for a user without orders, a small order history.
// It is idempotent via ON CONFLICT and the order-count check.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	users := []userSeed{
		{User: domain.User{Username: "ana", Name: "Ana Ruiz", Address: "Calle Mayor 12", City: "Madrid", PostalCode: "28013", Phone: "600111222", Email: "ana@example.com", Role: domain.RoleCustomer}, Password: DemoPassword},
		{User: domain.User{Username: "pedro", Name: "Pedro Gil", Email: "pedro@example.com", Role: domain.RoleCustomer}, Password: DemoPassword},
		{User: domain.User{Username: "admin", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin}, Password: DemoPassword},
	}

	ids := make(map[string]int64, len(users))
	for _, u := range users {
		id, err := upsertUser(ctx, pool, u)
		if err != nil {
			return fmt.Errorf("upsert user %s: %w", u.Username, err)
		}
		ids[u.Username] = id
	}

	if err := ensureOrders(ctx, pool, ids["ana"]); err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}
	return nil
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u userSeed) (int64, error) {
	hash, err := authsvc.HashPassword(u.Password)
	if err != nil {
		return 0, err
	}
	const q = `
INSERT INTO users (username, password_hash, name, address, city, postal_code, phone, email, role)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (username) DO UPDATE SET
    password_hash = EXCLUDED.password_hash,
    name = EXCLUDED.name,
    address = EXCLUDED.address,
    city = EXCLUDED.city,
    postal_code = EXCLUDED.postal_code,
    phone = EXCLUDED.phone,
    email = EXCLUDED.email,
    role = EXCLUDED.role
RETURNING id
`
	var id int64
	err = pool.QueryRow(ctx, q, u.Username, hash, u.Name, u.Address, u.City, u.PostalCode, u.Phone, u.Email, string(u.Role)).Scan(&id)
	return id, err
}

func ensureOrders(ctx context.Context, pool *pgxpool.Pool, userID int64) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	repo := orderrepo.NewPostgres(pool, nil)
	drafts := []domain.Order{
		domain.NewDraft(userID, domain.NewDate(2024, 3, 2), decimal.RequireFromString("24.98"), []domain.OrderLine{
			{ProductID: 1, Color: "Rojo", Quantity: 2, Name: "Camiseta básica"},
		}),
		domain.NewDraft(userID, domain.NewDate(2024, 5, 1), decimal.RequireFromString("17.49"), []domain.OrderLine{
			{ProductID: 2, Color: domain.DefaultColor, Quantity: 1, Name: "Taza cerámica"},
			{ProductID: 3, Color: "Azul", Quantity: 1, Name: "Gorra"},
		}),
	}
	for _, d := range drafts {
		if _, err := repo.Create(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
