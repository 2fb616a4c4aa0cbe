package dataaccess

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pgUniqueViolation is the Postgres error code for a unique constraint violation.
const pgUniqueViolation = "23505"

// Migrate applies the embedded migrations to the database behind the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("error setting migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("error applying migrations: %w", err)
	}
	return nil
}

// Store is the Postgres backed store for everything the bot persists.
type Store struct {
	TicketDal
	GuildDal
	BlacklistDal
}

// NewStore creates a new Store on the pool.
func NewStore(l *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{
		TicketDal:    NewTicketDal(l, pool),
		GuildDal:     NewGuildDal(l, pool),
		BlacklistDal: NewBlacklistDal(l, pool),
	}
}

// uniqueViolation returns the name of the violated constraint when the error is a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNull(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
