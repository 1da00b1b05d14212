package store

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sqlc-dev/pqtype"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/repository"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Postgres is a subscription store backed by the subscriptions table.
type Postgres struct {
	queries *repository.Queries
}

// NewPostgres creates a store over the given queries.
func NewPostgres(queries *repository.Queries) *Postgres {
	return &Postgres{queries: queries}
}

// FindByEmailAndCourse returns the record for the pair, confirmed or not.
func (p *Postgres) FindByEmailAndCourse(ctx context.Context, email, courseID string) (*domain.Subscription, error) {
	row, err := p.queries.GetSubscriptionByEmailAndCourse(ctx, repository.GetSubscriptionByEmailAndCourseParams{
		Email:    email,
		CourseID: courseID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return toDomain(row), nil
}

// Insert writes a new pending record. The database assigns ID and CreatedAt.
func (p *Postgres) Insert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	row, err := p.queries.CreateSubscription(ctx, repository.CreateSubscriptionParams{
		Email:             sub.Email,
		CourseID:          sub.CourseID,
		CourseName:        sub.CourseName,
		ConfirmationToken: domain.ToNullString(sub.ConfirmationToken),
		SignupIp:          toInet(sub.SignupIP),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateSubscription
		}
		return nil, err
	}
	return toDomain(row), nil
}

// FindByToken returns the pending record matching all three values.
func (p *Postgres) FindByToken(ctx context.Context, email, courseID, token string) (*domain.Subscription, error) {
	if token == "" {
		return nil, domain.ErrSubscriptionNotFound
	}

	row, err := p.queries.GetPendingSubscriptionByToken(ctx, repository.GetPendingSubscriptionByTokenParams{
		Email:             email,
		CourseID:          courseID,
		ConfirmationToken: domain.ToNullString(token),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return toDomain(row), nil
}

// Confirm flips a pending record to confirmed and clears its token.
// Returns ErrSubscriptionNotFound when no pending row matched, which includes
// a row confirmed concurrently by another request.
func (p *Postgres) Confirm(ctx context.Context, email, courseID string) error {
	n, err := p.queries.ConfirmSubscription(ctx, repository.ConfirmSubscriptionParams{
		Email:    email,
		CourseID: courseID,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// FindStaleUnconfirmed lists pending records created before olderThan,
// oldest first.
func (p *Postgres) FindStaleUnconfirmed(ctx context.Context, olderThan time.Time) ([]domain.Subscription, error) {
	rows, err := p.queries.ListStaleUnconfirmedSubscriptions(ctx, olderThan)
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, *toDomain(row))
	}
	return subs, nil
}

// =============================================================================
// Conversion helpers
// =============================================================================

func toDomain(s repository.Subscription) *domain.Subscription {
	var signupIP string
	if s.SignupIp.Valid {
		signupIP = s.SignupIp.IPNet.IP.String()
	}

	return &domain.Subscription{
		ID:                s.ID,
		Email:             s.Email,
		CourseID:          s.CourseID,
		CourseName:        s.CourseName,
		ConfirmationToken: domain.NullStringValue(s.ConfirmationToken),
		IsConfirmed:       s.IsConfirmed,
		SignupIP:          signupIP,
		CreatedAt:         s.CreatedAt,
		ConfirmedAt:       domain.NullTimeValue(s.ConfirmedAt),
	}
}

// toInet converts a textual IP to a host-mask inet. Unparseable input is stored as NULL.
func toInet(ip string) pqtype.Inet {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return pqtype.Inet{}
	}

	bits := 128
	if v4 := parsed.To4(); v4 != nil {
		parsed = v4
		bits = 32
	}

	return pqtype.Inet{
		IPNet: net.IPNet{IP: parsed, Mask: net.CIDRMask(bits, bits)},
		Valid: true,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
