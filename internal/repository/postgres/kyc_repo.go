package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodpass/backoffice/internal/crypto"
	"github.com/goodpass/backoffice/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when a decision targets an unknown user.
var ErrUserNotFound = errors.New("user not found")

// KYCRepository implements storage for KYC review data. kyc_data payloads
// are encrypted at rest with the versioned field encryptor.
type KYCRepository struct {
	pool      *pgxpool.Pool
	encryptor *crypto.FieldEncryptor
}

// NewKYCRepository creates a new KYC repository
func NewKYCRepository(pool *pgxpool.Pool, encryptor *crypto.FieldEncryptor) *KYCRepository {
	return &KYCRepository{
		pool:      pool,
		encryptor: encryptor,
	}
}

// UsersNeedingKYC returns every user whose completion flag is false or
// unset, newest first.
func (r *KYCRepository) UsersNeedingKYC(ctx context.Context) ([]domain.UserProfile, error) {
	const query = `
		SELECT id, COALESCE(phone, ''), COALESCE(role, 'user'),
		       COALESCE(status, 'active'), COALESCE(is_kyc_completed, false), created_at
		FROM user_profiles
		WHERE is_kyc_completed = false OR is_kyc_completed IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users needing kyc: %w", err)
	}
	defer rows.Close()

	var users []domain.UserProfile
	for rows.Next() {
		var u domain.UserProfile
		if err := rows.Scan(&u.ID, &u.Phone, &u.Role, &u.Status, &u.IsKYCCompleted, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user profile: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// VerificationsByUsers returns the verification records for the given users.
func (r *KYCRepository) VerificationsByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.KYCVerification, error) {
	const query = `
		SELECT id, user_id, kyc_status, kyc_data, kyc_data_key_version, created_at, verified_at
		FROM kyc_verifications
		WHERE user_id = ANY($1)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query kyc verifications: %w", err)
	}
	defer rows.Close()

	var verifications []domain.KYCVerification
	for rows.Next() {
		var v domain.KYCVerification
		var encrypted *string
		var keyVersion *int
		if err := rows.Scan(&v.ID, &v.UserID, &v.Status, &encrypted, &keyVersion, &v.CreatedAt, &v.VerifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan kyc verification: %w", err)
		}
		if encrypted != nil && keyVersion != nil {
			data, err := r.encryptor.Decrypt(*encrypted, *keyVersion)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt kyc data for user %s: %w", v.UserID, err)
			}
			v.Data = data
		}
		verifications = append(verifications, v)
	}
	return verifications, rows.Err()
}

// DocumentsByUsers returns non-deleted supporting documents uploaded by the
// given users, newest first.
func (r *KYCRepository) DocumentsByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.SupportingDocument, error) {
	const query = `
		SELECT id, COALESCE(description, ''), file_url, file_type, file_size,
		       uploaded_at, uploaded_by, is_deleted
		FROM supporting_documents
		WHERE uploaded_by = ANY($1) AND is_deleted = false
		ORDER BY uploaded_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query supporting documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.SupportingDocument
	for rows.Next() {
		var d domain.SupportingDocument
		if err := rows.Scan(&d.ID, &d.Description, &d.FileURL, &d.FileType, &d.FileSize, &d.UploadedAt, &d.UploadedBy, &d.IsDeleted); err != nil {
			return nil, fmt.Errorf("failed to scan supporting document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Approve marks the user's verification verified and activates the profile.
// Both writes run in one transaction; a partial decision is never visible.
// A user with no verification row yet gets one, so queue entries shown
// before any submission can still be decided.
func (r *KYCRepository) Approve(ctx context.Context, userID uuid.UUID, verifiedAt time.Time) error {
	return r.decide(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE kyc_verifications
			SET kyc_status = $2, verified_at = $3
			WHERE user_id = $1
		`, userID, domain.KYCStatusVerified, verifiedAt)
		if err != nil {
			return fmt.Errorf("failed to update kyc verification: %w", err)
		}
		if tag.RowsAffected() == 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO kyc_verifications (user_id, kyc_status, verified_at, created_at)
				VALUES ($1, $2, $3, $3)
			`, userID, domain.KYCStatusVerified, verifiedAt)
			if err != nil {
				return fmt.Errorf("failed to insert kyc verification: %w", err)
			}
		}

		return r.updateProfile(ctx, tx, userID, true, domain.UserStatusActive)
	})
}

// Reject marks the user's verification rejected with the reason stored in
// the encrypted kyc_data payload, and suspends the profile. Atomic.
func (r *KYCRepository) Reject(ctx context.Context, userID uuid.UUID, reason string) error {
	payload, err := json.Marshal(map[string]string{"rejection_reason": reason})
	if err != nil {
		return fmt.Errorf("failed to marshal rejection payload: %w", err)
	}
	encrypted, keyVersion, err := r.encryptor.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt rejection payload: %w", err)
	}

	return r.decide(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE kyc_verifications
			SET kyc_status = $2, kyc_data = $3, kyc_data_key_version = $4
			WHERE user_id = $1
		`, userID, domain.KYCStatusRejected, encrypted, keyVersion)
		if err != nil {
			return fmt.Errorf("failed to update kyc verification: %w", err)
		}
		if tag.RowsAffected() == 0 {
			_, err = tx.Exec(ctx, `
				INSERT INTO kyc_verifications (user_id, kyc_status, kyc_data, kyc_data_key_version, created_at)
				VALUES ($1, $2, $3, $4, now())
			`, userID, domain.KYCStatusRejected, encrypted, keyVersion)
			if err != nil {
				return fmt.Errorf("failed to insert kyc verification: %w", err)
			}
		}

		return r.updateProfile(ctx, tx, userID, false, domain.UserStatusSuspended)
	})
}

// updateProfile flips the completion flag and status. The profile row is
// what anchors a decision; a missing row means the user does not exist.
func (r *KYCRepository) updateProfile(ctx context.Context, tx pgx.Tx, userID uuid.UUID, completed bool, status string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE user_profiles
		SET is_kyc_completed = $2, status = $3
		WHERE id = $1
	`, userID, completed, status)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *KYCRepository) decide(ctx context.Context, userID uuid.UUID, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit kyc decision for %s: %w", userID, err)
	}
	return nil
}
