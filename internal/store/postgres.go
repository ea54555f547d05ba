package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// terminalStatusStrings is the terminal set as text, for <> ALL($n) filters.
func terminalStatusStrings() []string {
	terminal := models.TerminalStatuses()
	out := make([]string, len(terminal))
	for i, st := range terminal {
		out[i] = string(st)
	}
	return out
}

// --- Accounts ---

func (s *PostgresStore) GetDefaultAccount(ctx context.Context) (*models.Account, error) {
	var a models.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at, updated_at FROM accounts WHERE name = 'default' LIMIT 1`,
	).Scan(&a.ID, &a.Name, &a.Email, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default account: %w", err)
	}
	return &a, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.AccountID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, account_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.AccountID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, accountID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE account_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.AccountID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, accountID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND account_id = $2 AND deleted_at IS NULL`, id, accountID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Artists ---

func (s *PostgresStore) CreateArtist(ctx context.Context, artist *models.Artist) error {
	links, err := json.Marshal(artist.SocialLinks)
	if err != nil {
		return fmt.Errorf("marshal social links: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO artists (id, account_id, name, display_name, avatar_url, follower_count, social_links, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		artist.ID, artist.AccountID, artist.Name, artist.DisplayName, artist.AvatarURL,
		artist.FollowerCount, links, artist.CreatedAt, artist.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create artist: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	var a models.Artist
	var links, profile []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, name, display_name, avatar_url, follower_count, social_links, profile, created_at, updated_at
		 FROM artists WHERE id = $1`, id,
	).Scan(&a.ID, &a.AccountID, &a.Name, &a.DisplayName, &a.AvatarURL,
		&a.FollowerCount, &links, &profile, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &a.SocialLinks); err != nil {
			return nil, fmt.Errorf("unmarshal social links: %w", err)
		}
	}
	if len(profile) > 0 {
		a.Profile = &models.AggregatedProfile{}
		if err := json.Unmarshal(profile, a.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	return &a, nil
}

func (s *PostgresStore) MergeArtistAttributes(ctx context.Context, id uuid.UUID, attrs ArtistAttributes) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	if attrs.DisplayName != nil {
		sets = append(sets, fmt.Sprintf("display_name = $%d", argIdx))
		args = append(args, *attrs.DisplayName)
		argIdx++
	}
	if attrs.AvatarURL != nil {
		sets = append(sets, fmt.Sprintf("avatar_url = $%d", argIdx))
		args = append(args, *attrs.AvatarURL)
		argIdx++
	}
	if attrs.SocialLinks != nil {
		links, err := json.Marshal(attrs.SocialLinks)
		if err != nil {
			return fmt.Errorf("marshal social links: %w", err)
		}
		sets = append(sets, fmt.Sprintf("social_links = $%d", argIdx))
		args = append(args, links)
		argIdx++
	}

	query := fmt.Sprintf("UPDATE artists SET %s WHERE id = $1", strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("merge artist attributes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CommitAggregatedProfile(ctx context.Context, id uuid.UUID, profile *models.AggregatedProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	links, err := json.Marshal(profile.SocialLinks)
	if err != nil {
		return fmt.Errorf("marshal social links: %w", err)
	}

	// Single statement so readers never observe a half-written aggregate.
	tag, err := s.pool.Exec(ctx,
		`UPDATE artists SET
		   profile = $2,
		   display_name = COALESCE(NULLIF($3, ''), display_name),
		   avatar_url = COALESCE(NULLIF($4, ''), avatar_url),
		   follower_count = $5,
		   social_links = $6,
		   updated_at = NOW()
		 WHERE id = $1`,
		id, payload, profile.DisplayName, profile.AvatarURL, profile.FollowerCount, links)
	if err != nil {
		return fmt.Errorf("commit aggregated profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Social Handles ---

func (s *PostgresStore) UpsertSocialHandle(ctx context.Context, handle *models.SocialHandle) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO social_handles (artist_id, platform, handle, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (artist_id, platform) DO UPDATE SET
		   handle = EXCLUDED.handle,
		   updated_at = NOW()`,
		handle.ArtistID, handle.Platform, handle.Handle, handle.CreatedAt, handle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert social handle: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSocialHandles(ctx context.Context, artistID uuid.UUID) ([]*models.SocialHandle, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT artist_id, platform, handle, created_at, updated_at
		 FROM social_handles WHERE artist_id = $1 ORDER BY platform`, artistID)
	if err != nil {
		return nil, fmt.Errorf("list social handles: %w", err)
	}
	defer rows.Close()

	var handles []*models.SocialHandle
	for rows.Next() {
		var h models.SocialHandle
		if err := rows.Scan(&h.ArtistID, &h.Platform, &h.Handle, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan social handle: %w", err)
		}
		handles = append(handles, &h)
	}
	return handles, rows.Err()
}

// --- Analysis Jobs ---

func (s *PostgresStore) CreateAnalysisJob(ctx context.Context, job *models.AnalysisJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_jobs (job_id, artist_id, platform, status, progress, handle, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.JobID, job.ArtistID, job.Platform, job.Status, job.Progress, job.Handle,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create analysis job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysisJob(ctx context.Context, jobID uuid.UUID, platform models.Platform) (*models.AnalysisJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT job_id, artist_id, platform, status, progress, handle, result, created_at, updated_at
		 FROM analysis_jobs WHERE job_id = $1 AND platform = $2`, jobID, platform)
	job, err := scanAnalysisJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListJobsByRound(ctx context.Context, jobID uuid.UUID) ([]*models.AnalysisJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, artist_id, platform, status, progress, handle, result, created_at, updated_at
		 FROM analysis_jobs WHERE job_id = $1 ORDER BY platform`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by round: %w", err)
	}
	defer rows.Close()

	var jobs []*models.AnalysisJob
	for rows.Next() {
		job, err := scanAnalysisJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ApplyJobProgress is the single write path for worker progress. The WHERE
// guard makes terminality sticky at the row level: a late event against a
// terminal row affects zero rows and is reported as dropped.
func (s *PostgresStore) ApplyJobProgress(ctx context.Context, jobID uuid.UUID, platform models.Platform, update JobProgress) (bool, error) {
	var result []byte
	if update.Result != nil {
		var err error
		result, err = json.Marshal(update.Result)
		if err != nil {
			return false, fmt.Errorf("marshal result payload: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs SET
		   status = $3,
		   progress = $4,
		   result = COALESCE($5, result),
		   updated_at = NOW()
		 WHERE job_id = $1 AND platform = $2 AND status <> ALL($6)`,
		jobID, platform, update.Status, update.Progress, result, terminalStatusStrings())
	if err != nil {
		return false, fmt.Errorf("apply job progress: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Zero rows: either the row is terminal (event dropped) or it never existed.
	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analysis_jobs WHERE job_id = $1 AND platform = $2)`,
		jobID, platform).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check analysis job exists: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *PostgresStore) GetActiveJob(ctx context.Context, artistID uuid.UUID) (*models.AnalysisJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT job_id, artist_id, platform, status, progress, handle, result, created_at, updated_at
		 FROM analysis_jobs
		 WHERE artist_id = $1 AND status <> ALL($2)
		 ORDER BY updated_at DESC, job_id DESC, platform DESC
		 LIMIT 1`, artistID, terminalStatusStrings())
	job, err := scanAnalysisJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active job: %w", err)
	}
	return job, nil
}

func scanAnalysisJob(row pgx.Row) (*models.AnalysisJob, error) {
	var j models.AnalysisJob
	var result []byte
	if err := row.Scan(&j.JobID, &j.ArtistID, &j.Platform, &j.Status, &j.Progress, &j.Handle,
		&result, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		j.Result = &models.PlatformResult{}
		if err := json.Unmarshal(result, j.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result payload: %w", err)
		}
	}
	return &j, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
