package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizlink/workplace-console/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository      = (*PostgresUserRepo)(nil)
	_ CommunityRepository = (*PostgresCommunityRepo)(nil)
	_ PageRepository      = (*PostgresPageRepo)(nil)
	_ CallbackRepository  = (*PostgresCallbackRepo)(nil)
)

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, username, password_hash, workplace_id, community_id, created_at`

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash, workplace_id, community_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		user.ID, user.Username, user.PasswordHash, user.WorkplaceID, user.CommunityID,
	)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]domain.UserWithCommunity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.username, u.password_hash, u.workplace_id, u.community_id, u.created_at,
		        COALESCE(c.name, '')
		 FROM users u
		 LEFT JOIN communities c ON c.id = u.community_id
		 ORDER BY u.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserWithCommunity
	for rows.Next() {
		var u domain.UserWithCommunity
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.WorkplaceID, &u.CommunityID, &u.CreatedAt, &u.CommunityName); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) LinkWorkplace(ctx context.Context, userID int64, workplaceID, communityID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET workplace_id = $2, community_id = $3 WHERE id = $1`,
		userID, workplaceID, communityID,
	)
	if err != nil {
		return fmt.Errorf("link user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link user: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresUserRepo) Unlink(ctx context.Context, userID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET workplace_id = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("unlink user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unlink user: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresUserRepo) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.WorkplaceID, &u.CommunityID, &u.CreatedAt)
	return u, err
}

// PostgresCommunityRepo implements CommunityRepository.
type PostgresCommunityRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCommunityRepo(pool *pgxpool.Pool) *PostgresCommunityRepo {
	return &PostgresCommunityRepo{db: pool}
}

const communityColumns = `id, name, access_token, created_at, updated_at`

func (r *PostgresCommunityRepo) GetByID(ctx context.Context, id string) (domain.Community, error) {
	row := r.db.QueryRow(ctx, `SELECT `+communityColumns+` FROM communities WHERE id = $1`, id)
	community, err := scanCommunity(row)
	if err != nil {
		return domain.Community{}, fmt.Errorf("get community: %w", err)
	}
	return community, nil
}

func (r *PostgresCommunityRepo) List(ctx context.Context) ([]domain.Community, error) {
	rows, err := r.db.Query(ctx, `SELECT `+communityColumns+` FROM communities ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	defer rows.Close()

	var communities []domain.Community
	for rows.Next() {
		var c domain.Community
		if err := rows.Scan(&c.ID, &c.Name, &c.AccessToken, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan community: %w", err)
		}
		communities = append(communities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	return communities, nil
}

func (r *PostgresCommunityRepo) Create(ctx context.Context, community domain.Community) (domain.Community, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO communities (id, name, access_token)
		 VALUES ($1, $2, $3)
		 RETURNING `+communityColumns,
		community.ID, community.Name, community.AccessToken,
	)
	created, err := scanCommunity(row)
	if err != nil {
		return domain.Community{}, fmt.Errorf("create community: %w", err)
	}
	return created, nil
}

func (r *PostgresCommunityRepo) UpdateAccessToken(ctx context.Context, id, accessToken string) (domain.Community, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE communities SET access_token = $2, updated_at = now() WHERE id = $1
		 RETURNING `+communityColumns,
		id, accessToken,
	)
	updated, err := scanCommunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Community{}, fmt.Errorf("update community token: %w", domain.ErrNotFound)
		}
		return domain.Community{}, fmt.Errorf("update community token: %w", err)
	}
	return updated, nil
}

func scanCommunity(row pgx.Row) (domain.Community, error) {
	var c domain.Community
	err := row.Scan(&c.ID, &c.Name, &c.AccessToken, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// PostgresPageRepo implements PageRepository.
type PostgresPageRepo struct {
	db *pgxpool.Pool
}

func NewPostgresPageRepo(pool *pgxpool.Pool) *PostgresPageRepo {
	return &PostgresPageRepo{db: pool}
}

func (r *PostgresPageRepo) Create(ctx context.Context, page domain.Page) (domain.Page, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO pages (id, name, access_token, community_id, community_name, install_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, name, access_token, community_id, community_name, install_id, created_at`,
		page.ID, page.Name, page.AccessToken, page.CommunityID, page.CommunityName, page.InstallID,
	)
	var created domain.Page
	if err := row.Scan(
		&created.ID,
		&created.Name,
		&created.AccessToken,
		&created.CommunityID,
		&created.CommunityName,
		&created.InstallID,
		&created.CreatedAt,
	); err != nil {
		return domain.Page{}, fmt.Errorf("create page: %w", err)
	}
	return created, nil
}

// PostgresCallbackRepo implements CallbackRepository.
type PostgresCallbackRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCallbackRepo(pool *pgxpool.Pool) *PostgresCallbackRepo {
	return &PostgresCallbackRepo{db: pool}
}

func (r *PostgresCallbackRepo) Create(ctx context.Context, path, payload string) (domain.Callback, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO callbacks (path, payload) VALUES ($1, $2)
		 RETURNING id, path, payload, created_at`,
		path, payload,
	)
	var cb domain.Callback
	if err := row.Scan(&cb.ID, &cb.Path, &cb.Payload, &cb.CreatedAt); err != nil {
		return domain.Callback{}, fmt.Errorf("create callback: %w", err)
	}
	return cb, nil
}

func (r *PostgresCallbackRepo) List(ctx context.Context, pathContains string) ([]domain.Callback, error) {
	query := `SELECT id, path, payload, created_at FROM callbacks`
	args := []any{}
	if pathContains != "" {
		query += ` WHERE path LIKE '%' || $1 || '%'`
		args = append(args, pathContains)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list callbacks: %w", err)
	}
	defer rows.Close()

	var callbacks []domain.Callback
	for rows.Next() {
		var cb domain.Callback
		if err := rows.Scan(&cb.ID, &cb.Path, &cb.Payload, &cb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan callback: %w", err)
		}
		callbacks = append(callbacks, cb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list callbacks: %w", err)
	}
	return callbacks, nil
}

func (r *PostgresCallbackRepo) Purge(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM callbacks`); err != nil {
		return fmt.Errorf("purge callbacks: %w", err)
	}
	return nil
}
