package keypair

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/jsonx"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS ppy_keypairs (
	secret     TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS ppy_keypair_keys (
	public_key TEXT PRIMARY KEY,
	secret     TEXT NOT NULL REFERENCES ppy_keypairs(secret) ON DELETE CASCADE
);`

// PgStore keeps keypairs in postgres. Records are stored already encoded.
type PgStore struct {
	db *sql.DB
}

// OpenPgStore connects with dsn and creates the tables if needed.
func OpenPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	if dsn == "" {
		return nil, errors.MissingInput("postgres keystore")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := NewPgStore(conn)
	if err := store.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func NewPgStore(conn *sql.DB) *PgStore {
	return &PgStore{db: conn}
}

func (p *PgStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate keystore: %w", err)
	}
	return nil
}

func (p *PgStore) Save(ctx context.Context, kp *Keypair) error {
	secret := kp.Secret()
	if secret == "" {
		return errors.MissingInput("save keypair")
	}
	record, err := jsonx.Marshal(kp)
	if err != nil {
		return fmt.Errorf("marshal keypair: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ppy_keypairs(secret, record) VALUES($1, $2)
		 ON CONFLICT (secret) DO UPDATE SET record = EXCLUDED.record`,
		secret, string(record)); err != nil {
		return fmt.Errorf("insert keypair: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ppy_keypair_keys WHERE secret = $1`, secret); err != nil {
		return fmt.Errorf("reset key index: %w", err)
	}
	for _, ref := range kp.PublicKeys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ppy_keypair_keys(public_key, secret) VALUES($1, $2)
			 ON CONFLICT (public_key) DO UPDATE SET secret = EXCLUDED.secret`,
			ref.Key, secret); err != nil {
			return fmt.Errorf("index public key: %w", err)
		}
	}
	return tx.Commit()
}

func (p *PgStore) Get(ctx context.Context, secret string) (*Keypair, error) {
	return p.scanOne(ctx, secret,
		`SELECT record FROM ppy_keypairs WHERE secret = $1`, secret)
}

func (p *PgStore) FindByPublicKey(ctx context.Context, pub string) (*Keypair, error) {
	return p.scanOne(ctx, pub,
		`SELECT k.record FROM ppy_keypairs k
		 JOIN ppy_keypair_keys i ON i.secret = k.secret
		 WHERE i.public_key = $1`, pub)
}

func (p *PgStore) List(ctx context.Context) ([]*Keypair, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT record FROM ppy_keypairs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Keypair
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		kp := &Keypair{}
		if err := jsonx.Unmarshal([]byte(record), kp); err != nil {
			return nil, fmt.Errorf("decode keypair: %w", err)
		}
		out = append(out, kp)
	}
	return out, rows.Err()
}

func (p *PgStore) Delete(ctx context.Context, secret string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM ppy_keypairs WHERE secret = $1`, secret)
	return err
}

func (p *PgStore) Close() error {
	return p.db.Close()
}

func (p *PgStore) scanOne(ctx context.Context, id, query string, args ...any) (*Keypair, error) {
	var record string
	err := p.db.QueryRowContext(ctx, query, args...).Scan(&record)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("keypair", id)
	}
	if err != nil {
		return nil, err
	}
	kp := &Keypair{}
	if err := jsonx.Unmarshal([]byte(record), kp); err != nil {
		return nil, fmt.Errorf("decode keypair: %w", err)
	}
	return kp, nil
}

var _ Store = (*PgStore)(nil)
