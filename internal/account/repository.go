package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

// Repository defines the interface for account persistence operations.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	Update(ctx context.Context, a *Account) error
	GetByName(ctx context.Context, name string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error

	StoreEncryptedMnemonic(ctx context.Context, name string, m EncryptedMnemonic) error
	GetEncryptedMnemonic(ctx context.Context, name string) (*EncryptedMnemonic, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db       *sql.DB
	dataRoot string
}

// NewSQLiteRepository creates a SQLite-backed account repository.
// dataRoot is the node data root; Delete removes the account's directory
// beneath it. An empty dataRoot leaves directories alone.
func NewSQLiteRepository(db *sql.DB, dataRoot string) *SQLiteRepository {
	return &SQLiteRepository{db: db, dataRoot: dataRoot}
}

const selectColumns = `id, name, network, datapath, rpc_connection_url, node_url,
	indexer_url, proxy_endpoint, default_lsp_url, maker_urls, default_maker_url,
	daemon_listening_port, ldk_peer_listening_port, bearer_token,
	encrypted_mnemonic IS NOT NULL`

// Create inserts a new account and sets a.ID.
func (r *SQLiteRepository) Create(ctx context.Context, a *Account) error {
	if err := a.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO accounts (name, network, datapath, rpc_connection_url,
		node_url, indexer_url, proxy_endpoint, default_lsp_url, maker_urls,
		default_maker_url, daemon_listening_port, ldk_peer_listening_port, bearer_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		a.Name, a.Network, nullIfEmpty(a.Datapath), a.RPCConnectionURL,
		a.NodeURL, a.IndexerURL, a.ProxyEndpoint, a.DefaultLSPURL, a.MakerURLs,
		a.DefaultMakerURL, a.DaemonListeningPort, a.LDKPeerListeningPort, nullStr(a.BearerToken))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAccountExists, a.Name)
		}
		return fmt.Errorf("inserting account %s: %w", a.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading account id: %w", err)
	}
	a.ID = id
	return nil
}

// Update overwrites the account's settings, matched by ID.
// The stored mnemonic is left untouched.
func (r *SQLiteRepository) Update(ctx context.Context, a *Account) error {
	if err := a.Validate(); err != nil {
		return err
	}

	const query = `UPDATE accounts SET name = ?, network = ?, datapath = ?,
		rpc_connection_url = ?, node_url = ?, indexer_url = ?, proxy_endpoint = ?,
		default_lsp_url = ?, maker_urls = ?, default_maker_url = ?,
		daemon_listening_port = ?, ldk_peer_listening_port = ?, bearer_token = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.Name, a.Network, nullIfEmpty(a.Datapath), a.RPCConnectionURL,
		a.NodeURL, a.IndexerURL, a.ProxyEndpoint, a.DefaultLSPURL, a.MakerURLs,
		a.DefaultMakerURL, a.DaemonListeningPort, a.LDKPeerListeningPort, nullStr(a.BearerToken),
		a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAccountExists, a.Name)
		}
		return fmt.Errorf("updating account %d: %w", a.ID, err)
	}
	return requireAffected(res)
}

// GetByName returns the account with the given name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE name = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns all accounts ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}
	return accounts, nil
}

// Exists reports whether an account with the given name exists.
func (r *SQLiteRepository) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking account %s: %w", name, err)
	}
	return count > 0, nil
}

// Delete removes the account, its channel orders (by cascade) and its node
// data directory. The directory is kept when it overlaps the data directory
// of another account.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	a, err := r.GetByName(ctx, name)
	if err != nil {
		return err
	}

	dir := r.DataDir(a)
	if dir != "" {
		shared, err := r.dataDirShared(ctx, a.ID, dir)
		if err != nil {
			return err
		}
		if shared {
			dir = ""
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, a.ID)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", name, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing data directory for %s: %w", name, err)
		}
	}
	return nil
}

// dataDirShared reports whether dir equals, contains or lies inside the
// data directory of any account other than id.
func (r *SQLiteRepository) dataDirShared(ctx context.Context, id int64, dir string) (bool, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for i := range accounts {
		if accounts[i].ID == id {
			continue
		}
		other := r.DataDir(&accounts[i])
		if pathWithin(dir, other) || pathWithin(other, dir) {
			return true, nil
		}
	}
	return false, nil
}

// pathWithin reports whether path is base or a descendant of it.
func pathWithin(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}

// DataDir returns the node data directory of a, or "" when no data root
// is configured.
func (r *SQLiteRepository) DataDir(a *Account) string {
	if r.dataRoot == "" {
		return ""
	}
	sub := a.Datapath
	if sub == "" {
		sub = a.Name
	}
	return filepath.Join(r.dataRoot, sub)
}

// StoreEncryptedMnemonic saves the encrypted mnemonic for the named account,
// replacing any previous one.
func (r *SQLiteRepository) StoreEncryptedMnemonic(ctx context.Context, name string, m EncryptedMnemonic) error {
	const query = `UPDATE accounts SET encrypted_mnemonic = ?, mnemonic_salt = ?, mnemonic_nonce = ?
		WHERE name = ?`
	res, err := r.db.ExecContext(ctx, query, m.Ciphertext, m.Salt, m.Nonce, name)
	if err != nil {
		return fmt.Errorf("storing mnemonic for %s: %w", name, err)
	}
	return requireAffected(res)
}

// GetEncryptedMnemonic returns the stored mnemonic triple for the named account.
func (r *SQLiteRepository) GetEncryptedMnemonic(ctx context.Context, name string) (*EncryptedMnemonic, error) {
	const query = `SELECT encrypted_mnemonic, mnemonic_salt, mnemonic_nonce FROM accounts WHERE name = ?`
	var ct, salt, nonce sql.NullString
	err := r.db.QueryRowContext(ctx, query, name).Scan(&ct, &salt, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading mnemonic for %s: %w", name, err)
	}
	if !ct.Valid || !salt.Valid || !nonce.Valid {
		return nil, ErrNoMnemonic
	}
	return &EncryptedMnemonic{Ciphertext: ct.String, Salt: salt.String, Nonce: nonce.String}, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*Account, error) {
	var a Account
	var datapath, bearer sql.NullString
	err := s.Scan(&a.ID, &a.Name, &a.Network, &datapath, &a.RPCConnectionURL, &a.NodeURL,
		&a.IndexerURL, &a.ProxyEndpoint, &a.DefaultLSPURL, &a.MakerURLs, &a.DefaultMakerURL,
		&a.DaemonListeningPort, &a.LDKPeerListeningPort, &bearer, &a.HasMnemonic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	a.Datapath = datapath.String
	if bearer.Valid {
		a.BearerToken = &bearer.String
	}
	return &a, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// nullStr converts a *string to a sql.NullString for nullable columns.
func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
