package session

import (
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/nerimity/nerimity-go/internal/session/migrations"
	"golang.org/x/crypto/chacha20poly1305"

	_ "github.com/mattn/go-sqlite3"
)

// Credential keys. Token is the bearer token issued by login, UserID the
// authenticated self user id, LastUpdateCheck a unix-millisecond timestamp.
const (
	keyToken           = "token"
	keyUserID          = "user_id"
	keyLastUpdateCheck = "last_update_check"
)

// Credentials is the per-session persisted key-value store for the auth
// token and related identity state. Values are sealed at rest with
// XChaCha20-Poly1305 using a key file next to the database.
type Credentials struct {
	db   *sql.DB
	aead cipher.AEAD
}

// OpenCredentials opens (creating if needed) the credential store at dbPath,
// running pending migrations and loading or generating the key at keyPath.
func OpenCredentials(dbPath, keyPath string) (*Credentials, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open credentials db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping credentials db: %w", err)
	}

	if err := migrateCredentials(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init credential cipher: %w", err)
	}

	return &Credentials{db: db, aead: aead}, nil
}

// Close closes the underlying database.
func (c *Credentials) Close() error {
	return c.db.Close()
}

// Token returns the stored bearer token, or "" when logged out.
func (c *Credentials) Token() (string, error) {
	return c.get(keyToken)
}

// SetToken stores the bearer token.
func (c *Credentials) SetToken(token string) error {
	return c.set(keyToken, token)
}

// UserID returns the stored self user id, or "" when unknown.
func (c *Credentials) UserID() (string, error) {
	return c.get(keyUserID)
}

// SetUserID stores the self user id.
func (c *Credentials) SetUserID(id string) error {
	return c.set(keyUserID, id)
}

// LastUpdateCheck returns the unix-millisecond timestamp of the last
// client update check, or 0 when never checked.
func (c *Credentials) LastUpdateCheck() (int64, error) {
	v, err := c.get(keyLastUpdateCheck)
	if err != nil || v == "" {
		return 0, err
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse last update check: %w", err)
	}
	return ts, nil
}

// SetLastUpdateCheck stores the unix-millisecond update check timestamp.
func (c *Credentials) SetLastUpdateCheck(ts int64) error {
	return c.set(keyLastUpdateCheck, strconv.FormatInt(ts, 10))
}

// Wipe removes all stored credentials. Used by logout.
func (c *Credentials) Wipe() error {
	_, err := c.db.Exec(`DELETE FROM credentials`)
	return err
}

func (c *Credentials) get(key string) (string, error) {
	var sealed []byte
	err := c.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", fmt.Errorf("credential %q: sealed value too short", key)
	}
	nonce, box := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, box, []byte(key))
	if err != nil {
		return "", fmt.Errorf("credential %q: %w", key, err)
	}
	return string(plain), nil
}

func (c *Credentials) set(key, value string) error {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	_, err := c.db.Exec(`
		INSERT INTO credentials (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, sealed, time.Now().UnixMilli())
	return err
}

func migrateCredentials(db *sql.DB) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

func loadOrCreateKey(keyPath string) ([]byte, error) {
	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("credential key %s: bad length %d", keyPath, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("write credential key: %w", err)
	}
	return key, nil
}
