// Package stores opens the record and blob stores selected by config.
package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lestrrat-go/jwx/v2/jwk"
	_ "github.com/lib/pq"

	"Memories/internal/atproto/pds"
	"Memories/internal/cloudinary"
	"Memories/internal/config"
	"Memories/internal/core/blobs"
	"Memories/internal/core/posts"
	"Memories/internal/db/memory"
	"Memories/internal/db/mongodb"
	"Memories/internal/db/postgres"
)

// Stores is an opened pair of stores plus the optional capabilities the
// chosen blob backend offers.
type Stores struct {
	Records posts.RecordStore
	Blobs   posts.BlobStore

	// Checker is nil when the blob backend cannot test existence
	Checker posts.BlobChecker

	// Reader is set for backends whose URLs are served by /blobs/{token}
	Reader blobs.Reader

	closers []func() error
}

// Close releases database connections.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the backends named in cfg. signer mints URLs for the memory
// and postgres blob stores.
func Open(ctx context.Context, cfg config.Config, signer *blobs.URLSigner, logger *slog.Logger) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stores{}

	var (
		db        *sql.DB
		pdsClient pds.Client
		err       error
	)

	if cfg.UsesPostgres() {
		db, err = openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
	}

	if cfg.UsesPDS() {
		pdsClient, err = openPDS(ctx, cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Info("[STORES] connected to PDS", "host", pdsClient.HostURL(), "did", pdsClient.DID())
	}

	switch cfg.RecordBackend {
	case config.BackendMemory:
		s.Records = memory.NewRecordStore()
	case config.BackendPostgres:
		s.Records = postgres.NewPostRecordRepo(db)
	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() error { return client.Disconnect(context.Background()) })
		s.Records = mongodb.NewPostRecordRepo(client.Database(cfg.MongoDatabase))
	case config.BackendPDS:
		s.Records = pds.NewRecordStore(pdsClient, logger)
	default:
		_ = s.Close()
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownRecordBackend, cfg.RecordBackend)
	}

	switch cfg.BlobBackend {
	case config.BackendMemory:
		store := memory.NewBlobStore(signer)
		s.Blobs, s.Checker, s.Reader = store, store, store
	case config.BackendPostgres:
		repo := postgres.NewBlobRepo(db, signer)
		s.Blobs, s.Checker, s.Reader = repo, repo, repo
	case config.BackendPDS:
		store := pds.NewBlobStore(pdsClient, logger)
		s.Blobs, s.Checker = store, store
	case config.BackendCloudinary:
		store, err := cloudinary.NewBlobStore(cfg.CloudinaryURL, cfg.CloudinaryFolder, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Blobs, s.Checker = store, store
	default:
		_ = s.Close()
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBlobBackend, cfg.BlobBackend)
	}

	logger.Info("[STORES] stores ready",
		"records", cfg.RecordBackend,
		"blobs", cfg.BlobBackend)
	return s, nil
}

func openPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := postgres.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openPDS(ctx context.Context, cfg config.Config) (pds.Client, error) {
	if cfg.PDSUsesPassword() {
		return pds.NewFromPasswordAuth(ctx, cfg.PDSHost, cfg.PDSHandle, cfg.PDSPassword)
	}
	return pds.NewFromAccessToken(cfg.PDSHost, cfg.PDSDID, cfg.PDSAccessToken)
}

// NewSigner builds the blob URL signer from cfg. An empty BlobSigningJWK
// yields a random per-process key.
func NewSigner(cfg config.Config) (*blobs.URLSigner, error) {
	var key jwk.Key
	if cfg.BlobSigningJWK != "" {
		k, err := blobs.ParseSigningKey([]byte(cfg.BlobSigningJWK))
		if err != nil {
			return nil, fmt.Errorf("invalid BLOB_SIGNING_JWK: %w", err)
		}
		key = k
	}
	return blobs.NewURLSigner(cfg.PublicBaseURL, key, cfg.BlobURLTTL)
}
