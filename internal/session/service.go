package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"deview/adapters/tabular"
	"deview/domain/core"
	"deview/domain/results"
	"deview/domain/upload"
	"deview/internal"
	apperrors "deview/internal/errors"
	"deview/internal/metrics"
	"deview/internal/overlap"
	"deview/internal/storage"
	"deview/ports"
)

// TableReader parses results tables; adapters/tabular implements it.
type TableReader interface {
	Load(ctx context.Context, path string) (*results.Table, error)
	Parse(ctx context.Context, name string, r io.Reader) (*results.Table, error)
}

// Service performs the load actions that need I/O: parsing, storing the
// uploaded file and recording it in the catalog. Store and catalog are
// optional; without them uploads are parsed but not kept.
type Service struct {
	reader  TableReader
	store   storage.BlobStore
	uploads ports.UploadRepository
	metrics *metrics.Metrics
	logger  *internal.Logger
}

// NewService wires the load dependencies. store and uploads may be nil.
func NewService(reader TableReader, store storage.BlobStore, uploads ports.UploadRepository, m *metrics.Metrics) *Service {
	return &Service{
		reader:  reader,
		store:   store,
		uploads: uploads,
		metrics: m,
		logger:  internal.DefaultLogger.With("Session"),
	}
}

// Upload parses content and, on success, loads it into the session and
// persists it. A parse failure keeps the previous table.
func (svc *Service) Upload(ctx context.Context, s *Session, name string, content []byte) State {
	return s.Do(func(st State) State {
		start := time.Now()
		table, err := svc.reader.Parse(ctx, name, bytes.NewReader(content))
		svc.metrics.ObserveLoad(metrics.SourceUpload, table.Len(), time.Since(start), err)
		if err != nil {
			svc.logger.Warn("session %s: upload %s rejected: %v", s.ID, name, err)
			return st.LoadFailed(err)
		}

		id, perr := svc.persist(ctx, s.ID, name, content, table.Len())
		next := st.Load(table, id)
		if perr != nil {
			svc.logger.Error("session %s: failed to keep upload %s: %v", s.ID, name, perr)
			next.Message.Text += " (not saved: storage unavailable)"
		}
		return next
	})
}

// LoadPath loads a results file from the local filesystem, as used for the
// RESULTS_FILE preload.
func (svc *Service) LoadPath(ctx context.Context, s *Session, path string) State {
	return s.Do(func(st State) State {
		start := time.Now()
		table, err := svc.reader.Load(ctx, path)
		svc.metrics.ObserveLoad(metrics.SourceFile, table.Len(), time.Since(start), err)
		if err != nil {
			svc.logger.Warn("session %s: %v", s.ID, err)
			return st.LoadFailed(err)
		}
		return st.Load(table, "")
	})
}

// Preload reads path once and makes it the starting table of every new
// session, as configured by RESULTS_FILE.
func (svc *Service) Preload(ctx context.Context, mgr *Manager, path string) error {
	start := time.Now()
	table, err := svc.reader.Load(ctx, path)
	svc.metrics.ObserveLoad(metrics.SourceFile, table.Len(), time.Since(start), err)
	if err != nil {
		return err
	}
	mgr.Preload(table)
	svc.logger.Info("preloaded %d genes from %s", table.Len(), path)
	return nil
}

// Reopen loads a previously uploaded file from the catalog.
func (svc *Service) Reopen(ctx context.Context, s *Session, id core.UploadID) State {
	return s.Do(func(st State) State {
		start := time.Now()
		table, err := svc.fetch(ctx, id)
		svc.metrics.ObserveLoad(metrics.SourceCatalog, table.Len(), time.Since(start), err)
		if err != nil {
			svc.logger.Warn("session %s: reopen %s failed: %v", s.ID, id, err)
			return st.LoadFailed(err)
		}
		return st.Load(table, id)
	})
}

// Uploads lists the catalog newest first; empty without a catalog.
func (svc *Service) Uploads(ctx context.Context, limit int) ([]*upload.Upload, error) {
	if svc.uploads == nil {
		return []*upload.Upload{}, nil
	}
	return svc.uploads.ListRecent(ctx, limit)
}

// SessionUploads lists the uploads made from one browser session.
func (svc *Service) SessionUploads(ctx context.Context, s *Session, limit int) ([]*upload.Upload, error) {
	if svc.uploads == nil {
		return []*upload.Upload{}, nil
	}
	return svc.uploads.ListBySession(ctx, s.ID, limit)
}

// Lookup returns the catalog record of one upload.
func (svc *Service) Lookup(ctx context.Context, id core.UploadID) (*upload.Upload, error) {
	if svc.uploads == nil {
		return nil, apperrors.NotFound("upload catalog")
	}
	rec, err := svc.uploads.GetByID(ctx, id)
	if err != nil && !core.IsNotFoundError(err) {
		return nil, apperrors.DatabaseError("catalog unavailable", err)
	}
	return rec, err
}

// Delete removes an upload from the catalog. The stored file goes too once
// no remaining upload has the same content. Sessions that still show the
// table keep it; only reopening fails.
func (svc *Service) Delete(ctx context.Context, id core.UploadID) error {
	rec, err := svc.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.uploads.Delete(ctx, id); err != nil {
		if core.IsNotFoundError(err) {
			return err
		}
		return apperrors.DatabaseError("failed to delete upload", err)
	}

	shared, err := svc.uploads.FindByHash(ctx, rec.Hash)
	switch {
	case err == nil:
		svc.logger.Info("deleted upload %s; content still used by %s", id, shared.ID)
		return nil
	case !core.IsNotFoundError(err):
		return apperrors.DatabaseError("failed to check shared content", err)
	}

	if svc.store != nil {
		if err := svc.store.DeleteBlob(ctx, rec.StorageKey); err != nil {
			return apperrors.Wrapf(apperrors.StorageError("failed to delete stored file", err), "upload %s removed from catalog", id)
		}
	}
	svc.logger.Info("deleted upload %s and stored file %s", id, rec.StorageKey)
	return nil
}

// StoredFiles lists the keys of every stored upload file.
func (svc *Service) StoredFiles(ctx context.Context) ([]string, error) {
	if svc.store == nil {
		return []string{}, nil
	}
	keys, err := svc.store.ListBlobs(ctx, storage.UploadPrefix)
	if err != nil {
		return nil, apperrors.StorageError("failed to list stored files", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Overlap compares the significant genes of catalogued uploads under
// threshold. Repeated ids count once; sets are named after their files.
func (svc *Service) Overlap(ctx context.Context, ids []core.UploadID, threshold results.Threshold, d overlap.Direction, opts overlap.Options) (overlap.Result, error) {
	var unique []core.UploadID
	seen := make(map[core.UploadID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) < 2 || len(unique) > overlap.MaxSets {
		return overlap.Result{}, apperrors.InvalidInput(fmt.Sprintf("select between 2 and %d uploads to compare, got %d", overlap.MaxSets, len(unique)))
	}

	sets := make([]overlap.Set, 0, len(unique))
	names := make(map[string]int, len(unique))
	for _, id := range unique {
		table, err := svc.fetch(ctx, id)
		if err != nil {
			return overlap.Result{}, err
		}
		name := table.Source
		if names[name]++; names[name] > 1 {
			name = fmt.Sprintf("%s (%d)", name, names[name])
		}
		sets = append(sets, overlap.SignificantGenes(name, table, threshold, d))
	}
	svc.logger.Debug("comparing %d uploads (%s)", len(sets), d)
	return overlap.Compare(sets, opts)
}

// Frame derives the frame of the session's current state.
func (svc *Service) Frame(s *Session) Frame {
	f := Derive(s.State())
	svc.metrics.ObserveExcluded(f.Plot.Excluded)
	return f
}

// Import validates and catalogs a results file outside any session, as the
// migrate command does for files produced before the explorer existed.
func (svc *Service) Import(ctx context.Context, name string, content []byte) (core.UploadID, int, error) {
	if svc.store == nil || svc.uploads == nil {
		return "", 0, fmt.Errorf("import needs both upload storage and a catalog")
	}
	start := time.Now()
	table, err := svc.reader.Parse(ctx, name, bytes.NewReader(content))
	svc.metrics.ObserveLoad(metrics.SourceFile, table.Len(), time.Since(start), err)
	if err != nil {
		return "", 0, err
	}
	id, err := svc.persist(ctx, "", name, content, table.Len())
	return id, table.Len(), err
}

// persist stores content once per distinct hash and records the upload.
func (svc *Service) persist(ctx context.Context, sid core.SessionID, name string, content []byte, rows int) (core.UploadID, error) {
	if svc.store == nil || svc.uploads == nil {
		return "", nil
	}

	rec := upload.New(sid, name, "", content, rows)
	existing, err := svc.uploads.FindByHash(ctx, rec.Hash)
	switch {
	case err == nil:
		rec.StorageKey = existing.StorageKey
		ok, err := svc.store.BlobExists(ctx, rec.StorageKey)
		if err != nil {
			return "", fmt.Errorf("failed to check stored upload: %w", err)
		}
		if ok {
			svc.logger.Debug("upload %s matches stored content %s", name, rec.Hash.Short())
			break
		}
		svc.logger.Warn("stored file %s for content %s is gone, storing again", rec.StorageKey, rec.Hash.Short())
		if _, err := svc.store.StoreBlob(ctx, rec.StorageKey, bytes.NewReader(content), tabular.FormatFromName(name).ContentType()); err != nil {
			return "", fmt.Errorf("failed to store upload: %w", err)
		}
	case core.IsNotFoundError(err):
		rec.StorageKey = storage.UploadKey(rec.ID, name)
		if _, err := svc.store.StoreBlob(ctx, rec.StorageKey, bytes.NewReader(content), tabular.FormatFromName(name).ContentType()); err != nil {
			return "", fmt.Errorf("failed to store upload: %w", err)
		}
	default:
		return "", err
	}

	if err := svc.uploads.Create(ctx, rec); err != nil {
		return "", err
	}
	svc.logger.Info("stored upload %s as %s (%d rows)", name, rec.ID, rows)
	return rec.ID, nil
}

func (svc *Service) fetch(ctx context.Context, id core.UploadID) (*results.Table, error) {
	if svc.store == nil || svc.uploads == nil {
		return nil, fmt.Errorf("%w: %s (no upload storage configured)", core.ErrUploadNotFound, id)
	}
	rec, err := svc.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := svc.store.GetBlob(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, &core.MissingFileError{Path: rec.StorageKey}
		}
		return nil, err
	}
	defer rc.Close()
	return svc.reader.Parse(ctx, rec.Name, rc)
}
