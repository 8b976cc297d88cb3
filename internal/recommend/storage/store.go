// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package storage provides snapshot persistence for the recommendation engine.
//
// Snapshots capture the ratings and catalog a model was built from, together
// with metadata (version, timestamps, checksum), so a restarted process can
// rebuild its model without re-ingesting source data.
//
// Snapshots are gob-encoded, gzip-compressed, and carry a SHA-256 checksum
// that is verified on load. Each version is written to its own file so saves
// are atomic with respect to readers of earlier versions.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ratemesh/ratemesh/internal/ratings"
)

// snapshotName is the logical name under which engine snapshots are filed.
const snapshotName = "model"

// SnapshotMetadata describes a stored snapshot.
type SnapshotMetadata struct {
	// Version is the model version the snapshot was taken at.
	Version int `json:"version"`

	// BuiltAt is when the model was built.
	BuiltAt time.Time `json:"built_at"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	// RatingCount is the number of ratings in the snapshot.
	RatingCount int `json:"rating_count"`

	// UserCount is the number of distinct users.
	UserCount int `json:"user_count"`

	// ItemCount is the number of catalog items.
	ItemCount int `json:"item_count"`

	// Checksum is the SHA-256 checksum of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed snapshot size.
	SizeBytes int64 `json:"size_bytes"`
}

// Snapshot is the serializable state of a built model.
type Snapshot struct {
	Ratings []ratings.Rating
	Items   []ratings.Item
	Scale   ratings.Scale
	BuiltAt time.Time
}

// storedFile is the on-disk format for snapshot files.
type storedFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// Store manages snapshot persistence under a base directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest known version on disk
	latest int
}

// NewStore creates a snapshot store at the given directory, creating it if
// needed and scanning for existing snapshots.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{baseDir: baseDir}

	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing snapshots: %w", err)
	}

	return s, nil
}

// scan finds the latest snapshot version in the storage directory.
func (s *Store) scan() error {
	versions, err := s.versionsOnDisk()
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v > s.latest {
			s.latest = v
		}
	}
	return nil
}

// versionsOnDisk lists all snapshot versions present in the directory.
func (s *Store) versionsOnDisk() ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		v, ok := parseSnapshotFilename(entry.Name())
		if !ok {
			continue
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// parseSnapshotFilename extracts the version from a filename like
// "model_v3.gob.gz".
func parseSnapshotFilename(name string) (version int, ok bool) {
	const suffix = ".gob.gz"
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return 0, false
	}
	name = name[:len(name)-len(suffix)]

	prefix := snapshotName + "_v"
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return 0, false
	}

	if _, err := fmt.Sscanf(name[len(prefix):], "%d", &version); err != nil {
		return 0, false
	}
	return version, true
}

// Save writes a snapshot at the given version.
func (s *Store) Save(ctx context.Context, version int, snap Snapshot) (*SnapshotMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	rawData := buf.Bytes()
	hash := sha256.Sum256(rawData)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	users := make(map[int]struct{}, len(snap.Ratings))
	for _, r := range snap.Ratings {
		users[r.UserID] = struct{}{}
	}

	meta := SnapshotMetadata{
		Version:     version,
		BuiltAt:     snap.BuiltAt,
		SavedAt:     time.Now(),
		RatingCount: len(snap.Ratings),
		UserCount:   len(users),
		ItemCount:   len(snap.Items),
		Checksum:    hex.EncodeToString(hash[:]),
		SizeBytes:   int64(compressed.Len()),
	}

	filename := s.snapshotPath(version)
	f, err := os.Create(filename) //nolint:gosec // path is built from the store's base directory
	if err != nil {
		return nil, fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sf := storedFile{
		Metadata:       meta,
		CompressedData: compressed.Bytes(),
	}
	fileEnc := gob.NewEncoder(f)
	if err := fileEnc.Encode(sf); err != nil {
		return nil, fmt.Errorf("write snapshot file: %w", err)
	}

	if version > s.latest {
		s.latest = version
	}

	return &meta, nil
}

// Load reads a snapshot by version. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, version int) (Snapshot, *SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		if s.latest == 0 {
			return Snapshot{}, nil, fmt.Errorf("no snapshot found in %s", s.baseDir)
		}
		version = s.latest
	}

	filename := s.snapshotPath(version)
	f, err := os.Open(filename) //nolint:gosec // path is built from the store's base directory
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	fileDec := gob.NewDecoder(f)
	if err := fileDec.Decode(&sf); err != nil {
		return Snapshot{}, nil, fmt.Errorf("read snapshot file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	checksum := hex.EncodeToString(hash[:])
	if checksum != sf.Metadata.Checksum {
		return Snapshot{}, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var snap Snapshot
	dec := gob.NewDecoder(bytes.NewReader(rawData))
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, &sf.Metadata, nil
}

// LatestVersion returns the latest snapshot version on disk, if any.
func (s *Store) LatestVersion() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == 0 {
		return 0, false
	}
	return s.latest, true
}

// List returns metadata for all stored snapshots, oldest first.
func (s *Store) List(ctx context.Context) ([]SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.versionsOnDisk()
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	sort.Ints(versions)

	var metas []SnapshotMetadata
	for _, v := range versions {
		f, err := os.Open(s.snapshotPath(v)) //nolint:gosec // path is built from the store's base directory
		if err != nil {
			continue
		}

		var sf storedFile
		dec := gob.NewDecoder(f)
		decErr := dec.Decode(&sf)
		_ = f.Close()
		if decErr != nil {
			continue
		}

		metas = append(metas, sf.Metadata)
	}

	return metas, nil
}

// Prune removes old snapshots, keeping the latest keep versions.
func (s *Store) Prune(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}

	versions, err := s.versionsOnDisk()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	sort.Ints(versions)

	for i := 0; i < len(versions)-keep; i++ {
		_ = os.Remove(s.snapshotPath(versions[i]))
	}

	return nil
}

// snapshotPath returns the file path for a snapshot version.
func (s *Store) snapshotPath(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", snapshotName, version))
}

