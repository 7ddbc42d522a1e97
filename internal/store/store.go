package store

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
	"codeberg.org/mutker/sensorbot/internal/logger"
)

const (
	// DefaultBaseName is the file name of the current shard; rotated
	// shards carry a ".YYYY-MM-DD" suffix for the day they hold.
	DefaultBaseName = "sensorbot.rec"

	dayLayout      = "2006-01-02"
	defaultDirPerm = 0o755
	shardPerm      = 0o644
)

type Config struct {
	// Directory holds the current shard and all rotated shards.
	Directory string
	// BaseName is the current shard's file name. Defaults to DefaultBaseName.
	BaseName string
	// RetentionDays bounds the number of rotated shards kept on disk.
	RetentionDays int
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Directory == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "record directory must not be empty")
	}
	if c.RetentionDays < 1 {
		return errFactory.WithMessage(ErrInvalidConfig, "record retention must be at least one day")
	}

	return nil
}

// Store is an append-only record log rotated at local-midnight
// boundaries. Exactly one shard is open for appending at any time;
// rotated shards are immutable until pruned.
//
// Append is single-writer (the poller); Query re-opens shard files
// independently and tolerates a partially written trailing row.
type Store struct {
	mu        sync.Mutex
	dir       string
	base      string
	retention int
	file      *os.File
	day       string
}

// New opens (or creates) the store in cfg.Directory. An existing
// current shard is adopted along with the day of its last write, so a
// restart after midnight rotates it on the first append instead of
// mixing two days in one shard.
func New(cfg Config) (*Store, error) {
	errFactory := errors.New()

	if cfg.BaseName == "" {
		cfg.BaseName = DefaultBaseName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Directory, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	s := &Store{
		dir:       cfg.Directory,
		base:      cfg.BaseName,
		retention: cfg.RetentionDays,
	}

	if err := s.openCurrent(); err != nil {
		return nil, err
	}

	logger.Debug().Str("directory", s.dir).Str("shard", s.base).Int("retention_days", s.retention).
		Msg("record store opened")

	return s, nil
}

func (s *Store) openCurrent() error {
	errFactory := errors.New()

	path := filepath.Join(s.dir, s.base)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, shardPerm)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}

	// an empty shard has no day yet; it adopts the first appended
	// sample's day
	day := ""
	if info, err := file.Stat(); err == nil && info.Size() > 0 {
		day = info.ModTime().Format(dayLayout)
	}

	s.file = file
	s.day = day

	return nil
}

// Append writes a single record row to the current shard and syncs it
// to disk before returning. Crossing a local-midnight boundary rotates
// the shard first. Failures are reported immediately; retry policy is
// the caller's.
func (s *Store) Append(sample Sample) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return errFactory.WithMessage(ErrStorageWrite, "store is closed")
	}

	day := sample.Timestamp.Format(dayLayout)
	switch {
	case s.day == "":
		s.day = day
	case day != s.day:
		if err := s.rotate(day); err != nil {
			return err
		}
	}

	if _, err := s.file.WriteString(sample.encode() + "\n"); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := s.file.Sync(); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}

	return nil
}

// rotate closes the current shard, renames it with the suffix of the
// day it holds, prunes shards beyond retention and opens a fresh
// current shard for newDay. Called with the mutex held.
func (s *Store) rotate(newDay string) error {
	errFactory := errors.New()

	if err := s.file.Close(); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	s.file = nil

	current := filepath.Join(s.dir, s.base)
	rotated := filepath.Join(s.dir, s.base+"."+s.day)
	if err := os.Rename(current, rotated); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}

	logger.Info().Str("shard", filepath.Base(rotated)).Msg("rotated record shard")

	s.prune()

	if err := s.openCurrent(); err != nil {
		return err
	}
	s.day = newDay

	return nil
}

// prune deletes the oldest rotated shards until at most the retention
// count remains. Rotation suffixes are lexicographically time-ordered.
func (s *Store) prune() {
	rotated, err := s.rotatedShards()
	if err != nil {
		logger.Warn().Err(err).Msg("could not list record shards for pruning")
		return
	}

	for len(rotated) > s.retention {
		victim := filepath.Join(s.dir, rotated[0])
		if err := os.Remove(victim); err != nil {
			logger.Warn().Err(err).Str("shard", rotated[0]).Msg("could not prune record shard")
			return
		}
		logger.Info().Str("shard", rotated[0]).Msg("pruned record shard")
		rotated = rotated[1:]
	}
}

// rotatedShards lists rotated shard names in lexicographic order,
// which for date suffixes is chronological order.
func (s *Store) rotatedShards() ([]string, error) {
	errFactory := errors.New()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}

	var shards []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), s.base+".") {
			shards = append(shards, entry.Name())
		}
	}
	sort.Strings(shards)

	return shards, nil
}

// Query returns all samples within [start, end], both bounds inclusive
// and optional (nil = unbounded), in chronological order across all
// shards. Rotated shards are read oldest to newest, the current shard
// always last. Rows that fail to parse are logged and skipped; a query
// never aborts on malformed data.
func (s *Store) Query(start, end *time.Time) (RecordSet, error) {
	shards, err := s.rotatedShards()
	if err != nil {
		return RecordSet{}, err
	}
	shards = append(shards, s.base)

	result := NewRecordSet()
	for _, shard := range shards {
		records, err := s.readShard(shard, start, end)
		if err != nil {
			logger.Warn().Err(err).Str("shard", shard).Msg("skipping unreadable record shard")
			continue
		}
		if records.Empty() {
			continue
		}
		result.Append(records)
	}

	return result, nil
}

func (s *Store) readShard(name string, start, end *time.Time) (RecordSet, error) {
	errFactory := errors.New()

	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return NewRecordSet(), nil
		}
		return RecordSet{}, errFactory.Wrap(ErrStorageRead, err)
	}
	defer file.Close()

	records := NewRecordSet()
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		sample, err := parseSample(line)
		if err != nil {
			logger.Warn().Err(err).Str("shard", name).Int("line", lineNum).
				Msg("skipping unparsable record row")
			continue
		}

		if start != nil && sample.Timestamp.Before(*start) {
			continue
		}
		if end != nil && sample.Timestamp.After(*end) {
			continue
		}

		records.Add(sample)
	}
	if err := scanner.Err(); err != nil {
		return RecordSet{}, errFactory.Wrap(ErrStorageRead, err)
	}

	return records, nil
}

// Close closes the current shard handle. Safe to call more than once.
func (s *Store) Close() error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	file := s.file
	s.file = nil
	if err := file.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	return nil
}
