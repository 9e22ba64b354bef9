package models

import (
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotVersion guards against importing archives written by an
// incompatible build.
const SnapshotVersion = 1

// Snapshot is a portable archive of the local knowledge base, used for
// backup and device migration. Tombstones are included so a restored
// database deletes what the source had deleted.
type Snapshot struct {
	Version     int              `msgpack:"version"`
	ExportedAt  time.Time        `msgpack:"exported_at"`
	Functions   []RemoteFunction `msgpack:"functions"`
	DBMSOptions []RemoteOption   `msgpack:"dbms_options"`
	TagOptions  []RemoteOption   `msgpack:"tag_options"`
}

// ExportSnapshot serializes the full local store into a msgpack archive.
// The wire shapes are reused so remote links survive a round trip.
func (s *Store) ExportSnapshot() ([]byte, error) {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
	}

	functions, err := s.AllFunctions()
	if err != nil {
		return nil, err
	}
	for i := range functions {
		snap.Functions = append(snap.Functions, functions[i].toRemote())
	}

	for _, kind := range []OptionKind{OptionDBMS, OptionTag} {
		options, err := s.AllOptions(kind)
		if err != nil {
			return nil, err
		}
		var out []RemoteOption
		for i := range options {
			out = append(out, options[i].toRemote())
		}
		if kind == OptionDBMS {
			snap.DBMSOptions = out
		} else {
			snap.TagOptions = out
		}
	}

	data, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, serr.Wrap(err, "failed to encode snapshot")
	}
	return data, nil
}

// ImportSnapshot merges an archive into the local store and returns the
// number of records it added. Options merge by name; functions are matched by
// name among live rows and skipped when an identical name already exists, so
// importing the same archive twice is a no-op. Remote links from the archive
// are not carried over — the next sync pass re-establishes them against
// whatever hub this device talks to.
func (s *Store) ImportSnapshot(data []byte) (imported int, err error) {
	var snap Snapshot
	if err = msgpack.Unmarshal(data, &snap); err != nil {
		return 0, serr.Wrap(err, "failed to decode snapshot")
	}
	if snap.Version != SnapshotVersion {
		return 0, serr.New("unsupported snapshot version")
	}

	for _, kind := range []OptionKind{OptionDBMS, OptionTag} {
		options := snap.DBMSOptions
		if kind == OptionTag {
			options = snap.TagOptions
		}
		live, err := s.ListOptions(kind)
		if err != nil {
			return imported, err
		}
		optionNames := make(map[string]bool, len(live))
		for i := range live {
			optionNames[live[i].Name] = true
		}
		for _, ro := range options {
			if ro.IsDeleted || optionNames[ro.Name] {
				continue
			}
			if _, err = s.CreateOption(kind, ro.Name); err != nil {
				return imported, err
			}
			optionNames[ro.Name] = true
			imported++
		}
	}

	existing, err := s.ListFunctions(FunctionFilter{})
	if err != nil {
		return imported, err
	}
	liveNames := make(map[string]bool, len(existing))
	for i := range existing {
		liveNames[existing[i].Name] = true
	}

	for _, rf := range snap.Functions {
		if rf.IsDeleted || liveNames[rf.Name] {
			continue
		}
		_, err = s.CreateFunction(FunctionInput{
			Name:        rf.Name,
			Description: rf.Description,
			Usage:       rf.Usage,
			DBMS:        rf.DBMS,
			Tags:        rf.Tags,
		})
		if err != nil {
			return imported, err
		}
		liveNames[rf.Name] = true
		imported++
	}

	logger.Info("Snapshot imported", "records", i64s(int64(imported)))
	return imported, nil
}
