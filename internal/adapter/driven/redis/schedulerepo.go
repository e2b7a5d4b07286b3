// Package redis implements the ScheduleStore port on Redis. Entries are stored
// as JSON strings and indexed per status in sorted sets scored by discussion date.
package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/movieclub/internal/domain/model"
	"github.com/ericfisherdev/movieclub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ScheduleStore = (*ScheduleRepo)(nil)

// insertScript writes the entry and its status index entry only if the entry
// key does not exist. Returns 1 on insert, 0 when the key was present.
//
// KEYS[1] entry key, KEYS[2] status index key
// ARGV[1] entry JSON, ARGV[2] index score, ARGV[3] catalog ID member
var insertScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// ScheduleRepo is the Redis implementation of the ScheduleStore port interface.
type ScheduleRepo struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewScheduleRepo creates a ScheduleRepo that namespaces its keys under prefix.
func NewScheduleRepo(rdb goredis.UniversalClient, prefix string) *ScheduleRepo {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "movieclub"
	}
	return &ScheduleRepo{rdb: rdb, prefix: prefix}
}

// Connect creates a go-redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return rdb, nil
}

func (r *ScheduleRepo) entryKey(id int64) string {
	return r.prefix + ":entry:" + strconv.FormatInt(id, 10)
}

func (r *ScheduleRepo) statusKey(status model.EntryStatus) string {
	return r.prefix + ":status:" + string(status)
}

// QueryByStatus returns all entries with the given status ordered by
// discussion date, then catalog ID. Returns an empty slice when none match.
func (r *ScheduleRepo) QueryByStatus(ctx context.Context, status model.EntryStatus) ([]model.ScheduleEntry, error) {
	// Same-day members tie on score and come back in lexicographic order, so
	// ties are re-sorted numerically below.
	members, err := r.rdb.ZRange(ctx, r.statusKey(status), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query entries by status %s: %w", status, err)
	}

	entries := []model.ScheduleEntry{}
	if len(members) == 0 {
		return entries, nil
	}

	keys := make([]string, len(members))
	for i, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse index member %q: %w", member, err)
		}
		keys[i] = r.entryKey(id)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load entries by status %s: %w", status, err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index points at a missing entry; skip rather than fail the listing.
			continue
		}
		entry, err := decodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		entries = append(entries, *entry)
	}

	sortByDateThenID(entries)
	return entries, nil
}

// InsertIfAbsent writes entry unless its catalog ID is already stored, in
// which case it returns driven.ErrEntryAlreadyExists. The check, the write and
// the index update run as one Lua script.
func (r *ScheduleRepo) InsertIfAbsent(ctx context.Context, entry model.ScheduleEntry) error {
	score, err := dateScore(entry.DiscussionDate)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, err)
	}
	if !entry.Status.Valid() {
		return fmt.Errorf("insert entry %d: invalid status %q", entry.CatalogID, entry.Status)
	}

	payload, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, err)
	}

	inserted, err := insertScript.Run(ctx, r.rdb,
		[]string{r.entryKey(entry.CatalogID), r.statusKey(entry.Status)},
		payload, score, strconv.FormatInt(entry.CatalogID, 10),
	).Int()
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, err)
	}
	if inserted == 0 {
		return fmt.Errorf("insert entry %d: %w", entry.CatalogID, driven.ErrEntryAlreadyExists)
	}

	return nil
}

// GetByCatalogID returns the entry with the given catalog ID, or nil, nil if absent.
func (r *ScheduleRepo) GetByCatalogID(ctx context.Context, id int64) (*model.ScheduleEntry, error) {
	raw, err := r.rdb.Get(ctx, r.entryKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode entry %d: %w", id, err)
	}
	return entry, nil
}

// dateScore turns YYYY-MM-DD into YYYYMMDD so scores sort chronologically.
func dateScore(date string) (int64, error) {
	t, err := model.ParseDiscussionDate(date)
	if err != nil {
		return 0, err
	}
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
}

func sortByDateThenID(entries []model.ScheduleEntry) {
	slices.SortStableFunc(entries, compareEntries)
}

func compareEntries(a, b model.ScheduleEntry) int {
	return cmp.Or(
		cmp.Compare(a.DiscussionDate, b.DiscussionDate),
		cmp.Compare(a.CatalogID, b.CatalogID),
	)
}
