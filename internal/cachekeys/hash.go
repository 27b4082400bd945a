package cachekeys

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// PostFilter is the normalized shape of a post-list query. Field order in
// HashFilter is fixed: tag slug, month token, search substring, then the
// sorted status set. Two filters equivalent under normalization (e.g.
// differing only in status-set order) must hash equal.
type PostFilter struct {
	TagSlug         string
	MonthToken      string
	SearchSubstring string
	Statuses        []string
}

// PostCursor is the normalized shape of a list pagination cursor.
type PostCursor struct {
	PrimaryValue string
	TiebreakerID int64
}

// HashFilter derives a stable 64-bit hash from a normalized filter. Hashing
// uses FNV-1a over a canonical delimited string, mirroring the hashing
// technique the wider caching code in this codebase already relies on for
// consistent, reproducible digests of structured keys.
func HashFilter(f PostFilter) uint64 {
	statuses := append([]string(nil), f.Statuses...)
	sort.Strings(statuses)

	var b strings.Builder
	b.WriteString(f.TagSlug)
	b.WriteByte('\x00')
	b.WriteString(f.MonthToken)
	b.WriteByte('\x00')
	b.WriteString(f.SearchSubstring)
	b.WriteByte('\x00')
	b.WriteString(strings.Join(statuses, ","))

	return fnv64a(b.String())
}

// HashCursor derives a stable 64-bit hash from a normalized cursor. Field
// order is fixed: primary ordering value, then tiebreaker id.
func HashCursor(c PostCursor) uint64 {
	var b strings.Builder
	b.WriteString(c.PrimaryValue)
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatInt(c.TiebreakerID, 10))
	return fnv64a(b.String())
}

// HashQuery derives a stable 64-bit hash of a raw query string, used for L1
// keys. The string is used verbatim; callers are responsible for any
// normalization they want reflected in cache key equality.
func HashQuery(rawQuery string) uint64 {
	return fnv64a(rawQuery)
}

func fnv64a(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
