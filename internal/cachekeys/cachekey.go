package cachekeys

// CacheFamily enumerates the L0 and L1 physical key families.
type CacheFamily uint8

const (
	L0SiteSettings CacheFamily = iota
	L0Navigation
	L0TagCounts
	L0MonthCounts
	L0PostByID
	L0PostBySlug
	L0PageByID
	L0PageBySlug
	L0ApiKeyByPrefix
	L0PostList
	L1Response
)

// OutputFormat is the negotiated response representation for an L1 entry.
type OutputFormat uint8

const (
	FormatHTML OutputFormat = iota
	FormatJSON
	FormatRSS
	FormatAtom
	FormatSitemap
	FormatFavicon
)

func (f OutputFormat) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatJSON:
		return "json"
	case FormatRSS:
		return "rss"
	case FormatAtom:
		return "atom"
	case FormatSitemap:
		return "sitemap"
	case FormatFavicon:
		return "favicon"
	default:
		return "unknown"
	}
}

// CacheKey is the physical identity of a stored L0 or L1 entry. Only the
// fields relevant to Family are populated; the struct is small and
// comparable so it can be used directly as a map key.
type CacheKey struct {
	Family CacheFamily

	// L0 keyed-family payload.
	ID   int64
	Slug string

	// L0PostList payload.
	FilterHash uint64
	CursorHash uint64

	// L1 payload.
	Format    OutputFormat
	Path      string
	QueryHash uint64
}

func L0PostByIDKey(id int64) CacheKey     { return CacheKey{Family: L0PostByID, ID: id} }
func L0PostBySlugKey(slug string) CacheKey { return CacheKey{Family: L0PostBySlug, Slug: slug} }
func L0PageByIDKey(id int64) CacheKey     { return CacheKey{Family: L0PageByID, ID: id} }
func L0PageBySlugKey(slug string) CacheKey { return CacheKey{Family: L0PageBySlug, Slug: slug} }
func L0ApiKeyKey(prefix string) CacheKey  { return CacheKey{Family: L0ApiKeyByPrefix, Slug: prefix} }
func L0PostListKey(filterHash, cursorHash uint64) CacheKey {
	return CacheKey{Family: L0PostList, FilterHash: filterHash, CursorHash: cursorHash}
}

// L1Key identifies a captured response snapshot. It is a CacheKey with
// Family fixed to L1Response, kept as a distinct type so store APIs can't
// accidentally be called with an L0 key.
type L1Key struct {
	Format    OutputFormat
	Path      string
	QueryHash uint64
}

func (k L1Key) CacheKey() CacheKey {
	return CacheKey{Family: L1Response, Format: k.Format, Path: k.Path, QueryHash: k.QueryHash}
}
