package destino

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/eringen/destino/content"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store wraps the directory database and provides CRUD operations for
// listings, blog posts, SEO rows and page content blocks. Queries are written
// with ? bindvars and rebound for the active driver, so the same store serves
// the hosted Postgres database and a local SQLite file.
type Store struct {
	db *sqlx.DB
}

// NewStore opens the database named by dsn. postgres:// and postgresql:// DSNs
// use the pgx driver; anything else is treated as a SQLite path whose data
// directory is created if needed. Schema migrations run on open.
func NewStore(dsn string) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)
	if isPostgresDSN(dsn) {
		db, err = sqlx.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
		db, err = sqlx.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// WAL lets the prerender workers read while the admin panel writes;
		// busy_timeout makes writers wait instead of failing with SQLITE_BUSY.
		if _, err := db.Exec(`
			PRAGMA journal_mode=WAL;
			PRAGMA busy_timeout=5000;
			PRAGMA synchronous=NORMAL;
		`); err != nil {
			db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS listings (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    slug TEXT NOT NULL,
    name TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    website TEXT NOT NULL DEFAULT '',
    price_range TEXT NOT NULL DEFAULT '',
    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    cuisine TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    starts_at TEXT NOT NULL DEFAULT '',
    ends_at TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    submitted_by TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS listings_kind_slug ON listings (kind, slug)`,
	`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending'
)`,
	`
CREATE TABLE IF NOT EXISTS seo_metadata (
    route TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '',
    og_image TEXT NOT NULL DEFAULT '',
    og_type TEXT NOT NULL DEFAULT '',
    canonical TEXT NOT NULL DEFAULT '',
    schema_ld TEXT NOT NULL DEFAULT '',
    noindex INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS page_content (
    id TEXT PRIMARY KEY,
    route TEXT NOT NULL,
    block_key TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    visible INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS page_content_route_key ON page_content (route, block_key)`,
}

func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// notFound maps sql.ErrNoRows to ErrNotFound, keeping both in the chain.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// ---- listings ----

const listingColumns = `id, kind, slug, name, summary, description, address, city, phone, website,
	price_range, rating, cuisine, image_url, starts_at, ends_at, tags, status, submitted_by,
	created_at, updated_at`

type listingRow struct {
	content.Listing
	TagString string `db:"tags"`
}

func (r listingRow) listing() content.Listing {
	l := r.Listing
	l.Tags = content.ParseTags(r.TagString)
	return l
}

// ListListings returns listings of kind ordered by name. An empty status
// returns listings in any moderation state.
func (s *Store) ListListings(ctx context.Context, kind content.Kind, status content.Status) ([]content.Listing, error) {
	if !kind.IsListing() {
		return nil, content.ErrInvalidKind
	}
	q := `SELECT ` + listingColumns + ` FROM listings WHERE kind = ?`
	args := []any{kind}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY name`
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(q), args...); err != nil {
		return nil, err
	}
	listings := make([]content.Listing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.listing())
	}
	return listings, nil
}

// ListApproved returns the public listings of kind.
func (s *Store) ListApproved(ctx context.Context, kind content.Kind) ([]content.Listing, error) {
	return s.ListListings(ctx, kind, content.StatusApproved)
}

// ListPending returns every pending listing across kinds, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]content.Listing, error) {
	var rows []listingRow
	q := `SELECT ` + listingColumns + ` FROM listings WHERE status = ? ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &rows, s.rebind(q), content.StatusPending); err != nil {
		return nil, err
	}
	listings := make([]content.Listing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, r.listing())
	}
	return listings, nil
}

// GetListing returns a single approved listing by kind and slug.
func (s *Store) GetListing(ctx context.Context, kind content.Kind, slug string) (content.Listing, error) {
	var r listingRow
	q := `SELECT ` + listingColumns + ` FROM listings WHERE kind = ? AND slug = ? AND status = ?`
	if err := s.db.GetContext(ctx, &r, s.rebind(q), kind, slug, content.StatusApproved); err != nil {
		return content.Listing{}, notFound(err)
	}
	return r.listing(), nil
}

// GetListingByID returns a listing regardless of status (for admin).
func (s *Store) GetListingByID(ctx context.Context, id string) (content.Listing, error) {
	var r listingRow
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	if err := s.db.GetContext(ctx, &r, s.rebind(q), id); err != nil {
		return content.Listing{}, notFound(err)
	}
	return r.listing(), nil
}

// GetListingByKindSlug returns the listing of kind using slug, in any status.
func (s *Store) GetListingByKindSlug(ctx context.Context, kind content.Kind, slug string) (content.Listing, error) {
	var r listingRow
	q := `SELECT ` + listingColumns + ` FROM listings WHERE kind = ? AND slug = ?`
	if err := s.db.GetContext(ctx, &r, s.rebind(q), kind, slug); err != nil {
		return content.Listing{}, notFound(err)
	}
	return r.listing(), nil
}

// SaveListing upserts a listing by ID and returns the stored record. A missing
// ID is generated, a missing slug is derived from the name, and a missing
// status defaults to pending.
func (s *Store) SaveListing(ctx context.Context, l content.Listing) (content.Listing, error) {
	if !l.Kind.IsListing() {
		return l, content.ErrInvalidKind
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Slug == "" {
		l.Slug = content.Slugify(l.Name)
	}
	if l.Slug == "" {
		return l, ErrInvalidSlug
	}
	if l.Status == "" {
		l.Status = content.StatusPending
	}
	l.UpdatedAt = now()
	if l.CreatedAt == "" {
		l.CreatedAt = l.UpdatedAt
	}
	row := listingRow{Listing: l, TagString: content.JoinTags(l.Tags)}
	q := `INSERT INTO listings (` + listingColumns + `) VALUES (
		:id, :kind, :slug, :name, :summary, :description, :address, :city, :phone, :website,
		:price_range, :rating, :cuisine, :image_url, :starts_at, :ends_at, :tags, :status, :submitted_by,
		:created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		kind = excluded.kind, slug = excluded.slug, name = excluded.name, summary = excluded.summary,
		description = excluded.description, address = excluded.address, city = excluded.city,
		phone = excluded.phone, website = excluded.website, price_range = excluded.price_range,
		rating = excluded.rating, cuisine = excluded.cuisine, image_url = excluded.image_url,
		starts_at = excluded.starts_at, ends_at = excluded.ends_at, tags = excluded.tags,
		status = excluded.status, submitted_by = excluded.submitted_by, updated_at = excluded.updated_at`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return l, err
	}
	l.Tags = content.ParseTags(row.TagString)
	return l, nil
}

// ListingSlugTaken reports whether any listing of kind, in any status, uses slug.
func (s *Store) ListingSlugTaken(ctx context.Context, kind content.Kind, slug string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind(`SELECT COUNT(*) FROM listings WHERE kind = ? AND slug = ?`), kind, slug); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetListingStatus changes the moderation status of a listing.
func (s *Store) SetListingStatus(ctx context.Context, id string, status content.Status) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE listings SET status = ?, updated_at = ? WHERE id = ?`), status, now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteListing removes a listing by ID.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM listings WHERE id = ?`), id)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- posts ----

const postColumns = `slug, title, date, tags, summary, content, image_url, author, status`

type postRow struct {
	Slug     string `db:"slug"`
	Title    string `db:"title"`
	Date     string `db:"date"`
	Tags     string `db:"tags"`
	Summary  string `db:"summary"`
	Content  string `db:"content"`
	ImageURL string `db:"image_url"`
	Author   string `db:"author"`
	Status   string `db:"status"`
}

func (r postRow) post() content.BlogPost {
	p := content.BlogPost{
		Slug:     r.Slug,
		Title:    r.Title,
		Date:     r.Date,
		Tags:     content.ParseTags(r.Tags),
		Summary:  r.Summary,
		Content:  r.Content,
		ImageURL: r.ImageURL,
		Author:   r.Author,
		Status:   content.Status(r.Status),
	}
	p.Link = p.Path()
	return p
}

func (s *Store) selectPosts(ctx context.Context, q string, args ...any) ([]content.BlogPost, error) {
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(q), args...); err != nil {
		return nil, err
	}
	posts := make([]content.BlogPost, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.post())
	}
	return posts, nil
}

// ListPosts returns all approved posts ordered by date descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(ctx context.Context, tag string) ([]content.BlogPost, error) {
	if tag == "" {
		return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY date DESC`, content.StatusApproved)
	}
	normalizedTag := "%," + strings.ToLower(strings.TrimSpace(tag)) + ",%"
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE status = ? AND lower(tags) LIKE ? ORDER BY date DESC`,
		content.StatusApproved, normalizedTag)
}

// ListAllPosts returns every post in any status ordered by date descending.
func (s *Store) ListAllPosts(ctx context.Context) ([]content.BlogPost, error) {
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY date DESC`)
}

// ListPendingPosts returns posts awaiting moderation.
func (s *Store) ListPendingPosts(ctx context.Context) ([]content.BlogPost, error) {
	return s.selectPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY date`, content.StatusPending)
}

// ListTags returns a sorted, deduplicated slice of all tags from approved posts.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	var tagStrings []string
	if err := s.db.SelectContext(ctx, &tagStrings, s.rebind(`SELECT tags FROM posts WHERE status = ?`), content.StatusApproved); err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, tags := range tagStrings {
		for _, t := range content.ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// GetPost returns a single approved post by slug.
func (s *Store) GetPost(ctx context.Context, slug string) (content.BlogPost, error) {
	var r postRow
	if err := s.db.GetContext(ctx, &r, s.rebind(`SELECT `+postColumns+` FROM posts WHERE slug = ? AND status = ?`), slug, content.StatusApproved); err != nil {
		return content.BlogPost{}, notFound(err)
	}
	return r.post(), nil
}

// GetPostAny returns a post by slug regardless of status (for admin).
func (s *Store) GetPostAny(ctx context.Context, slug string) (content.BlogPost, error) {
	var r postRow
	if err := s.db.GetContext(ctx, &r, s.rebind(`SELECT `+postColumns+` FROM posts WHERE slug = ?`), slug); err != nil {
		return content.BlogPost{}, notFound(err)
	}
	return r.post(), nil
}

// SavePost upserts a blog post. Tags are normalized to lowercase.
func (s *Store) SavePost(ctx context.Context, p content.BlogPost) error {
	if p.Slug == "" {
		p.Slug = content.Slugify(p.Title)
	}
	if p.Slug == "" {
		return ErrInvalidSlug
	}
	if p.Status == "" {
		p.Status = content.StatusPending
	}
	row := postRow{
		Slug:     p.Slug,
		Title:    p.Title,
		Date:     p.Date,
		Tags:     content.JoinTags(p.Tags),
		Summary:  p.Summary,
		Content:  p.Content,
		ImageURL: p.ImageURL,
		Author:   p.Author,
		Status:   string(p.Status),
	}
	q := `INSERT INTO posts (` + postColumns + `) VALUES
		(:slug, :title, :date, :tags, :summary, :content, :image_url, :author, :status)
	ON CONFLICT (slug) DO UPDATE SET
		title = excluded.title, date = excluded.date, tags = excluded.tags, summary = excluded.summary,
		content = excluded.content, image_url = excluded.image_url, author = excluded.author,
		status = excluded.status`
	_, err := s.db.NamedExecContext(ctx, q, row)
	return err
}

// SetPostStatus changes the moderation status of a post.
func (s *Store) SetPostStatus(ctx context.Context, slug string, status content.Status) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE posts SET status = ? WHERE slug = ?`), status, slug)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM posts WHERE slug = ?`), slug)
	return err
}

// PendingCount returns the number of listings and posts awaiting moderation.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var listings, posts int
	if err := s.db.GetContext(ctx, &listings, s.rebind(`SELECT COUNT(*) FROM listings WHERE status = ?`), content.StatusPending); err != nil {
		return 0, err
	}
	if err := s.db.GetContext(ctx, &posts, s.rebind(`SELECT COUNT(*) FROM posts WHERE status = ?`), content.StatusPending); err != nil {
		return 0, err
	}
	return listings + posts, nil
}

// ---- SEO metadata ----

const seoColumns = `route, title, description, keywords, og_image, og_type, canonical, schema_ld, noindex, updated_at`

// GetSEO returns the explicit metadata row for route.
func (s *Store) GetSEO(ctx context.Context, route string) (content.SEOEntry, error) {
	var e content.SEOEntry
	if err := s.db.GetContext(ctx, &e, s.rebind(`SELECT `+seoColumns+` FROM seo_metadata WHERE route = ?`), content.NormalizeRoute(route)); err != nil {
		return content.SEOEntry{}, notFound(err)
	}
	return e, nil
}

// ListSEO returns every metadata row ordered by route.
func (s *Store) ListSEO(ctx context.Context) ([]content.SEOEntry, error) {
	var entries []content.SEOEntry
	if err := s.db.SelectContext(ctx, &entries, `SELECT `+seoColumns+` FROM seo_metadata ORDER BY route`); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveSEO upserts the metadata row for e.Route.
func (s *Store) SaveSEO(ctx context.Context, e content.SEOEntry) error {
	e.Route = content.NormalizeRoute(e.Route)
	e.UpdatedAt = now()
	q := `INSERT INTO seo_metadata (` + seoColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (route) DO UPDATE SET
		title = excluded.title, description = excluded.description, keywords = excluded.keywords,
		og_image = excluded.og_image, og_type = excluded.og_type, canonical = excluded.canonical,
		schema_ld = excluded.schema_ld, noindex = excluded.noindex, updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, s.rebind(q), e.Route, e.Title, e.Description, e.Keywords,
		e.OGImage, e.OGType, e.Canonical, e.Schema, boolInt(e.NoIndex), e.UpdatedAt)
	return err
}

// DeleteSEO removes the metadata row for route.
func (s *Store) DeleteSEO(ctx context.Context, route string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM seo_metadata WHERE route = ?`), content.NormalizeRoute(route))
	return err
}

// ---- page content blocks ----

const blockColumns = `id, route, block_key, title, body, sort_order, visible`

// ListBlocks returns the blocks of route ordered by position, then key.
func (s *Store) ListBlocks(ctx context.Context, route string, visibleOnly bool) ([]content.ContentBlock, error) {
	q := `SELECT ` + blockColumns + ` FROM page_content WHERE route = ?`
	if visibleOnly {
		q += ` AND visible = 1`
	}
	q += ` ORDER BY sort_order, block_key`
	var blocks []content.ContentBlock
	if err := s.db.SelectContext(ctx, &blocks, s.rebind(q), content.NormalizeRoute(route)); err != nil {
		return nil, err
	}
	return blocks, nil
}

// GetBlock returns a block by ID.
func (s *Store) GetBlock(ctx context.Context, id string) (content.ContentBlock, error) {
	var b content.ContentBlock
	if err := s.db.GetContext(ctx, &b, s.rebind(`SELECT `+blockColumns+` FROM page_content WHERE id = ?`), id); err != nil {
		return content.ContentBlock{}, notFound(err)
	}
	return b, nil
}

// SaveBlock upserts a block by (route, key) and returns the stored record.
func (s *Store) SaveBlock(ctx context.Context, b content.ContentBlock) (content.ContentBlock, error) {
	b.Route = content.NormalizeRoute(b.Route)
	b.Key = content.Slugify(b.Key)
	if b.Key == "" {
		return b, ErrInvalidSlug
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	q := `INSERT INTO page_content (` + blockColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (route, block_key) DO UPDATE SET
		title = excluded.title, body = excluded.body, sort_order = excluded.sort_order, visible = excluded.visible`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), b.ID, b.Route, b.Key, b.Title, b.Body, b.Position, boolInt(b.Visible)); err != nil {
		return b, err
	}
	// An existing (route, key) keeps its original ID.
	if err := s.db.GetContext(ctx, &b.ID, s.rebind(`SELECT id FROM page_content WHERE route = ? AND block_key = ?`), b.Route, b.Key); err != nil {
		return b, err
	}
	return b, nil
}

// SetBlockVisible toggles whether a block is rendered.
func (s *Store) SetBlockVisible(ctx context.Context, id string, visible bool) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE page_content SET visible = ? WHERE id = ?`), boolInt(visible), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteBlock removes a block by ID.
func (s *Store) DeleteBlock(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM page_content WHERE id = ?`), id)
	return err
}
