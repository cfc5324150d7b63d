package destino

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/destino/content"
)

const (
	testPassword  = "correct horse"
	testJWTSecret = "jwt-test-secret"
)

type testSite struct {
	t      *testing.T
	app    *App
	srv    *httptest.Server
	client *http.Client
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	dir := t.TempDir()
	snapshots := filepath.Join(dir, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(snapshots, "hotels", "sea-view"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshots, "hotels", "sea-view", "index.html"),
		[]byte("<html><body>prerendered sea view</body></html>"), 0o644))

	a := New(SiteConfig{
		Name:          "Visit Example",
		URL:           "https://visit.example",
		Description:   "Where to stay, eat and go",
		DatabaseURL:   filepath.Join(dir, "data", "site.db"),
		StaticDir:     filepath.Join(dir, "public"),
		SnapshotDir:   snapshots,
		AdminPassword: testPassword,
		SessionSecret: "0123456789abcdef0123456789abcdef",
		JWTSecret:     testJWTSecret,
	})
	require.NoError(t, a.Init())
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(a.Echo)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testSite{t: t, app: a, srv: srv, client: client}
}

func (s *testSite) seed() {
	s.t.Helper()
	ctx := context.Background()
	st := s.app.Store
	_, err := st.SaveListing(ctx, content.Listing{
		Kind:    content.KindHotel,
		Name:    "Sea View",
		City:    "Split",
		Summary: "Rooms by the water",
		Rating:  4.5,
		Status:  content.StatusApproved,
	})
	require.NoError(s.t, err)
	_, err = st.SaveListing(ctx, content.Listing{Kind: content.KindHotel, Name: "Hidden Inn"})
	require.NoError(s.t, err)
	require.NoError(s.t, st.SavePost(ctx, content.BlogPost{
		Slug:    "first-post",
		Title:   "First Post",
		Date:    "2024-05-01",
		Tags:    []string{"news"},
		Content: "Opening **season** starts in May.",
		Status:  content.StatusApproved,
	}))
	_, err = st.SaveBlock(ctx, content.ContentBlock{Route: "/about", Key: "intro", Body: "A small local team.", Visible: true})
	require.NoError(s.t, err)
	s.app.Cache.Invalidate()
}

func (s *testSite) do(req *http.Request) (*http.Response, string) {
	s.t.Helper()
	res, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(s.t, err)
	return res, string(body)
}

func (s *testSite) get(path string) (*http.Response, string) {
	s.t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(s.t, err)
	return s.do(req)
}

// csrf returns the token the CSRF middleware issued to the client.
func (s *testSite) csrf() string {
	s.t.Helper()
	u, err := url.Parse(s.srv.URL)
	require.NoError(s.t, err)
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == "_csrf" {
			return c.Value
		}
	}
	s.t.Fatal("no _csrf cookie issued")
	return ""
}

func (s *testSite) post(path string, form url.Values) (*http.Response, string) {
	s.t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testSite) login() {
	s.t.Helper()
	s.get("/admin/")
	res, _ := s.post("/admin/login/", url.Values{"_csrf": {s.csrf()}, "password": {testPassword}})
	require.Equal(s.t, http.StatusSeeOther, res.StatusCode)
}

func TestPublicPages(t *testing.T) {
	s := newTestSite(t)
	s.seed()

	res, body := s.get("/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<title>Visit Example</title>")
	assert.Contains(t, body, `<link rel="canonical" href="https://visit.example/">`)
	assert.Contains(t, body, `"@type":"WebSite"`)
	assert.Contains(t, body, `<a href="/hotels/sea-view/">Sea View</a>`)
	assert.NotContains(t, body, "Hidden Inn")

	res, body = s.get("/hotels/sea-view/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<title>Sea View | Visit Example</title>")
	assert.Contains(t, body, `<meta name="description" content="Rooms by the water">`)
	assert.Contains(t, body, `<link rel="canonical" href="https://visit.example/hotels/sea-view/">`)
	assert.Contains(t, body, `"@type":"BreadcrumbList"`)
	assert.Contains(t, body, `<div id="root">`)
	assert.Empty(t, res.Header.Get("X-Prerendered"))

	res, body = s.get("/blog/first-post/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `<meta property="og:type" content="article">`)
	assert.Contains(t, body, "<strong>season</strong>")

	res, body = s.get("/about/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<title>About | Visit Example</title>")
	assert.Contains(t, body, `<meta name="description" content="A small local team.">`)
}

func TestPendingAndMissingRoutesAreNotFound(t *testing.T) {
	s := newTestSite(t)
	s.seed()

	for _, path := range []string{"/hotels/hidden-inn/", "/blog/nope/", "/nowhere/"} {
		res, body := s.get(path)
		assert.Equal(t, http.StatusNotFound, res.StatusCode, path)
		assert.Contains(t, body, `<meta name="robots" content="noindex, nofollow">`, path)
		assert.Contains(t, body, "Page Not Found | Visit Example", path)
	}
}

func TestTrailingSlashRedirect(t *testing.T) {
	s := newTestSite(t)

	res, _ := s.get("/hotels")
	assert.Equal(t, http.StatusMovedPermanently, res.StatusCode)
	assert.Equal(t, "/hotels/", res.Header.Get("Location"))
}

func TestSitemapRobotsAndFeed(t *testing.T) {
	s := newTestSite(t)
	s.seed()
	require.NoError(t, s.app.Store.SaveSEO(context.Background(), content.SEOEntry{Route: "/terms", NoIndex: true}))

	res, body := s.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "application/xml")
	assert.Contains(t, body, "<loc>https://visit.example/</loc>")
	assert.Contains(t, body, "<loc>https://visit.example/hotels/sea-view/</loc>")
	assert.Contains(t, body, "<loc>https://visit.example/blog/first-post/</loc>")
	assert.NotContains(t, body, "hidden-inn")
	assert.Contains(t, body, "<loc>https://visit.example/privacy/</loc>")
	assert.NotContains(t, body, "https://visit.example/terms/", "noindex rows stay out of the sitemap")

	res, body = s.get("/robots.txt")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Disallow: /admin/")
	assert.Contains(t, body, "Sitemap: https://visit.example/sitemap.xml")

	res, body = s.get("/feed.xml")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<title>First Post</title>")
	assert.Contains(t, body, "<link>https://visit.example/blog/first-post/</link>")
	assert.Contains(t, body, "<category>news</category>")
	assert.Contains(t, body, "Opening season starts in May.")
}

func TestCrawlersGetSnapshots(t *testing.T) {
	s := newTestSite(t)
	s.seed()

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/hotels/sea-view/", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	res, body := s.do(req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "true", res.Header.Get("X-Prerendered"))
	assert.Contains(t, body, "prerendered sea view")

	// No snapshot on disk: the crawler gets the live page.
	req, err = http.NewRequest(http.MethodGet, s.srv.URL+"/blog/first-post/", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Twitterbot/1.0")
	res, body = s.do(req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Header.Get("X-Prerendered"))
	assert.Contains(t, body, "First Post")
}

func TestSubmissionStaysPendingUntilApproved(t *testing.T) {
	s := newTestSite(t)
	ctx := context.Background()

	res, body := s.get("/submit/hotel/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `<meta name="robots" content="noindex, nofollow">`)

	res, body = s.post("/submit/hotel/", url.Values{"_csrf": {s.csrf()}, "city": {"Split"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Split", "values are kept on error")

	res, _ = s.post("/submit/hotel/", url.Values{"name": {"No Token"}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body = s.post("/submit/hotel/", url.Values{
		"_csrf": {s.csrf()},
		"name":  {"Harbor Rooms"},
		"city":  {"Split"},
		"tags":  {"harbor, quiet"},
		"email": {"owner@example.com"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Thank you.")

	pending, err := s.app.Store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	harbor := pending[0]
	assert.Equal(t, "harbor-rooms", harbor.Slug)
	assert.Equal(t, "owner@example.com", harbor.SubmittedBy)
	assert.Equal(t, []string{"harbor", "quiet"}, harbor.Tags)

	res, _ = s.get("/hotels/harbor-rooms/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = s.post("/admin/listings/"+harbor.ID+"/approve/", url.Values{"_csrf": {s.csrf()}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/admin/", res.Header.Get("Location"), "anonymous moderation is sent to the login page")

	s.login()
	res, body = s.get("/admin/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Harbor Rooms")
	assert.Contains(t, body, `<meta name="robots" content="noindex, nofollow">`)

	res, _ = s.post("/admin/listings/"+harbor.ID+"/approve/", url.Values{"_csrf": {s.csrf()}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Contains(t, res.Header.Get("Location"), "/admin/?msg=")

	res, body = s.get("/hotels/harbor-rooms/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<title>Harbor Rooms | Visit Example</title>")

	res, _ = s.post("/submit/hotel/", url.Values{"_csrf": {s.csrf()}, "name": {"Harbor Rooms"}})
	require.Equal(t, http.StatusOK, res.StatusCode)
	taken, err := s.app.Store.ListingSlugTaken(ctx, content.KindHotel, "harbor-rooms-2")
	require.NoError(t, err)
	assert.True(t, taken, "a clashing submission gets a numbered slug")
}

func TestBlogSubmission(t *testing.T) {
	s := newTestSite(t)
	s.get("/submit/blog/")

	res, _ := s.post("/submit/blog/", url.Values{
		"_csrf":   {s.csrf()},
		"title":   {"Hidden Beaches"},
		"content": {"Three coves worth the walk."},
		"author":  {"Ana"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	p, err := s.app.Store.GetPostAny(context.Background(), "hidden-beaches")
	require.NoError(t, err)
	assert.Equal(t, content.StatusPending, p.Status)
	assert.Equal(t, "Ana", p.Author)

	res, _ = s.get("/submit/castles/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAdminLogin(t *testing.T) {
	s := newTestSite(t)

	res, body := s.get("/admin/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `name="password"`)

	res, _ = s.post("/admin/login/", url.Values{"_csrf": {s.csrf()}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	s.login()
	res, body = s.get("/admin/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Pending (0 listings, 0 posts)")

	res, _ = s.post("/admin/logout/", url.Values{"_csrf": {s.csrf()}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body = s.get("/admin/")
	assert.Contains(t, body, `name="password"`)
}

func TestAdminEditsContent(t *testing.T) {
	s := newTestSite(t)
	s.seed()
	s.login()
	ctx := context.Background()
	token := s.csrf()

	res, _ := s.post("/admin/seo/save/", url.Values{
		"_csrf":   {token},
		"route":   {"/hotels/sea-view/"},
		"title":   {"Best rooms in Split"},
		"noindex": {"on"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	e, err := s.app.Store.GetSEO(ctx, "/hotels/sea-view")
	require.NoError(t, err)
	assert.True(t, e.NoIndex)

	_, body := s.get("/hotels/sea-view/")
	assert.Contains(t, body, "Best rooms in Split")
	assert.Contains(t, body, `<meta name="robots" content="noindex, nofollow">`)

	res, _ = s.post("/admin/seo/save/", url.Values{"_csrf": {token}, "route": {"/about"}, "schema": {"{not json"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Contains(t, res.Header.Get("Location"), "msg=")
	_, err = s.app.Store.GetSEO(ctx, "/about")
	assert.ErrorIs(t, err, ErrNotFound)

	res, _ = s.post("/admin/blocks/save/", url.Values{
		"_csrf":    {token},
		"route":    {"/about"},
		"key":      {"team"},
		"body":     {"Meet the team."},
		"position": {"2"},
		"visible":  {"on"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body = s.get("/about/")
	assert.Contains(t, body, "Meet the team.")

	blocks, err := s.app.Store.ListBlocks(ctx, "/about", false)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	res, _ = s.post("/admin/blocks/"+blocks[1].ID+"/toggle/", url.Values{"_csrf": {token}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, body = s.get("/about/")
	assert.NotContains(t, body, "Meet the team.")

	res, _ = s.post("/admin/posts/save/", url.Values{
		"_csrf":         {token},
		"original_slug": {"first-post"},
		"slug":          {"opening-day"},
		"title":         {"Opening Day"},
		"date":          {"2024-05-02"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	res, _ = s.get("/blog/opening-day/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = s.get("/blog/first-post/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = s.post("/admin/posts/save/", url.Values{"_csrf": {token}, "title": {"Bad"}, "date": {"May 2"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	_, err = s.app.Store.GetPostAny(ctx, "bad")
	assert.ErrorIs(t, err, ErrNotFound)
}

func signToken(t *testing.T, secret string, claims *AdminClaims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestVerifyAdminToken(t *testing.T) {
	admin := &AdminClaims{Role: "admin"}
	admin.Subject = "u1"
	claims, err := VerifyAdminToken([]byte(testJWTSecret), signToken(t, testJWTSecret, admin))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	nested := &AdminClaims{Role: "authenticated"}
	nested.AppMetadata.Role = "admin"
	_, err = VerifyAdminToken([]byte(testJWTSecret), signToken(t, testJWTSecret, nested))
	assert.NoError(t, err)

	_, err = VerifyAdminToken([]byte(testJWTSecret), signToken(t, testJWTSecret, &AdminClaims{Role: "authenticated"}))
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = VerifyAdminToken([]byte(testJWTSecret), signToken(t, "other-secret", &AdminClaims{Role: "admin"}))
	assert.Error(t, err)

	expired := &AdminClaims{Role: "admin"}
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = VerifyAdminToken([]byte(testJWTSecret), signToken(t, testJWTSecret, expired))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = VerifyAdminToken(nil, "anything")
	assert.Error(t, err)
}

func TestAdminTokenLogin(t *testing.T) {
	s := newTestSite(t)

	res, _ := s.post("/admin/token/", url.Values{"access_token": {signToken(t, testJWTSecret, &AdminClaims{Role: "editor"})}})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = s.post("/admin/token/", url.Values{"access_token": {"not-a-jwt"}})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = s.post("/admin/token/", url.Values{})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/admin/token/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testJWTSecret, &AdminClaims{Role: "admin"}))
	res, _ = s.do(req)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	_, body := s.get("/admin/")
	assert.Contains(t, body, "Pending (0 listings, 0 posts)")
}
