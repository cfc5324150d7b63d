package destino

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/destino/content"
	"github.com/eringen/destino/views"
)

var submitFields = []string{
	"name", "title", "summary", "description", "content", "author", "address", "city",
	"phone", "website", "cuisine", "starts_at", "ends_at", "tags", "email",
}

var submitLabels = map[content.Kind]string{
	content.KindHotel:      "a hotel",
	content.KindRestaurant: "a restaurant",
	content.KindEvent:      "an event",
	content.KindActivity:   "an activity",
	content.KindBusiness:   "a business",
	content.KindBlog:       "a blog post",
}

func (a *App) submitKind(c echo.Context) (content.Kind, error) {
	kind, err := content.ParseKind(c.Param("kind"))
	if err != nil {
		return "", echo.ErrNotFound
	}
	return kind, nil
}

func (a *App) handleSubmitForm(c echo.Context) error {
	kind, err := a.submitKind(c)
	if err != nil {
		return err
	}
	return a.renderSubmit(c, http.StatusOK, views.SubmitData{Kind: kind})
}

func (a *App) renderSubmit(c echo.Context, code int, d views.SubmitData) error {
	d.Label = submitLabels[d.Kind]
	d.CSRF = CsrfToken(c)
	m := a.noIndexMeta("Suggest " + d.Label)
	return RenderStatus(c, code, views.Page(a.layout(d.Kind.Prefix(), m), views.Submit(d)))
}

// handleSubmit stores a public submission as pending. It never publishes
// anything by itself.
func (a *App) handleSubmit(c echo.Context) error {
	kind, err := a.submitKind(c)
	if err != nil {
		return err
	}
	if !a.submitLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many submissions. Try again later.")
	}
	values := make(map[string]string, len(submitFields))
	for _, f := range submitFields {
		values[f] = strings.TrimSpace(c.FormValue(f))
	}
	d := views.SubmitData{Kind: kind, Values: values}

	ctx := c.Request().Context()
	if kind == content.KindBlog {
		err = a.submitPost(ctx, values)
	} else {
		err = a.submitListing(ctx, kind, values)
	}
	var invalid submitError
	if errors.As(err, &invalid) {
		d.Error = string(invalid)
		return a.renderSubmit(c, http.StatusUnprocessableEntity, d)
	}
	if err != nil {
		return err
	}
	d.Done = true
	return a.renderSubmit(c, http.StatusOK, d)
}

// submitError is a problem with the submitted form, shown to the user.
type submitError string

func (e submitError) Error() string { return string(e) }

func (a *App) submitListing(ctx context.Context, kind content.Kind, v map[string]string) error {
	if v["name"] == "" {
		return submitError("Name is required.")
	}
	slug := content.Slugify(v["name"])
	if slug == "" {
		return submitError("Name must contain letters or digits.")
	}
	slug, err := a.freeListingSlug(ctx, kind, slug)
	if err != nil {
		return err
	}
	l, err := a.Store.SaveListing(ctx, content.Listing{
		Kind:        kind,
		Slug:        slug,
		Name:        v["name"],
		Summary:     v["summary"],
		Description: v["description"],
		Address:     v["address"],
		City:        v["city"],
		Phone:       v["phone"],
		Website:     v["website"],
		Cuisine:     v["cuisine"],
		StartsAt:    v["starts_at"],
		EndsAt:      v["ends_at"],
		Tags:        splitTags(v["tags"]),
		Status:      content.StatusPending,
		SubmittedBy: v["email"],
	})
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	a.logger.Info("listing submitted", zap.String("kind", string(kind)), zap.String("id", l.ID), zap.String("slug", l.Slug))
	return nil
}

// freeListingSlug appends -2, -3, ... until slug is unused for kind.
func (a *App) freeListingSlug(ctx context.Context, kind content.Kind, slug string) (string, error) {
	candidate := slug
	for i := 2; i < 100; i++ {
		taken, err := a.Store.ListingSlugTaken(ctx, kind, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", slug, i)
	}
	return "", submitError("A listing with this name already exists.")
}

func (a *App) submitPost(ctx context.Context, v map[string]string) error {
	if v["title"] == "" {
		return submitError("Title is required.")
	}
	slug := content.Slugify(v["title"])
	if slug == "" {
		return submitError("Title must contain letters or digits.")
	}
	if _, err := a.Store.GetPostAny(ctx, slug); err == nil {
		return submitError("A post with this title already exists.")
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := a.Store.SavePost(ctx, content.BlogPost{
		Slug:    slug,
		Title:   v["title"],
		Date:    today(),
		Tags:    splitTags(v["tags"]),
		Summary: v["summary"],
		Content: v["content"],
		Author:  v["author"],
		Status:  content.StatusPending,
	}); err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	a.logger.Info("post submitted", zap.String("slug", slug))
	return nil
}
