package destino

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/destino/content"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from    content.Status
		action  Action
		want    content.Status
		wantErr error
	}{
		{content.StatusPending, ActionApprove, content.StatusApproved, nil},
		{content.StatusPending, ActionReject, content.StatusRejected, nil},
		{content.StatusRejected, ActionApprove, content.StatusApproved, nil},
		{content.StatusApproved, ActionReject, content.StatusRejected, nil},
		{content.StatusApproved, ActionApprove, content.StatusApproved, ErrNoTransition},
		{content.StatusRejected, ActionReject, content.StatusRejected, ErrNoTransition},
		{content.StatusPending, ActionEdit, content.StatusPending, nil},
		{content.StatusApproved, ActionEdit, content.StatusApproved, nil},
		{content.StatusPending, Action("publish"), content.StatusPending, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Transition(tt.from, tt.action)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newModerationApp(t *testing.T) *App {
	t.Helper()
	s := setupTestStore(t)
	return &App{Store: s, Cache: NewContentCache(s, time.Hour), logger: zap.NewNop()}
}

func TestModerateListingInvalidatesCache(t *testing.T) {
	a := newModerationApp(t)
	ctx := context.Background()

	l, err := a.Store.SaveListing(ctx, content.Listing{Kind: content.KindActivity, Name: "Kayak Tour"})
	require.NoError(t, err)

	listings, err := a.Cache.ListListings(ctx, content.KindActivity)
	require.NoError(t, err)
	assert.Empty(t, listings)

	got, err := a.ModerateListing(ctx, l.ID, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, content.StatusApproved, got.Status)

	listings, err = a.Cache.ListListings(ctx, content.KindActivity)
	require.NoError(t, err)
	assert.Len(t, listings, 1)

	_, err = a.ModerateListing(ctx, l.ID, ActionApprove)
	assert.ErrorIs(t, err, ErrNoTransition)

	_, err = a.ModerateListing(ctx, "missing", ActionApprove)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModeratePost(t *testing.T) {
	a := newModerationApp(t)
	ctx := context.Background()
	seedPosts(t, a.Store)

	p, err := a.ModeratePost(ctx, "draft", ActionReject)
	require.NoError(t, err)
	assert.Equal(t, content.StatusRejected, p.Status)

	stored, err := a.Store.GetPostAny(ctx, "draft")
	require.NoError(t, err)
	assert.Equal(t, content.StatusRejected, stored.Status)

	_, err = a.ModeratePost(ctx, "newer", ActionApprove)
	assert.ErrorIs(t, err, ErrNoTransition)
}
