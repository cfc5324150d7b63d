package destino

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eringen/destino/content"
)

// Action is an admin moderation decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionEdit    Action = "edit"
)

var (
	// ErrNoTransition is returned when an action would leave the status unchanged.
	ErrNoTransition = errors.New("record is already in that state")
	// ErrUnknownAction is returned for an action name that is not approve, reject or edit.
	ErrUnknownAction = errors.New("unknown moderation action")
)

// Transition returns the status a record moves to when action is applied.
// Editing never changes the status.
func Transition(from content.Status, action Action) (content.Status, error) {
	switch action {
	case ActionApprove:
		if from == content.StatusApproved {
			return from, ErrNoTransition
		}
		return content.StatusApproved, nil
	case ActionReject:
		if from == content.StatusRejected {
			return from, ErrNoTransition
		}
		return content.StatusRejected, nil
	case ActionEdit:
		return from, nil
	}
	return from, ErrUnknownAction
}

// ModerateListing applies an approve or reject action to a listing.
func (a *App) ModerateListing(ctx context.Context, id string, action Action) (content.Listing, error) {
	l, err := a.Store.GetListingByID(ctx, id)
	if err != nil {
		return l, err
	}
	next, err := Transition(l.Status, action)
	if err != nil {
		return l, err
	}
	if next != l.Status {
		if err := a.Store.SetListingStatus(ctx, id, next); err != nil {
			return l, fmt.Errorf("set listing status: %w", err)
		}
		a.Cache.Invalidate()
		a.logger.Info("listing moderated", zap.String("id", id), zap.String("kind", string(l.Kind)),
			zap.String("from", string(l.Status)), zap.String("to", string(next)))
	}
	l.Status = next
	return l, nil
}

// ModeratePost applies an approve or reject action to a blog post.
func (a *App) ModeratePost(ctx context.Context, slug string, action Action) (content.BlogPost, error) {
	p, err := a.Store.GetPostAny(ctx, slug)
	if err != nil {
		return p, err
	}
	next, err := Transition(p.Status, action)
	if err != nil {
		return p, err
	}
	if next != p.Status {
		if err := a.Store.SetPostStatus(ctx, slug, next); err != nil {
			return p, fmt.Errorf("set post status: %w", err)
		}
		a.Cache.Invalidate()
		a.logger.Info("post moderated", zap.String("slug", slug),
			zap.String("from", string(p.Status)), zap.String("to", string(next)))
	}
	p.Status = next
	return p, nil
}
