// Package dispatch issues the app's write operations against the platform,
// validating input locally and surfacing failures as user-facing notices.
package dispatch

import (
	"context"
	"strings"

	"matchday/internal/collection"
	"matchday/internal/models"
	"matchday/internal/session"
	"matchday/internal/validation"
)

// Notices receives user-facing failure messages. Implementations decide how
// to present them (toast, status line, log).
type Notices interface {
	Notify(message string)
}

// NoticeFunc adapts a function to the Notices interface.
type NoticeFunc func(message string)

// Notify calls f.
func (f NoticeFunc) Notify(message string) { f(message) }

// Dispatcher performs mutations on behalf of the signed-in session.
type Dispatcher struct {
	session *session.Manager
	notices Notices
}

// New creates a Dispatcher. notices may be nil.
func New(sess *session.Manager, notices Notices) *Dispatcher {
	return &Dispatcher{session: sess, notices: notices}
}

func (d *Dispatcher) notify(err error) error {
	if err != nil && d.notices != nil {
		d.notices.Notify(err.Error())
	}
	return err
}

func (d *Dispatcher) requireSignIn() error {
	if !d.session.Current().SignedIn() {
		return &collection.RequestError{Message: "You need to sign in to do that."}
	}
	return nil
}

// CreateSchedule posts a new game schedule.
func (d *Dispatcher) CreateSchedule(ctx context.Context, input validation.ScheduleInput, description string) (*models.Schedule, error) {
	if err := d.requireSignIn(); err != nil {
		return nil, d.notify(err)
	}
	if err := validation.ValidateSchedule(input); err != nil {
		return nil, d.notify(&collection.RequestError{Message: err.Error()})
	}

	record := map[string]string{
		"title":       strings.TrimSpace(input.Title),
		"game_name":   strings.TrimSpace(input.GameName),
		"time":        strings.TrimSpace(input.Time),
		"date":        strings.TrimSpace(input.Date),
		"place":       strings.TrimSpace(input.Place),
		"description": strings.TrimSpace(description),
	}

	var created models.Schedule
	if err := d.session.Client().Insert(ctx, models.CollectionSchedules, record, &created); err != nil {
		return nil, d.notify(err)
	}
	return &created, nil
}

// PostComment appends a comment to a schedule's thread.
func (d *Dispatcher) PostComment(ctx context.Context, scheduleID, content string) (*models.Comment, error) {
	if err := d.requireSignIn(); err != nil {
		return nil, d.notify(err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, d.notify(&collection.RequestError{Message: "Comment cannot be empty."})
	}

	var created models.Comment
	err := d.session.Client().Insert(ctx, models.CollectionComments, map[string]string{
		"schedule_id": scheduleID,
		"content":     content,
	}, &created)
	if err != nil {
		return nil, d.notify(err)
	}
	return &created, nil
}

// ToggleCommentLike likes a comment, or removes the caller's existing like.
func (d *Dispatcher) ToggleCommentLike(ctx context.Context, commentID string) error {
	if err := d.requireSignIn(); err != nil {
		return d.notify(err)
	}
	userID := d.session.Current().User.ID
	client := d.session.Client()

	likes, err := collection.Fetch[models.CommentLike](ctx, client,
		models.CollectionCommentLikes,
		collection.Eq("comment_id", commentID), collection.Ascending)
	if err != nil {
		return d.notify(err)
	}

	for _, like := range likes {
		if like.UserID != userID {
			continue
		}
		if err := client.Delete(ctx, models.CollectionCommentLikes, like.ID); err != nil && !collection.IsNotFound(err) {
			return d.notify(err)
		}
		return nil
	}

	err = client.Insert(ctx, models.CollectionCommentLikes, map[string]string{
		"comment_id": commentID,
	}, nil)
	return d.notify(err)
}

// ToggleReaction sets the caller's emoji reaction on a schedule. Any existing
// reaction is deleted first; picking the same emoji again just clears it.
func (d *Dispatcher) ToggleReaction(ctx context.Context, scheduleID, emoji string) error {
	if err := d.requireSignIn(); err != nil {
		return d.notify(err)
	}
	if err := validation.ValidateEmoji(emoji); err != nil {
		return d.notify(&collection.RequestError{Message: err.Error()})
	}
	userID := d.session.Current().User.ID
	client := d.session.Client()

	reactions, err := collection.Fetch[models.Reaction](ctx, client,
		models.CollectionReactions,
		collection.Eq("schedule_id", scheduleID), collection.Ascending)
	if err != nil {
		return d.notify(err)
	}

	sameEmoji := false
	for _, r := range reactions {
		if r.UserID != userID {
			continue
		}
		if r.Emoji == emoji {
			sameEmoji = true
		}
		if err := client.Delete(ctx, models.CollectionReactions, r.ID); err != nil && !collection.IsNotFound(err) {
			return d.notify(err)
		}
	}
	if sameEmoji {
		return nil
	}

	err = client.Insert(ctx, models.CollectionReactions, map[string]string{
		"schedule_id": scheduleID,
		"emoji":       emoji,
	}, nil)
	return d.notify(err)
}

// SendMessage posts a chat message with the author's current display name
// and avatar denormalized in.
func (d *Dispatcher) SendMessage(ctx context.Context, content string) (*models.Message, error) {
	if err := d.requireSignIn(); err != nil {
		return nil, d.notify(err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, d.notify(&collection.RequestError{Message: "Message cannot be empty."})
	}

	state := d.session.Current()
	displayName := ""
	avatarURL := ""
	if state.Profile != nil {
		displayName = state.Profile.DisplayName
		avatarURL = state.Profile.AvatarURL
	}
	if displayName == "" {
		displayName = "anonymous"
	}

	var created models.Message
	err := d.session.Client().Insert(ctx, models.CollectionMessages, map[string]string{
		"content":      content,
		"display_name": displayName,
		"avatar_url":   avatarURL,
	}, &created)
	if err != nil {
		return nil, d.notify(err)
	}
	return &created, nil
}

// CreateUser creates an account through the admin API. The caller must be an
// admin; the platform enforces it regardless.
func (d *Dispatcher) CreateUser(ctx context.Context, username, password, displayName, role string) error {
	if err := d.requireSignIn(); err != nil {
		return d.notify(err)
	}
	if !d.session.Current().IsAdmin() {
		return d.notify(&collection.RequestError{Message: "Only admins can create accounts."})
	}

	err := d.session.Client().Post(ctx, "/api/admin/users", map[string]string{
		"username":     username,
		"password":     password,
		"display_name": displayName,
		"role":         role,
	}, nil)
	return d.notify(err)
}
