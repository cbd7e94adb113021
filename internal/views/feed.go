// Package views assembles the app's screens from synchronized collection
// views: the schedule feed and the chat room.
package views

import (
	"context"
	"log"

	"matchday/internal/collection"
	"matchday/internal/models"
	"matchday/internal/realtime"
	"matchday/internal/session"
	"matchday/internal/viewsync"
)

// CommentWithAuthor is a comment joined client-side with its author's
// profile. Authors missing from the profile lookup render as "unknown".
type CommentWithAuthor struct {
	models.Comment
	DisplayName string
	AvatarURL   string
}

// ReactionSummary is the aggregated reaction state of one schedule.
type ReactionSummary struct {
	Counts map[string]int
	// Mine is the signed-in user's emoji, "" when none.
	Mine string
}

// FeedView is the schedule feed: newest-first schedules with their comment
// threads and reactions, all kept live. Profiles are fetched once at open
// and used as a static author lookup.
type FeedView struct {
	session *session.Manager

	schedules *viewsync.Synchronizer[models.Schedule]
	comments  *viewsync.Synchronizer[models.Comment]
	reactions *viewsync.Synchronizer[models.Reaction]

	profiles map[string]models.Profile
}

// NewFeedView opens the feed. onUpdate, when non-nil, fires after any of the
// underlying views applies a new snapshot.
func NewFeedView(ctx context.Context, sess *session.Manager, sub *realtime.Subscriber, onUpdate func()) (*FeedView, error) {
	v := &FeedView{
		session:  sess,
		profiles: make(map[string]models.Profile),
	}

	// Author identities change rarely; a stale display name is acceptable
	// for the lifetime of the screen.
	profiles, err := collection.Fetch[models.Profile](ctx, sess.Client(),
		models.CollectionProfiles, collection.Filter{}, collection.Ascending)
	if err != nil {
		log.Printf("views: profile lookup failed, authors will render as unknown: %v", err)
	}
	for _, p := range profiles {
		v.profiles[p.UserID] = p
	}

	notify := func() {
		if onUpdate != nil {
			onUpdate()
		}
	}

	v.schedules, err = viewsync.New[models.Schedule](ctx, sess.Client(), sub,
		models.CollectionSchedules, collection.Filter{}, collection.Descending,
		func(viewsync.Snapshot[models.Schedule]) { notify() })
	if err != nil {
		return nil, err
	}
	v.comments, err = viewsync.New[models.Comment](ctx, sess.Client(), sub,
		models.CollectionComments, collection.Filter{}, collection.Ascending,
		func(viewsync.Snapshot[models.Comment]) { notify() })
	if err != nil {
		v.Close()
		return nil, err
	}
	v.reactions, err = viewsync.New[models.Reaction](ctx, sess.Client(), sub,
		models.CollectionReactions, collection.Filter{}, collection.Ascending,
		func(viewsync.Snapshot[models.Reaction]) { notify() })
	if err != nil {
		v.Close()
		return nil, err
	}

	return v, nil
}

// Loading reports whether any underlying view is still on its initial fetch.
func (v *FeedView) Loading() bool {
	return v.schedules.Snapshot().Phase == viewsync.Fetching ||
		v.comments.Snapshot().Phase == viewsync.Fetching ||
		v.reactions.Snapshot().Phase == viewsync.Fetching
}

// Schedules returns the feed, newest first.
func (v *FeedView) Schedules() []models.Schedule {
	return v.schedules.Snapshot().Records
}

// CommentsFor returns a schedule's comment thread in chronological order,
// with author identities resolved.
func (v *FeedView) CommentsFor(scheduleID string) []CommentWithAuthor {
	out := []CommentWithAuthor{}
	for _, c := range v.comments.Snapshot().Records {
		if c.ScheduleID != scheduleID {
			continue
		}
		entry := CommentWithAuthor{Comment: c, DisplayName: "unknown"}
		if p, ok := v.profiles[c.UserID]; ok {
			entry.DisplayName = p.DisplayName
			entry.AvatarURL = p.AvatarURL
		}
		out = append(out, entry)
	}
	return out
}

// CommentCount returns the size of a schedule's thread.
func (v *FeedView) CommentCount(scheduleID string) int {
	n := 0
	for _, c := range v.comments.Snapshot().Records {
		if c.ScheduleID == scheduleID {
			n++
		}
	}
	return n
}

// ReactionsFor aggregates a schedule's reactions by emoji and picks out the
// signed-in user's own reaction.
func (v *FeedView) ReactionsFor(scheduleID string) ReactionSummary {
	summary := ReactionSummary{Counts: make(map[string]int)}
	userID := ""
	if state := v.session.Current(); state.SignedIn() {
		userID = state.User.ID
	}
	for _, r := range v.reactions.Snapshot().Records {
		if r.ScheduleID != scheduleID {
			continue
		}
		summary.Counts[r.Emoji]++
		if userID != "" && r.UserID == userID {
			summary.Mine = r.Emoji
		}
	}
	return summary
}

// AuthorOf resolves a schedule owner's display name.
func (v *FeedView) AuthorOf(schedule models.Schedule) string {
	if p, ok := v.profiles[schedule.UserID]; ok {
		return p.DisplayName
	}
	return "unknown"
}

// Close releases every change subscription the feed holds.
func (v *FeedView) Close() {
	if v.schedules != nil {
		v.schedules.Close()
	}
	if v.comments != nil {
		v.comments.Close()
	}
	if v.reactions != nil {
		v.reactions.Close()
	}
}
