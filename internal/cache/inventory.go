package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix        = "profile:%s"
	ScheduleFeedKey         = "feed:schedules"
	MessageHistoryKeyString = "chat:messages"
)

const (
	ProfileTTL        = 5 * time.Minute
	ScheduleFeedTTL   = 2 * time.Minute
	MessageHistoryTTL = 2 * time.Minute
)

func ProfileKey(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProfile(ctx context.Context, userID string) {
	Invalidate(ctx, ProfileKey(userID))
}

func InvalidateScheduleFeed(ctx context.Context) {
	Invalidate(ctx, ScheduleFeedKey)
}

func InvalidateMessageHistory(ctx context.Context) {
	Invalidate(ctx, MessageHistoryKeyString)
}
