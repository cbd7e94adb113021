package validation

import "fmt"

// ReactionEmojis is the closed set of emoji a schedule reaction may carry.
var ReactionEmojis = []string{"👍", "❤️", "🎉", "⚽", "🏀", "🔥"}

// ValidateEmoji checks that the emoji belongs to the reaction set.
func ValidateEmoji(emoji string) error {
	for _, e := range ReactionEmojis {
		if emoji == e {
			return nil
		}
	}
	return fmt.Errorf("unsupported reaction emoji %q", emoji)
}
