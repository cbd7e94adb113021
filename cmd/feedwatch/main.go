// Command feedwatch is a terminal client for the matchday platform: it signs
// in (optionally), renders the live schedule feed and tails the chat room.
// Lines typed on stdin are sent as chat messages when signed in.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"matchday/internal/dispatch"
	"matchday/internal/realtime"
	"matchday/internal/session"
	"matchday/internal/views"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8460", "Platform base URL")
	username := flag.String("username", "", "Account username (empty for read-only)")
	password := flag.String("password", "", "Account password")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := session.NewManager(*baseURL)
	if *username != "" {
		if err := sess.SignIn(ctx, *username, *password); err != nil {
			log.Fatalf("Sign-in failed: %v", err)
		}
		state := sess.Current()
		name := *username
		if state.Profile != nil {
			name = state.Profile.DisplayName
		}
		fmt.Printf("Signed in as %s", name)
		if state.IsAdmin() {
			fmt.Print(" (admin)")
		}
		fmt.Println()
	} else {
		fmt.Println("Watching read-only. Pass -username/-password to chat.")
	}

	sub, err := realtime.Dial(ctx, *baseURL, sess.Token())
	if err != nil {
		log.Fatalf("Realtime connect failed: %v", err)
	}
	defer func() { _ = sub.Close() }()

	var feedDirty atomic.Bool
	feed, err := views.NewFeedView(ctx, sess, sub, func() { feedDirty.Store(true) })
	if err != nil {
		log.Fatalf("Feed failed to open: %v", err)
	}
	defer feed.Close()

	chat, err := views.NewChatView(ctx, sess, sub, nil)
	if err != nil {
		log.Fatalf("Chat failed to open: %v", err)
	}
	defer chat.Close()

	notices := dispatch.NoticeFunc(func(msg string) {
		fmt.Printf("! %s\n", msg)
	})
	dispatcher := dispatch.New(sess, notices)

	// Chat tail: print every message we have not shown yet.
	printed := make(map[string]struct{})
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, msg := range chat.Messages() {
					if _, ok := printed[msg.ID]; ok {
						continue
					}
					printed[msg.ID] = struct{}{}
					fmt.Printf("[chat] %s: %s\n", msg.DisplayName, msg.Content)
				}
				if feedDirty.Swap(false) {
					renderFeed(feed)
				}
			}
		}
	}()

	renderFeed(feed)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if _, err := dispatcher.SendMessage(ctx, line); err != nil {
				// The notice sink already reported it.
				continue
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nBye.")
}

func renderFeed(feed *views.FeedView) {
	schedules := feed.Schedules()
	fmt.Printf("--- feed (%d schedules) ---\n", len(schedules))
	for _, s := range schedules {
		fmt.Printf("%s  %s @ %s %s (%s)  by %s\n",
			s.Title, s.GameName, s.Date, s.Time, s.Place, feed.AuthorOf(s))
		summary := feed.ReactionsFor(s.ID)
		if len(summary.Counts) > 0 {
			parts := make([]string, 0, len(summary.Counts))
			for emoji, n := range summary.Counts {
				parts = append(parts, fmt.Sprintf("%s %d", emoji, n))
			}
			sort.Strings(parts)
			fmt.Printf("  reactions: %s\n", strings.Join(parts, "  "))
		}
		if n := feed.CommentCount(s.ID); n > 0 {
			fmt.Printf("  %d comment(s)\n", n)
		}
	}
	fmt.Println("---")
}
