package quote

import (
	"fmt"

	"github.com/fr4nk3nst1ner/slackquote/internal/models"
	"github.com/fr4nk3nst1ner/slackquote/utils"
)

// FallbackAuthor is used whenever the author cannot be resolved
const FallbackAuthor = "A wise soul"

const (
	quoteIntro   = "It's Monday! Here is the *Super Hobby Friends Quote of the Week*: "
	dateFallback = "some nebulous point in the past"
)

// FormatQuote renders the weekly message. The date uses Slack's
// <!date^epoch^{date}|fallback> token so each reader sees local time.
func FormatQuote(msg models.Message, author string) string {
	return fmt.Sprintf(`%s"%s" - %s, <!date^%s^{date}|%s>`,
		quoteIntro, msg.Text, author, utils.EpochSeconds(msg.Timestamp), dateFallback)
}

// authorName returns the name of the first user whose ID matches
func authorName(users []models.User, authorID string) string {
	for _, user := range users {
		if user.ID == authorID {
			if user.Name == "" {
				return FallbackAuthor
			}
			return user.Name
		}
	}
	return FallbackAuthor
}
