package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of *discordgo.Session the runner uses.
type Session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SessionFactory opens a client for a bot token.
type SessionFactory func(token string) (Session, error)

// Intents needed to see commands in guild channels and DMs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// NewDiscordSession creates a discordgo session with the runner's intents.
func NewDiscordSession(token string) (Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		// discordgo errors never echo the token, but keep it out of ours too.
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}
