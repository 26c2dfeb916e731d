// Package bot is the Discord transport: slash commands in, embeds and file
// attachments out.
package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/commands"
	"github.com/coah80/appxzip/internal/credentials"
	"github.com/coah80/appxzip/internal/logging"
)

const platform = "discord"

type Config struct {
	Token string
	AppID string
}

type Bot struct {
	session *discordgo.Session
	cfg     Config
	handler *commands.Handler
	fs      afero.Fs
	logger  *log.Logger
	cmdIDs  []string
}

func New(cfg Config, handler *commands.Handler, fs afero.Fs, logger *log.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	b := &Bot{
		session: s,
		cfg:     cfg,
		handler: handler,
		fs:      fs,
		logger:  logging.OrDefault(logger).With("platform", platform),
	}

	s.AddHandler(b.handleInteraction)
	s.Identify.Intents = discordgo.IntentsGuilds

	return b, nil
}

func (b *Bot) Platform() string { return platform }

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}

	b.logger.Info("Bot logged in", "user", b.session.State.User.Username)

	for _, cmd := range commandDefinitions() {
		created, err := b.session.ApplicationCommandCreate(b.cfg.AppID, "", cmd)
		if err != nil {
			b.logger.Error("Failed to register command", "command", cmd.Name, "err", err)
			continue
		}
		b.cmdIDs = append(b.cmdIDs, created.ID)
		b.logger.Info("Registered command", "command", "/"+created.Name)
	}

	return nil
}

func (b *Bot) Stop() {
	for _, id := range b.cmdIDs {
		if err := b.session.ApplicationCommandDelete(b.cfg.AppID, "", id); err != nil {
			b.logger.Warn("Failed to delete command", "id", id, "err", err)
		}
	}
	if err := b.session.Close(); err != nil {
		b.logger.Warn("Session close failed", "err", err)
	}
}

var (
	integrationTypes = &[]discordgo.ApplicationIntegrationType{
		discordgo.ApplicationIntegrationGuildInstall,
		discordgo.ApplicationIntegrationUserInstall,
	}
	contexts = &[]discordgo.InteractionContextType{
		discordgo.InteractionContextGuild,
		discordgo.InteractionContextBotDM,
		discordgo.InteractionContextPrivateChannel,
	}
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:             "start",
			Description:      "Show how to use the bot",
			IntegrationTypes: integrationTypes,
			Contexts:         contexts,
		},
		{
			Name:             "set_api_token",
			Description:      "Store the API token used to fetch decryption keys",
			IntegrationTypes: integrationTypes,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "token",
					Description: "Your API token (a JWT)",
					Required:    true,
				},
			},
		},
		{
			Name:             "download",
			Description:      "Process an archive .zip URL",
			IntegrationTypes: integrationTypes,
			Contexts:         contexts,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "The .zip URL to process",
					Required:    true,
				},
			},
		},
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.dispatch(s, i)
}

func (b *Bot) dispatch(s interactionSession, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	user := interactionUser(i)

	var run func(context.Context, *interactionResponder)
	ephemeral := false
	switch data.Name {
	case "start":
		run = func(ctx context.Context, r *interactionResponder) { b.handler.Start(ctx, user, r) }
	case "set_api_token":
		ephemeral = true
		args := optionString(data.Options, "token")
		run = func(ctx context.Context, r *interactionResponder) { b.handler.SetToken(ctx, user, args, r) }
	case "download":
		args := optionString(data.Options, "url")
		run = func(ctx context.Context, r *interactionResponder) { b.handler.Download(ctx, user, args, r) }
	default:
		return
	}

	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		b.logger.Error("Failed to defer response", "command", data.Name, "err", err)
		return
	}

	r := &interactionResponder{session: s, interaction: i.Interaction, fs: b.fs}
	// Runs detach from the gateway event so a long download does not block it.
	go run(context.Background(), r)
}

func interactionUser(i *discordgo.InteractionCreate) commands.User {
	u := i.User
	name := ""
	if i.Member != nil {
		if u == nil {
			u = i.Member.User
		}
		name = i.Member.Nick
	}
	if u == nil {
		return commands.User{Key: credentials.UserKey(platform, "unknown"), DisplayName: "there"}
	}
	if name == "" {
		name = u.GlobalName
	}
	if name == "" {
		name = u.Username
	}
	return commands.User{Key: credentials.UserKey(platform, u.ID), DisplayName: name}
}

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}
