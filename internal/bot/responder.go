package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/commands"
	"github.com/coah80/appxzip/internal/config"
)

type interactionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionResponder edits the deferred response in place, so each reply
// replaces the previous one.
type interactionResponder struct {
	session     interactionSession
	interaction *discordgo.Interaction
	fs          afero.Fs
}

func (r *interactionResponder) Reply(msg commands.Message) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{messageEmbed(msg)},
	})
	return err
}

func (r *interactionResponder) Document(path, name, caption string) error {
	f, err := r.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() > config.MaxDiscordFileSize {
		return fmt.Errorf("file is %s, over the %s Discord upload limit",
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(config.MaxDiscordFileSize))
	}

	_, err = r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{successEmbed(caption, name, info.Size())},
		Files: []*discordgo.File{
			{
				Name:        name,
				ContentType: "video/x-matroska",
				Reader:      f,
			},
		},
	})
	return err
}
