package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/coah80/appxzip/internal/commands"
)

const (
	colorInfo     = 0x5865F2
	colorProgress = 0xFEE75C
	colorSuccess  = 0x57F287
	colorError    = 0xED4245

	footerText = "appxzip"
)

func kindColor(k commands.Kind) int {
	switch k {
	case commands.KindProgress:
		return colorProgress
	case commands.KindSuccess:
		return colorSuccess
	case commands.KindFailure:
		return colorError
	default:
		return colorInfo
	}
}

func messageEmbed(msg commands.Message) *discordgo.MessageEmbed {
	lines := []string{}
	if msg.Body != "" {
		lines = append(lines, msg.Body)
	}
	for _, h := range msg.Hints {
		lines = append(lines, fmt.Sprintf("%s: `%s`", h.Label, h.Code))
	}
	if msg.Link != nil {
		link := fmt.Sprintf("[%s](%s)", msg.Link.Text, msg.Link.URL)
		if len(lines) > 0 && msg.Body != "" && len(msg.Hints) == 0 {
			lines[len(lines)-1] += " " + link
		} else {
			lines = append(lines, link)
		}
	}

	return &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: strings.Join(lines, "\n"),
		Color:       kindColor(msg.Kind),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func successEmbed(title, filename string, fileSize int64) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{}
	if filename != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "File", Value: filename, Inline: true,
		})
	}
	if fileSize > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Size", Value: humanize.Bytes(uint64(fileSize)), Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  colorSuccess,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	}
}
