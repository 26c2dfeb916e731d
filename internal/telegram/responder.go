package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/commands"
)

type chatResponder struct {
	sender sender
	chatID int64
	fs     afero.Fs
}

func (r *chatResponder) Reply(msg commands.Message) error {
	out := tgbotapi.NewMessage(r.chatID, renderHTML(msg))
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	_, err := r.sender.Send(out)
	return err
}

func (r *chatResponder) Document(path, name, caption string) error {
	f, err := r.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() > maxDocumentSize {
		return fmt.Errorf("file is %s, over the %s Telegram upload limit",
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(maxDocumentSize))
	}

	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FileReader{Name: name, Reader: f})
	doc.Caption = caption
	_, err = r.sender.Send(doc)
	return err
}

// renderHTML formats msg for Telegram's HTML parse mode. Ephemeral is
// ignored; Telegram has no per-user replies in groups.
func renderHTML(msg commands.Message) string {
	var lines []string
	if msg.Title != "" {
		lines = append(lines, "<b>"+html.EscapeString(msg.Title)+"</b>")
	}

	body := html.EscapeString(msg.Body)
	if msg.Link != nil {
		link := fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(msg.Link.URL), html.EscapeString(msg.Link.Text))
		if body != "" {
			body += " " + link
		} else {
			body = link
		}
	}
	if body != "" {
		lines = append(lines, body)
	}

	for _, h := range msg.Hints {
		lines = append(lines, fmt.Sprintf("%s: <code>%s</code>", html.EscapeString(h.Label), html.EscapeString(h.Code)))
	}
	return strings.Join(lines, "\n")
}
