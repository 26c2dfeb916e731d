// Package commands implements the chat commands independently of any chat
// platform. Transports translate platform events into Handler calls and
// render Messages back.
package commands

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/credentials"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/pipeline"
	"github.com/coah80/appxzip/internal/ratelimit"
	"github.com/coah80/appxzip/internal/util"
)

type Runner interface {
	Run(ctx context.Context, sourceURL, authToken string) (*pipeline.Artifact, error)
}

type Alerter interface {
	PipelineFailed(user, url, kind string, err error)
}

type Recorder interface {
	CommandHandled(command, result string)
	ArtifactDelivered(size int64)
}

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

type Options struct {
	Credentials *credentials.Store
	Runner      Runner
	// Limiter is optional; nil means no rate limit.
	Limiter          *ratelimit.Limiter
	Alerts           Alerter
	Metrics          Recorder
	FS               afero.Fs
	BlockPrivateURLs bool
	Logger           *log.Logger
}

type Handler struct {
	creds        *credentials.Store
	runner       Runner
	limiter      *ratelimit.Limiter
	alerts       Alerter
	metrics      Recorder
	fs           afero.Fs
	blockPrivate bool
	logger       *log.Logger
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		creds:        opts.Credentials,
		runner:       opts.Runner,
		limiter:      opts.Limiter,
		alerts:       opts.Alerts,
		metrics:      opts.Metrics,
		fs:           opts.FS,
		blockPrivate: opts.BlockPrivateURLs,
		logger:       logging.OrDefault(opts.Logger),
	}
	if h.creds == nil {
		h.creds = credentials.NewStore()
	}
	if h.fs == nil {
		h.fs = afero.NewOsFs()
	}
	if h.alerts == nil {
		h.alerts = nopAlerter{}
	}
	if h.metrics == nil {
		h.metrics = nopRecorder{}
	}
	return h
}

func (h *Handler) Start(ctx context.Context, u User, r Responder) {
	h.reply(r, "start", Message{
		Kind:  KindInfo,
		Title: "Hello, " + u.DisplayName,
		Hints: []Hint{
			{Label: "Set your API token using", Code: "/set_api_token <your_token>"},
			{Label: "Then use", Code: "/download <url>"},
		},
	})
	h.metrics.CommandHandled("start", resultOK)
}

// SetToken stores args as the caller's token after a shape check. The check
// runs on the raw argument; the stored value is trimmed.
func (h *Handler) SetToken(ctx context.Context, u User, args string, r Responder) {
	const cmd = "set_api_token"
	if strings.TrimSpace(args) == "" {
		h.reject(r, cmd, Message{Kind: KindInfo, Body: msgTokenUsage, Ephemeral: true})
		return
	}
	if !credentials.ValidateShape(args) {
		h.reject(r, cmd, Message{Kind: KindFailure, Body: msgTokenInvalid, Ephemeral: true})
		return
	}

	h.creds.Set(u.Key, strings.TrimSpace(args))
	h.logger.Info("API token set", "user", u.Key)
	h.reply(r, cmd, Message{Kind: KindSuccess, Body: msgTokenSet, Ephemeral: true})
	h.metrics.CommandHandled(cmd, resultOK)
}

// Download validates the request, runs the pipeline and delivers the
// artifact. The artifact file is removed afterwards whether or not the
// delivery worked.
func (h *Handler) Download(ctx context.Context, u User, args string, r Responder) {
	const cmd = "download"
	target := strings.TrimSpace(args)
	if target == "" {
		h.reject(r, cmd, Message{Kind: KindInfo, Body: msgDownloadUsage})
		return
	}
	token, ok := h.creds.Get(u.Key)
	if !ok {
		h.reject(r, cmd, Message{Kind: KindFailure, Body: msgNoToken})
		return
	}
	if v := util.ValidateDownloadURL(target, h.blockPrivate); !v.Valid {
		h.logger.Debug("Rejected download URL", "user", u.Key, "reason", v.Error)
		h.reject(r, cmd, Message{Kind: KindFailure, Body: msgInvalidURL})
		return
	}
	if h.limiter != nil {
		if allowed, _, resetIn := h.limiter.Allow(u.Key); !allowed {
			wait := int(math.Ceil(resetIn.Seconds()))
			h.reject(r, cmd, Message{
				Kind: KindFailure,
				Body: fmt.Sprintf("Too many downloads. Try again in %ds.", wait),
			})
			return
		}
	}

	h.reply(r, cmd, Message{
		Kind: KindProgress,
		Body: msgProcessing,
		Link: &Link{Text: "Click to view", URL: target},
	})

	artifact, err := h.runner.Run(ctx, target, token)
	if err != nil {
		kind := failure.KindOf(err)
		h.logger.Error("Download failed", "user", u.Key, "url", target, "kind", kind, "err", err)
		h.alerts.PipelineFailed(u.Key, target, kind, err)
		h.reply(r, cmd, Message{Kind: KindFailure, Body: msgFailed})
		h.metrics.CommandHandled(cmd, resultFailed)
		return
	}
	defer h.discard(artifact)

	caption := fmt.Sprintf("✅ Output generated: %s (simulated)", artifact.Name)
	if err := r.Document(artifact.Path, artifact.Name, caption); err != nil {
		h.logger.Error("Error sending file", "user", u.Key, "path", artifact.Path, "err", err)
		h.reply(r, cmd, Message{
			Kind: KindFailure,
			Body: fmt.Sprintf("❌ File processed but could not be sent: %v", err),
		})
		h.metrics.CommandHandled(cmd, resultFailed)
		return
	}

	h.metrics.ArtifactDelivered(artifact.Size)
	h.metrics.CommandHandled(cmd, resultOK)
}

func (h *Handler) discard(a *pipeline.Artifact) {
	if err := h.fs.Remove(a.Path); err != nil {
		h.logger.Error("Cleanup error", "path", a.Path, "err", err)
	}
}

func (h *Handler) reject(r Responder, cmd string, msg Message) {
	h.reply(r, cmd, msg)
	h.metrics.CommandHandled(cmd, resultRejected)
}

func (h *Handler) reply(r Responder, cmd string, msg Message) {
	if err := r.Reply(msg); err != nil {
		h.logger.Warn("Reply failed", "command", cmd, "kind", msg.Kind, "err", err)
	}
}

type nopAlerter struct{}

func (nopAlerter) PipelineFailed(string, string, string, error) {}

type nopRecorder struct{}

func (nopRecorder) CommandHandled(string, string) {}
func (nopRecorder) ArtifactDelivered(int64)       {}
