package commands

// Kind tells a transport how to style a reply.
type Kind int

const (
	KindInfo Kind = iota
	KindProgress
	KindSuccess
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	default:
		return "info"
	}
}

// Hint is a labelled command snippet, rendered as code.
type Hint struct {
	Label string
	Code  string
}

type Link struct {
	Text string
	URL  string
}

// Message is a platform-neutral reply. Transports decide how to render each
// part; Body is plain text.
type Message struct {
	Kind  Kind
	Title string
	Body  string
	Hints []Hint
	Link  *Link
	// Ephemeral asks the transport to show the reply to the caller only,
	// where the platform supports it.
	Ephemeral bool
}

// Responder delivers replies to the user that issued a command.
type Responder interface {
	Reply(msg Message) error
	Document(path, name, caption string) error
}

// User identifies the caller. Key must be unique across platforms.
type User struct {
	Key         string
	DisplayName string
}

const (
	msgTokenUsage    = "Please provide your API token. Example: /set_api_token eyJhbGci..."
	msgTokenInvalid  = "This doesn't look like a valid JWT token."
	msgTokenSet      = "✅ API token set successfully."
	msgDownloadUsage = "Please provide a .zip URL. Example: /download <url>"
	msgNoToken       = "❌ API token not set. Use /set_api_token first."
	msgInvalidURL    = "Please provide a valid .zip URL."
	msgProcessing    = "Processing URL:"
	msgFailed        = "❌ Failed to process the file. Check logs for more info."
)
