package constants

// Defaults shared by the service, API and CLI
const (
	DefaultListLimit     = 50
	DefaultQuizQuestions = 5
	DefaultMaxAutoTags   = 5
	DefaultNoteStyle     = "detailed"
	RecentNotesLimit     = 10

	// Text truncation lengths
	PreviewLength      = 100
	ShortPreviewLength = 80
)

// Note styles offered by the formatter prompt
var NoteStyles = []string{"detailed", "summary", "bullet points"}

// File permissions
const (
	ConfigFileMode = 0600 // Secure file permissions for config
)

// Unanswered marks a skipped question when grading a quiz.
const Unanswered = -1
