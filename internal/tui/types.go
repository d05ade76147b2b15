package tui

import "time"

type panel int

const (
	panelFeed panel = iota
	panelThread
	panelFilter
	panelSaved
	panelUpload
)

const (
	// loadMoreDistance is how close the cursor gets to the last rendered
	// quote before the next page is requested.
	loadMoreDistance = 3

	// loadMoreLines is the same trigger for scrolling the feed viewport.
	loadMoreLines = 10

	toastDuration = 2 * time.Second
	countFanOut   = 4
)

const (
	feedTimeout   = 15 * time.Second
	chatTimeout   = 2 * time.Minute
	uploadTimeout = 2 * time.Minute
	removeTimeout = 15 * time.Second
	localTimeout  = 5 * time.Second
)

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
)

const heroTagline = "Quotes from your library, one scroll at a time."

const (
	msgEmptyFeed       = "No quotes found. Try uploading some books!"
	msgFeedFailed      = "Failed to load feed"
	msgLoadingQuotes   = "Loading quotes..."
	msgLoadingMore     = "Loading more..."
	msgEndOfFeed       = "You've reached the end of the feed."
	msgLoadingComments = "Loading comments..."
	msgCommentsFailed  = "Failed to load comments. Please try again."
	msgNoComments      = "No comments yet. Say something about this quote."
	msgNoSaved         = "No saved quotes yet"
	msgNoBooks         = "No books yet. Upload some with u."

	toastSaved           = "Quote saved"
	toastUnsaved         = "Quote removed from saved"
	toastRemoved         = "Quote removed"
	toastCopied          = "Copied to clipboard"
	toastShared          = "Quote shared"
	toastShareFailed     = "Failed to share quote"
	toastSendFailed      = "Failed to send message"
	toastUploadFailed    = "Error uploading files"
	toastRemoveFailed    = "Failed to remove book"
	toastThemeFailed     = "Failed to save theme"
	toastExportFailed    = "Failed to export saved quotes"
	toastPersistFailed   = "Failed to store saved quotes"
	toastNothingToExport = "Nothing to export"
)

const (
	composerPlaceholder = "Ask about this quote..."
	uploadPlaceholder   = "Paths to .epub files, separated by spaces or commas"
)
