package crawl

import "fmt"

// FeedReason classifies why an entire feed could not be processed.
type FeedReason string

const (
	FeedReasonNetwork FeedReason = "network"
	FeedReasonParse   FeedReason = "parse"
	FeedReasonTimeout FeedReason = "timeout"
)

// FeedError isolates a failure to the one feed it occurred on; the crawler
// logs it and moves on to the next feed.
type FeedError struct {
	FeedID int64
	Reason FeedReason
	Err    error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %d: %s: %v", e.FeedID, e.Reason, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// RejectReason classifies why a single candidate article was skipped.
type RejectReason string

const (
	RejectTooShort         RejectReason = "too_short"
	RejectTooLong          RejectReason = "too_long"
	RejectVideo            RejectReason = "video"
	RejectTranscript       RejectReason = "transcript"
	RejectFiller           RejectReason = "filler"
	RejectBannedWord       RejectReason = "banned_word"
	RejectDuplicateURL     RejectReason = "duplicate_url"
	RejectCapacityExceeded RejectReason = "capacity_exceeded"
	RejectNoImage          RejectReason = "no_image"
)

// ArticleRejected records a skipped candidate; the crawler logs it and
// continues with the next candidate for the same feed.
type ArticleRejected struct {
	URL    string
	Reason RejectReason
}

func (e *ArticleRejected) Error() string {
	return fmt.Sprintf("article rejected (%s): %s", e.Reason, e.URL)
}

// ImageReason classifies why image acquisition failed for a candidate.
type ImageReason string

const (
	ImageReasonNoCandidate    ImageReason = "no_candidate"
	ImageReasonHTTP           ImageReason = "http"
	ImageReasonContentType    ImageReason = "content_type"
	ImageReasonBelowMinBytes  ImageReason = "below_min_bytes"
	ImageReasonDecode         ImageReason = "decode"
	ImageReasonEncode         ImageReason = "encode"
	ImageReasonBudgetExceeded ImageReason = "budget_exceeded"
)

// ImageError skips the candidate article at crawl time; at the image
// stage the equivalent condition is recorded and processing continues.
type ImageError struct {
	URL    string
	Reason ImageReason
	Err    error
}

func (e *ImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image error (%s) for %s: %v", e.Reason, e.URL, e.Err)
	}
	return fmt.Sprintf("image error (%s) for %s", e.Reason, e.URL)
}

func (e *ImageError) Unwrap() error { return e.Err }
