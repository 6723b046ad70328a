package domain

import "errors"

// Resolution errors.
var (
	// ErrNoURLFound is returned when the input text has no recognizable platform link.
	ErrNoURLFound = errors.New("no platform url found")

	// ErrShortLinkUnresolvable is returned when a short link redirect chain fails or times out.
	ErrShortLinkUnresolvable = errors.New("short link unresolvable")

	// ErrNoContentID is returned when a canonical URL matches no known identifier pattern.
	ErrNoContentID = errors.New("no content id in url")

	// ErrUpstreamRejected is returned when the detail endpoint answers with a non-success status.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrParseFailed is returned when a detail response matches no expected schema.
	ErrParseFailed = errors.New("detail response parse failed")
)

// Collaborator errors.
var (
	// ErrFeatureDisabled is returned when an optional collaborator is not configured.
	ErrFeatureDisabled = errors.New("feature not configured")

	// ErrTranscriptionFailed is returned when the speech-to-text vendor reports failure.
	ErrTranscriptionFailed = errors.New("transcription failed")

	// ErrMissingRecipient is returned when an email has no recipient.
	ErrMissingRecipient = errors.New("missing email recipient")
)

// Resolution stages, in pipeline order.
const (
	StageExtractURL = "extract_url"
	StageShortLink  = "short_link"
	StageContentID  = "content_id"
	StageDetail     = "detail"
)

// ResolveError wraps a resolution failure with the stage it happened in.
type ResolveError struct {
	Stage string
	Input string
	Err   error
}

func (e *ResolveError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Reason returns a short human-readable explanation suitable for API callers.
func (e *ResolveError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrNoURLFound):
		return "未找到抖音链接"
	case errors.Is(e.Err, ErrShortLinkUnresolvable):
		return "短链接无法解析"
	case errors.Is(e.Err, ErrNoContentID):
		return "无法从链接中提取视频ID"
	case errors.Is(e.Err, ErrUpstreamRejected):
		return "抖音拒绝了请求，视频可能已删除或设为私密"
	case errors.Is(e.Err, ErrParseFailed):
		return "无法解析视频信息"
	default:
		return "解析失败，请检查链接是否有效"
	}
}

// NewResolveError creates a new ResolveError.
func NewResolveError(stage, input string, err error) *ResolveError {
	return &ResolveError{
		Stage: stage,
		Input: input,
		Err:   err,
	}
}
