package domain

// IngestState enumerates the stages of one ingest run.
type IngestState string

const (
	IngestIdle              IngestState = "idle"
	IngestExtracting        IngestState = "extracting"
	IngestStructuring       IngestState = "structuring"
	IngestArticleSaved      IngestState = "article_saved"
	IngestGeneratingContent IngestState = "generating_content"
	IngestGeneratingImage   IngestState = "generating_image"
	IngestContentSaved      IngestState = "content_saved"
	IngestDone              IngestState = "done"
	IngestAborted           IngestState = "aborted"
)

// PublishState enumerates the stages of one publish run.
type PublishState string

const (
	PublishIdle       PublishState = "idle"
	PublishFetching   PublishState = "fetching"
	PublishPublishing PublishState = "publishing"
	PublishUpdating   PublishState = "updating"
	PublishDone       PublishState = "done"
	PublishAborted    PublishState = "aborted"
)

// PlatformOutcome records what happened to one platform during ingest.
// ContentID is empty when generation or saving failed; Err says which.
type PlatformOutcome struct {
	Platform  string
	Text      string
	ContentID string
	Err       error
}

// IngestReport summarizes a finished ingest run.
type IngestReport struct {
	RunID     string
	URL       string
	State     IngestState
	Trace     []IngestState
	ArticleID string
	Article   Article
	Outcomes  []PlatformOutcome
	ImageURL  string
	ImageErr  error
}

// ContentIDs returns the records saved by the run, in platform order.
func (r IngestReport) ContentIDs() []string {
	ids := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.ContentID != "" {
			ids = append(ids, o.ContentID)
		}
	}
	return ids
}

// PublishReport summarizes a finished publish run. PostID survives a failed
// status update so the caller knows the post went out.
type PublishReport struct {
	RunID     string
	ContentID string
	Platform  string
	State     PublishState
	Trace     []PublishState
	PostID    string
}
