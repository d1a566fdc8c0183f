// Package catalog defines core types shared across subsystems.
package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors returned by stores.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrQueueClosed means a queue accepts and yields no further items.
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueFull means a queue has no capacity left for another item.
	ErrQueueFull = errors.New("queue full")
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// DateFromTime truncates t to its calendar date.
func DateFromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Game is the persisted catalog record. Slug is the unique natural key.
type Game struct {
	ID          int64   `json:"id"`
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ReleaseDate *Date   `json:"release_date"`
	PublisherID *int64  `json:"publisher_id"`
	DeveloperID *int64  `json:"developer_id"`
}

// GameUpdate carries the fields a partial update may change. Nil fields are left untouched.
type GameUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ReleaseDate *Date   `json:"release_date"`
	PublisherID *int64  `json:"publisher_id"`
	DeveloperID *int64  `json:"developer_id"`
}

// Apply copies the set fields of u onto g.
func (u GameUpdate) Apply(g Game) Game {
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Description != nil {
		g.Description = u.Description
	}
	if u.ReleaseDate != nil {
		g.ReleaseDate = u.ReleaseDate
	}
	if u.PublisherID != nil {
		g.PublisherID = u.PublisherID
	}
	if u.DeveloperID != nil {
		g.DeveloperID = u.DeveloperID
	}
	return g
}

// EntityKind names one of the passive lookup tables.
type EntityKind string

// Lookup tables exposed through the CRUD API.
const (
	KindPublisher EntityKind = "publishers"
	KindDeveloper EntityKind = "developers"
	KindGenre     EntityKind = "genres"
	KindPlatform  EntityKind = "platforms"
)

// EntityKinds lists every supported lookup table.
var EntityKinds = []EntityKind{KindPublisher, KindDeveloper, KindGenre, KindPlatform}

// HasWebsite reports whether the kind carries a website column.
func (k EntityKind) HasWebsite() bool {
	return k == KindPublisher || k == KindDeveloper
}

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	for _, known := range EntityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// NamedEntity is a publisher, developer, genre or platform row.
type NamedEntity struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Website *string `json:"website,omitempty"`
}

// CandidateItem is one entry extracted from the listing page.
type CandidateItem struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// EnrichedItem is a candidate plus the optional fields found on its detail page.
type EnrichedItem struct {
	CandidateItem
	Description *string `json:"description,omitempty"`
	ReleaseDate *Date   `json:"release_date,omitempty"`
}

// EnrichmentOutcome tags how a detail lookup ended.
type EnrichmentOutcome string

// Enrichment outcomes.
const (
	// OutcomeEnriched means the detail page was fetched and parsed; fields may still be absent.
	OutcomeEnriched EnrichmentOutcome = "enriched"
	// OutcomeDegraded means the lookup failed and the item carries no extra data.
	OutcomeDegraded EnrichmentOutcome = "degraded"
)

// Enrichment is the tagged result of enriching one candidate.
type Enrichment struct {
	Item    EnrichedItem
	Outcome EnrichmentOutcome
	Reason  error
}

// Degraded reports whether the lookup failed.
func (e Enrichment) Degraded() bool {
	return e.Outcome == OutcomeDegraded
}

// PipelineResult summarizes one scrape-and-upsert run.
type PipelineResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// Page is the body and metadata returned by a Fetcher.
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

// Run status values.
const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// RunMode records how a run was invoked.
type RunMode string

// Run modes.
const (
	RunModeSync       RunMode = "sync"
	RunModeBackground RunMode = "background"
)

// Run tracks one invocation of the pipeline.
type Run struct {
	ID        string          `json:"id"`
	Status    RunStatus       `json:"status"`
	Mode      RunMode         `json:"mode"`
	Submitted time.Time       `json:"submitted_at"`
	Started   *time.Time      `json:"started_at,omitempty"`
	Finished  *time.Time      `json:"finished_at,omitempty"`
	Result    *PipelineResult `json:"result,omitempty"`
	ErrorText string          `json:"error_text,omitempty"`
}

// QueueItem wraps a background run ready to execute.
type QueueItem struct {
	RunID     string
	Attempt   int
	Submitted int64
}

// RunEvent is published after a successful run.
type RunEvent struct {
	RunAt      time.Time `json:"run_at"`
	ListingURL string    `json:"listing_url"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Total      int       `json:"total"`
	Degraded   int       `json:"degraded"`
	ArchiveURI string    `json:"archive_uri,omitempty"`
}
