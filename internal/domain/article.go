package domain

import "time"

// SourceIndicator records the provenance of an article summary.
type SourceIndicator string

const (
	IndicatorAI            SourceIndicator = "ai"
	IndicatorFallback      SourceIndicator = "fallback"
	IndicatorHumanVerified SourceIndicator = "human_verified"
)

// Severity is the analyst-facing priority assigned to an article.
type Severity string

const (
	SeverityHigh    Severity = "High"
	SeverityMedium  Severity = "Medium"
	SeverityLow     Severity = "Low"
	SeverityUnknown Severity = "Unknown"
)

// CategoryUnknown marks articles whose category could not be determined.
const CategoryUnknown = "Unknown"

// Article is the core persisted record, unique by canonical URL.
type Article struct {
	ID              int64
	URL             string
	Title           string
	Description     string
	SourceName      string
	Summary         string
	SourceIndicator SourceIndicator
	Category        string
	Severity        Severity
	PublishDate     *time.Time
	CreatedAt       time.Time
}

// EntityType classifies a named object of interest extracted from content.
type EntityType string

const (
	EntityThreatActor   EntityType = "Threat Actor"
	EntityMalware       EntityType = "Malware"
	EntityVulnerability EntityType = "Vulnerability"
)

// Entity is unique by (Name, Type) across the whole store.
type Entity struct {
	ID   int64
	Name string
	Type EntityType
}

// Candidate is a raw item produced by a source provider before dedup.
type Candidate struct {
	Title         string
	URL           string
	Description   string
	SourceName    string
	SuggestedDate time.Time
}

// Enrichment is the structured output of the external analysis service.
type Enrichment struct {
	Summary         string
	Category        string
	Severity        Severity
	ThreatActors    []string
	Malware         []string
	Vulnerabilities []string
}

// Entities flattens the typed name lists into Entity values.
func (e Enrichment) Entities() []Entity {
	var out []Entity
	for _, name := range e.ThreatActors {
		out = append(out, Entity{Name: name, Type: EntityThreatActor})
	}
	for _, name := range e.Malware {
		out = append(out, Entity{Name: name, Type: EntityMalware})
	}
	for _, name := range e.Vulnerabilities {
		out = append(out, Entity{Name: name, Type: EntityVulnerability})
	}
	return out
}

// RunStats accumulates counters for one ingestion pass.
// TotalProcessed always equals AISuccess + FallbackSummary + SkippedDuplicate.
type RunStats struct {
	TotalProcessed   int
	AISuccess        int
	FallbackSummary  int
	SkippedDuplicate int
}

// Merge folds another accumulator into this one.
func (s *RunStats) Merge(other RunStats) {
	s.TotalProcessed += other.TotalProcessed
	s.AISuccess += other.AISuccess
	s.FallbackSummary += other.FallbackSummary
	s.SkippedDuplicate += other.SkippedDuplicate
}

// ReprocessStats reports the outcome of one reprocessing pass over
// fallback-tagged articles.
type ReprocessStats struct {
	Attempted   int
	Healed      int
	StillFailed int
}
