package domain

// AnalysisTask is the message published to the job queue when a record is
// created. The worker only ever needs the record id; everything else is
// loaded from the record store.
type AnalysisTask struct {
	ID      string `json:"id"`
	ImageID string `json:"image_id"`
}

// AnalysisResult is what the pipeline commits in a single update when every
// stage has succeeded.
type AnalysisResult struct {
	QualityScore    float64
	QualityReasons  []string
	IsCompliant     bool
	ComplianceFlags []string
	IsDuplicate     bool
	DuplicateOfID   *string
	SimilarityScore *float64
	ClusterID       string
	Embedding       []float64
}

// AnalysisOutcome is the per-job result reported back to the job runtime.
// It is logged, never acted upon.
type AnalysisOutcome struct {
	ImageID      string
	Status       Status
	QualityScore float64
	IsCompliant  bool
	IsDuplicate  bool
	Error        string
}

// EmbeddingRef pairs a stored record id with its embedding; the duplicate
// stage compares the new embedding against a bounded sample of these.
type EmbeddingRef struct {
	ID        string
	Embedding []float64
}

// DuplicateVerdict is the duplicate stage output. ClusterID is always
// assigned; DuplicateOfID and Similarity are set only for duplicates.
type DuplicateVerdict struct {
	IsDuplicate   bool
	DuplicateOfID *string
	Similarity    *float64
	ClusterID     string
}

const (
	KafkaTopicAnalysis = "image-analysis"
	KafkaGroupID       = "image-analyzer-group"
)

const (
	DefaultMaxUploadSize = 32 << 20
	DefaultListLimit     = 50
	MaxListLimit         = 200
)
