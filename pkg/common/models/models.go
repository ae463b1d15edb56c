package models

import (
	"time"
)

// Code vocabularies used across patient records and trial criteria.
const (
	VocabICD10  = "icd10"
	VocabSNOMED = "snomed"
	VocabLOINC  = "loinc"
	VocabRxNorm = "rxnorm"
)

// Vocabularies lists the supported code systems in a stable order.
var Vocabularies = []string{VocabICD10, VocabSNOMED, VocabLOINC, VocabRxNorm}

// CodeSet holds medical codes grouped by vocabulary.
type CodeSet map[string][]string

// Merge appends codes from other without deduplicating.
func (c CodeSet) Merge(other CodeSet) {
	for vocab, codes := range other {
		c[vocab] = append(c[vocab], codes...)
	}
}

// Patient data

type PatientRecord struct {
	PatientID         string             `json:"patient_id"`
	Age               int                `json:"age"`
	Sex               string             `json:"sex"` // M, F
	PrimaryCondition  string             `json:"primary_condition"`
	Medications       []string           `json:"medications"`
	LabValues         map[string]float64 `json:"lab_values"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	EnrollmentHistory int                `json:"enrollment_history"`
	Codes             CodeSet            `json:"codes,omitempty"`
}

// Trial criteria

type LabRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type TrialCriteria struct {
	TrialID           string              `json:"trial_id"`
	AgeMin            int                 `json:"age_min"`
	AgeMax            int                 `json:"age_max"`
	Sex               string              `json:"sex,omitempty"` // empty = any
	Conditions        []string            `json:"conditions"`
	LabRequirements   map[string]LabRange `json:"lab_requirements,omitempty"`
	InclusionCriteria []string            `json:"inclusion_criteria,omitempty"`
	ExclusionCriteria []string            `json:"exclusion_criteria,omitempty"`
	InclusionCodes    CodeSet             `json:"inclusion_codes,omitempty"`
	ExclusionCodes    CodeSet             `json:"exclusion_codes,omitempty"`
	TargetEnrollment  int                 `json:"target_enrollment"`
	Phase             string              `json:"phase,omitempty"`
}

// Discovered patterns

// NoPattern marks patients the clustering labelled as noise.
const NoPattern = ""

type Pattern struct {
	PatternID  string    `json:"pattern_id"`
	Size       int       `json:"size"`
	Centroid   []float64 `json:"centroid"`
	Dispersion float64   `json:"dispersion"`
	Confidence float64   `json:"confidence"`
	// SuccessRate is derived from intra-cluster cohesion as a proxy for an
	// outcome signal. It is not a measured enrollment outcome.
	SuccessRate float64 `json:"enrollment_success_rate"`
}

type VizPoint struct {
	PatientID string    `json:"patient_id"`
	Coords    []float64 `json:"coords"` // 3-D
	PatternID string    `json:"pattern_id"`
}

type DiscoveryResult struct {
	RunID         string               `json:"run_id"`
	Patterns      []Pattern            `json:"patterns"`
	Assignment    map[string]string    `json:"assignment"` // patient_id -> pattern_id, NoPattern for noise
	Embeddings    map[string][]float64 `json:"-"`          // patient_id -> reduced embedding
	TotalPatients int                  `json:"total_patients"`
	Clustered     int                  `json:"clustered_patients"`
	Noise         int                  `json:"noise_patients"`
	Visualization []VizPoint           `json:"visualization,omitempty"`
	CompletedAt   time.Time            `json:"completed_at"`
}

type RankedPattern struct {
	Pattern
	MatchScore      float64 `json:"match_score"`
	TrialSimilarity float64 `json:"trial_similarity,omitempty"`
}

type PatternInsight struct {
	PatternID   string   `json:"pattern_id"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"key_features"`
}

// Candidates and matches

type Candidate struct {
	PatientID         string             `json:"patient_id"`
	PatternID         string             `json:"pattern_id"`
	Embedding         []float64          `json:"embedding,omitempty"`
	Age               int                `json:"age"`
	Sex               string             `json:"sex"`
	PrimaryCondition  string             `json:"primary_condition"`
	Medications       []string           `json:"medications,omitempty"`
	LabValues         map[string]float64 `json:"lab_values,omitempty"`
	EnrollmentHistory int                `json:"enrollment_history"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	Codes             CodeSet            `json:"codes,omitempty"`
}

type ScoredMatch struct {
	PatientID             string   `json:"patient_id"`
	PatternID             string   `json:"pattern_id"`
	OverallScore          float64  `json:"overall_score"`
	EligibilityScore      float64  `json:"eligibility_score"`
	SimilarityScore       float64  `json:"similarity_score"`
	EnrollmentProbability float64  `json:"enrollment_probability"`
	MatchReasons          []string `json:"match_reasons,omitempty"`
	RiskFactors           []string `json:"risk_factors,omitempty"`
	Latitude              float64  `json:"latitude"`
	Longitude             float64  `json:"longitude"`
	Codes                 CodeSet  `json:"codes,omitempty"`
}

type ScoreDistribution struct {
	High    int     `json:"high"`
	Medium  int     `json:"medium"`
	Low     int     `json:"low"`
	Average float64 `json:"average"`
}

// Exclusion validation

type CodeViolation struct {
	Code       string `json:"code"`
	Vocabulary string `json:"vocabulary"`
	Reason     string `json:"reason"`
}

type ValidationResult struct {
	PatientID       string          `json:"patient_id"`
	IsValid         bool            `json:"is_valid"`
	Violations      []CodeViolation `json:"exclusion_violations,omitempty"`
	ValidationScore float64         `json:"validation_score"` // 0.0 or 1.0
}

type ValidationSummary struct {
	Results          []ValidationResult `json:"validations"`
	TotalValidated   int                `json:"total_validated"`
	TotalExcluded    int                `json:"total_excluded"`
	ExclusionReasons map[string]int     `json:"exclusion_reasons,omitempty"`
}

// Sites

type Site struct {
	SiteID              string         `json:"site_id"`
	Name                string         `json:"name"`
	City                string         `json:"city,omitempty"`
	State               string         `json:"state,omitempty"`
	Latitude            float64        `json:"latitude"`
	Longitude           float64        `json:"longitude"`
	LOINCCapabilities   []string       `json:"loinc_capabilities,omitempty"`
	TrialsByChapter     map[string]int `json:"trials_by_chapter,omitempty"`
	TotalTrials         int            `json:"total_trials"`
	SuccessRate         float64        `json:"success_rate"`
	PatientsByCondition map[string]int `json:"patients_by_condition,omitempty"`
	CurrentTrials       int            `json:"current_trials"`
	MaxConcurrentTrials int            `json:"max_concurrent_trials"`
}

type SiteScore struct {
	SiteID            string   `json:"site_id"`
	Name              string   `json:"site_name"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	OverallScore      float64  `json:"feasibility_score"`
	CapabilityScore   float64  `json:"capability_score"`
	ExperienceScore   float64  `json:"experience_score"`
	PopulationScore   float64  `json:"population_score"`
	CapacityScore     float64  `json:"capacity_score"`
	PriorityScore     float64  `json:"priority_score"`
	AssignedPatients  []string `json:"patient_ids,omitempty"`
	PatientCount      int      `json:"patient_count"`
	AverageDistanceKM float64  `json:"average_distance_km"`
}

type SiteRecommendations struct {
	Sites           []SiteScore `json:"recommended_sites"`
	CoveragePercent float64     `json:"coverage_percentage"`
	TotalPatients   int         `json:"total_patients"`
	CoveredPatients int         `json:"covered_patients"`
}

// Enrollment forecast

type Milestone struct {
	Week       float64 `json:"week"`
	Enrollment int     `json:"enrollment"`
	Percent    int     `json:"percentage"`
}

type PatternAnalysis struct {
	PatternsUsed        int     `json:"total_patterns_used"`
	AverageSuccessRate  float64 `json:"average_success_rate"`
	BestSuccessRate     float64 `json:"best_pattern_success"`
	WorstSuccessRate    float64 `json:"worst_pattern_success"`
	EligiblePool        int     `json:"eligible_patient_pool"`
	HighScoreCandidates int     `json:"high_confidence_patients"`
}

type Forecast struct {
	TrialID             string          `json:"trial_id"`
	TargetEnrollment    int             `json:"target_enrollment"`
	PredictedEnrollment int             `json:"predicted_enrollment"`
	EstimatedWeeks      float64         `json:"estimated_weeks"`
	WeeklyRate          float64         `json:"weekly_enrollment_rate"`
	Confidence          float64         `json:"confidence"`
	Milestones          []Milestone     `json:"milestones"`
	RiskFactors         []string        `json:"risk_factors,omitempty"`
	Recommendations     []string        `json:"recommendations,omitempty"`
	PatternAnalysis     PatternAnalysis `json:"pattern_success_analysis"`
}

// Pipeline

type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type PipelineResult struct {
	TrialID         string              `json:"trial_id"`
	Status          string              `json:"status"` // success, error
	Matches         []ScoredMatch       `json:"eligible_patients"`
	TotalMatches    int                 `json:"total_matches"`
	Distribution    ScoreDistribution   `json:"score_distribution"`
	Validation      ValidationSummary   `json:"validation"`
	Sites           []SiteScore         `json:"recommended_sites"`
	CoveragePercent float64             `json:"coverage_percentage"`
	Forecast        Forecast            `json:"enrollment_forecast"`
	ProcessingTime  time.Duration       `json:"processing_time"`
	Stages          []StageTiming       `json:"stage_timings"`
	StagesCompleted []string            `json:"stages_completed"`
	Error           string              `json:"error,omitempty"`
}

// Event bus

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // patterns.discovered, pipeline.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
