package dataset

import (
	"fmt"
	"math/rand"

	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/terminology"
)

// Continental US bounding box for synthetic patient locations.
const (
	latMin = 25.0
	latMax = 48.0
	lonMin = -125.0
	lonMax = -65.0
)

var (
	conditions  = []string{"diabetes", "hypertension", "cancer", "alzheimers", "cardiovascular"}
	medications = []string{"metformin", "insulin", "statins", "aspirin", "beta-blockers"}

	// Most patients have never enrolled in a trial.
	enrollmentHistogram = []struct {
		count  int
		weight float64
	}{
		{0, 0.50},
		{1, 0.30},
		{2, 0.15},
		{3, 0.05},
	}
)

// Loader generates a reproducible synthetic patient population. A fixed seed
// produces an identical cohort across runs.
type Loader struct {
	seed    int64
	catalog terminology.Catalog
}

func NewLoader(seed int64, catalog terminology.Catalog) *Loader {
	return &Loader{seed: seed, catalog: catalog}
}

// GeneratePatients builds n synthetic patients with demographics, labs,
// locations, and coded diagnoses consistent with the terminology catalog.
func (l *Loader) GeneratePatients(n int) []models.PatientRecord {
	rng := rand.New(rand.NewSource(l.seed))

	patients := make([]models.PatientRecord, 0, n)
	for i := 0; i < n; i++ {
		condition := conditions[rng.Intn(len(conditions))]

		p := models.PatientRecord{
			PatientID:        fmt.Sprintf("P%06d", i),
			Age:              clampedAge(rng),
			Sex:              pick(rng, "M", "F"),
			PrimaryCondition: condition,
			Medications:      sampleMedications(rng),
			LabValues: map[string]float64{
				"hba1c":       5.0 + rng.Float64()*5.0,
				"cholesterol": 150 + rng.Float64()*150,
			},
			Latitude:          latMin + rng.Float64()*(latMax-latMin),
			Longitude:         lonMin + rng.Float64()*(lonMax-lonMin),
			EnrollmentHistory: sampleEnrollmentHistory(rng),
		}
		p.Codes = l.assignCodes(rng, p)
		patients = append(patients, p)
	}
	return patients
}

// assignCodes attaches diagnosis, lab, and medication codes implied by the
// patient's clinical profile. A slice of diabetics additionally carries a
// complication code, giving the validation stage something to exclude.
func (l *Loader) assignCodes(rng *rand.Rand, p models.PatientRecord) models.CodeSet {
	codes := models.CodeSet{}

	if concept, ok := l.catalog.LookupCondition(p.PrimaryCondition); ok {
		codes[models.VocabICD10] = append(codes[models.VocabICD10], concept.ICD10...)
		codes[models.VocabSNOMED] = append(codes[models.VocabSNOMED], concept.SNOMED...)
	}

	if p.PrimaryCondition == "diabetes" {
		if rng.Float64() < 0.15 {
			codes[models.VocabICD10] = append(codes[models.VocabICD10], "E11.21")
		}
		if rng.Float64() < 0.10 {
			codes[models.VocabICD10] = append(codes[models.VocabICD10], "E11.31")
		}
	}

	for name := range p.LabValues {
		if lab, ok := l.catalog.LabTests[name]; ok {
			codes[models.VocabLOINC] = append(codes[models.VocabLOINC], lab.LOINC...)
		}
	}
	for _, med := range p.Medications {
		if m, ok := l.catalog.Medications[med]; ok {
			codes[models.VocabRxNorm] = append(codes[models.VocabRxNorm], m.RxNorm...)
		}
	}
	return codes
}

// GenerateTrial builds a demo trial with coded criteria derived from the
// free-text criterion lines.
func (l *Loader) GenerateTrial(trialID, condition string, targetEnrollment int) models.TrialCriteria {
	trial := models.TrialCriteria{
		TrialID:          trialID,
		AgeMin:           18,
		AgeMax:           75,
		Conditions:       []string{condition},
		TargetEnrollment: targetEnrollment,
		Phase:            "Phase 3",
		InclusionCriteria: []string{
			fmt.Sprintf("Diagnosed with %s", condition),
			"Aged 18 to 75",
			"HbA1c between 7 and 10",
		},
		ExclusionCriteria: []string{
			"History of diabetic nephropathy",
			"End-stage renal disease",
		},
		LabRequirements: map[string]models.LabRange{
			"hba1c": {Min: 7.0, Max: 10.0},
		},
	}

	mapper := terminology.NewMapper(l.catalog)
	trial.InclusionCodes, trial.ExclusionCodes = mapper.MapCriteria(trial.InclusionCriteria, trial.ExclusionCriteria)
	return trial
}

// clampedAge samples from N(55, 15) clipped to the adult study range.
func clampedAge(rng *rand.Rand) int {
	age := int(rng.NormFloat64()*15 + 55)
	if age < 18 {
		return 18
	}
	if age > 90 {
		return 90
	}
	return age
}

func sampleMedications(rng *rand.Rand) []string {
	count := rng.Intn(4)
	if count == 0 {
		return nil
	}
	picked := make([]string, 0, count)
	perm := rng.Perm(len(medications))
	for _, idx := range perm[:count] {
		picked = append(picked, medications[idx])
	}
	return picked
}

func sampleEnrollmentHistory(rng *rand.Rand) int {
	roll := rng.Float64()
	var cumulative float64
	for _, bucket := range enrollmentHistogram {
		cumulative += bucket.weight
		if roll < cumulative {
			return bucket.count
		}
	}
	return 0
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}
