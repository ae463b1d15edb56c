package embedding

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// Subvector layout of a record embedding: hashed text features, numeric
// clinical features, then two geographic scalars.
const (
	TextDims    = 64
	NumericDims = 4
	GeoDims     = 2
	TotalDims   = TextDims + NumericDims + GeoDims
)

// Lab defaults applied when a record has no reading for the feature.
const (
	defaultHbA1c       = 7.0
	defaultCholesterol = 200.0
)

// Builder turns patient and trial records into fixed-length dense vectors.
// Free text is folded into a hashed bag-of-tokens subvector; this is a
// deterministic stand-in for a sentence-encoder embedding and carries no
// learned semantics.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// BuildPatient returns the embedding for one patient record.
func (b *Builder) BuildPatient(p models.PatientRecord) []float64 {
	text := p.PrimaryCondition + " " + strings.Join(p.Medications, " ")

	vec := make([]float64, 0, TotalDims)
	vec = append(vec, hashText(text)...)
	vec = append(vec,
		float64(p.Age),
		labOrDefault(p.LabValues, "hba1c", defaultHbA1c),
		labOrDefault(p.LabValues, "cholesterol", defaultCholesterol),
		float64(p.EnrollmentHistory),
	)
	vec = append(vec, p.Latitude, p.Longitude)
	return vec
}

// BuildPatients returns one embedding per patient, in input order.
func (b *Builder) BuildPatients(patients []models.PatientRecord) ([][]float64, error) {
	if len(patients) == 0 {
		return nil, fmt.Errorf("no patient records to embed")
	}
	out := make([][]float64, len(patients))
	for i, p := range patients {
		out[i] = b.BuildPatient(p)
	}
	return out, nil
}

// BuildTrial embeds a trial description into the same space as patients so the
// two can be compared. Numeric slots carry the midpoints of the trial ranges.
func (b *Builder) BuildTrial(t models.TrialCriteria) []float64 {
	text := fmt.Sprintf("%s %s age %d-%d", strings.Join(t.Conditions, " "), t.Phase, t.AgeMin, t.AgeMax)

	midAge := float64(t.AgeMin+t.AgeMax) / 2
	vec := make([]float64, 0, TotalDims)
	vec = append(vec, hashText(text)...)
	vec = append(vec,
		midAge,
		labMidpoint(t.LabRequirements, "hba1c", defaultHbA1c),
		labMidpoint(t.LabRequirements, "cholesterol", defaultCholesterol),
		0,
	)
	vec = append(vec, 0, 0)
	return vec
}

// hashText folds lowercased tokens into a TextDims-wide signed bag-of-words
// vector, L2-normalized. Empty text yields the zero vector.
func hashText(text string) []float64 {
	vec := make([]float64, TextDims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % TextDims)
		sign := 1.0
		if (sum>>32)&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}
	NormalizeInPlace(vec)
	return vec
}

func labOrDefault(labs map[string]float64, name string, fallback float64) float64 {
	if v, ok := labs[name]; ok {
		return v
	}
	return fallback
}

func labMidpoint(reqs map[string]models.LabRange, name string, fallback float64) float64 {
	if r, ok := reqs[name]; ok {
		return (r.Min + r.Max) / 2
	}
	return fallback
}
