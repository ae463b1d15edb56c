package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Concept struct {
	Display  string   `yaml:"display" json:"display"`
	ICD10    []string `yaml:"icd10" json:"icd10,omitempty"`
	SNOMED   []string `yaml:"snomed" json:"snomed,omitempty"`
	Variants []string `yaml:"variants" json:"variants,omitempty"`
}

type LabTest struct {
	Display  string   `yaml:"display" json:"display"`
	LOINC    []string `yaml:"loinc" json:"loinc,omitempty"`
	Variants []string `yaml:"variants" json:"variants,omitempty"`
}

type Medication struct {
	Display  string   `yaml:"display" json:"display"`
	RxNorm   []string `yaml:"rxnorm" json:"rxnorm,omitempty"`
	Variants []string `yaml:"variants" json:"variants,omitempty"`
}

type Catalog struct {
	Conditions        map[string]Concept    `yaml:"conditions" json:"conditions"`
	LabTests          map[string]LabTest    `yaml:"lab_tests" json:"lab_tests"`
	Medications       map[string]Medication `yaml:"medications" json:"medications"`
	ExclusionKeywords []string              `yaml:"exclusion_keywords" json:"exclusion_keywords"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return DefaultCatalog(), err
	}
	if len(cat.Conditions) == 0 {
		return DefaultCatalog(), fmt.Errorf("terminology catalog empty")
	}
	if len(cat.ExclusionKeywords) == 0 {
		cat.ExclusionKeywords = DefaultCatalog().ExclusionKeywords
	}
	return cat, nil
}

func (c Catalog) LookupCondition(key string) (Concept, bool) {
	concept, ok := c.Conditions[strings.ToLower(key)]
	if ok {
		return concept, true
	}
	for k, v := range c.Conditions {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Concept{}, false
}

func DefaultCatalog() Catalog {
	return Catalog{
		Conditions: map[string]Concept{
			"diabetes": {
				Display:  "Type 2 Diabetes Mellitus",
				ICD10:    []string{"E11.9", "E11.65"},
				SNOMED:   []string{"44054006"},
				Variants: []string{"type 2 diabetes", "t2dm", "diabetes mellitus"},
			},
			"hypertension": {
				Display:  "Essential Hypertension",
				ICD10:    []string{"I10"},
				SNOMED:   []string{"38341003"},
				Variants: []string{"high blood pressure", "elevated blood pressure"},
			},
			"cardiovascular": {
				Display:  "Ischemic Heart Disease",
				ICD10:    []string{"I25.10"},
				SNOMED:   []string{"53741008"},
				Variants: []string{"heart disease", "coronary artery disease", "cad"},
			},
			"cancer": {
				Display:  "Malignant Neoplasm",
				ICD10:    []string{"C50.9", "C34.9"},
				SNOMED:   []string{"363346000"},
				Variants: []string{"malignancy", "carcinoma", "tumor"},
			},
			"alzheimers": {
				Display:  "Alzheimer's Disease",
				ICD10:    []string{"G30.9"},
				SNOMED:   []string{"26929004"},
				Variants: []string{"alzheimer", "dementia"},
			},
			"diabetic nephropathy": {
				Display:  "Diabetic Nephropathy",
				ICD10:    []string{"E11.21"},
				SNOMED:   []string{"127013003"},
				Variants: []string{"diabetic kidney disease", "nephropathy"},
			},
			"diabetic retinopathy": {
				Display:  "Diabetic Retinopathy",
				ICD10:    []string{"E11.31"},
				SNOMED:   []string{"4855003"},
				Variants: []string{"retinopathy"},
			},
			"heart failure": {
				Display:  "Heart Failure",
				ICD10:    []string{"I50.9"},
				SNOMED:   []string{"84114007"},
				Variants: []string{"congestive heart failure", "chf"},
			},
			"renal disease": {
				Display:  "End-Stage Renal Disease",
				ICD10:    []string{"N18.6", "N18.5"},
				SNOMED:   []string{"46177005"},
				Variants: []string{"end-stage renal disease", "esrd", "kidney failure"},
			},
		},
		LabTests: map[string]LabTest{
			"hba1c": {
				Display:  "Hemoglobin A1c",
				LOINC:    []string{"4548-4", "17856-6"},
				Variants: []string{"hemoglobin a1c", "glycated hemoglobin", "a1c"},
			},
			"glucose": {
				Display:  "Blood Glucose",
				LOINC:    []string{"2339-0"},
				Variants: []string{"blood glucose", "blood sugar"},
			},
			"cholesterol": {
				Display:  "Total Cholesterol",
				LOINC:    []string{"2093-3"},
				Variants: []string{"total cholesterol", "lipid panel"},
			},
			"blood pressure": {
				Display:  "Blood Pressure Panel",
				LOINC:    []string{"85354-9"},
				Variants: []string{"bp panel", "systolic blood pressure"},
			},
			"creatinine": {
				Display:  "Serum Creatinine",
				LOINC:    []string{"2160-0"},
				Variants: []string{"serum creatinine", "egfr"},
			},
		},
		Medications: map[string]Medication{
			"metformin": {
				Display:  "Metformin",
				RxNorm:   []string{"6809"},
				Variants: []string{"glucophage"},
			},
			"insulin": {
				Display:  "Insulin",
				RxNorm:   []string{"5856"},
				Variants: []string{"insulin glargine", "insulin therapy"},
			},
			"statins": {
				Display:  "Statins",
				RxNorm:   []string{"36567"},
				Variants: []string{"atorvastatin", "simvastatin", "statin therapy"},
			},
			"aspirin": {
				Display:  "Aspirin",
				RxNorm:   []string{"1191"},
				Variants: []string{"acetylsalicylic acid"},
			},
			"beta-blockers": {
				Display:  "Beta Blockers",
				RxNorm:   []string{"6918"},
				Variants: []string{"metoprolol", "beta blocker"},
			},
		},
		ExclusionKeywords: []string{
			"no history of",
			"without",
			"must not",
			"may not",
			"not have",
			"free of",
			"absence of",
			"excluded",
			"exclusion",
			"contraindicated",
		},
	}
}
