package sites

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

type siteFile struct {
	Sites []siteEntry `yaml:"sites"`
}

type siteEntry struct {
	SiteID   string  `yaml:"site_id"`
	Name     string  `yaml:"name"`
	City     string  `yaml:"city"`
	State    string  `yaml:"state"`
	Latitude float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Capabilities struct {
		LOINCCodes []string `yaml:"loinc_codes"`
	} `yaml:"capabilities"`
	Experience struct {
		ByICD10Chapter map[string]int `yaml:"by_icd10_chapter"`
		TotalTrials    int            `yaml:"total_trials"`
		SuccessRate    float64        `yaml:"success_rate"`
	} `yaml:"experience"`
	Population struct {
		ByCondition map[string]int `yaml:"by_condition"`
	} `yaml:"population"`
	Capacity struct {
		CurrentTrials       int `yaml:"current_trials"`
		MaxConcurrentTrials int `yaml:"max_concurrent_trials"`
	} `yaml:"capacity"`
}

// LoadSites reads a site capability database from YAML. An empty path returns
// the built-in database.
func LoadSites(path string) ([]models.Site, error) {
	if path == "" {
		return DefaultSites(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultSites(), err
	}
	var file siteFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return DefaultSites(), err
	}
	if len(file.Sites) == 0 {
		return DefaultSites(), fmt.Errorf("site database empty")
	}

	sites := make([]models.Site, 0, len(file.Sites))
	for _, e := range file.Sites {
		sites = append(sites, models.Site{
			SiteID:              e.SiteID,
			Name:                e.Name,
			City:                e.City,
			State:               e.State,
			Latitude:            e.Latitude,
			Longitude:           e.Longitude,
			LOINCCapabilities:   e.Capabilities.LOINCCodes,
			TrialsByChapter:     e.Experience.ByICD10Chapter,
			TotalTrials:         e.Experience.TotalTrials,
			SuccessRate:         e.Experience.SuccessRate,
			PatientsByCondition: e.Population.ByCondition,
			CurrentTrials:       e.Capacity.CurrentTrials,
			MaxConcurrentTrials: e.Capacity.MaxConcurrentTrials,
		})
	}
	return sites, nil
}

// DefaultSites is a built-in capability database of large US research
// hospitals, used when no external database is configured.
func DefaultSites() []models.Site {
	fullLab := []string{"4548-4", "17856-6", "2339-0", "2093-3", "85354-9", "2160-0"}
	basicLab := []string{"4548-4", "2339-0", "2093-3"}

	return []models.Site{
		{
			SiteID: "SITE001", Name: "Johns Hopkins Hospital", City: "Baltimore", State: "MD",
			Latitude: 39.2970, Longitude: -76.5929,
			LOINCCapabilities: fullLab,
			TrialsByChapter:   map[string]int{"E10-E14": 48, "I00-I99": 35, "C00-C97": 52},
			TotalTrials:       180, SuccessRate: 0.87,
			PatientsByCondition: map[string]int{"E11.9": 8500, "I10": 12000, "C50.9": 3200},
			CurrentTrials:       38, MaxConcurrentTrials: 50,
		},
		{
			SiteID: "SITE002", Name: "Mayo Clinic", City: "Rochester", State: "MN",
			Latitude: 44.0225, Longitude: -92.4668,
			LOINCCapabilities: fullLab,
			TrialsByChapter:   map[string]int{"E10-E14": 55, "I00-I99": 44, "F00-F99": 20},
			TotalTrials:       210, SuccessRate: 0.89,
			PatientsByCondition: map[string]int{"E11.9": 9200, "I10": 14000, "G30.9": 1800},
			CurrentTrials:       41, MaxConcurrentTrials: 60,
		},
		{
			SiteID: "SITE003", Name: "Cleveland Clinic", City: "Cleveland", State: "OH",
			Latitude: 41.5034, Longitude: -81.6217,
			LOINCCapabilities: fullLab,
			TrialsByChapter:   map[string]int{"I00-I99": 62, "E10-E14": 30},
			TotalTrials:       165, SuccessRate: 0.85,
			PatientsByCondition: map[string]int{"I10": 16000, "I25.10": 7800, "E11.9": 6100},
			CurrentTrials:       30, MaxConcurrentTrials: 45,
		},
		{
			SiteID: "SITE004", Name: "Massachusetts General Hospital", City: "Boston", State: "MA",
			Latitude: 42.3634, Longitude: -71.0686,
			LOINCCapabilities: fullLab,
			TrialsByChapter:   map[string]int{"C00-C97": 58, "E10-E14": 26, "F00-F99": 31},
			TotalTrials:       195, SuccessRate: 0.86,
			PatientsByCondition: map[string]int{"C50.9": 4100, "C34.9": 2900, "E11.9": 5400},
			CurrentTrials:       44, MaxConcurrentTrials: 55,
		},
		{
			SiteID: "SITE005", Name: "UCSF Medical Center", City: "San Francisco", State: "CA",
			Latitude: 37.7631, Longitude: -122.4576,
			LOINCCapabilities: fullLab,
			TrialsByChapter:   map[string]int{"E10-E14": 33, "C00-C97": 40, "N00-N99": 18},
			TotalTrials:       150, SuccessRate: 0.84,
			PatientsByCondition: map[string]int{"E11.9": 7200, "N18.6": 900, "C50.9": 2600},
			CurrentTrials:       25, MaxConcurrentTrials: 40,
		},
		{
			SiteID: "SITE006", Name: "Houston Methodist Hospital", City: "Houston", State: "TX",
			Latitude: 29.7100, Longitude: -95.4018,
			LOINCCapabilities: basicLab,
			TrialsByChapter:   map[string]int{"E10-E14": 22, "I00-I99": 28},
			TotalTrials:       95, SuccessRate: 0.81,
			PatientsByCondition: map[string]int{"E11.9": 10400, "I10": 13500},
			CurrentTrials:       18, MaxConcurrentTrials: 30,
		},
		{
			SiteID: "SITE007", Name: "Northwestern Memorial Hospital", City: "Chicago", State: "IL",
			Latitude: 41.8945, Longitude: -87.6212,
			LOINCCapabilities: fullLab,
			TrialsByChapter:   map[string]int{"E10-E14": 27, "I00-I99": 24, "F00-F99": 15},
			TotalTrials:       120, SuccessRate: 0.83,
			PatientsByCondition: map[string]int{"E11.9": 6800, "I10": 9800, "G30.9": 1200},
			CurrentTrials:       27, MaxConcurrentTrials: 35,
		},
		{
			SiteID: "SITE008", Name: "Emory University Hospital", City: "Atlanta", State: "GA",
			Latitude: 33.7925, Longitude: -84.3219,
			LOINCCapabilities: basicLab,
			TrialsByChapter:   map[string]int{"E10-E14": 18, "J00-J99": 14},
			TotalTrials:       80, SuccessRate: 0.79,
			PatientsByCondition: map[string]int{"E11.9": 5900, "J45.9": 3100},
			CurrentTrials:       12, MaxConcurrentTrials: 25,
		},
	}
}
