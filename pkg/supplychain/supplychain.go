// Package supplychain carries CycloneDX/SPDX-aligned SBOM and vendor-risk
// data models with deterministic scoring. Scoring inputs are hashed so two
// parties computing a vendor risk score from the same inputs can prove
// they scored the same thing.
package supplychain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-labs/aegis-core/pkg/canonical"
)

// ComponentType classifies an SBOM entry.
type ComponentType string

const (
	ComponentLibrary         ComponentType = "library"
	ComponentFramework       ComponentType = "framework"
	ComponentApplication     ComponentType = "application"
	ComponentContainer       ComponentType = "container"
	ComponentOperatingSystem ComponentType = "operating_system"
	ComponentDevice          ComponentType = "device"
	ComponentFirmware        ComponentType = "firmware"
	ComponentSource          ComponentType = "source"
)

// LicenseCompliance is the license review outcome for a component.
type LicenseCompliance string

const (
	LicenseCompliant    LicenseCompliance = "compliant"
	LicenseIncompatible LicenseCompliance = "incompatible"
	LicenseRestricted   LicenseCompliance = "restricted"
	LicenseUnknown      LicenseCompliance = "unknown"
)

// RiskTier buckets a vendor risk score.
type RiskTier string

const (
	TierCritical RiskTier = "critical"
	TierHigh     RiskTier = "high"
	TierMedium   RiskTier = "medium"
	TierLow      RiskTier = "low"
)

// Digest is a typed integrity hash.
type Digest struct {
	Alg   string `json:"alg"`
	Value string `json:"value"`
}

func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.Alg, d.Value)
}

// Component is one SBOM entry.
type Component struct {
	ComponentType ComponentType `json:"component_type"`
	ComponentID   string        `json:"component_id"`

	Name    string `json:"name"`
	Version string `json:"version"`
	PURL    string `json:"purl,omitempty"`

	Supplier string `json:"supplier,omitempty"`
	Author   string `json:"author,omitempty"`

	LicenseID         string            `json:"license_id,omitempty"`
	LicenseCompliance LicenseCompliance `json:"license_compliance"`

	Hashes               []Digest    `json:"hashes,omitempty"`
	KnownVulnerabilities []uuid.UUID `json:"known_vulnerabilities,omitempty"`

	Description string `json:"description,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
	Repository  string `json:"repository,omitempty"`
}

// SBOM is a software bill of materials for one subject.
type SBOM struct {
	SBOMName    string `json:"sbom_name"`
	SBOMVersion string `json:"sbom_version"`

	SubjectName string        `json:"subject_name"`
	SubjectType ComponentType `json:"subject_type"`
	SubjectPURL string        `json:"subject_purl,omitempty"`

	Components []Component `json:"components"`

	CreatedBy uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at_sbom"`

	SBOMDigest       *Digest `json:"sbom_digest,omitempty"`
	PreviousSBOMHash string  `json:"previous_sbom_hash,omitempty"`

	CriticalVulnerabilities int `json:"critical_vulnerabilities"`
	HighVulnerabilities     int `json:"high_vulnerabilities"`
	MediumVulnerabilities   int `json:"medium_vulnerabilities"`
	KEVVulnerabilities      int `json:"kev_vulnerabilities"`
}

// Vendor is a supplier subject to risk scoring.
type Vendor struct {
	VendorName    string   `json:"vendor_name"`
	VendorAliases []string `json:"vendor_aliases,omitempty"`

	Website string `json:"website,omitempty"`
	Email   string `json:"email,omitempty"`

	IncidentCount12Mo int     `json:"incident_count_12mo"`
	BreachCount       int     `json:"breach_count"`
	ReputationScore   float64 `json:"reputation_score"`

	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// VRSInputs are the deterministic scoring inputs. Hash() identifies the
// exact input set a score was computed from.
type VRSInputs struct {
	CriticalCVECount int  `json:"critical_cve_count"`
	HighCVECount     int  `json:"high_cve_count"`
	MediumCVECount   int  `json:"medium_cve_count"`
	KEVPresent       bool `json:"kev_present"`

	IncidentCount12Mo int     `json:"incident_count_12mo"`
	BreachCount       int     `json:"breach_count"`
	ReputationScore   float64 `json:"reputation_score"`

	DaysSinceSBOMUpdate int `json:"days_since_sbom_update"`
	AssetCriticality    int `json:"asset_criticality"`
}

// Hash returns the canonical hash of the inputs. The reputation score is
// rounded to four decimals first so float noise from upstream arithmetic
// does not split otherwise-identical input sets.
func (in VRSInputs) Hash() (string, error) {
	payload := map[string]any{
		"critical_cve_count":     in.CriticalCVECount,
		"high_cve_count":         in.HighCVECount,
		"medium_cve_count":       in.MediumCVECount,
		"kev_present":            in.KEVPresent,
		"incident_count_12mo":    in.IncidentCount12Mo,
		"breach_count":           in.BreachCount,
		"reputation_score":       math.Round(in.ReputationScore*10000) / 10000,
		"days_since_sbom_update": in.DaysSinceSBOMUpdate,
		"asset_criticality":      in.AssetCriticality,
	}
	return canonical.Hash(payload)
}

// VendorRiskScore is a computed, reproducible vendor risk assessment.
type VendorRiskScore struct {
	VendorID   uuid.UUID `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`

	VRS  float64  `json:"vrs"`
	Tier RiskTier `json:"tier"`

	CVERiskScore       float64 `json:"cve_risk_score"`
	VendorHistoryScore float64 `json:"vendor_history_score"`
	FreshnessScore     float64 `json:"freshness_score"`
	CriticalityScore   float64 `json:"criticality_score"`

	Inputs     VRSInputs `json:"inputs"`
	InputsHash string    `json:"inputs_hash"`

	CalculatedAt       time.Time `json:"calculated_at"`
	CalculatedBy       string    `json:"calculated_by"`
	CalculationVersion string    `json:"calculation_version"`
}

const (
	calculatedBy       = "provenance-service"
	calculationVersion = "1.0.0"
)

// Calculate scores the inputs. The component scores weigh in at
// CVE 0.35, vendor history 0.25, SBOM freshness 0.20, asset criticality
// 0.20; the composite buckets into tiers at 8, 6, and 4. All scores are
// rounded to two decimals.
func Calculate(vendorID uuid.UUID, vendorName string, in VRSInputs) (VendorRiskScore, error) {
	inputsHash, err := in.Hash()
	if err != nil {
		return VendorRiskScore{}, fmt.Errorf("supplychain: hash inputs: %w", err)
	}

	total := max(1, in.CriticalCVECount+in.HighCVECount+in.MediumCVECount)
	base := float64(in.CriticalCVECount*5+in.HighCVECount*3+in.MediumCVECount) / float64(total)
	kevPenalty := 0.0
	if in.KEVPresent {
		kevPenalty = 2.0
	}
	cveRisk := math.Min(10.0, base+kevPenalty)

	histTotal := max(1, in.IncidentCount12Mo+in.BreachCount)
	histBase := float64(in.IncidentCount12Mo*2+in.BreachCount*3) / float64(histTotal)
	repBonus := (in.ReputationScore / 10.0) * 5.0
	vendorHistory := math.Min(10.0, histBase+repBonus)

	freshness := math.Max(0.0, 10.0-float64(in.DaysSinceSBOMUpdate)/30.0)
	criticality := float64(in.AssetCriticality)

	vrs := cveRisk*0.35 + vendorHistory*0.25 + freshness*0.20 + criticality*0.20

	var tier RiskTier
	switch {
	case vrs >= 8.0:
		tier = TierCritical
	case vrs >= 6.0:
		tier = TierHigh
	case vrs >= 4.0:
		tier = TierMedium
	default:
		tier = TierLow
	}

	return VendorRiskScore{
		VendorID:           vendorID,
		VendorName:         vendorName,
		VRS:                round2(vrs),
		Tier:               tier,
		CVERiskScore:       round2(cveRisk),
		VendorHistoryScore: round2(vendorHistory),
		FreshnessScore:     round2(freshness),
		CriticalityScore:   round2(criticality),
		Inputs:             in,
		InputsHash:         inputsHash,
		CalculatedAt:       canonical.UTCNow(),
		CalculatedBy:       calculatedBy,
		CalculationVersion: calculationVersion,
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
