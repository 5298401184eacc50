// Package license implements license validation, fingerprint binding, and
// tier-based feature gating for self-hosted Go4It Sports deployments.
package license

import "github.com/go4itsports/licensing/internal/models"

// Feature represents a gated feature name unlocked by a subscription tier.
type Feature = string

const (
	// FeatureBasicGAR enables basic GAR (Growth and Ability Rating) analysis.
	FeatureBasicGAR Feature = "basic_gar_analysis"
	// FeatureAdvancedGAR enables advanced GAR analysis (Professional+).
	FeatureAdvancedGAR Feature = "advanced_gar_analysis"
	// FeaturePremiumGAR enables premium GAR analysis (Enterprise).
	FeaturePremiumGAR Feature = "premium_gar_analysis"
	// FeatureTeamManagement enables team rosters and management.
	FeatureTeamManagement Feature = "team_management"
	// FeaturePerformanceTracking enables athlete performance tracking.
	FeaturePerformanceTracking Feature = "performance_tracking"
	// FeatureAICoaching enables AI coaching recommendations (Professional+).
	FeatureAICoaching Feature = "ai_coaching"
	// FeatureRecruitmentTools enables recruitment tooling (Professional+).
	FeatureRecruitmentTools Feature = "recruitment_tools"
	// FeatureAcademicTracking enables academic progress tracking (Professional+).
	FeatureAcademicTracking Feature = "academic_tracking"
	// FeatureBasicReports enables basic reporting.
	FeatureBasicReports Feature = "basic_reports"
	// FeatureAdvancedReports enables advanced reporting (Professional+).
	FeatureAdvancedReports Feature = "advanced_reports"
	// FeatureWhiteLabel enables white-label deployments (Enterprise).
	FeatureWhiteLabel Feature = "white_label"
	// FeatureCustomBranding enables custom branding (Enterprise).
	FeatureCustomBranding Feature = "custom_branding"
	// FeatureAnalyticsAPI enables programmatic analytics access (Enterprise).
	FeatureAnalyticsAPI Feature = "analytics_api"
	// FeatureBulkOperations enables bulk roster operations (Enterprise).
	FeatureBulkOperations Feature = "bulk_operations"
)

// tierFeatures maps each subscription tier to the features it unlocks.
var tierFeatures = map[models.SubscriptionTier][]Feature{
	models.TierStarter: {
		FeatureBasicGAR,
		FeatureTeamManagement,
		FeaturePerformanceTracking,
		FeatureBasicReports,
	},
	models.TierProfessional: {
		FeatureBasicGAR,
		FeatureAdvancedGAR,
		FeatureTeamManagement,
		FeaturePerformanceTracking,
		FeatureAICoaching,
		FeatureRecruitmentTools,
		FeatureAcademicTracking,
		FeatureAdvancedReports,
	},
	models.TierEnterprise: {
		FeatureBasicGAR,
		FeatureAdvancedGAR,
		FeaturePremiumGAR,
		FeatureTeamManagement,
		FeaturePerformanceTracking,
		FeatureAICoaching,
		FeatureRecruitmentTools,
		FeatureAcademicTracking,
		FeatureWhiteLabel,
		FeatureCustomBranding,
		FeatureAdvancedReports,
		FeatureAnalyticsAPI,
		FeatureBulkOperations,
	},
}

// tierAthleteLimits maps each tier to its athlete-count ceiling.
// Enterprise is unbounded in practice.
var tierAthleteLimits = map[models.SubscriptionTier]int{
	models.TierStarter:      50,
	models.TierProfessional: 200,
	models.TierEnterprise:   9999,
}

// FeaturesForTier returns the feature list for a tier. Unknown tiers fall
// back to the starter feature set.
func FeaturesForTier(tier models.SubscriptionTier) []Feature {
	features, ok := tierFeatures[tier]
	if !ok {
		features = tierFeatures[models.TierStarter]
	}
	out := make([]Feature, len(features))
	copy(out, features)
	return out
}

// MaxAthletesForTier returns the athlete ceiling for a tier. Unknown tiers
// fall back to the starter limit.
func MaxAthletesForTier(tier models.SubscriptionTier) int {
	limit, ok := tierAthleteLimits[tier]
	if !ok {
		return tierAthleteLimits[models.TierStarter]
	}
	return limit
}

// HasFeature returns true if the given tier unlocks the specified feature.
func HasFeature(tier models.SubscriptionTier, feature Feature) bool {
	for _, f := range FeaturesForTier(tier) {
		if f == feature {
			return true
		}
	}
	return false
}

// tierLevels orders tiers for upgrade comparisons.
var tierLevels = map[models.SubscriptionTier]int{
	models.TierStarter:      1,
	models.TierProfessional: 2,
	models.TierEnterprise:   3,
}

// MeetsTier returns true if have grants at least the capabilities of want.
// Unknown tiers rank below starter.
func MeetsTier(have, want models.SubscriptionTier) bool {
	return tierLevels[have] >= tierLevels[want]
}
