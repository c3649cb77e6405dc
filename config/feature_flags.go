package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional integrations at startup and gates
// per-learner behavior by percentage rollout.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// userOverrides pins a feature on or off for one learner.
	userOverrides map[string]map[string]bool
}

// Feature is a single flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent (0-100) buckets learners by a hash of their ID.
	RolloutPercent int
}

// Feature names.
const (
	FeatureAchievements     = "achievements.awards"     // award milestone achievements
	FeatureDirectoryCache   = "directory.cache"         // cache the course directory in Redis
	FeatureSharedSequence   = "certificates.shared_seq" // Redis-backed certificate counter
	FeatureRedisEvents      = "events.redis"            // fan events out over Redis pub/sub
	FeatureModerationAPI    = "moderation.api"          // mount the moderation routes
	FeatureSessionIdentity  = "identity.session"        // resolve the learner from a Redis session
	FeatureCheckoutEndpoint = "cart.checkout"           // bulk purchase of the cart
)

// LoadFeatureFlags builds the defaults and applies FEATURE_* overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the defaults without reading the environment.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []Feature{
		{Name: FeatureAchievements, Description: "Award achievements for learning milestones", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDirectoryCache, Description: "Serve the course directory from Redis", Enabled: true, RolloutPercent: 100},
		{Name: FeatureSharedSequence, Description: "Number certificates from a shared Redis counter", Enabled: true, RolloutPercent: 100},
		{Name: FeatureRedisEvents, Description: "Publish domain events over Redis pub/sub"},
		{Name: FeatureModerationAPI, Description: "Expose publish, approve and reject over HTTP", Enabled: true, RolloutPercent: 100},
		{Name: FeatureSessionIdentity, Description: "Resolve the signed-in learner from a Redis session", Enabled: true, RolloutPercent: 100},
		{Name: FeatureCheckoutEndpoint, Description: "Allow buying the whole cart in one request", Enabled: true, RolloutPercent: 100},
	}
	for i := range defaults {
		f := defaults[i]
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment accepts a bool or a 0-100 percentage per flag.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey maps "directory.cache" to "FEATURE_DIRECTORY_CACHE".
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// Enabled reports whether a feature is on at all. Use it for startup wiring.
func (ff *FeatureFlags) Enabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled && feature.RolloutPercent > 0
}

// EnabledFor reports whether a feature is on for userID, honoring overrides
// and the rollout bucket.
func (ff *FeatureFlags) EnabledFor(featureName, userID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if overrides, ok := ff.userOverrides[userID]; ok {
		if enabled, ok := overrides[featureName]; ok {
			return enabled
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}
	if feature.RolloutPercent >= 100 {
		return true
	}
	if userID == "" {
		return false
	}
	return inRollout(userID, featureName, feature.RolloutPercent)
}

// Gate returns a per-user predicate for featureName.
func (ff *FeatureFlags) Gate(featureName string) func(userID string) bool {
	return func(userID string) bool {
		return ff.EnabledFor(featureName, userID)
	}
}

// inRollout hashes user and feature so a learner keeps their bucket.
func inRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(featureName))
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride pins a feature for one learner.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a learner.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates a feature's rollout. Safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// All returns copies of every feature, sorted by name.
func (ff *FeatureFlags) All() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
