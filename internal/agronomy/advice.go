// Package agronomy maps classifier output indices to disease names and
// the agronomic actions a farmer should take.
package agronomy

// Class indices produced by the cocoa pod model.
const (
	ClassBlackPodRot = 0
	ClassHealthy     = 1
	ClassPodBorer    = 2
)

type Advice struct {
	Disease         string   `json:"disease"`
	Recommendations []string `json:"recommendations"`
}

var adviceByClass = map[int]Advice{
	ClassBlackPodRot: {
		Disease: "Black Pod Rot",
		Recommendations: []string{
			"Remove and destroy infected pods to prevent spread.",
			"Maintain proper drainage in plantations to reduce waterlogging.",
			"Apply fungicides like copper-based fungicides regularly.",
			"Prune trees to improve airflow and reduce humidity.",
		},
	},
	ClassHealthy: {
		Disease: "Healthy",
		Recommendations: []string{
			"Continue regular maintenance and monitoring.",
			"Use organic fertilizers to promote growth.",
			"Ensure proper irrigation and sunlight exposure.",
			"Monitor for early signs of diseases or pests.",
		},
	},
	ClassPodBorer: {
		Disease: "Pod Borer",
		Recommendations: []string{
			"Use pheromone traps to monitor and control pod borers.",
			"Apply insecticides specifically targeted at borers.",
			"Harvest pods promptly to avoid infestation.",
			"Inspect and clean plantations regularly to remove eggs and larvae.",
		},
	},
}

// Lookup resolves a class index to its advice. Unknown indices fall back
// to a sentinel entry instead of failing.
func Lookup(classIndex int) Advice {
	if advice, ok := adviceByClass[classIndex]; ok {
		return advice
	}
	return Advice{
		Disease:         "Unknown",
		Recommendations: []string{"No recommendations available."},
	}
}
