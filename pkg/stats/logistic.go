package stats

import (
	"math"

	"github.com/sccm-datasci/ards-platform/pkg/common/models"
)

// MortalityFeatureNames is the covariate order used by the adjusted model.
var MortalityFeatureNames = []string{"age_at_admission", "sex_female", "sf_at_onset", "early_prone"}

type LogisticOptions struct {
	Epochs       int
	LearningRate float64
}

type LogisticWeights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

type LogisticMetrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// LogisticModel couples the fitted weights with the standardization
// applied before training so predictions see the same scale.
type LogisticModel struct {
	FeatureNames []string        `json:"feature_names"`
	Weights      LogisticWeights `json:"weights"`
	Means        []float64       `json:"means"`
	Scales       []float64       `json:"scales"`
	Metrics      LogisticMetrics `json:"metrics"`
}

// TrainLogistic fits a logistic model by batch gradient descent.
func TrainLogistic(samples [][]float64, labels []float64, opts LogisticOptions) (LogisticWeights, LogisticMetrics) {
	if opts.Epochs <= 0 {
		opts.Epochs = 200
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.01
	}

	n := len(samples)
	if n == 0 {
		return LogisticWeights{}, LogisticMetrics{}
	}
	featureCount := len(samples[0])
	weights := make([]float64, featureCount)
	var bias float64

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		grad := make([]float64, featureCount)
		var biasGrad float64
		for i, sample := range samples {
			prediction := sigmoid(dot(weights, sample) + bias)
			residual := prediction - labels[i]
			for j := 0; j < featureCount; j++ {
				grad[j] += residual * sample[j]
			}
			biasGrad += residual
		}
		for j := 0; j < featureCount; j++ {
			weights[j] -= opts.LearningRate * grad[j] / float64(n)
		}
		bias -= opts.LearningRate * biasGrad / float64(n)
	}

	loss, accuracy := evaluate(weights, bias, samples, labels)
	return LogisticWeights{Bias: bias, Coefficients: weights}, LogisticMetrics{Loss: loss, Accuracy: accuracy}
}

// FitMortality trains the adjusted in-hospital mortality model over the
// analysis table. Rows without an onset S/F are excluded, matching every
// other quartile-dependent analysis. Covariates are standardized before
// training; ok is false when fewer than two outcome classes are present.
func FitMortality(records []models.AnalysisRecord, opts LogisticOptions) (LogisticModel, bool) {
	var samples [][]float64
	var labels []float64
	for _, rec := range records {
		if rec.SFAtOnset == nil {
			continue
		}
		sexF, early := 0.0, 0.0
		if rec.Sex == "F" {
			sexF = 1
		}
		if rec.ProneTiming == models.ProneEarly {
			early = 1
		}
		samples = append(samples, []float64{rec.AgeAtAdmission, sexF, *rec.SFAtOnset, early})
		if rec.Mortality {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	if len(samples) == 0 || allSame(labels) {
		return LogisticModel{}, false
	}

	means, scales := standardize(samples)
	weights, metrics := TrainLogistic(samples, labels, opts)

	return LogisticModel{
		FeatureNames: MortalityFeatureNames,
		Weights:      weights,
		Means:        means,
		Scales:       scales,
		Metrics:      metrics,
	}, true
}

// Predict returns the modeled mortality probability for one covariate
// vector in original (unstandardized) units.
func (m LogisticModel) Predict(features []float64) float64 {
	scaled := make([]float64, len(features))
	for i, v := range features {
		scaled[i] = (v - m.Means[i]) / m.Scales[i]
	}
	return sigmoid(dot(m.Weights.Coefficients, scaled) + m.Weights.Bias)
}

// standardize rescales each column to zero mean and unit variance in
// place, returning the applied means and scales.
func standardize(samples [][]float64) ([]float64, []float64) {
	if len(samples) == 0 {
		return nil, nil
	}
	cols := len(samples[0])
	means := make([]float64, cols)
	scales := make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, len(samples))
		for i := range samples {
			col[i] = samples[i][j]
		}
		means[j] = Mean(col)
		scales[j] = SD(col)
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	for i := range samples {
		for j := 0; j < cols; j++ {
			samples[i][j] = (samples[i][j] - means[j]) / scales[j]
		}
	}
	return means, scales
}

func allSame(labels []float64) bool {
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[0] {
			return false
		}
	}
	return true
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func evaluate(weights []float64, bias float64, samples [][]float64, labels []float64) (float64, float64) {
	var loss float64
	var correct int
	for i, sample := range samples {
		prediction := sigmoid(dot(weights, sample) + bias)
		loss += -labels[i]*math.Log(prediction+1e-9) - (1-labels[i])*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5 && labels[i] == 1) || (prediction < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	loss /= float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))
	return loss, accuracy
}
