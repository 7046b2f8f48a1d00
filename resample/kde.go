package resample

import (
	"errors"
	"fmt"
	"math"
	mrand "math/rand"
	"sync"

	"github.com/abondrn/rnastats/stats"
	"github.com/mroth/weightedrand"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// MinKDEObservations is the smallest population a kernel density is fitted
// to.
const MinKDEObservations = 3

// maxCondition bounds the condition number of an accepted kernel covariance.
const maxCondition = 1e12

// ErrSingular is returned when the covariance of a population is not
// positive definite.
var ErrSingular = errors.New("singular covariance")

// kernel is a gaussian kernel density over one population: a sample is a
// uniformly chosen observation plus gaussian noise.
type kernel struct {
	data    [][dims]float64
	centres *weightedrand.Chooser
	noise   *distmv.Normal
}

// KDE draws from a gaussian kernel density estimate of each key.
type KDE struct {
	kernels map[stats.AngleKey]*kernel

	mu   sync.Mutex
	pick *mrand.Rand
}

// NewKDE fits a kernel density to every key of pop with at least
// MinKDEObservations records. Keys whose covariance is singular are logged
// and left without a model. A nil rng is seeded from the clock.
func NewKDE(pop Population, rng *rand.Rand) *KDE {
	if rng == nil {
		rng = stats.NewRand(0)
	}
	m := &KDE{
		kernels: make(map[stats.AngleKey]*kernel),
		pick:    mrand.New(mrand.NewSource(int64(rng.Uint64()))),
	}
	for _, key := range pop.Keys() {
		data := observations(pop.Exact(key))
		if len(data) < MinKDEObservations {
			continue
		}
		k, err := fitKernel(data, rng)
		if err != nil {
			logger.Warnf("no density for dimensions %v: %v", key, err)
			continue
		}
		m.kernels[key] = k
	}
	return m
}

// fitKernel uses Scott's rule: the kernel covariance is the sample
// covariance scaled by n^(-2/(d+4)).
func fitKernel(data [][dims]float64, src rand.Source) (*kernel, error) {
	n := len(data)
	x := mat.NewDense(n, dims, nil)
	for i, row := range data {
		x.SetRow(i, row[:])
	}
	cov := mat.NewSymDense(dims, nil)
	stat.CovarianceMatrix(cov, x, nil)
	factor := math.Pow(float64(n), -1/float64(dims+4))
	cov.ScaleSym(factor*factor, cov)

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok || chol.Cond() > maxCondition {
		return nil, ErrSingular
	}
	noise, ok := distmv.NewNormal(make([]float64, dims), cov, src)
	if !ok {
		return nil, ErrSingular
	}

	choices := make([]weightedrand.Choice, n)
	for i := range data {
		choices[i] = weightedrand.NewChoice(i, 1)
	}
	centres, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, fmt.Errorf("kernel centres: %w", err)
	}
	return &kernel{data: data, centres: centres, noise: noise}, nil
}

func (m *KDE) Sample(key stats.AngleKey) (*stats.AngleRecord, error) {
	k, ok := m.kernels[key]
	if !ok {
		return nil, fmt.Errorf("%w for %v", ErrNoModel, key)
	}
	m.mu.Lock()
	centre := k.data[k.centres.PickSource(m.pick).(int)]
	noise := k.noise.Rand(nil)
	m.mu.Unlock()

	var p [dims]float64
	for i := range p {
		p[i] = centre[i] + noise[i]
	}
	return synthetic(key, p), nil
}

func (m *KDE) Keys() []stats.AngleKey { return sortedKeys(m.kernels) }
