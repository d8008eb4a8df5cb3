package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/functional"
	"github.com/born-ml/stanmath/internal/fwd"
	"github.com/born-ml/stanmath/internal/prob"
	"github.com/born-ml/stanmath/internal/scalar"
	"github.com/born-ml/stanmath/internal/serialization"
)

// model is a built-in objective, written once over scalar.Real and
// instantiated for reverse and forward mode.
type model struct {
	Name     string
	Help     string
	MinDim   int
	MaxDim   int // 0 means unbounded
	Start    []float64
	Minimize bool    // optimize descends instead of ascending
	Params   []param // named blocks of the flat parameter vector, in order

	rev functional.Func
	fwd func([]fwd.Dual) (fwd.Dual, error)
}

var models = map[string]model{
	"quadratic": {
		Name:     "quadratic",
		Help:     "sum of x*x + 2x over every coordinate",
		MinDim:   1,
		Start:    []float64{3},
		Minimize: true,
		rev:      quadratic[autodiff.Var],
		fwd:      quadratic[fwd.Dual],
	},
	"rosenbrock": {
		Name:     "rosenbrock",
		Help:     "chained Rosenbrock valley, minimum at (1, ..., 1)",
		MinDim:   2,
		Start:    []float64{-1.2, 1},
		Minimize: true,
		rev:      rosenbrock[autodiff.Var],
		fwd:      rosenbrock[fwd.Dual],
	},
	"normal": {
		Name:   "normal",
		Help:   "normal log likelihood of fixed data in (mu, log sigma)",
		MinDim: 2,
		MaxDim: 2,
		Start:  []float64{0, 0},
		Params: []param{{"mu", 1}, {"log_sigma", 1}},
		rev:    normal[autodiff.Var],
		fwd:    normal[fwd.Dual],
	},
	"logistic": {
		Name:   "logistic",
		Help:   "logistic regression log likelihood in (intercept, slope)",
		MinDim: 2,
		MaxDim: 2,
		Start:  []float64{0, 0},
		Params: []param{{"intercept", 1}, {"slope", 1}},
		rev:    logistic[autodiff.Var],
		fwd:    logistic[fwd.Dual],
	},
}

type param struct {
	Name string
	Size int
}

// unpack splits a flat parameter vector into the model's named blocks.
func (m model) unpack(x []float64) (map[string][]float64, error) {
	d := serialization.NewDeserializer(x)
	out := make(map[string][]float64, len(m.Params))
	for _, p := range m.Params {
		v, err := d.Slice(p.Size)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out[p.Name] = v
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return out, nil
}

func lookupModel(name string) (model, error) {
	m, ok := models[name]
	if !ok {
		return model{}, fmt.Errorf("unknown model %q (available: %s)", name, strings.Join(modelNames(), ", "))
	}
	return m, nil
}

func modelNames() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// point returns x, or the model's starting point when x is empty.
func (m model) point(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return slices.Clone(m.Start), nil
	}
	if len(x) < m.MinDim || (m.MaxDim > 0 && len(x) > m.MaxDim) {
		return nil, fmt.Errorf("model %s: got %d coordinates, %s", m.Name, len(x), m.dims())
	}
	return x, nil
}

func (m model) dims() string {
	switch {
	case m.MaxDim == m.MinDim:
		return fmt.Sprintf("want %d", m.MinDim)
	case m.MaxDim == 0:
		return fmt.Sprintf("want at least %d", m.MinDim)
	default:
		return fmt.Sprintf("want %d to %d", m.MinDim, m.MaxDim)
	}
}

// objective is the function optimize ascends.
func (m model) objective() functional.Func {
	if !m.Minimize {
		return m.rev
	}
	return func(x []autodiff.Var) (autodiff.Var, error) {
		y, err := m.rev(x)
		return y.Neg(), err
	}
}

// forwardGradient evaluates the gradient with one forward pass per coordinate.
func (m model) forwardGradient(x []float64) (float64, []float64, error) {
	var ferr error
	fx, grad := fwd.Gradient(func(d []fwd.Dual) fwd.Dual {
		y, err := m.fwd(d)
		if err != nil && ferr == nil {
			ferr = err
		}
		return y
	}, x)
	if ferr != nil {
		return 0, nil, ferr
	}
	return fx, grad, nil
}

func quadratic[T scalar.Real[T]](x []T) (T, error) {
	acc := x[0].Lift(0)
	for _, xi := range x {
		acc = acc.Add(xi.Mul(xi).Add(xi.Scale(2)))
	}
	return acc, nil
}

func rosenbrock[T scalar.Real[T]](x []T) (T, error) {
	acc := x[0].Lift(0)
	for i := 0; i+1 < len(x); i++ {
		a := x[i].Neg().Shift(1).Square()
		b := x[i+1].Sub(x[i].Square()).Square().Scale(100)
		acc = acc.Add(a).Add(b)
	}
	return acc, nil
}

var normalData = []float64{1.2, 0.8, 2.1, 1.7, 0.4, 1.1, 1.5, 0.9}

func normal[T scalar.Real[T]](x []T) (T, error) {
	mu, sigma := x[0], x[1].Exp()
	y := make([]T, len(normalData))
	for i, d := range normalData {
		y[i] = mu.Lift(d)
	}
	return prob.NormalLPDF(y, mu, sigma)
}

var (
	logisticX = []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5}
	logisticY = []int{0, 0, 0, 1, 0, 1, 1, 0, 1, 1}
)

func logistic[T scalar.Real[T]](x []T) (T, error) {
	theta := make([]T, len(logisticX))
	for i, xi := range logisticX {
		theta[i] = x[0].Add(x[1].Scale(xi))
	}
	return prob.BernoulliLogitLPMF(logisticY, theta)
}
