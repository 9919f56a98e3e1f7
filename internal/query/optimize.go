package query

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// individual is one candidate assignment: one decision variable per
// matched node, holding a candidate value for the optimized property.
type individual struct {
	vars    []float64
	fitness []float64 // one entry per objective; single-objective has len 1
}

// procOrSolve is the thin procedure-call bridge the query language exposes
// to the metaheuristic optimization engine (out of scope beyond this
// bridge): it assigns each node matching {label} a candidate value for
// {property} within [min, max], minimizing the sum of {cost_property}
// weighted by that candidate value (or, for multiple cost_properties,
// tracking a Pareto front across objectives), using the Jaya update rule.
func procOrSolve(env *Env, args []any) (*ProcResult, error) {
	cfg, ok := argMap(args, 0)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "algo.or.solve requires a config map argument")
	}

	algorithm, _ := cfg["algorithm"].(string)
	if algorithm == "" {
		algorithm = "jaya"
	}
	label, _ := cfg["label"].(string)
	property, _ := cfg["property"].(string)
	if property == "" {
		return nil, samerr.New(samerr.CodeSemanticError, "algo.or.solve requires a property")
	}
	min, ok := asFloat(cfg["min"])
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "algo.or.solve requires min")
	}
	max, ok := asFloat(cfg["max"])
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "algo.or.solve requires max")
	}
	popSize := int(argMapFloat(cfg, "population_size", 30))
	maxIter := int(argMapFloat(cfg, "max_iterations", 100))
	minTotal, hasMinTotal := cfg["min_total"]
	var minTotalF float64
	if hasMinTotal {
		minTotalF, _ = asFloat(minTotal)
	}

	var costProps []string
	if list, ok := cfg["cost_properties"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				costProps = append(costProps, s)
			}
		}
	} else if s, ok := cfg["cost_property"].(string); ok {
		costProps = []string{s}
	}
	if len(costProps) == 0 {
		return nil, samerr.New(samerr.CodeSemanticError, "algo.or.solve requires cost_property or cost_properties")
	}
	multiObjective := len(costProps) > 1

	nodeIds := buildGraphSource(env, label, "", "").NodeIds()
	dim := len(nodeIds)
	if dim == 0 {
		return nil, samerr.New(samerr.CodeSemanticError, "algo.or.solve found no nodes matching label %q", label)
	}
	costs := make([][]float64, dim)
	for i, id := range nodeIds {
		n, err := env.Store.GetNodeAt(id, env.AsOf)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(costProps))
		for j, cp := range costProps {
			if pv, ok := n.Properties[cp]; ok {
				row[j], _ = asFloat(toAny(pv))
			}
		}
		costs[i] = row
	}

	fitnessOf := func(vars []float64) []float64 {
		out := make([]float64, len(costProps))
		total := 0.0
		for i, v := range vars {
			total += v
			for j := range costProps {
				out[j] += v * costs[i][j]
			}
		}
		if hasMinTotal && total < minTotalF {
			penalty := (minTotalF - total) * 1e6
			for j := range out {
				out[j] += penalty
			}
		}
		return out
	}

	rng := rand.New(rand.NewSource(1))
	population := make([]individual, popSize)
	for i := range population {
		vars := make([]float64, dim)
		for d := 0; d < dim; d++ {
			vars[d] = min + rng.Float64()*(max-min)
		}
		population[i] = individual{vars: vars, fitness: fitnessOf(vars)}
	}

	iterations := 0
	for ; iterations < maxIter; iterations++ {
		bestIdx, worstIdx := bestWorst(population)
		best := population[bestIdx].vars
		worst := population[worstIdx].vars

		// rand.Rand is not goroutine-safe: draw every individual's random
		// pair up front, before fanning the update step out.
		r1s := make([]float64, len(population))
		r2s := make([]float64, len(population))
		for i := range population {
			r1s[i], r2s[i] = rng.Float64(), rng.Float64()
		}

		next := make([]individual, len(population))
		g, _ := errgroup.WithContext(context.Background())
		for i := range population {
			i := i
			g.Go(func() error {
				ind := population[i]
				r1, r2 := r1s[i], r2s[i]
				candidate := make([]float64, dim)
				for j := 0; j < dim; j++ {
					v := ind.vars[j] + r1*(best[j]-math.Abs(ind.vars[j])) - r2*(worst[j]-math.Abs(ind.vars[j]))
					candidate[j] = clamp(v, min, max)
				}
				candFitness := fitnessOf(candidate)
				if dominatesOrBetter(candFitness, ind.fitness) {
					next[i] = individual{vars: candidate, fitness: candFitness}
				} else {
					next[i] = ind
				}
				return nil
			})
		}
		_ = g.Wait()
		population = next
	}

	if multiObjective {
		front := paretoFront(population)
		bestIdx, _ := bestWorst(population)
		return &ProcResult{
			Columns: []string{"fitness", "algorithm", "front_size"},
			Rows:    [][]any{{population[bestIdx].fitness[0], algorithm, int64(len(front))}},
		}, nil
	}
	bestIdx, _ := bestWorst(population)
	return &ProcResult{
		Columns: []string{"fitness", "algorithm", "iterations"},
		Rows:    [][]any{{population[bestIdx].fitness[0], algorithm, int64(iterations)}},
	}, nil
}

func argMapFloat(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		if f, ok := asFloat(v); ok {
			return f
		}
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// dominatesOrBetter reports whether a is at least as good as b on every
// objective and strictly better on at least one (Pareto dominance),
// single-objective minimization when len==1.
func dominatesOrBetter(a, b []float64) bool {
	betterSome := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			betterSome = true
		}
	}
	return betterSome
}

func bestWorst(pop []individual) (best, worst int) {
	for i, ind := range pop {
		if ind.fitness[0] < pop[best].fitness[0] {
			best = i
		}
		if ind.fitness[0] > pop[worst].fitness[0] {
			worst = i
		}
	}
	return
}

// paretoFront returns the indices of non-dominated individuals.
func paretoFront(pop []individual) []int {
	var front []int
	for i, a := range pop {
		dominated := false
		for j, b := range pop {
			if i == j {
				continue
			}
			if dominatesOrBetter(b.fitness, a.fitness) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, i)
		}
	}
	return front
}
