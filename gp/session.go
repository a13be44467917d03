package gp

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/algo-arrange/phrase"
)

// Config controls one evolutionary session. All randomness flows from Seed,
// so equal configs on equal inputs reproduce the same run.
type Config struct {
	Seed           int64         `json:"seed"`
	PopulationSize int           `json:"population_size"`
	Generations    int           `json:"generations"`
	ArchiveSize    int           `json:"archive_size"`
	TournamentSize int           `json:"tournament_size"`
	CrossoverRate  float64       `json:"crossover_rate"`
	MutationRate   float64       `json:"mutation_rate"`
	MaxProgramLen  int           `json:"max_program_len"`
	TimeBudget     time.Duration `json:"time_budget"`
	Workers        int           `json:"workers"`
}

// DefaultConfig returns a session sized for interactive use.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:           seed,
		PopulationSize: 48,
		Generations:    30,
		ArchiveSize:    8,
		TournamentSize: 3,
		CrossoverRate:  0.7,
		MutationRate:   0.3,
		MaxProgramLen:  6,
		TimeBudget:     5 * time.Second,
		Workers:        runtime.GOMAXPROCS(0),
	}
}

// Validate rejects configurations the session cannot run with.
func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("gp: population size %d, need at least 2", c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("gp: generations %d, need at least 1", c.Generations)
	}
	if c.ArchiveSize < 1 {
		return fmt.Errorf("gp: archive size %d, need at least 1", c.ArchiveSize)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("gp: crossover rate %.2f outside [0, 1]", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("gp: mutation rate %.2f outside [0, 1]", c.MutationRate)
	}
	if c.MaxProgramLen < 1 {
		return fmt.Errorf("gp: max program length %d, need at least 1", c.MaxProgramLen)
	}
	return nil
}

func (c Config) normalized() Config {
	if c.TournamentSize < 2 {
		c.TournamentSize = 2
	}
	if c.Workers < 1 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// GenerationLog records one generation for the session log.
type GenerationLog struct {
	Index    int     `json:"index"`
	BestCost float64 `json:"best_cost"`
	MeanCost float64 `json:"mean_cost"`
	Improved bool    `json:"improved"`
}

// SessionLog captures enough to replay and audit a run.
type SessionLog struct {
	Seed        int64           `json:"seed"`
	Config      Config          `json:"config"`
	Generations []GenerationLog `json:"generations"`
	FinalBest   string          `json:"final_best"`
	Reason      string          `json:"reason"`
}

// Termination reasons.
const (
	ReasonCompleted  = "completed"
	ReasonTimeBudget = "time-budget"
	ReasonCanceled   = "canceled"
)

// Session runs the evolutionary search for one source phrase.
type Session struct {
	cfg  Config
	eval *Evaluator
}

// NewSession validates the config and binds it to an evaluator.
func NewSession(eval *Evaluator, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{cfg: cfg.normalized(), eval: eval}, nil
}

// Result is the outcome of a session. Best is always valid: the identity
// program is seeded into the first population, so even a run cut short by
// the time budget returns a playable candidate.
type Result struct {
	Best    Candidate
	Archive []Candidate
	Log     SessionLog
	Elapsed time.Duration
}

// Candidate is one evaluated program together with the span it produced.
type Candidate struct {
	Program Program
	Span    phrase.Span
	Fitness FitnessVector
	Cost    float64
}

// Run executes the session. The time budget and ctx are checked between
// generations; in-flight evaluations always finish.
func (s *Session) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	population := s.initialPopulation(rng)
	scored := s.evaluateAll(population)
	archive := s.mergeArchive(nil, scored)

	log := SessionLog{
		Seed:   s.cfg.Seed,
		Config: s.cfg,
		Reason: ReasonCompleted,
	}
	log.Generations = append(log.Generations, generationStats(0, scored, true))

	for gen := 1; gen < s.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			log.Reason = ReasonCanceled
			break
		}
		if s.cfg.TimeBudget > 0 && time.Since(start) >= s.cfg.TimeBudget {
			log.Reason = ReasonTimeBudget
			break
		}
		prevBest := archive[0].Cost
		population = s.nextGeneration(rng, archive, scored)
		scored = s.evaluateAll(population)
		archive = s.mergeArchive(archive, scored)
		log.Generations = append(log.Generations, generationStats(gen, scored, archive[0].Cost < prevBest))
	}

	best := archive[0]
	log.FinalBest = best.Program.Describe(s.eval.Source)
	return Result{
		Best:    best,
		Archive: archive,
		Log:     log,
		Elapsed: time.Since(start),
	}, nil
}

// initialPopulation seeds the identity program plus random programs.
func (s *Session) initialPopulation(rng *rand.Rand) []Program {
	population := make([]Program, 0, s.cfg.PopulationSize)
	population = append(population, Program{})
	for len(population) < s.cfg.PopulationSize {
		population = append(population, s.randomProgram(rng))
	}
	return population
}

func (s *Session) randomProgram(rng *rand.Rand) Program {
	length := 1 + rng.Intn(s.cfg.MaxProgramLen)
	program := make(Program, 0, length)
	for i := 0; i < length; i++ {
		program = append(program, s.randomPrimitive(rng))
	}
	return program
}

func (s *Session) randomPrimitive(rng *rand.Rand) Primitive {
	switch rng.Intn(4) {
	case 0:
		return GlobalTranspose{Semitones: rng.Intn(2*MaxTransposeSemitones+1) - MaxTransposeSemitones}
	case 1:
		octaves := 1 + rng.Intn(MaxLocalOctaves)
		if rng.Intn(2) == 0 {
			octaves = -octaves
		}
		return LocalOctave{Region: s.randomRegion(rng), Octaves: octaves}
	case 2:
		return SimplifyRhythm{Region: s.randomRegion(rng), Passes: 1 + rng.Intn(2)}
	default:
		return DropOrnaments{Count: 1 + rng.Intn(2)}
	}
}

func (s *Session) randomRegion(rng *rand.Rand) Region {
	total := s.eval.Source.TotalDuration()
	if total <= 1 || rng.Intn(2) == 0 {
		return Region{}
	}
	start := rng.Intn(total)
	end := start + 1 + rng.Intn(total-start)
	return Region{StartOnset: start, EndOnset: end}
}

// evaluateAll scores a population in parallel. Evaluation is pure, so the
// worker pool writes into index-addressed slots and stays deterministic.
func (s *Session) evaluateAll(population []Program) []Candidate {
	scored := make([]Candidate, len(population))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := s.cfg.Workers
	if workers > len(population) {
		workers = len(population)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				program := population[i]
				span := program.Apply(s.eval.Source)
				fitness, cost := s.eval.Evaluate(program, span)
				scored[i] = Candidate{Program: program, Span: span, Fitness: fitness, Cost: cost}
			}
		}()
	}
	for i := range population {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return scored
}

// mergeArchive folds a generation into the elite archive. The previous
// archive is part of the merge, so the best cost never regresses.
func (s *Session) mergeArchive(archive, scored []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(archive)+len(scored))
	merged = append(merged, archive...)
	merged = append(merged, scored...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Cost != merged[j].Cost {
			return merged[i].Cost < merged[j].Cost
		}
		return len(merged[i].Program) < len(merged[j].Program)
	})
	out := merged[:0:0]
	seen := make(map[string]bool, s.cfg.ArchiveSize)
	for _, cand := range merged {
		key := cand.Program.Describe(s.eval.Source)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cand)
		if len(out) == s.cfg.ArchiveSize {
			break
		}
	}
	return out
}

func (s *Session) nextGeneration(rng *rand.Rand, archive, scored []Candidate) []Program {
	population := make([]Program, 0, s.cfg.PopulationSize)
	for _, elite := range archive {
		if len(population) == s.cfg.PopulationSize/4 {
			break
		}
		population = append(population, elite.Program.Clone())
	}
	for len(population) < s.cfg.PopulationSize {
		parent := s.tournament(rng, scored)
		child := parent.Clone()
		if rng.Float64() < s.cfg.CrossoverRate {
			other := s.tournament(rng, scored)
			child = s.crossover(rng, parent, other)
		}
		if rng.Float64() < s.cfg.MutationRate {
			child = s.mutate(rng, child)
		}
		population = append(population, child)
	}
	return population
}

func (s *Session) tournament(rng *rand.Rand, scored []Candidate) Program {
	best := scored[rng.Intn(len(scored))]
	for i := 1; i < s.cfg.TournamentSize; i++ {
		challenger := scored[rng.Intn(len(scored))]
		if challenger.Cost < best.Cost {
			best = challenger
		}
	}
	return best.Program
}

// crossover splices a prefix of a with a suffix of b.
func (s *Session) crossover(rng *rand.Rand, a, b Program) Program {
	cutA := 0
	if len(a) > 0 {
		cutA = rng.Intn(len(a) + 1)
	}
	cutB := 0
	if len(b) > 0 {
		cutB = rng.Intn(len(b) + 1)
	}
	child := make(Program, 0, cutA+len(b)-cutB)
	child = append(child, a[:cutA]...)
	child = append(child, b[cutB:]...)
	if len(child) > s.cfg.MaxProgramLen {
		child = child[:s.cfg.MaxProgramLen]
	}
	return child
}

func (s *Session) mutate(rng *rand.Rand, program Program) Program {
	mutated := program.Clone()
	switch {
	case len(mutated) == 0:
		return append(mutated, s.randomPrimitive(rng))
	case len(mutated) < s.cfg.MaxProgramLen && rng.Intn(3) == 0:
		at := rng.Intn(len(mutated) + 1)
		mutated = append(mutated, nil)
		copy(mutated[at+1:], mutated[at:])
		mutated[at] = s.randomPrimitive(rng)
		return mutated
	case len(mutated) > 1 && rng.Intn(3) == 0:
		at := rng.Intn(len(mutated))
		return append(mutated[:at], mutated[at+1:]...)
	default:
		mutated[rng.Intn(len(mutated))] = s.randomPrimitive(rng)
		return mutated
	}
}

func generationStats(index int, scored []Candidate, improved bool) GenerationLog {
	best := scored[0].Cost
	sum := 0.0
	for _, cand := range scored {
		sum += cand.Cost
		if cand.Cost < best {
			best = cand.Cost
		}
	}
	return GenerationLog{
		Index:    index,
		BestCost: best,
		MeanCost: sum / float64(len(scored)),
		Improved: improved,
	}
}
