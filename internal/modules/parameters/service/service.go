package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"prodline-server/internal/modules/parameters/repository"
	"prodline-server/internal/modules/parameters/types"
)

// Options is the validated tuning for the service; see DefaultOptions.
type Options struct {
	DefaultHours    int
	MaxHours        int
	PerturbFraction float64
	Tolerance       float64
	Seed            SeedPlan
}

// SeedPlan describes the synthetic history written by Seed: Count rows spaced
// Spacing apart, each field drawn uniformly from Base ± Spread.
type SeedPlan struct {
	Count   int
	Spacing time.Duration
	Base    types.Values
	Spread  types.Values
}

func DefaultOptions() Options {
	return Options{
		DefaultHours:    24,
		MaxHours:        720,
		PerturbFraction: 0.1,
		Tolerance:       0.15,
		Seed: SeedPlan{
			Count:   24,
			Spacing: time.Hour,
			Base:    types.Values{Temperature: 25.0, Humidity: 60.0, Pressure: 1013.0, Speed: 100.0},
			Spread:  types.Values{Temperature: 2, Humidity: 5, Pressure: 10, Speed: 5},
		},
	}
}

// Publisher announces stored readings to other systems.
type Publisher interface {
	Publish(ctx context.Context, r types.Reading) error
}

// Recorder counts stored readings by kind and by the operation that produced them.
type Recorder interface {
	ReadingStored(kind, source string)
}

type Service struct {
	repository repository.ParametersRepository
	opts       Options
	randFloat  func() float64
	now        func() time.Time
	publisher  Publisher
	recorder   Recorder
	logger     *slog.Logger
}

type Option func(*Service)

// WithRand replaces the [0,1) source used for perturbation and seeding.
func WithRand(f func() float64) Option { return func(s *Service) { s.randFloat = f } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(repository repository.ParametersRepository, opts Options, options ...Option) *Service {
	s := &Service{
		repository: repository,
		opts:       opts,
		randFloat:  rand.Float64,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *Service) Options() Options { return s.opts }

// uniform draws from [a, b).
func (s *Service) uniform(a, b float64) float64 {
	return a + (b-a)*s.randFloat()
}

// Perturb derives a new measured reading from the latest one (or from the
// target when nothing has been measured yet), scaling every field by an
// independent factor in [1-f, 1+f). The read and the insert are separate
// statements, so concurrent callers may derive from the same base.
func (s *Service) Perturb(ctx context.Context) (types.Reading, error) {
	base, err := s.repository.Latest(ctx, types.KindMeasured)
	if err != nil {
		return types.Reading{}, err
	}
	if base == nil {
		if base, err = s.repository.Latest(ctx, types.KindTarget); err != nil {
			return types.Reading{}, err
		}
	}
	if base == nil {
		return types.Reading{}, ErrNotFound
	}

	f := s.opts.PerturbFraction
	next := types.NewReading{
		Values: base.Values.Map(func(_ string, x float64) float64 {
			return x * (1 + s.uniform(-f, f))
		}),
		Timestamp: s.now(),
	}
	for _, field := range types.Fields {
		if v, _ := next.Values.Get(field); math.IsInf(v, 0) || math.IsNaN(v) {
			return types.Reading{}, fmt.Errorf("perturb reading %d: %s: %w", base.ID, field, ErrNonFinite)
		}
	}
	return s.store(ctx, next, "perturb")
}

func (s *Service) LatestMeasured(ctx context.Context) (*types.Reading, error) {
	return s.repository.Latest(ctx, types.KindMeasured)
}

func (s *Service) LatestTarget(ctx context.Context) (*types.Reading, error) {
	return s.repository.Latest(ctx, types.KindTarget)
}

// ParseHours reads the hours query value; empty means DefaultHours.
func (s *Service) ParseHours(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.opts.DefaultHours, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &InvalidArgumentError{Name: "hours", Value: raw, Reason: "expected integer"}
	}
	if err := s.checkHours(n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) checkHours(n int) error {
	if n < 1 || n > s.opts.MaxHours {
		return &InvalidArgumentError{
			Name:   "hours",
			Value:  strconv.Itoa(n),
			Reason: fmt.Sprintf("must be between 1 and %d", s.opts.MaxHours),
		}
	}
	return nil
}

// History returns measured readings from the last hours hours, newest first.
func (s *Service) History(ctx context.Context, hours int) ([]types.Reading, error) {
	if err := s.checkHours(hours); err != nil {
		return nil, err
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	return s.repository.Range(ctx, since, types.KindMeasured)
}

// Series is History reshaped into parallel arrays in chronological order.
func (s *Service) Series(ctx context.Context, hours int) (types.Series, error) {
	readings, err := s.History(ctx, hours)
	if err != nil {
		return types.Series{}, err
	}
	ordered := slices.Clone(readings)
	slices.Reverse(ordered)

	field := func(get func(types.Values) float64) []float64 {
		return lo.Map(ordered, func(r types.Reading, _ int) float64 { return get(r.Values) })
	}
	return types.Series{
		Timestamps:   lo.Map(ordered, func(r types.Reading, _ int) time.Time { return r.Timestamp }),
		Temperatures: field(func(v types.Values) float64 { return v.Temperature }),
		Humidities:   field(func(v types.Values) float64 { return v.Humidity }),
		Pressures:    field(func(v types.Values) float64 { return v.Pressure }),
		Speeds:       field(func(v types.Values) float64 { return v.Speed }),
	}, nil
}

// Seed replaces the whole store, targets included, with the synthetic
// history described by the seed plan in one transaction. It returns the
// number of rows written.
func (s *Service) Seed(ctx context.Context) (int, error) {
	plan := s.opts.Seed
	now := s.now()
	rows := make([]types.NewReading, 0, plan.Count)
	for i := 0; i < plan.Count; i++ {
		vals := plan.Base.Map(func(field string, x float64) float64 {
			d, _ := plan.Spread.Get(field)
			return x + s.uniform(-d, d)
		})
		rows = append(rows, types.NewReading{
			Values:    vals,
			Timestamp: now.Add(-time.Duration(i) * plan.Spacing),
		})
	}

	deleted, err := s.repository.ReplaceAll(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	for range rows {
		s.record(types.KindMeasured, "seed")
	}
	s.logger.InfoContext(ctx, "readings seeded", "deleted", deleted, "count", len(rows), "spacing", plan.Spacing)
	return len(rows), nil
}

// Create validates and stores a reading. Targets replace any existing target.
func (s *Service) Create(ctx context.Context, in CreateInput) (types.Reading, error) {
	r, err := in.parse()
	if err != nil {
		return types.Reading{}, err
	}
	return s.store(ctx, r, "create")
}

// Deviation compares the latest measured reading with the target.
func (s *Service) Deviation(ctx context.Context) (types.DeviationReport, error) {
	measured, err := s.repository.Latest(ctx, types.KindMeasured)
	if err != nil {
		return types.DeviationReport{}, err
	}
	target, err := s.repository.Latest(ctx, types.KindTarget)
	if err != nil {
		return types.DeviationReport{}, err
	}
	if measured == nil || target == nil {
		return types.DeviationReport{}, ErrNotFound
	}
	return deviation(*measured, *target, s.opts.Tolerance), nil
}

// Overview gathers what the dashboard shows. Missing readings leave nil fields.
func (s *Service) Overview(ctx context.Context) (types.Overview, error) {
	var out types.Overview
	var err error
	if out.Latest, err = s.repository.Latest(ctx, types.KindMeasured); err != nil {
		return types.Overview{}, err
	}
	if out.Target, err = s.repository.Latest(ctx, types.KindTarget); err != nil {
		return types.Overview{}, err
	}
	if out.MeasuredCount, err = s.repository.Count(ctx, types.KindMeasured); err != nil {
		return types.Overview{}, err
	}
	if out.Latest != nil && out.Target != nil {
		report := deviation(*out.Latest, *out.Target, s.opts.Tolerance)
		out.Deviation = &report
	}
	return out, nil
}

func deviation(measured, target types.Reading, tolerance float64) types.DeviationReport {
	report := types.DeviationReport{
		Measured:  measured,
		Target:    target,
		Tolerance: tolerance,
		Fields:    make([]types.FieldDeviation, 0, len(types.Fields)),
	}
	for _, field := range types.Fields {
		m, _ := measured.Get(field)
		t, _ := target.Get(field)
		fd := types.FieldDeviation{Field: field, Measured: m, Target: t, Relative: relative(m, t)}
		fd.OutOfTolerance = fd.Relative > tolerance
		report.OutOfTolerance = report.OutOfTolerance || fd.OutOfTolerance
		report.Fields = append(report.Fields, fd)
	}
	return report
}

// relative is |m-t|/|t|. A zero target counts any non-zero reading as 100% off.
func relative(m, t float64) float64 {
	if t == 0 {
		if m == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(m-t) / math.Abs(t)
}

func (s *Service) store(ctx context.Context, r types.NewReading, source string) (types.Reading, error) {
	var (
		out types.Reading
		err error
	)
	if r.IsTarget {
		out, err = s.repository.ReplaceTarget(ctx, r)
	} else {
		out, err = s.repository.Insert(ctx, r)
	}
	if err != nil {
		return types.Reading{}, err
	}
	s.record(types.KindOf(out.IsTarget), source)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, out); err != nil {
			s.logger.WarnContext(ctx, "publish reading failed", "id", out.ID, "error", err)
		}
	}
	return out, nil
}

func (s *Service) record(kind types.Kind, source string) {
	if s.recorder != nil {
		s.recorder.ReadingStored(kind.String(), source)
	}
}
