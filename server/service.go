package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"fukuyama-landprice/models"
	"fukuyama-landprice/services"
	"fukuyama-landprice/utils"
)

// Service modes.
const (
	ModeModel = "model"
	ModeRules = "rules"
)

// State is the lifecycle state of the prediction service.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadFailed:
		return "load_failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrNotReady is returned while the model is not available.
var ErrNotReady = errors.New("model not loaded")

// NotReadyError carries the state the service was in and, after a failed
// load, the load error.
type NotReadyError struct {
	State State
	Err   error
}

func (e *NotReadyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrNotReady, e.State, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrNotReady, e.State)
}

func (e *NotReadyError) Unwrap() error { return ErrNotReady }

// LoadFunc produces the predictor served in model mode.
type LoadFunc func() (*services.Predictor, error)

// Service answers prediction requests. In model mode it serves a Predictor
// loaded once at startup; in rules mode it only uses the rule estimator and
// is ready immediately.
type Service struct {
	mode      string
	logger    *utils.Logger
	estimator *services.Estimator
	cache     *cache.Cache

	state     atomic.Int32
	predictor atomic.Pointer[services.Predictor]

	mu      sync.RWMutex
	loadErr error
}

// NewService creates a Service. A cacheTTL of zero disables response caching.
func NewService(mode string, cacheTTL time.Duration, logger *utils.Logger) (*Service, error) {
	if mode != ModeModel && mode != ModeRules {
		return nil, fmt.Errorf("server: unknown service mode %q", mode)
	}
	s := &Service{
		mode:      mode,
		logger:    logger,
		estimator: services.NewEstimator(),
	}
	if cacheTTL > 0 {
		s.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	if mode == ModeRules {
		s.state.Store(int32(StateReady))
	}
	return s, nil
}

func (s *Service) Mode() string { return s.mode }

func (s *Service) State() State { return State(s.state.Load()) }

// LoadError returns the error of a failed load, if any.
func (s *Service) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Load runs load once, moving the service from Uninitialized through Loading
// to Ready or LoadFailed. Calling it again, or in rules mode, is an error.
func (s *Service) Load(load LoadFunc) error {
	if !s.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		return fmt.Errorf("server: cannot load in state %s", s.State())
	}
	s.logger.Info("[service] Loading model artifacts")

	p, err := load()
	if err == nil && p == nil {
		err = errors.New("loader returned no predictor")
	}
	if err != nil {
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		s.state.Store(int32(StateLoadFailed))
		s.logger.Error("[service] Model load failed: %v", err)
		return err
	}

	s.predictor.Store(p)
	s.state.Store(int32(StateReady))
	s.logger.Info("[service] Model ready: %s (run %s)", p.Info.BestModelName, p.Info.RunID)
	return nil
}

// LoadAsync runs Load in a goroutine. The returned channel closes when the
// load has finished.
func (s *Service) LoadAsync(load LoadFunc) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Load(load)
	}()
	return done
}

// Predictor returns the loaded predictor or a *NotReadyError.
func (s *Service) Predictor() (*services.Predictor, error) {
	switch st := s.State(); st {
	case StateReady:
		return s.predictor.Load(), nil
	case StateLoadFailed:
		return nil, &NotReadyError{State: st, Err: s.LoadError()}
	default:
		return nil, &NotReadyError{State: st}
	}
}

// PredictModel prices a request with the loaded model.
func (s *Service) PredictModel(req models.PredictionRequest) (models.ModelPrediction, error) {
	p, err := s.Predictor()
	if err != nil {
		return models.ModelPrediction{}, err
	}

	key := cacheKey(ModeModel, req)
	if v, ok := s.cacheGet(key); ok {
		return v.(models.ModelPrediction), nil
	}

	res, err := p.Predict(req.DistrictName, *req.Area, *req.BuildingYear, req.Type())
	if err != nil {
		return models.ModelPrediction{}, err
	}
	s.cacheSet(key, res)
	return res, nil
}

// Estimate prices a request with the rule estimator. It works in every state
// and only fails for out-of-range inputs.
func (s *Service) Estimate(req models.PredictionRequest) (models.Estimate, error) {
	key := cacheKey(ModeRules, req)
	if v, ok := s.cacheGet(key); ok {
		return v.(models.Estimate), nil
	}
	res, err := s.estimator.Estimate(req.DistrictName, *req.Area, *req.BuildingYear, req.Type())
	if err != nil {
		return models.Estimate{}, err
	}
	s.cacheSet(key, res)
	return res, nil
}

// Districts lists the districts the active mode knows about.
func (s *Service) Districts() ([]string, error) {
	if s.mode == ModeRules {
		return s.estimator.KnownDistricts(), nil
	}
	p, err := s.Predictor()
	if err != nil {
		return nil, err
	}
	return p.Encoder.District.Classes(), nil
}

// PropertyTypes lists the property types the active mode knows about.
func (s *Service) PropertyTypes() ([]string, error) {
	if s.mode == ModeRules {
		return s.estimator.KnownPropertyTypes(), nil
	}
	p, err := s.Predictor()
	if err != nil {
		return nil, err
	}
	return p.Encoder.Type.Classes(), nil
}

func cacheKey(kind string, req models.PredictionRequest) string {
	return fmt.Sprintf("%s|%s|%g|%d|%s", kind, req.DistrictName, *req.Area, *req.BuildingYear, req.Type())
}

func (s *Service) cacheGet(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) cacheSet(key string, v any) {
	if s.cache != nil {
		s.cache.Set(key, v, cache.DefaultExpiration)
	}
}
