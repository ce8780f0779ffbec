package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/julienschmidt/httprouter"

	"edfsim"
)

const MAX_BODY = 1 << 20

// holds the configuration the next run starts from. edits replace the stored value, runs
// work on a copy taken when they start.
type server struct {
	mu  sync.Mutex
	cfg *edfsim.Config
	log logr.Logger
}

func newServer(cfg *edfsim.Config, log logr.Logger) *server {
	return &server{cfg: cfg.Clone(), log: log.WithName("server")}
}

func (s *server) routes() *httprouter.Router {
	router := httprouter.New()

	router.GET("/ping", s.ping)

	router.GET("/config", s.getConfig)
	router.PUT("/config", s.setConfig)

	router.GET("/taskset", s.getTaskSet)
	router.PUT("/taskset", s.setTaskSet)

	router.POST("/frequencies", s.addFrequency)
	router.DELETE("/frequencies/:freq", s.removeFrequency)

	router.POST("/runs/:policy", s.run)
	router.POST("/compare", s.compare)
	return router
}

func (s *server) snapshot() *edfsim.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// applies edit to a copy of the stored config and stores it if it still validates
func (s *server) update(edit func(cfg *edfsim.Config)) (*edfsim.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidate := s.cfg.Clone()
	edit(candidate)
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	s.cfg = candidate
	return candidate.Clone(), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MAX_BODY))
	if err != nil {
		return err
	}
	if err := r.Body.Close(); err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func wantTrace(r *http.Request) bool {
	return r.URL.Query().Get("trace") != "false"
}

func (s *server) ping(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	fmt.Fprintf(w, "Pong %v", time.Now().UnixNano())
}

func (s *server) getConfig(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *server) setConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// fields the body leaves out keep their current values
	body := s.snapshot()
	if err := readJSON(r, body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	cfg, err := s.update(func(cfg *edfsim.Config) {
		*cfg = *body
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.log.Info("config replaced", "tasks", len(cfg.Tasks), "frequencies", len(cfg.Frequencies))
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *server) getTaskSet(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.snapshot().Tasks)
}

func (s *server) setTaskSet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var ts edfsim.TaskSet
	if err := readJSON(r, &ts); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	cfg, err := s.update(func(cfg *edfsim.Config) {
		cfg.Tasks = ts
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.log.Info("task set replaced", "tasks", len(cfg.Tasks), "utilization", cfg.Tasks.Utilization())
	writeJSON(w, http.StatusCreated, cfg.Tasks)
}

func (s *server) addFrequency(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var op edfsim.OperatingPoint
	if err := readJSON(r, &op); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	cfg, err := s.update(func(cfg *edfsim.Config) {
		cfg.Frequencies = cfg.Frequencies.With(op)
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg.Frequencies.Sorted())
}

func (s *server) removeFrequency(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	freq, err := strconv.ParseFloat(ps.ByName("freq"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	found := false
	cfg, err := s.update(func(cfg *edfsim.Config) {
		without := cfg.Frequencies.Without(freq)
		found = len(without) != len(cfg.Frequencies)
		cfg.Frequencies = without
	})
	switch {
	case !found:
		writeError(w, http.StatusNotFound, fmt.Errorf("no operating point at %v GHz", freq))
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeJSON(w, http.StatusOK, cfg.Frequencies.Sorted())
	}
}

func (s *server) run(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	policy, err := edfsim.ParsePolicy(ps.ByName("policy"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	res, err := edfsim.Simulate(s.snapshot(), policy, edfsim.WithLogger(s.log))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	if !wantTrace(r) {
		res.Trace = nil
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) compare(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cmp, err := edfsim.Compare(s.snapshot(), edfsim.WithLogger(s.log))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	if !wantTrace(r) {
		for _, res := range cmp.Results {
			res.Trace = nil
		}
	}
	writeJSON(w, http.StatusOK, cmp)
}

// the stored config always validates, so a failing run is a server fault unless it is a
// configuration error
func (s *server) writeRunError(w http.ResponseWriter, err error) {
	for _, known := range []error{edfsim.ErrBadTask, edfsim.ErrEmptyFreqTable, edfsim.ErrBadFrequency,
		edfsim.ErrBadPercentRange, edfsim.ErrBadQuantum, edfsim.ErrBadDuration} {
		if errors.Is(err, known) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}
	s.log.Error(err, "run failed")
	writeError(w, http.StatusInternalServerError, err)
}
