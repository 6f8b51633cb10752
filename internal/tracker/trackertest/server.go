// Package trackertest provides an in-memory tracker backend for tests.
package trackertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/strps/Trackbit-sub000/internal/tracker"
)

// Route names accepted by Fail.
const (
	RouteHistory           = "history"
	RouteExercises         = "exercises"
	RouteCheck             = "check"
	RouteCreateSession     = "create-session"
	RouteDeleteSession     = "delete-session"
	RouteCreateExerciseLog = "create-exercise-log"
	RouteDeleteExerciseLog = "delete-exercise-log"
	RouteCreatePerformance = "create-performance"
	RouteUpdatePerformance = "update-performance"
	RouteDeletePerformance = "delete-performance"
)

type failure struct {
	status  int
	message string
}

// Server is a fake tracker backend. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	habits    map[int64]*tracker.Habit
	exercises map[int64]*tracker.Exercise
	nextID    int64
	failures  map[string][]failure
	requests  []string
	cookie    *http.Cookie
}

// New starts a fake backend seeded with habits and exercises. Close it with
// t.Cleanup(srv.Close).
func New(habits []tracker.Habit, exercises []tracker.Exercise) *Server {
	s := &Server{
		habits:    make(map[int64]*tracker.Habit),
		exercises: make(map[int64]*tracker.Exercise),
		nextID:    1000,
		failures:  make(map[string][]failure),
	}
	for _, h := range habits {
		h := h
		s.habits[h.ID] = &h
	}
	for _, ex := range exercises {
		ex := ex
		s.exercises[ex.ID] = &ex
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/tracker/history", s.handleHistory).Methods(http.MethodGet).Name(RouteHistory)
	r.HandleFunc("/tracker/exercises", s.handleExercises).Methods(http.MethodGet).Name(RouteExercises)
	r.HandleFunc("/tracker/check", s.handleCheck).Methods(http.MethodPost).Name(RouteCheck)
	r.HandleFunc("/tracker/exercise-sessions", s.handleCreateSession).Methods(http.MethodPost).Name(RouteCreateSession)
	r.HandleFunc("/tracker/exercise-sessions/{id:[0-9]+}", s.handleDeleteSession).Methods(http.MethodDelete).Name(RouteDeleteSession)
	r.HandleFunc("/tracker/exercise-logs", s.handleCreateExerciseLog).Methods(http.MethodPost).Name(RouteCreateExerciseLog)
	r.HandleFunc("/tracker/exercise-logs/{id:[0-9]+}", s.handleDeleteExerciseLog).Methods(http.MethodDelete).Name(RouteDeleteExerciseLog)
	r.HandleFunc("/tracker/exercise-performances", s.handleCreatePerformance).Methods(http.MethodPost).Name(RouteCreatePerformance)
	r.HandleFunc("/tracker/exercise-performances/{id:[0-9]+}", s.handleUpdatePerformance).Methods(http.MethodPatch).Name(RouteUpdatePerformance)
	r.HandleFunc("/tracker/exercise-performances/{id:[0-9]+}", s.handleDeletePerformance).Methods(http.MethodDelete).Name(RouteDeletePerformance)

	s.Server = httptest.NewServer(r)
	return s
}

// RequireSession makes every route answer 401 unless the cookie is present.
func (s *Server) RequireSession(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = &http.Cookie{Name: name, Value: value}
}

// Fail makes the next call to route answer with status and message.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// History returns the server-side state in /tracker/history form.
func (s *Server) History() []tracker.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

// NextID returns the id the next created entity will receive.
func (s *Server) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		want := s.cookie
		var fail *failure
		if route := mux.CurrentRoute(r); route != nil {
			if queued := s.failures[route.GetName()]; len(queued) > 0 {
				fail = &queued[0]
				s.failures[route.GetName()] = queued[1:]
			}
		}
		s.mu.Unlock()

		if want != nil {
			got, err := r.Cookie(want.Name)
			if err != nil || got.Value != want.Value {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "not authenticated"})
				return
			}
		}
		if fail != nil {
			writeJSON(w, fail.status, map[string]any{"message": fail.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.History())
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]tracker.Exercise, 0, len(s.exercises))
	for _, ex := range s.exercises {
		out = append(out, *ex)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var in tracker.RatingInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dl := s.dayLogLocked(in.HabitID, in.Date)
	if dl == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "habit not found"})
		return
	}
	rating := in.Rating
	dl.Rating = &rating
	writeJSON(w, http.StatusOK, tracker.RatingResult{Success: true, HabitID: in.HabitID, Date: in.Date})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in tracker.SessionInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dl := s.dayLogLocked(in.HabitID, in.Date)
	if dl == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "habit not found"})
		return
	}
	session := tracker.ExerciseSession{ID: s.allocLocked(), HabitID: in.HabitID, Date: in.Date, ExerciseLogs: []tracker.ExerciseLog{}}
	dl.ExerciseSessions = append(dl.ExerciseSessions, session)
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.habits {
		for i := range h.DayLogs {
			sessions := h.DayLogs[i].ExerciseSessions
			for j := range sessions {
				if sessions[j].ID == id {
					h.DayLogs[i].ExerciseSessions = append(sessions[:j:j], sessions[j+1:]...)
					writeJSON(w, http.StatusOK, map[string]any{"success": true})
					return
				}
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "session not found"})
}

func (s *Server) handleCreateExerciseLog(w http.ResponseWriter, r *http.Request) {
	var in tracker.ExerciseLogInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionLocked(in.ExerciseSessionID)
	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "session not found"})
		return
	}
	log := tracker.ExerciseLog{
		ID:                   s.allocLocked(),
		ExerciseSessionID:    in.ExerciseSessionID,
		ExerciseID:           in.ExerciseID,
		ExercisePerformances: []tracker.ExercisePerformance{},
	}
	for _, seed := range in.ExercisePerformances {
		log.ExercisePerformances = append(log.ExercisePerformances, tracker.ExercisePerformance{
			ID:            s.allocLocked(),
			ExerciseLogID: log.ID,
			Number:        seed.Number,
			Reps:          seed.Reps,
			Weight:        seed.Weight,
		})
	}
	session.ExerciseLogs = append(session.ExerciseLogs, log)
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleDeleteExerciseLog(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.eachSessionLocked(func(session *tracker.ExerciseSession) bool {
		for i := range session.ExerciseLogs {
			if session.ExerciseLogs[i].ID == id {
				session.ExerciseLogs = append(session.ExerciseLogs[:i:i], session.ExerciseLogs[i+1:]...)
				return true
			}
		}
		return false
	})
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "exercise log not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleCreatePerformance(w http.ResponseWriter, r *http.Request) {
	var in tracker.PerformanceInput
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var created *tracker.ExercisePerformance
	var exerciseID int64
	s.eachSessionLocked(func(session *tracker.ExerciseSession) bool {
		for i := range session.ExerciseLogs {
			log := &session.ExerciseLogs[i]
			if log.ID != in.ExerciseLogID {
				continue
			}
			log.ExercisePerformances = append(log.ExercisePerformances, tracker.ExercisePerformance{
				ID:            s.allocLocked(),
				ExerciseLogID: log.ID,
				Number:        in.Number,
				Reps:          in.Reps,
				Weight:        in.Weight,
			})
			created = &log.ExercisePerformances[len(log.ExercisePerformances)-1]
			exerciseID = log.ExerciseID
			return true
		}
		return false
	})
	if created == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "exercise log not found"})
		return
	}
	s.touchLastPerformanceLocked(exerciseID, *created)
	writeJSON(w, http.StatusOK, *created)
}

func (s *Server) handleUpdatePerformance(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var in tracker.PerformanceUpdate
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated *tracker.ExercisePerformance
	var exerciseID int64
	s.eachSessionLocked(func(session *tracker.ExerciseSession) bool {
		for i := range session.ExerciseLogs {
			log := &session.ExerciseLogs[i]
			for j := range log.ExercisePerformances {
				p := &log.ExercisePerformances[j]
				if p.ID != id {
					continue
				}
				p.Number = in.Number
				p.Reps = in.Reps
				p.Weight = in.Weight
				p.Duration = in.Duration
				p.Distance = in.Distance
				p.RPE = in.RPE
				updated = p
				exerciseID = log.ExerciseID
				return true
			}
		}
		return false
	})
	if updated == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "performance not found"})
		return
	}
	s.touchLastPerformanceLocked(exerciseID, *updated)
	writeJSON(w, http.StatusOK, *updated)
}

func (s *Server) handleDeletePerformance(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.eachSessionLocked(func(session *tracker.ExerciseSession) bool {
		for i := range session.ExerciseLogs {
			log := &session.ExerciseLogs[i]
			for j := range log.ExercisePerformances {
				if log.ExercisePerformances[j].ID == id {
					log.ExercisePerformances = append(log.ExercisePerformances[:j:j], log.ExercisePerformances[j+1:]...)
					return true
				}
			}
		}
		return false
	})
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "performance not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) historyLocked() []tracker.Habit {
	ids := make([]int64, 0, len(s.habits))
	for id := range s.habits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]tracker.Habit, 0, len(ids))
	for _, id := range ids {
		// Round-trip through the History clone to hand out an independent copy.
		out = append(out, tracker.NewHistory([]tracker.Habit{*s.habits[id]}).Export()...)
	}
	return out
}

// dayLogLocked returns the day log, creating it the way the backend does on
// the first rating or session of a day.
func (s *Server) dayLogLocked(habitID int64, date string) *tracker.DayLog {
	h := s.habits[habitID]
	if h == nil {
		return nil
	}
	for i := range h.DayLogs {
		if h.DayLogs[i].Date == date {
			return &h.DayLogs[i]
		}
	}
	h.DayLogs = append(h.DayLogs, tracker.DayLog{HabitID: habitID, Date: date, ExerciseSessions: []tracker.ExerciseSession{}})
	return &h.DayLogs[len(h.DayLogs)-1]
}

func (s *Server) sessionLocked(id int64) *tracker.ExerciseSession {
	var found *tracker.ExerciseSession
	s.eachSessionLocked(func(session *tracker.ExerciseSession) bool {
		if session.ID == id {
			found = session
			return true
		}
		return false
	})
	return found
}

func (s *Server) eachSessionLocked(fn func(*tracker.ExerciseSession) bool) bool {
	for _, h := range s.habits {
		for i := range h.DayLogs {
			for j := range h.DayLogs[i].ExerciseSessions {
				if fn(&h.DayLogs[i].ExerciseSessions[j]) {
					return true
				}
			}
		}
	}
	return false
}

func (s *Server) touchLastPerformanceLocked(exerciseID int64, p tracker.ExercisePerformance) {
	ex := s.exercises[exerciseID]
	if ex == nil {
		return
	}
	ex.LastPerformance = &tracker.LastPerformance{Reps: p.Reps, Weight: p.Weight, Duration: p.Duration, Distance: p.Distance}
}

func (s *Server) allocLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
