package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// taskID returns the {id} path parameter, which must be a UUID.
func taskID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: uuid is expected", common.ErrorValidation)
	}
	return id.String(), nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrorValidation)
	}
	return nil
}

func ownerOf(r *http.Request) string {
	id, _ := PrincipalFrom(r.Context())
	return id.UserID
}

func (s *Server) taskMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.tasks.Metrics(r.Context(), ownerOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) taskMetricsAdmin(w http.ResponseWriter, r *http.Request) {
	m, err := s.tasks.AdminMetrics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTaskInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	task, err := s.tasks.Create(r.Context(), ownerOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) listOwnTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.FindAllByOwner(r.Context(), ownerOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) listAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.FindAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getOwnTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := s.tasks.FindOneByOwner(r.Context(), id, ownerOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) getAnyTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := s.tasks.FindOne(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateOwnTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in services.UpdateTaskInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	task, err := s.tasks.UpdateByOwner(r.Context(), id, ownerOf(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateAnyTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in services.UpdateTaskInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	task, err := s.tasks.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteOwnTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.tasks.RemoveByOwner(r.Context(), id, ownerOf(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteAnyTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.tasks.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
