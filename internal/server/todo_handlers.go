package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/todoapp/todo-backend/internal/service"
)

func (s *Server) getAllTodosHandler(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFrom(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	todos, err := s.todoService.ListTodos(r.Context(), principal.UserID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFrom(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req service.CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := s.todoService.CreateTodo(r.Context(), principal.UserID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, todo)
}

func (s *Server) getTodoByIDHandler(w http.ResponseWriter, r *http.Request) {
	todo, ok := s.ownedTodo(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	todo, ok := s.ownedTodo(w, r)
	if !ok {
		return
	}

	var req service.UpdateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.todoService.UpdateTodo(r.Context(), todo.ID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	todo, ok := s.ownedTodo(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTodo(r.Context(), todo.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedTodo loads the todo named by the {id} URL parameter and checks that
// the caller owns it. A missing todo is 404 whoever asks; someone else's
// todo is 403. On failure the response is already written.
func (s *Server) ownedTodo(w http.ResponseWriter, r *http.Request) (*service.TodoResponse, bool) {
	principal, err := principalFrom(r)
	if err != nil {
		respondWithServiceError(w, err)
		return nil, false
	}

	rawID := chi.URLParam(r, "id")
	// Ids are bigint columns; anything past MaxInt64 cannot exist.
	id, err := strconv.ParseUint(rawID, 10, 63)
	if errors.Is(err, strconv.ErrRange) {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Todo with ID %s not found", rawID))
		return nil, false
	}
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid todo ID provided")
		return nil, false
	}

	todo, err := s.todoService.GetTodoByID(r.Context(), uint(id))
	if err != nil {
		respondWithServiceError(w, err)
		return nil, false
	}

	if !todo.OwnedBy(principal.UserID) {
		logrus.WithFields(logrus.Fields{"user_id": principal.UserID, "todo_id": id}).
			Warn("Access to another user's todo denied")
		respondWithServiceError(w, service.Forbidden("You do not have access to this todo"))
		return nil, false
	}
	return todo, true
}
