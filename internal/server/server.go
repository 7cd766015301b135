package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/todoapp/todo-backend/internal/config"
	"github.com/todoapp/todo-backend/internal/database"
	"github.com/todoapp/todo-backend/internal/service"
)

type Server struct {
	port        int
	corsOrigins []string
	authService service.AuthService
	todoService service.TodoService
	db          database.Service
}

// NewServer wires the services into an *http.Server listening on cfg.Port.
func NewServer(cfg *config.Config, authService service.AuthService, todoService service.TodoService, dbService database.Service) *http.Server {
	appServer := &Server{
		port:        cfg.Port,
		corsOrigins: cfg.CORSOrigins,
		authService: authService,
		todoService: todoService,
		db:          dbService,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
