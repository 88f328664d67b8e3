package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/mobile-api-client/internal/api"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// maxDelay bounds /delay/{ms}.
const maxDelay = 30 * time.Second

func (s *Server) routes(r chi.Router) {
	r.Get("/posts", s.handleListPosts)
	r.Post("/posts", s.handleCreatePost)
	r.Route("/posts/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetPost)
		r.Put("/", s.handleUpdatePost(true))
		r.Patch("/", s.handleUpdatePost(false))
		r.Delete("/", s.handleDeletePost)
	})

	r.Get("/users", s.handleListUsers)
	r.Get("/users/{id}", s.handleGetUser)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.auth))
		r.Get("/me", s.handleMe)
	})

	// Fault injection for exercising client retries and timeouts.
	r.Get("/status/{code}", s.handleStatus)
	r.Get("/delay/{ms}", s.handleDelay)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	n, ok := limitParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.store.listPosts(n))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	post, found := s.store.post(id)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("post %d not found", id), CodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in api.NewPost
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required", CodeValidation)
		return
	}
	if _, found := s.store.user(in.UserID); !found {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("user %d does not exist", in.UserID), CodeValidation)
		return
	}

	post := s.store.createPost(in)
	AddLogField(r.Context(), "post_id", strconv.Itoa(post.ID))
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		var in api.PostUpdate
		if !decodeBody(w, r, &in) {
			return
		}
		if replace && (in.Title == nil || strings.TrimSpace(*in.Title) == "") {
			writeError(w, http.StatusBadRequest, "title is required", CodeValidation)
			return
		}

		post, found := s.store.updatePost(id, in, replace)
		if !found {
			writeError(w, http.StatusNotFound, fmt.Sprintf("post %d not found", id), CodeNotFound)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if !s.store.deletePost(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("post %d not found", id), CodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	n, ok := limitParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.store.listUsers(n))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	user, found := s.store.user(id)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %d not found", id), CodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := GetUserID(r.Context())
	user, found := s.store.user(id)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %d not found", id), CodeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 200 || code > 599 {
		writeError(w, http.StatusBadRequest, "status must be between 200 and 599", CodeValidation)
		return
	}
	if code < 300 {
		writeJSON(w, code, map[string]int{"status": code})
		return
	}
	writeError(w, code, http.StatusText(code), "HTTP_"+strconv.Itoa(code))
}

func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(chi.URLParam(r, "ms"))
	if err != nil || ms < 0 {
		writeError(w, http.StatusBadRequest, "delay must be a non-negative integer", CodeValidation)
		return
	}
	d := min(time.Duration(ms)*time.Millisecond, maxDelay)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.Context().Done():
		return
	case <-timer.C:
	}
	writeJSON(w, http.StatusOK, map[string]int{"delayed_ms": int(d / time.Millisecond)})
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw), CodeInvalidID)
		return 0, false
	}
	return id, true
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("_limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid _limit %q", raw), CodeValidation)
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", CodeValidation)
		return false
	}
	return true
}
