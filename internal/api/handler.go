package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/consolerelay/console-relay/internal/biz/domain"
)

const maxBodyBytes = 10 << 20

// MessageItem is one message on the wire
type MessageItem struct {
	AppName string `json:"app_name"`
	Carrier string `json:"carrier"`
	SMS     string `json:"sms"`
	Time    string `json:"time"`
	Color   string `json:"color"`
}

// OriginItem is one origin on the wire
type OriginItem struct {
	ID           int64   `json:"id"`
	AppName      string  `json:"app_name"`
	LoginURL     *string `json:"login_url"`
	URLChecked   bool    `json:"url_checked"`
	URLCheckedAt *string `json:"url_checked_at"`
	Color        string  `json:"color"`
}

// ConsolePayload is the POST /api/console-data body
type ConsolePayload struct {
	Meta map[string]interface{} `json:"meta"`
	Data struct {
		Messages []domain.RawMessage `json:"messages"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// ============ Message Handlers ============

func (s *Server) handleConsoleData(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePostConsoleData(w, r)
	case http.MethodGet:
		s.handleGetConsoleData(w, r)
	default:
		s.writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePostConsoleData(w http.ResponseWriter, r *http.Request) {
	var payload ConsolePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	count, err := s.console.Ingest(r.Context(), payload.Data.Messages)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "Data stored successfully",
		"count":   count,
	})
}

func (s *Server) handleGetConsoleData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Pull mode refreshes the store from the live console before reading it
	if s.pull != nil {
		if _, err := s.pull.Sync(ctx); err != nil {
			s.writeError(w, err)
			return
		}
	}

	msgs, err := s.console.Latest(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]MessageItem, len(msgs))
	for i, m := range msgs {
		items[i] = MessageItem{
			AppName: m.AppName,
			Carrier: m.Carrier,
			SMS:     m.Body,
			Time:    m.DisplayTime,
			Color:   m.Color,
		}
	}

	meta := map[string]interface{}{
		"status":    "success",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
	if len(msgs) > 0 {
		meta["batch_id"] = msgs[0].BatchID
	}

	s.writeJSON(w, map[string]interface{}{
		"meta": meta,
		"data": map[string]interface{}{
			"messages": items,
		},
	})
}

// ============ Origin Handlers ============

func (s *Server) handleOrigins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	origins, err := s.origins.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]OriginItem, len(origins))
	for i, o := range origins {
		item := OriginItem{
			ID:         o.ID,
			AppName:    o.AppName,
			URLChecked: !o.NeverChecked(),
			Color:      o.Color,
		}
		if o.LoginURL != "" {
			loginURL := o.LoginURL
			item.LoginURL = &loginURL
		}
		if o.URLCheckedAt != nil {
			checkedAt := o.URLCheckedAt.UTC().Format("2006-01-02T15:04:05Z")
			item.URLCheckedAt = &checkedAt
		}
		items[i] = item
	}

	s.writeJSON(w, map[string]interface{}{
		"status":  "success",
		"origins": items,
	})
}

func (s *Server) handleCheckAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.origins.CheckAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"status":  "success",
		"message": "Login URL checks queued",
		"count":   count,
	})
}

// ============ Upstream Handlers ============

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.pull == nil {
		s.writeDetail(w, http.StatusNotFound, "pull mode is disabled")
		return
	}
	if r.Method != http.MethodPost {
		s.writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	body, err := s.pull.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	if s.pull == nil {
		s.writeDetail(w, http.StatusNotFound, "pull mode is disabled")
		return
	}
	if r.Method != http.MethodGet {
		s.writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token, fromCache, err := s.pull.RefreshToken(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"token":      token,
		"from_cache": fromCache,
	})
}

// ============ Frontend ============

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeDetail(w, http.StatusNotFound, "not found")
		return
	}

	indexPath := filepath.Join(s.staticDir, "index.html")
	if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, indexPath)
		return
	}

	endpoints := map[string]string{
		"get_console_data":  "GET /api/console-data",
		"post_console_data": "POST /api/console-data",
		"list_origins":      "GET /api/origins",
		"check_origins":     "POST /api/origins/check-all",
	}
	if s.pull != nil {
		endpoints["login"] = "POST /api/login"
		endpoints["refresh_token"] = "GET /api/refresh-token"
	}

	s.writeJSON(w, map[string]interface{}{
		"message":   "Console Relay API",
		"status":    "running",
		"endpoints": endpoints,
	})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if domain.IsKind(err, domain.KindValidation) {
		status = http.StatusBadRequest
	}

	var de *domain.Error
	if errors.As(err, &de) {
		s.logger.Error("request failed", "kind", de.Kind, "op", de.Op, "err", de.Err)
	} else {
		s.logger.Error("request failed", "err", err)
	}
	s.writeDetail(w, status, err.Error())
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
