package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"StoreCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Log     *zap.Logger
	Issuer  *Issuer
	Metrics *Metrics
}

func NewServer(issuer *Issuer, log *zap.Logger, m *Metrics) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Log: log, Issuer: issuer, Metrics: m}
}

// Gate is the middleware protecting every catalog route.
func (s *Server) Gate() func(http.Handler) http.Handler {
	return RequireToken(s.Issuer.Tokens, s.Log, s.Metrics)
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginReq
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		s.Log.Debug("login body rejected", zap.Error(err))
		s.Metrics.observeLogin("bad_request")
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		s.Metrics.observeLogin("bad_request")
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	if req.Username == "" && req.Password == "" {
		s.Metrics.observeLogin("bad_request")
		kit.WriteError(w, r, http.StatusBadRequest, "username/password required", nil)
		return
	}

	tok, err := s.Issuer.Issue(req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		s.Log.Info("login rejected", zap.String("username", req.Username))
		s.Metrics.observeLogin("rejected")
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if err != nil {
		s.Log.Error("token issue", zap.Error(err))
		s.Metrics.observeLogin("error")
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Log.Info("login succeeded", zap.String("username", req.Username))
	s.Metrics.observeLogin("ok")
	kit.WriteJSON(w, http.StatusOK, loginResp{Token: tok})
}
