package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StoreCatalog/internal/auth"
	"StoreCatalog/pkg/kit"
)

const maxProductBody = 1 << 20

type Server struct {
	Store Store
	Log   *zap.Logger
}

func NewServer(store Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Store: store, Log: log}
}

// Routes serves /products; it expects the token gate in front of it.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.list)
	r.Post("/", s.create)
	r.Get("/{id}", s.get)
	r.Put("/{id}", s.update)
	r.Delete("/{id}", s.delete)

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.Log.Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if products == nil {
		products = []Product{}
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("get product failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProduct(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	p.ID = 0
	created, err := s.Store.Add(r.Context(), p)
	if err != nil {
		s.Log.Error("add product failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Log.Info("product created", zap.Int64("id", created.ID), zap.String("by", caller(r)))
	kit.WriteCreated(w, productLocation(created.ID), created)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := decodeProduct(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if p.ID != id {
		kit.WriteError(w, r, http.StatusBadRequest, "id mismatch", map[string]any{"path_id": id, "body_id": p.ID})
		return
	}
	if err := s.Store.Update(r.Context(), p); err != nil {
		s.writeMutationError(w, r, "update", id, err)
		return
	}

	s.Log.Info("product updated", zap.Int64("id", id), zap.String("by", caller(r)))
	kit.WriteNoContent(w)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.writeMutationError(w, r, "delete", id, err)
		return
	}

	s.Log.Info("product deleted", zap.Int64("id", id), zap.String("by", caller(r)))
	kit.WriteNoContent(w)
}

// writeMutationError turns a failed update/delete into 404 when the product is
// gone, and into 500 otherwise. A failure that is not ErrNotFound may still
// be a concurrent delete, so existence is checked once more before giving up.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, op string, id int64, err error) {
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	exists, existsErr := s.Store.Exists(r.Context(), id)
	if existsErr == nil && !exists {
		s.Log.Info(op+" raced with delete", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	s.Log.Error(op+" product failed",
		zap.Error(err),
		zap.NamedError("exists_error", existsErr),
		zap.Int64("id", id),
	)
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

// decodeProduct accepts exactly one JSON object; unknown fields are ignored.
func decodeProduct(w http.ResponseWriter, r *http.Request) (Product, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProductBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	var p *Product
	if err := dec.Decode(&p); err != nil {
		return Product{}, err
	}
	if p == nil {
		return Product{}, errors.New("body must be a json object")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Product{}, errors.New("extra data after json object")
	}

	return *p, nil
}

func productLocation(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

func caller(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return id.Username
	}
	return ""
}
