package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/singlecellvr/scvrprep/pkg/archive"
	"github.com/singlecellvr/scvrprep/pkg/buildinfo"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/export"
	"github.com/singlecellvr/scvrprep/pkg/store"
)

type uploadResponse struct {
	ID       string `json:"id"`
	ReportID string `json:"report_id"`
	Bytes    int    `json:"bytes"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Build   buildinfo.Info `json:"build"`
	Store   string         `json:"store"`
}

type errorResponse struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.version,
		Build:   buildinfo.Get(),
		Store:   s.store.Name(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, int64(s.maxUpload.Bytes()))
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				errs.New(errs.ErrCodeInvalidInput, "report exceeds %s", s.maxUpload.HumanReadable()))
			return
		}
		s.writeError(w, http.StatusBadRequest, errs.Wrap(errs.ErrCodeInvalidInput, err, "read upload"))
		return
	}

	m, err := readManifest(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id := store.NewID()
	if err := s.store.Put(r.Context(), id, data); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("stored report", "id", id, "report_id", m.ID, "kind", m.Kind, "bytes", len(data))

	w.Header().Set("Location", "/api/reports/"+id)
	writeJSON(w, http.StatusCreated, uploadResponse{ID: id, ReportID: m.ID, Bytes: len(data)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, ok := s.load(w, r)
	if !ok {
		return
	}
	etag := `"` + store.Hash(data) + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+chi.URLParam(r, "id")+archive.Ext+`"`)
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	data, ok := s.load(w, r)
	if !ok {
		return
	}
	m, err := readManifest(data)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := store.ValidateID(id); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the report named in the URL and writes an error response if
// it cannot.
func (s *Server) load(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	id := chi.URLParam(r, "id")
	data, hit, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return nil, false
	}
	if !hit {
		s.writeError(w, http.StatusNotFound, errs.New(errs.ErrCodeNotFound, "report %s not found", id))
		return nil, false
	}
	return data, true
}

// readManifest checks that data is a report archive and returns its manifest.
func readManifest(data []byte) (export.Manifest, error) {
	raw, err := archive.ReadEntry(bytes.NewReader(data), int64(len(data)), export.ManifestFile)
	if err != nil {
		if errs.Is(err, errs.ErrCodeNotFound) {
			return export.Manifest{}, errs.New(errs.ErrCodeInvalidInput, "archive has no %s", export.ManifestFile)
		}
		return export.Manifest{}, err
	}
	return export.ReadManifest(bytes.NewReader(raw))
}

func statusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errs.UserMessage(err), Code: errs.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
