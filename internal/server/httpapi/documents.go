package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/netx"
	"github.com/dmitrijs2005/gemdeck/internal/server/auth"
	"github.com/dmitrijs2005/gemdeck/internal/server/models"
	"github.com/gorilla/mux"
)

const (
	formHTML   = "html"
	formImages = "images"

	// multipartMemory is the part of a multipart body kept in memory before
	// spilling to temporary files.
	multipartMemory = 8 << 20
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.docs.List(r.Context(), p, r.URL.Query().Get("scope") == "all")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.DocumentEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": entries})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrorBadInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	if err := s.verifyHuman(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	docs := r.MultipartForm.File[formHTML]
	if len(docs) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: missing html file", common.ErrorBadInput))
		return
	}
	doc, err := readUpload(docs[0])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	images := make([]models.Upload, 0, len(r.MultipartForm.File[formImages]))
	for _, fh := range r.MultipartForm.File[formImages] {
		img, err := readUpload(fh)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		images = append(images, img)
	}

	res, err := s.docs.Ingest(r.Context(), p, doc, images)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"key":            res.Key,
		"uploadedImages": res.UploadedImages,
	})
}

func readUpload(fh *multipart.FileHeader) (models.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Upload{}, fmt.Errorf("open part %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.Upload{}, fmt.Errorf("read part %q: %w", fh.Filename, err)
	}
	return models.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrorBadInput, err))
		return
	}

	newName, err := s.docs.Rename(r.Context(), p, mux.Vars(r)["filename"], req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "newName": newName})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.verifyHuman(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.docs.Delete(r.Context(), p, mux.Vars(r)["filename"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	var p *auth.Principal
	if pr, err := principal(r); err == nil {
		p = &pr
	}

	obj, err := s.docs.Fetch(r.Context(), p, mux.Vars(r)["token"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeObject(w, r, obj)
}

// writeObject serves a blob with its validator. A matching If-None-Match
// yields 304 without a body.
func writeObject(w http.ResponseWriter, r *http.Request, obj *models.Object) {
	h := w.Header()
	if obj.ETag != "" {
		h.Set("ETag", obj.ETag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == obj.ETag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	if isHTML(ct) {
		setHTMLSecurityHeaders(h)
	} else {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	h.Set("Cache-Control", "private, max-age=0, must-revalidate")
	h.Set("Content-Length", strconv.Itoa(len(obj.Body)))

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(obj.Body)
	}
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(contentType, "text/html")
}

func (s *Server) handleContentGet(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	obj, err := s.docs.Content(r.Context(), p, r.URL.Query().Get("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	obj.ContentType = "text/html; charset=utf-8"
	writeObject(w, r, obj)
}

// contentRequest.Content is a pointer so an absent field is told apart from
// an empty document.
type contentRequest struct {
	Key     string  `json:"key"`
	Content *string `json:"content"`
}

func (s *Server) handleContentPut(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req contentRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrorBadInput, err))
		return
	}
	if req.Key == "" || req.Content == nil {
		s.writeError(w, r, fmt.Errorf("%w: key and content required", common.ErrorBadInput))
		return
	}

	if err := s.docs.UpdateContent(r.Context(), p, req.Key, []byte(*req.Content)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type adminDeleteRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !p.IsAdmin {
		s.writeError(w, r, common.ErrorForbidden)
		return
	}

	var req adminDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.writeError(w, r, fmt.Errorf("%w: key required", common.ErrorBadInput))
		return
	}

	if err := s.docs.DeleteKey(r.Context(), p, req.Key); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminSystem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.system.Status(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// verifyHuman applies the human-verification gate. The token is read from
// the cf_token form or query field, or from the X-Turnstile-Token header.
func (s *Server) verifyHuman(r *http.Request) error {
	token := r.FormValue(common.TurnstileFormField)
	if token == "" {
		token = r.Header.Get(common.TurnstileHeaderName)
	}
	return s.verifier.Verify(r.Context(), token, netx.ClientIP(r))
}
