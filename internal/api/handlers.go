// Package api implements the appliance's HTTP control surface using chi.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"

	"github.com/obscuracam/obscurad/internal/apperr"
	"github.com/obscuracam/obscurad/internal/capture"
	"github.com/obscuracam/obscurad/internal/index"
	"github.com/obscuracam/obscurad/internal/store"
)

// viewURLFront is the first part of the redirect target for a fresh
// capture; the page displays the image named by its query parameter.
const viewURLFront = "/view.htm?image="

// Handler holds the control-plane route handlers.
type Handler struct {
	svc     *capture.Service
	media   *store.Media
	journal *index.DB // may be nil
}

// NewHandler creates a new Handler.
func NewHandler(svc *capture.Service, media *store.Media, journal *index.DB) *Handler {
	return &Handler{svc: svc, media: media, journal: journal}
}

// returnOK sends the generic empty 200 used by the file-management
// surface.
func returnOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
}

// returnFail sends the generic 500 + short message response.
func returnFail(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "%s\r\n", msg)
}

// pathArg extracts the target path of an /edit request: either an
// explicit path parameter or a bare "?/some/path" query.
func pathArg(r *http.Request) string {
	q := r.URL.Query()
	if p := q.Get("path"); p != "" {
		return p
	}
	for k := range q {
		if len(k) > 0 && k[0] == '/' {
			return k
		}
	}
	return ""
}

// ListDirectory handles GET /list?dir=<path>. The entry array is
// streamed incrementally; its length is not known in advance.
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		returnFail(w, msgBadArgs)
		return
	}

	entries, err := h.media.List(dir)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotADirectory):
			returnFail(w, msgNotDir)
		case errors.Is(err, apperr.ErrNotFound):
			returnFail(w, msgBadPath)
		default:
			slog.Error("list failed", slog.String("dir", dir), slog.String("error", err.Error()))
			returnFail(w, msgBadPath)
		}
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/json")
	w.WriteHeader(http.StatusOK)

	_, _ = io.WriteString(w, "[")
	for i, e := range entries {
		if i > 0 {
			_, _ = io.WriteString(w, ",")
		}
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		raw, err := json.Marshal(listEntry{Type: kind, Name: path.Join(dir, e.Name)})
		if err != nil {
			continue
		}
		_, _ = w.Write(raw)
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = io.WriteString(w, "]")
}

// DeletePath handles DELETE /edit?<path>.
func (h *Handler) DeletePath(w http.ResponseWriter, r *http.Request) {
	p := pathArg(r)
	if p == "" {
		returnFail(w, msgBadArgs)
		return
	}
	if err := h.media.Delete(p); err != nil {
		if !errors.Is(err, apperr.ErrBadPath) {
			slog.Error("delete failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		returnFail(w, msgBadPath)
		return
	}
	returnOK(w)
}

// CreatePath handles PUT /edit?<path>.
func (h *Handler) CreatePath(w http.ResponseWriter, r *http.Request) {
	p := pathArg(r)
	if p == "" {
		returnFail(w, msgBadArgs)
		return
	}
	if err := h.media.Create(p); err != nil {
		if !errors.Is(err, apperr.ErrBadPath) && !errors.Is(err, apperr.ErrAlreadyExists) {
			slog.Error("create failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		returnFail(w, msgBadPath)
		return
	}
	returnOK(w)
}

// Upload handles POST /edit (multipart). Each part is streamed to the
// media as it arrives: any existing node at the target is removed first,
// then segments are written in arrival order. A part that cannot be
// opened or written is silently swallowed and the response is still the
// generic 200 (accepted permissive behavior).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		returnOK(w)
		return
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		name := partFileName(part)
		if name == "" {
			name = pathArg(r)
		}
		if name == "" {
			_ = part.Close()
			continue
		}
		if writeErr := h.media.Write(name, part); writeErr != nil {
			slog.Debug("upload: discarded part", slog.String("path", name), slog.String("error", writeErr.Error()))
		} else {
			slog.Debug("upload: stored", slog.String("path", name))
		}
		_ = part.Close()
	}
	returnOK(w)
}

// partFileName returns the filename parameter of the part's
// Content-Disposition verbatim. Part.FileName strips the directory
// component, but here the filename is the full write target on the
// media; the store's path guard handles anything hostile.
func partFileName(p *multipart.Part) string {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Snap handles GET /snap: take a photo, then redirect the browser to the
// page that displays it.
func (h *Handler) Snap(w http.ResponseWriter, r *http.Request) {
	img, err := h.svc.Capture()
	if err != nil {
		slog.Error("capture failed", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, apperr.ErrSensorUnavailable):
			returnFail(w, "Camera capture failed.")
		case errors.Is(err, apperr.ErrStorageUnavailable):
			returnFail(w, "Unable to create the file for the image.")
		default:
			returnFail(w, err.Error())
		}
		return
	}
	w.Header().Set("Location", viewURLFront+img.Path)
	w.WriteHeader(http.StatusFound)
}

// ListCaptures handles GET /captures: the journal's view of stored
// images, newest first.
func (h *Handler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"captures": []index.CaptureRow{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.journal.List(limit)
	if err != nil {
		slog.Error("list captures failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": rows})
}

// ServeMedia is the catch-all: serve the requested path from the media,
// or a diagnostic 404 listing the request's method, path, and arguments.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	download := r.URL.Query().Has("download")
	obj, err := h.media.Open(r.URL.Path, download)
	if err != nil {
		h.notFound(w, r)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)
	sent, err := io.Copy(w, obj)
	if err != nil || sent != obj.Size {
		slog.Warn("serve: short send",
			slog.String("path", r.URL.Path),
			slog.Int64("expected", obj.Size),
			slog.Int64("sent", sent))
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "File Not Found\n\nURI: %s\nMethod: %s\nArguments: %d\n", r.URL.Path, r.Method, len(q))
	for k, vals := range q {
		for _, v := range vals {
			fmt.Fprintf(w, " %s: %s\n", k, v)
		}
	}
}
