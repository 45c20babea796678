package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/marketforge/strategist/pkg/chat"
	"github.com/marketforge/strategist/pkg/engine"
	"github.com/marketforge/strategist/pkg/extract"
)

// multipartMemory caps what ParseMultipartForm holds in memory before
// spilling to disk; the per-file limit is enforced separately.
const multipartMemory = 16 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseStrategyForm reads the multipart request into an engine input,
// spooling every upload into a request-scoped temp file. The engine removes
// the temp files on every exit path; on a parse failure this function cleans
// up what it already wrote.
func (s *Server) parseStrategyForm(r *http.Request) (engine.Input, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return engine.Input{}, fmt.Errorf("parse multipart form: %w", err)
	}

	in := engine.Input{
		PastedText:        r.FormValue("text"),
		ExtendedReasoning: r.FormValue("extended_reasoning") == "true",
	}

	if r.MultipartForm == nil {
		return in, nil
	}
	for _, fh := range r.MultipartForm.File["files"] {
		upload := extract.Upload{Filename: fh.Filename, Size: fh.Size}
		if err := extract.CheckSize(upload); err != nil {
			s.removeSpooled(in.Uploads)
			return engine.Input{}, err
		}

		src, err := fh.Open()
		if err != nil {
			s.removeSpooled(in.Uploads)
			return engine.Input{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		path := filepath.Join(s.cfg.Upload.TempDir, uuid.NewString()+filepath.Ext(fh.Filename))
		dst, err := os.Create(path)
		if err != nil {
			src.Close()
			s.removeSpooled(in.Uploads)
			return engine.Input{}, fmt.Errorf("spool upload %s: %w", fh.Filename, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			os.Remove(path)
			s.removeSpooled(in.Uploads)
			return engine.Input{}, fmt.Errorf("spool upload %s: %w", fh.Filename, err)
		}

		upload.Path = path
		in.Uploads = append(in.Uploads, upload)
	}
	return in, nil
}

func (s *Server) removeSpooled(uploads []extract.Upload) {
	for _, u := range uploads {
		if u.Path != "" {
			os.Remove(u.Path)
		}
	}
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	in, err := s.parseStrategyForm(r)
	if err != nil {
		if errors.Is(err, extract.ErrFileTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := s.engine.GenerateStrategy(r.Context(), in)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	in, err := s.parseStrategyForm(r)
	if err != nil {
		if errors.Is(err, extract.ErrFileTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.engine.CountTokens(r.Context(), in)
	if err != nil {
		s.log.Warn().Err(err).Msg("token count failed")
		writeError(w, http.StatusBadGateway, "token count failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"tokenCount": n})
}

type chatOpenRequest struct {
	SectionName string `json:"sectionName"`
	SectionText string `json:"sectionText"`
}

func (s *Server) handleChatOpen(w http.ResponseWriter, r *http.Request) {
	var req chatOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SectionText == "" {
		writeError(w, http.StatusBadRequest, "sectionText is required")
		return
	}
	conv := s.chats.Open(req.SectionName, req.SectionText)
	writeJSON(w, http.StatusCreated, map[string]string{"conversationId": conv.ID})
}

type chatAskRequest struct {
	Question string `json:"question"`
}

// handleChatAsk streams the reply as server-sent events. Client disconnect
// cancels the request context, which aborts the in-flight completion.
func (s *Server) handleChatAsk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["conversation"]

	var req chatAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, err := s.chats.Ask(r.Context(), id, req.Question)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range ch {
		if chunk.Err != nil {
			writeSSE(w, "error", map[string]string{"message": chunk.Err.Error()})
			flusher.Flush()
			return
		}
		if chunk.Done {
			writeSSE(w, "done", map[string]string{"fullText": chunk.FullText})
			flusher.Flush()
			return
		}
		writeSSE(w, "delta", map[string]string{"text": chunk.Delta})
		flusher.Flush()
	}
}

func (s *Server) handleChatClose(w http.ResponseWriter, r *http.Request) {
	s.chats.Close(mux.Vars(r)["conversation"])
	w.WriteHeader(http.StatusNoContent)
}

func writeSSE(w io.Writer, event string, payload any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
