package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/orbitravel/receipts/internal/suggestion"
)

// pageData is what the page template renders
type pageData struct {
	Form    Form
	State   State
	Refresh bool
	Year    int
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an error response as {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// renderPage renders the form and preview for a session
func (s *Server) renderPage(w http.ResponseWriter, code int, form Form, state State) {
	data := pageData{
		Form:    form,
		State:   state,
		Refresh: state.Phase.Transitioning(),
		Year:    time.Now().Year(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := templates.ExecuteTemplate(w, "page", data); err != nil {
		slog.Error("Page template execution failed", "error", err)
	}
}

// redirectHome sends the browser back to the page after a form action
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.renderPage(w, http.StatusOK, sess.TakeForm(), sess.Shell().Snapshot())
}

// handleSubmit validates the posted form and starts receipt generation
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	form := Form{Fields: ParseFields(r.PostForm)}
	err := form.Submit(sess.Shell().Submit)
	sess.SetForm(form)

	var verrs ValidationErrors
	switch {
	case err == nil:
		redirectHome(w, r)
	case errors.As(err, &verrs):
		s.renderPage(w, http.StatusUnprocessableEntity, form, sess.Shell().Snapshot())
	case errors.Is(err, ErrGenerationInProgress), errors.Is(err, ErrInvalidTransition):
		slog.Warn("Ignoring receipt submission", "session", sess.ID, "error", err)
		redirectHome(w, r)
	default:
		slog.Error("Error submitting receipt", "session", sess.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleSuggest fills the inclusions and details fields from the suggestion service
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	form := Form{Fields: ParseFields(r.PostForm)}
	_, err := form.Suggest(r.Context(), s.limitedSuggest(sess))
	if errors.Is(err, ErrStaleSuggestion) {
		// A newer request owns the fields
		redirectHome(w, r)
		return
	}
	sess.SetForm(form)
	redirectHome(w, r)
}

// limitedSuggest applies the session's rate limit in front of its shell
func (s *Server) limitedSuggest(sess *Session) SuggestFunc {
	return func(ctx context.Context, description, month string) (*suggestion.Suggestion, error) {
		if err := sess.AllowSuggestion(); err != nil {
			return nil, err
		}
		return sess.Shell().Suggest(ctx, description, month)
	}
}

// handleGenerateNew discards the current receipt and starts a blank form
func (s *Server) handleGenerateNew(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.Shell().GenerateNew(); err != nil {
		slog.Warn("Ignoring generate new", "session", sess.ID, "error", err)
		redirectHome(w, r)
		return
	}
	sess.SetForm(Form{})
	redirectHome(w, r)
}

// handleAPIReceipt returns the session's current receipt
func (s *Server) handleAPIReceipt(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	state := sess.Shell().Snapshot()
	if state.Current == nil {
		jsonError(w, "No receipt generated", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleAPISuggest returns a suggestion for a description and month
func (s *Server) handleAPISuggest(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	var req struct {
		Description string `json:"description"`
		Month       string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		jsonError(w, WarningFor(ErrDescriptionRequired), http.StatusBadRequest)
		return
	}

	result, err := s.limitedSuggest(sess)(r.Context(), req.Description, req.Month)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, ErrRateLimited):
		jsonError(w, WarningFor(err), http.StatusTooManyRequests)
	case errors.Is(err, ErrStaleSuggestion):
		jsonError(w, "Superseded by a newer request", http.StatusConflict)
	default:
		jsonError(w, WarningFor(err), http.StatusBadGateway)
	}
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(appCSS)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
