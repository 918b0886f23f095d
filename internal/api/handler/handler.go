package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"presence.service/internal/core"
	"presence.service/internal/core/model"
)

const maxBodyBytes = 1 << 20

// pathCategories maps the URL segment to the category it addresses.
var pathCategories = map[string]model.Category{
	"employees":         model.CategoryEmployee,
	"visitors":          model.CategoryVisitor,
	"service-providers": model.CategoryServiceProvider,
}

// CategoryPattern is the mux pattern matching every category segment.
const CategoryPattern = "employees|visitors|service-providers"

type PresenceHandler struct {
	Service *core.PresenceService
}

// SubjectView is a subject as rendered to clients, with availability derived on every read.
type SubjectView struct {
	model.Subject
	State        core.State         `json:"state"`
	Availability model.Availability `json:"availability"`
}

func NewSubjectView(s model.Subject) SubjectView {
	if s.Logs == nil {
		s.Logs = model.Log{}
	}
	return SubjectView{
		Subject:      s,
		State:        core.StateOf(s.Logs),
		Availability: core.Availability(s.Logs, s.Category),
	}
}

// UpdateRequest carries either an attendance action or attribute updates, never both.
type UpdateRequest struct {
	ID      string           `json:"id"`
	Action  string           `json:"action,omitempty"`
	Updates model.Attributes `json:"updates,omitempty"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryOf(w, r)
	if !ok {
		return
	}

	subjects, err := h.Service.List(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]SubjectView, 0, len(subjects))
	for _, s := range subjects {
		views = append(views, NewSubjectView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryOf(w, r)
	if !ok {
		return
	}

	subject, err := h.Service.Get(r.Context(), category, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSubjectView(*subject))
}

func (h *PresenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryOf(w, r)
	if !ok {
		return
	}

	var attrs model.Attributes
	if !decode(w, r, &attrs) {
		return
	}

	subject, err := h.Service.Create(r.Context(), category, attrs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewSubjectView(*subject))
}

// Update applies an attendance action or merges attribute updates, depending on the body.
func (h *PresenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryOf(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, r, model.Validation("id is required"))
		return
	}

	var (
		subject *model.Subject
		err     error
	)
	switch {
	case req.Action != "" && len(req.Updates) > 0:
		err = model.Validation("send either action or updates, not both")
	case req.Action != "":
		var action core.Action
		if action, err = core.ParseAction(req.Action); err == nil {
			subject, err = h.Service.ApplyAction(r.Context(), category, req.ID, action)
		}
	case len(req.Updates) > 0:
		subject, err = h.Service.UpdateAttributes(r.Context(), category, req.ID, req.Updates)
	default:
		err = model.Validation("action or updates is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSubjectView(*subject))
}

func (h *PresenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryOf(w, r)
	if !ok {
		return
	}

	var req DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, r, model.Validation("id is required"))
		return
	}

	if err := h.Service.Delete(r.Context(), category, req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Subject deleted."})
}

func (h *PresenceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryOf(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.Summary(r.Context(), category, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RequestTimesheet queues the timesheet and summary e-mail of one employee.
func (h *PresenceHandler) RequestTimesheet(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RequestTimesheet(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"message": "Timesheet export queued for asynchronous processing."})
}

func categoryOf(w http.ResponseWriter, r *http.Request) (model.Category, bool) {
	category, ok := pathCategories[mux.Vars(r)["category"]]
	if !ok {
		writeError(w, r, model.NotFound("unknown category "+mux.Vars(r)["category"]))
	}
	return category, ok
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, model.Validation("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// writeError maps core failures to HTTP status codes. Clients only see the error kind and its
// message; wrapped causes go to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: "InternalError", Message: "internal error"}
	status := http.StatusInternalServerError

	var coreErr *model.Error
	switch {
	case errors.Is(err, core.ErrPublish):
		status = http.StatusBadGateway
		resp.Error = "PublishFailure"
		resp.Message = "export could not be queued"
		resp.Retryable = true
	case errors.As(err, &coreErr):
		resp.Error = string(coreErr.Kind)
		resp.Message = coreErr.Message
		resp.Retryable = coreErr.Retryable
		switch coreErr.Kind {
		case model.KindNotFound:
			status = http.StatusNotFound
		case model.KindInvalidTransition:
			status = http.StatusConflict
		case model.KindValidation:
			status = http.StatusBadRequest
		case model.KindPersistence:
			status = http.StatusServiceUnavailable
		}
	}

	l := log.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	} else {
		l.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
