package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/case/domain"
	"github.com/citypd/platform/internal/case/service"
	httpauth "github.com/citypd/platform/internal/shared/auth"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the case module
type Handler struct {
	service *service.Service
}

// NewHandler creates a new case handler
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// Routes registers the case routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/cases", func(r chi.Router) {
		r.Get("/", h.ListCases)
		r.Post("/complaints", h.SubmitComplaint)
		r.Post("/scene-reports", h.SubmitSceneReport)

		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.GetCase)
			r.Get("/events", h.GetEvents)

			// Complaint review loop
			r.Post("/intern-review", h.InternReview)
			r.Post("/officer-review", h.OfficerReview)
			r.Post("/resubmit", h.Resubmit)
			r.Post("/complainants", h.AddComplainant)
			r.Post("/complainants/{complainantID}/review", h.ReviewComplainant)

			// Scene review
			r.Post("/approve-scene", h.ApproveScene)
			r.Post("/deny-scene", h.DenyScene)

			// Investigation
			r.Post("/assign-detective", h.AssignDetective)
			r.Post("/take", h.TakeCase)
			r.Post("/send-to-court", h.SendToCourt)
			r.Post("/suspects", h.AddSuspect)
			r.Post("/suspects/{suspectID}/arrest", h.ArrestSuspect)
			r.Post("/suspect-submissions", h.SubmitMainSuspects)
			r.Post("/interrogations", h.RecordAssessment)
			r.Post("/verdicts", h.SubmitVerdict)
		})
	})

	r.Post("/suspect-submissions/{submissionID}/review", h.ReviewSubmission)
	r.Post("/interrogations/{interrogationID}/captain-decision", h.CaptainDecision)
	r.Post("/interrogations/{interrogationID}/chief-review", h.ChiefReview)
	r.Get("/suspects/high-alert", h.HighAlertList)

	return r
}

// --- Request types ---

type ReviewRequest struct {
	Approved *bool  `json:"approved"`
	Note     string `json:"note"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type ComplainantRequest struct {
	UserID types.ID `json:"user_id"`
}

type AssignDetectiveRequest struct {
	DetectiveID types.ID `json:"detective_id"`
}

type SendToCourtRequest struct {
	Reason string `json:"reason"`
}

type SuspectRequest struct {
	FullName   string   `json:"full_name"`
	NationalID string   `json:"national_id,omitempty"`
	PhotoURL   string   `json:"photo_url,omitempty"`
	Person     types.ID `json:"person,omitempty"`
}

type SubmitSuspectsRequest struct {
	SuspectIDs      []types.ID `json:"suspect_ids"`
	DetectiveReason string     `json:"detective_reason"`
}

type SubmissionReviewRequest struct {
	Approved        *bool  `json:"approved"`
	SergeantMessage string `json:"sergeant_message"`
}

type AssessmentRequest struct {
	SuspectID      types.ID          `json:"suspect_id"`
	DetectiveScore *int              `json:"detective_score,omitempty"`
	SergeantScore  *int              `json:"sergeant_score,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	Transcription  *string           `json:"transcription,omitempty"`
	KeyValues      map[string]string `json:"key_values,omitempty"`
}

type CaptainDecisionRequest struct {
	Approved     *bool  `json:"approved"`
	CaptainScore *int   `json:"captain_score"`
	CaptainNote  string `json:"captain_note"`
}

type ChiefReviewRequest struct {
	Approved  *bool  `json:"approved"`
	ChiefNote string `json:"chief_note"`
}

type VerdictRequest struct {
	SuspectID             types.ID       `json:"suspect_id,omitempty"`
	Verdict               domain.Verdict `json:"verdict"`
	PunishmentTitle       string         `json:"punishment_title,omitempty"`
	PunishmentDescription string         `json:"punishment_description,omitempty"`
}

// --- Handlers ---

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.ListFilter{
		Search: q.Get("search"),
		Limit:  queryInt(q.Get("limit")),
		Offset: queryInt(q.Get("offset")),
	}
	if s := q.Get("status"); s != "" {
		status := domain.CaseStatus(s)
		filter.Status = &status
	}
	if s := q.Get("source"); s != "" {
		source := domain.Source(s)
		filter.Source = &source
	}
	if s := q.Get("severity"); s != "" {
		severity := domain.Severity(queryInt(s))
		filter.Severity = &severity
	}
	if s := q.Get("detective"); s != "" {
		id, err := types.ParseID(s)
		if err != nil {
			writeError(w, errors.BadRequest("invalid detective ID"))
			return
		}
		filter.Detective = id
	}

	cases, total, err := h.service.ListCases(r.Context(), p, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  cases,
		"total": total,
	})
}

func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}

	c, err := h.service.GetCase(r.Context(), p, caseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}

	limit := queryInt(r.URL.Query().Get("limit"))
	offset := queryInt(r.URL.Query().Get("offset"))
	events, err := h.service.Journal(r.Context(), p, caseID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}

func (h *Handler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req service.ComplaintInput
	if !decode(w, r, &req) {
		return
	}

	c, err := h.service.SubmitComplaint(r.Context(), p, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) SubmitSceneReport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req service.SceneReportInput
	if !decode(w, r, &req) {
		return
	}

	c, err := h.service.SubmitSceneReport(r.Context(), p, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) InternReview(w http.ResponseWriter, r *http.Request) {
	h.complaintReview(w, r, h.service.InternReview)
}

func (h *Handler) OfficerReview(w http.ResponseWriter, r *http.Request) {
	h.complaintReview(w, r, h.service.OfficerReview)
}

type reviewFunc func(ctx context.Context, p auth.Principal, caseID types.ID, approved bool, note string) (service.ComplaintReviewResult, error)

func (h *Handler) complaintReview(w http.ResponseWriter, r *http.Request, review reviewFunc) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req ReviewRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Approved == nil {
		writeError(w, errors.Validation("approved is required", map[string]string{"approved": "required"}))
		return
	}

	res, err := review(r.Context(), p, caseID, *req.Approved, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req service.ResubmitInput
	if !decode(w, r, &req) {
		return
	}

	c, err := h.service.ResubmitComplaint(r.Context(), p, caseID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) AddComplainant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req ComplainantRequest
	if !decode(w, r, &req) {
		return
	}

	cc, err := h.service.AddComplainant(r.Context(), p, caseID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cc)
}

func (h *Handler) ReviewComplainant(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	complainantID, ok := pathID(w, r, "complainantID")
	if !ok {
		return
	}
	var req ReviewRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Approved == nil {
		writeError(w, errors.Validation("approved is required", map[string]string{"approved": "required"}))
		return
	}

	cc, err := h.service.ReviewComplainant(r.Context(), p, caseID, complainantID, *req.Approved, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (h *Handler) ApproveScene(w http.ResponseWriter, r *http.Request) {
	h.sceneReview(w, r, h.service.ApproveScene)
}

func (h *Handler) DenyScene(w http.ResponseWriter, r *http.Request) {
	h.sceneReview(w, r, h.service.DenyScene)
}

type sceneFunc func(ctx context.Context, p auth.Principal, caseID types.ID, note string) (*domain.Case, error)

func (h *Handler) sceneReview(w http.ResponseWriter, r *http.Request, review sceneFunc) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	c, err := review(r.Context(), p, caseID, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) AssignDetective(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req AssignDetectiveRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.service.AssignDetective(r.Context(), p, caseID, req.DetectiveID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) TakeCase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}

	c, err := h.service.TakeCase(r.Context(), p, caseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) SendToCourt(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req SendToCourtRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	c, err := h.service.SendToCourt(r.Context(), p, caseID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) AddSuspect(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req SuspectRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.service.AddSuspect(r.Context(), p, caseID, domain.SuspectInput{
		FullName:   req.FullName,
		NationalID: req.NationalID,
		PhotoURL:   req.PhotoURL,
		Person:     req.Person,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) ArrestSuspect(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	suspectID, ok := pathID(w, r, "suspectID")
	if !ok {
		return
	}

	s, err := h.service.ArrestSuspect(r.Context(), p, caseID, suspectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) SubmitMainSuspects(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req SubmitSuspectsRequest
	if !decode(w, r, &req) {
		return
	}

	sub, err := h.service.SubmitMainSuspects(r.Context(), p, caseID, req.SuspectIDs, req.DetectiveReason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	submissionID, ok := pathID(w, r, "submissionID")
	if !ok {
		return
	}
	var req SubmissionReviewRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Approved == nil {
		writeError(w, errors.Validation("approved is required", map[string]string{"approved": "required"}))
		return
	}

	sub, err := h.service.ReviewSubmission(r.Context(), p, submissionID, *req.Approved, req.SergeantMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) RecordAssessment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req AssessmentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SuspectID.IsZero() {
		writeError(w, errors.Validation("suspect_id is required", map[string]string{"suspect_id": "required"}))
		return
	}

	it, err := h.service.RecordAssessment(r.Context(), p, caseID, req.SuspectID, domain.Assessment{
		DetectiveScore: req.DetectiveScore,
		SergeantScore:  req.SergeantScore,
		Notes:          req.Notes,
		Transcription:  req.Transcription,
		KeyValues:      req.KeyValues,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) CaptainDecision(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	interrogationID, ok := pathID(w, r, "interrogationID")
	if !ok {
		return
	}
	var req CaptainDecisionRequest
	if !decode(w, r, &req) {
		return
	}

	it, err := h.service.CaptainDecision(r.Context(), p, interrogationID, domain.CaptainInput{
		Approved: req.Approved,
		Score:    req.CaptainScore,
		Note:     req.CaptainNote,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) ChiefReview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	interrogationID, ok := pathID(w, r, "interrogationID")
	if !ok {
		return
	}
	var req ChiefReviewRequest
	if !decode(w, r, &req) {
		return
	}

	it, err := h.service.ChiefReview(r.Context(), p, interrogationID, domain.ChiefInput{
		Approved: req.Approved,
		Note:     req.ChiefNote,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) SubmitVerdict(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	caseID, ok := pathID(w, r, "caseID")
	if !ok {
		return
	}
	var req VerdictRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.service.SubmitVerdict(r.Context(), p, caseID, domain.VerdictInput{
		SuspectID:             req.SuspectID,
		Verdict:               req.Verdict,
		PunishmentTitle:       req.PunishmentTitle,
		PunishmentDescription: req.PunishmentDescription,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) HighAlertList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	entries, err := h.service.HighAlertList(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":         entries,
		"generated_at": time.Now().UTC(),
	})
}

// --- Helpers ---

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := httpauth.GetPrincipal(r.Context())
	if !ok {
		writeError(w, errors.Unauthenticated("authentication required"))
		return auth.Principal{}, false
	}
	return p, true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (types.ID, bool) {
	id, err := types.ParseID(chi.URLParam(r, param))
	if err != nil {
		writeError(w, errors.BadRequest("invalid "+param))
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return false
	}
	return true
}

// decodeOptional accepts an empty body
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decode(w, r, dst)
}

func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := errors.As(err); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
