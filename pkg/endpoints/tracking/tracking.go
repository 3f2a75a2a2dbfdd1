//nolint:whitespace // can't make both editor and linter happy
package tracking

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/auth"
	"github.com/rallytrack/tracking-service-manager-go/pkg/endpoints/utils"
	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/permission"
	"github.com/rallytrack/tracking-service-manager-go/pkg/service"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/cascade"
)

// TrackingService is the slice of the service facade the handlers need.
type TrackingService interface {
	ChangeCompetitorStatus(ctx context.Context, req *service.ChangeStatusRequest) (
		*cascade.Result, error)
	CompetitorTracking(ctx context.Context, tc model.TrackingContext,
		checkpointID string) (*service.Roster, error)
	TrackCompetitorPosition(ctx context.Context, tc model.TrackingContext,
		competitorID string, input *service.PositionInput) error
}

// changeStatusBody is the wire form of a status change.
//
//nolint:tagliatelle // client compatibility
type changeStatusBody struct {
	EventID              string  `json:"eventId"`
	DayOfRaceID          string  `json:"dayOfRaceId"`
	CheckpointID         string  `json:"checkpointId"`
	OrderCheckpoint      int     `json:"orderCheckpoint"`
	CompetitorID         string  `json:"competitorId"`
	Status               string  `json:"status"`
	LastStatusCompetitor string  `json:"lastStatusCompetitor"`
	CheckpointName       string  `json:"checkpointName"`
	Note                 *string `json:"note,omitempty"`
}

type successBody struct {
	Success bool `json:"success"`
}

type (
	Handler struct {
		svc  TrackingService
		eval permission.PermissionEvaluator
		l    *log.Logger
	}
	Option func(*Handler)
)

func WithService(svc TrackingService) Option {
	return func(h *Handler) {
		h.svc = svc
	}
}

func WithPermissionEvaluator(eval permission.PermissionEvaluator) Option {
	return func(h *Handler) {
		h.eval = eval
	}
}

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		h.l = l
	}
}

func NewHandler(opts ...Option) *Handler {
	ret := &Handler{l: log.Default().Named("endpoints.tracking")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Mux wires the tracking routes. Position ingest is public; the tracker app
// of a competitor carries no credentials.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /competitor-status", h.changeStatus)
	mux.HandleFunc("GET /competitor-tracking", h.competitorTracking)
	mux.HandleFunc("POST /track-competitor-position", h.trackPosition)
	mux.HandleFunc("GET /healthz", h.healthz)
	return mux
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	if err := h.authorized(r, permission.PermissionChangeStatus); err != nil {
		utils.WriteError(w, h.l, err)
		return
	}
	var body changeStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest,
			map[string]string{"error": "malformed request body"})
		return
	}
	res, err := h.svc.ChangeCompetitorStatus(r.Context(), &service.ChangeStatusRequest{
		EventID:         body.EventID,
		DayID:           body.DayOfRaceID,
		CompetitorID:    body.CompetitorID,
		CheckpointID:    body.CheckpointID,
		CheckpointName:  body.CheckpointName,
		CheckpointOrder: body.OrderCheckpoint,
		Status:          body.Status,
		LastStatus:      body.LastStatusCompetitor,
		Note:            body.Note,
	})
	if err != nil {
		utils.WriteError(w, h.l, err)
		return
	}
	if len(res.CascadeErrors) > 0 {
		h.l.Warn("status change finished with cascade errors",
			log.String("competitor", body.CompetitorID),
			log.Int("errors", len(res.CascadeErrors)))
	}
	utils.WriteJSON(w, http.StatusOK, successBody{Success: true})
}

func (h *Handler) competitorTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.authorized(r, permission.PermissionReadRoster); err != nil {
		utils.WriteError(w, h.l, err)
		return
	}
	q := r.URL.Query()
	tc := model.TrackingContext{
		EventID: q.Get("eventId"),
		DayID:   q.Get("dayOfRaceId"),
	}
	roster, err := h.svc.CompetitorTracking(r.Context(), tc, q.Get("checkpointId"))
	if err != nil {
		utils.WriteError(w, h.l, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, roster)
}

func (h *Handler) trackPosition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tc := model.TrackingContext{
		EventID: q.Get("eventId"),
		DayID:   q.Get("dayId"),
	}
	var input service.PositionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest,
			map[string]string{"error": "malformed request body"})
		return
	}
	err := h.svc.TrackCompetitorPosition(r.Context(), tc, q.Get("competitorId"), &input)
	if err != nil {
		utils.WriteError(w, h.l, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) authorized(r *http.Request, perm permission.Permission) error {
	a := auth.FromContext(r.Context())
	if a == nil || h.eval == nil || !h.eval.HasPermission(a, perm) {
		return auth.ErrPermissionDenied
	}
	return nil
}
