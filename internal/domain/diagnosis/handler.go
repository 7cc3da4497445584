package diagnosis

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meddx/meddx/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/diseases", h.ListDiseases)
	api.GET("/diseases/:disease", h.GetDisease)
	api.POST("/diseases/:disease/diagnose", h.Diagnose, auth.RequireSession())
}

// DiseaseSummary is one entry of the disease catalogue.
type DiseaseSummary struct {
	Key          string `json:"key"`
	Title        string `json:"title"`
	FeatureCount int    `json:"feature_count"`
}

// RuleView describes a rule without its predicate.
type RuleView struct {
	Name   string `json:"name"`
	Tier   Tier   `json:"tier"`
	Reason string `json:"reason"`
}

// SchemaView is the form definition served to clients.
type SchemaView struct {
	Key           string     `json:"key"`
	Title         string     `json:"title"`
	Fields        []Field    `json:"fields"`
	EncodingOrder []string   `json:"encoding_order"`
	Overrides     []RuleView `json:"overrides"`
	Escalations   []RuleView `json:"escalations"`
}

func viewOf(s *Schema) SchemaView {
	rules := func(in []Rule) []RuleView {
		out := make([]RuleView, 0, len(in))
		for _, r := range in {
			out = append(out, RuleView{Name: r.Name, Tier: r.Tier, Reason: r.Reason})
		}
		return out
	}
	return SchemaView{
		Key:           s.Key(),
		Title:         s.Title(),
		Fields:        s.Fields(),
		EncodingOrder: s.EncodingOrder(),
		Overrides:     rules(s.spec.Overrides),
		Escalations:   rules(s.spec.Escalations),
	}
}

type diagnoseRequest struct {
	Inputs RawInputs `json:"inputs"`
}

func (h *Handler) ListDiseases(c echo.Context) error {
	schemas := h.svc.Catalog().Schemas()
	out := make([]DiseaseSummary, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, DiseaseSummary{Key: s.Key(), Title: s.Title(), FeatureCount: s.FeatureCount()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": out})
}

func (h *Handler) GetDisease(c echo.Context) error {
	s, err := h.svc.Schema(c.Param("disease"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

func (h *Handler) Diagnose(c echo.Context) error {
	var req diagnoseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Inputs == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "inputs is required")
	}

	res, err := h.svc.Diagnose(c.Request().Context(), c.Param("disease"), req.Inputs)
	if err != nil {
		return diagnoseError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func diagnoseError(c echo.Context, err error) error {
	var (
		verr *ValidationError
		merr *ModelUnavailableError
		perr *PredictionError
	)
	switch {
	case errors.Is(err, ErrUnknownDisease):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "All fields marked as required must be filled",
			"fields":  verr.Fields,
		})
	case errors.As(err, &merr):
		return echo.NewHTTPError(http.StatusServiceUnavailable, merr.Error())
	case errors.As(err, &perr):
		if perr.Override != nil {
			return c.JSON(http.StatusBadGateway, map[string]interface{}{
				"message":  "prediction failed, please try again",
				"override": perr.Override,
			})
		}
		return echo.NewHTTPError(http.StatusBadGateway, "prediction failed, please try again")
	}
	return err
}
