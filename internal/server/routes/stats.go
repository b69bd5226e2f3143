package routes

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/lo"

	"github.com/any-hub/pypi-stats/internal/pypi"
	"github.com/any-hub/pypi-stats/internal/server"
	"github.com/any-hub/pypi-stats/internal/stats"
)

// RegisterStatsRoutes 暴露组件计数与包统计接口。
func RegisterStatsRoutes(app *fiber.App, registry *server.Registry, source StatsSource) {
	if app == nil || registry == nil || source == nil {
		return
	}

	app.Get("/widgets", func(c fiber.Ctx) error {
		widgets := lo.Map(registry.Widgets(), func(w stats.Widget, _ int) widgetPayload {
			return encodeWidget(c, w, source)
		})
		return c.JSON(fiber.Map{"widgets": widgets})
	})

	app.Get("/widgets/:name", func(c fiber.Ctx) error {
		widget, ok := registry.Widget(c.Params("name"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "widget_not_found"})
		}
		return c.JSON(encodeWidget(c, widget, source))
	})

	app.Get("/packages/:name/stats", func(c fiber.Ctx) error {
		pkg, ok := registry.Package(c.Params("name"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "package_not_found"})
		}

		period := pypi.DefaultPeriod
		if raw := strings.TrimSpace(c.Query("period")); raw != "" {
			parsed, ok := pypi.ParsePeriod(raw)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":   "invalid_period",
					"allowed": pypi.Periods(),
				})
			}
			period = parsed
		}

		force := false
		if raw := c.Query("force"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_force"})
			}
			force = parsed
		}

		payload := source.Get(c.Context(), pkg, force)
		value, hasValue := stats.Statistic(payload, period)
		return c.JSON(packageStatsPayload{
			Package:   pkg.PackageName,
			Label:     pkg.Label,
			Available: payload != nil,
			Period:    period,
			HasValue:  hasValue,
			Downloads: value,
		})
	})
}

type widgetPayload struct {
	Name        string      `json:"name"`
	Package     string      `json:"package,omitempty"`
	Period      pypi.Period `json:"period"`
	PeriodLabel string      `json:"period_label"`
	Downloads   int64       `json:"downloads"`
	Digits      []string    `json:"digits"`
	UpperText   string      `json:"upper_text"`
	LowerText   string      `json:"lower_text"`
	Description string      `json:"description"`
}

type packageStatsPayload struct {
	Package   string      `json:"package"`
	Label     string      `json:"label"`
	Available bool        `json:"available"`
	Period    pypi.Period `json:"period"`
	HasValue  bool        `json:"has_value"`
	Downloads int64       `json:"downloads"`
}

func encodeWidget(c fiber.Ctx, widget stats.Widget, source StatsSource) widgetPayload {
	downloads := widget.Downloads(c.Context(), source)
	payload := widgetPayload{
		Name:        widget.Name,
		Period:      widget.Period,
		PeriodLabel: widget.Period.Label(),
		Downloads:   downloads,
		Digits:      stats.Digits(downloads),
		UpperText:   widget.UpperText,
		LowerText:   widget.LowerText,
		Description: widget.String(),
	}
	if widget.Package != nil {
		payload.Package = widget.Package.PackageName
	}
	return payload
}
