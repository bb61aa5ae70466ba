package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/anjiri1684/tutor_desk/services"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// periodQuery reads ?period=&year=&month=. month is zero-based.
func periodQuery(c *fiber.Ctx) (services.PeriodQuery, error) {
	q := services.PeriodQuery{Kind: services.PeriodKind(c.Query("period"))}
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return q, services.ValidationFailure("year: must be an integer")
		}
		q.Year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return q, services.ValidationFailure("month: must be an integer")
		}
		q.Month = &m
	}
	return q, nil
}

func (h *Handler) GetFinances(c *fiber.Ctx) error {
	q, err := periodQuery(c)
	if err != nil {
		return err
	}
	report, err := h.svc.Finances.Report(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *Handler) GetFinanceYears(c *fiber.Ctx) error {
	years, err := h.svc.Finances.Years(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(years)
}

func (h *Handler) ExportFinances(c *fiber.Ctx) error {
	q, err := periodQuery(c)
	if err != nil {
		return err
	}
	data, err := h.svc.Finances.Export(c.UserContext(), q)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="finances_%s.xlsx"`, time.Now().Format(utils.DateLayout)))
	return c.Send(data)
}

func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	d, err := h.svc.Finances.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// GetAgenda lays out the week given by ?week=YYYY-MM-DD, the current one by default.
func (h *Handler) GetAgenda(c *fiber.Ctx) error {
	var weekOf time.Time
	if raw := c.Query("week"); raw != "" {
		t, err := utils.ParseDate(raw, time.UTC)
		if err != nil {
			return services.ValidationFailure("week: %v", err)
		}
		weekOf = t
	}
	var mode services.GroupingMode
	if raw := c.Query("mode"); raw != "" {
		m, err := services.ParseGroupingMode(raw)
		if err != nil {
			return err
		}
		mode = m
	}
	agenda, err := h.svc.Agenda.Week(c.UserContext(), weekOf, mode)
	if err != nil {
		return err
	}
	return c.JSON(agenda)
}
