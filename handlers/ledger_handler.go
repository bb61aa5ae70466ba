package handlers

import (
	"github.com/anjiri1684/tutor_desk/models"
	"github.com/gofiber/fiber/v2"
)

type PayWithPackRequest struct {
	PackID    string   `json:"pack_id" validate:"required"`
	LessonIDs []string `json:"lesson_ids" validate:"required,min=1"`
}

type LessonPaymentRequest struct {
	IsPaid *bool `json:"is_paid" validate:"required"`
}

func (h *Handler) ListLessons(c *fiber.Ctx) error {
	lessons, err := h.svc.Students.ListLessons(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(lessons)
}

func (h *Handler) CreateLesson(c *fiber.Ctx) error {
	var req models.LessonCreate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	lesson, inv, err := h.svc.Ledger.CreateLesson(c.UserContext(), req)
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (h *Handler) DeleteLesson(c *fiber.Ctx) error {
	inv, err := h.svc.Ledger.DeleteLesson(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) SetLessonPayment(c *fiber.Ctx) error {
	var req LessonPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateBody(req); err != nil {
		return err
	}
	lesson, inv, err := h.svc.Ledger.SetLessonPaid(c.UserContext(), c.Params("id"), *req.IsPaid)
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.JSON(lesson)
}

func (h *Handler) PayWithPack(c *fiber.Ctx) error {
	var req PayWithPackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateBody(req); err != nil {
		return err
	}
	payment, inv, err := h.svc.Ledger.PayWithPack(c.UserContext(), c.Params("id"), req.PackID, req.LessonIDs)
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.JSON(payment)
}

func (h *Handler) ListPacks(c *fiber.Ctx) error {
	packs, err := h.svc.Ledger.ListPacks(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(packs)
}

func (h *Handler) CreatePack(c *fiber.Ctx) error {
	var req models.PackCreate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	pack, inv, err := h.svc.Ledger.CreatePack(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.Status(fiber.StatusCreated).JSON(pack)
}

func (h *Handler) DeletePack(c *fiber.Ctx) error {
	unpaid, inv, err := h.svc.Ledger.DeletePack(c.UserContext(), c.Params("id"), c.Params("packId"))
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.JSON(fiber.Map{"unpaid_lessons": unpaid})
}
