package handlers

import (
	"github.com/anjiri1684/tutor_desk/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListStudents(c *fiber.Ctx) error {
	students, err := h.svc.Students.ListStudents(c.UserContext(), c.QueryBool("include_archived", false))
	if err != nil {
		return err
	}
	return c.JSON(students)
}

func (h *Handler) CreateStudent(c *fiber.Ctx) error {
	var req models.StudentCreate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	student, inv, err := h.svc.Students.CreateStudent(c.UserContext(), req)
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.Status(fiber.StatusCreated).JSON(student)
}

func (h *Handler) GetStudent(c *fiber.Ctx) error {
	student, err := h.svc.Students.GetStudent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(student)
}

// UpdateStudent applies a partial update; archiving is {"archived": true}.
func (h *Handler) UpdateStudent(c *fiber.Ctx) error {
	var req models.StudentUpdate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	student, inv, err := h.svc.Students.UpdateStudent(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.JSON(student)
}

func (h *Handler) DeleteStudent(c *fiber.Ctx) error {
	inv, err := h.svc.Students.DeleteStudent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	h.publish(c, inv)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListStudentLessons(c *fiber.Ctx) error {
	lessons, err := h.svc.Students.ListStudentLessons(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(lessons)
}

func (h *Handler) GetStudentBalance(c *fiber.Ctx) error {
	balance, err := h.svc.Students.Balance(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(balance)
}
