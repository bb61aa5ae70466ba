package handlers

import (
	"fmt"

	"github.com/anjiri1684/tutor_desk/services"
	"github.com/gofiber/fiber/v2"
)

func documentRequest(c *fiber.Ctx) (services.InvoiceRequest, error) {
	var req services.InvoiceRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	err := parseBody(c, &req)
	return req, err
}

func (h *Handler) ComposeInvoice(c *fiber.Ctx) error {
	req, err := documentRequest(c)
	if err != nil {
		return err
	}
	data, err := h.svc.Invoices.Compose(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(data)
}

func (h *Handler) InvoiceHTML(c *fiber.Ctx) error {
	req, err := documentRequest(c)
	if err != nil {
		return err
	}
	html, err := h.svc.Invoices.InvoiceHTML(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(html)
}

func (h *Handler) AttestationHTML(c *fiber.Ctx) error {
	req, err := documentRequest(c)
	if err != nil {
		return err
	}
	html, err := h.svc.Invoices.AttestationHTML(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.SendString(html)
}

func (h *Handler) InvoicePDF(c *fiber.Ctx) error {
	req, err := documentRequest(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Invoices.InvoicePDF(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return sendPDF(c, doc)
}

func (h *Handler) AttestationPDF(c *fiber.Ctx) error {
	req, err := documentRequest(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Invoices.AttestationPDF(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return sendPDF(c, doc)
}

func sendPDF(c *fiber.Ctx, doc *services.Document) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	if doc.URL != "" {
		c.Set("X-Document-URL", doc.URL)
	}
	return c.Send(doc.PDF)
}
