package api

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/flowcast/internal/services"
)

func (handler *Handler) ExportJSON(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	from, to, err := services.ParseExportRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondError(c, err)
	}
	document, err := handler.exportService.BuildDocument(c.UserContext(), user.ID, from, to, handler.now())
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respondOK(c, document)
}

func (handler *Handler) ExportCSV(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	from, to, err := services.ParseExportRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return handler.respondError(c, err)
	}
	rows, err := handler.exportService.BuildCSVRows(c.UserContext(), user.ID, from, to)
	if err != nil {
		return handler.respondError(c, err)
	}

	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	if err := writer.Write(services.ExportCSVHeaders); err != nil {
		return handler.respondError(c, err)
	}
	for _, row := range rows {
		if err := writer.Write(row.Columns()); err != nil {
			return handler.respondError(c, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return handler.respondError(c, err)
	}

	filename := fmt.Sprintf("flowcast-export-%s.csv", services.FormatCalendarDate(handler.today()))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(buffer.Bytes())
}

func (handler *Handler) ExportArchive(c *fiber.Ctx) error {
	user, _ := currentUser(c)

	result, err := handler.exportService.Archive(c.UserContext(), user.ID, handler.now())
	if err != nil {
		return handler.respondError(c, err)
	}
	return handler.respond(c, fiber.StatusCreated, "success.archive_uploaded", fiber.Map{
		"bucket": result.Bucket,
		"key":    result.Key,
	})
}
