package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/service"
)

func parseListInput(c *gin.Context) (service.ListInput, error) {
	var input service.ListInput
	if raw := strings.TrimSpace(c.Query("department")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, fmt.Errorf("%w: invalid department", service.ErrInvalidInput)
		}
		input.DepartmentID = &id
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.AgreementStatus(strings.ToLower(raw))
		input.Status = &status
	}
	input.Search = strings.TrimSpace(c.Query("q"))
	return input, nil
}

// parseAgreementForm reads the agreement fields from a multipart or
// urlencoded body. Unparseable values become field errors.
func parseAgreementForm(c *gin.Context) (model.AgreementForm, error) {
	errs := model.FieldErrors{}
	form := model.AgreementForm{
		Title:     c.PostForm("title"),
		Reference: c.PostForm("agreement_reference"),
		Status:    model.AgreementStatus(strings.ToLower(strings.TrimSpace(c.PostForm("status")))),
	}

	form.AgreementTypeID = parseID(c.PostForm("agreement_type"), "agreement_type", errs)
	form.VendorID = parseID(c.PostForm("party_name"), "party_name", errs)
	if raw := strings.TrimSpace(c.PostForm("department")); raw != "" {
		id := parseID(raw, "department", errs)
		form.DepartmentID = &id
	}

	form.StartDate = parseOptionalDate(c.PostForm("start_date"), "start_date", errs)
	form.ExpiryDate = parseOptionalDate(c.PostForm("expiry_date"), "expiry_date", errs)
	form.ReminderTime = parseOptionalDate(c.PostForm("reminder_time"), "reminder_time", errs)

	if !errs.Empty() {
		return form, &service.ValidationError{Fields: errs}
	}
	return form, nil
}

func parseID(raw, field string, errs model.FieldErrors) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		errs.Add(field, "Select a valid choice.")
		return uuid.Nil
	}
	return id
}

func parseOptionalDate(raw, field string, errs model.FieldErrors) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := parseDate(raw)
	if err != nil {
		errs.Add(field, "Enter a valid date.")
		return nil
	}
	return &parsed
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(raw), "on")
	}
	return value
}

// parseUpload returns the attachment part, if any. The returned func closes it.
func parseUpload(c *gin.Context) (*service.Upload, func(), error) {
	header, err := c.FormFile("attachment")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.Upload{
		Name:    header.Filename,
		Size:    header.Size,
		Content: file,
	}, func() { _ = file.Close() }, nil
}
