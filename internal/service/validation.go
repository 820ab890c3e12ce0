package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/snowops-agreements/internal/access"
	"github.com/nurpe/snowops-agreements/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".xls":  {},
	".xlsx": {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".txt":  {},
	".zip":  {},
}

// prepared is a validated form resolved against the directory.
type prepared struct {
	Agreement  model.Agreement
	Department model.Department
}

// prepare validates the form for the subject and builds the agreement it describes.
func (s *AgreementService) prepare(ctx context.Context, subject *access.Subject, form model.AgreementForm) (*prepared, error) {
	form.Title = strings.TrimSpace(form.Title)
	form.Reference = strings.TrimSpace(form.Reference)
	errs := structErrors(form)

	agreement := model.Agreement{
		Title:           form.Title,
		Reference:       form.Reference,
		AgreementTypeID: form.AgreementTypeID,
		DepartmentID:    form.EffectiveDepartmentID(),
		Status:          form.Status,
		VendorID:        form.VendorID,
	}
	if agreement.Status == "" {
		agreement.Status = model.AgreementStatusDraft
	}

	var department model.Department
	if form.AgreementTypeID != uuid.Nil {
		agreementType, err := s.directory.GetDepartment(ctx, form.AgreementTypeID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			errs.Add("agreement_type", "Select a valid choice.")
		case err != nil:
			return nil, err
		default:
			agreement.AgreementTypeName = agreementType.Name
			department = *agreementType
		}

		if agreement.DepartmentID != form.AgreementTypeID {
			department = model.Department{}
			dept, err := s.directory.GetDepartment(ctx, agreement.DepartmentID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				errs.Add("department", "Select a valid choice.")
			case err != nil:
				return nil, err
			default:
				department = *dept
			}
		}
		if department.ID != uuid.Nil {
			agreement.DepartmentName = department.Name
			if !subject.CanFileUnder(department.ID) {
				errs.Add("department", "You cannot file agreements under this department.")
			}
		}
	}

	if form.VendorID != uuid.Nil {
		vendor, err := s.directory.GetVendor(ctx, form.VendorID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			errs.Add("party_name", "Select a valid choice.")
		case err != nil:
			return nil, err
		default:
			agreement.VendorName = vendor.Name
		}
	}

	if form.StartDate != nil && form.ExpiryDate != nil {
		agreement.StartDate = *form.StartDate
		agreement.ExpiryDate = *form.ExpiryDate
		if form.ReminderTime != nil {
			agreement.ReminderTime = *form.ReminderTime
		}
		errs.Merge(agreement.Clean(s.leadDays))
	}

	if !errs.Empty() {
		return nil, &ValidationError{Fields: errs}
	}
	return &prepared{Agreement: agreement, Department: department}, nil
}

func structErrors(form model.AgreementForm) model.FieldErrors {
	if err := validate.Struct(form); err != nil {
		return structFieldErrors(err)
	}
	return model.FieldErrors{}
}

func structFieldErrors(err error) model.FieldErrors {
	errs := model.FieldErrors{}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errs.Add("non_field_errors", err.Error())
		return errs
	}
	for _, fe := range validationErrs {
		errs.Add(fe.Field(), fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return "Select a valid choice."
	default:
		return "Enter a valid value."
	}
}

// checkUpload validates an attachment before it is written anywhere.
func (s *AgreementService) checkUpload(upload *Upload) error {
	if upload == nil {
		return nil
	}
	name := strings.TrimSpace(upload.Name)
	if name == "" || upload.Content == nil {
		return fieldError("attachment", "The submitted file is empty.")
	}
	if _, ok := allowedExtensions[strings.ToLower(path.Ext(name))]; !ok {
		return fieldError("attachment", "File type is not supported.")
	}
	if s.maxAttachment > 0 && upload.Size > s.maxAttachment {
		return fieldError("attachment", fmt.Sprintf("File exceeds the %d MB limit.", s.maxAttachment>>20))
	}
	return nil
}
