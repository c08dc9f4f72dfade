package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/service"
	"github.com/framecut/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// NewValidator returns a validator that reports fields by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make(map[string]string)
		for _, e := range validationErrors {
			details[e.Field()] = e.Tag()
		}
		return details
	}
	return nil
}

// parseBody decodes and validates a JSON body into req. A false return
// means the error response has already been written.
func parseBody(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, response.ValidationError(c, "Invalid request body", nil)
	}
	if err := v.Struct(req); err != nil {
		return false, response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	return true, nil
}

// serviceError maps service and repository errors to response envelopes
func serviceError(c *fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrTimelineNotFound):
		return response.NotFound(c, what+" not found")
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrInvalidClip),
		errors.Is(err, service.ErrClipOverlap),
		errors.Is(err, service.ErrInvalidTimeline):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrJobNotCancelable):
		return response.Conflict(c, "Job is not pending or processing")
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return response.ServiceError(c, "Internal server error")
}
