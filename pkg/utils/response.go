package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mnuddindev/cookpulse/pkg/logger"
)

// ResponseBuilder builds a `{message, <entity>}` response with a fluent interface.
type ResponseBuilder struct {
	Ctx     context.Context
	C       *fiber.Ctx
	Status  int
	Message string
	Fields  fiber.Map
	Err     error
}

// Success starts a success response with status 200.
func Success(c *fiber.Ctx) *ResponseBuilder {
	return &ResponseBuilder{
		Ctx:    c.UserContext(),
		C:      c,
		Status: fiber.StatusOK,
		Fields: fiber.Map{},
	}
}

// Error starts an error response.
func Error(c *fiber.Ctx, err error) *ResponseBuilder {
	return &ResponseBuilder{
		Ctx: c.UserContext(),
		C:   c,
		Err: err,
	}
}

// WithStatus overrides the success status code.
func (b *ResponseBuilder) WithStatus(status int) *ResponseBuilder {
	b.Status = status
	return b
}

// WithMessage adds a custom message to the response.
func (b *ResponseBuilder) WithMessage(msg string) *ResponseBuilder {
	b.Message = msg
	return b
}

// WithData adds a named entity to the response.
func (b *ResponseBuilder) WithData(key string, data interface{}) *ResponseBuilder {
	b.Fields[key] = data
	return b
}

// Send sends the response and logs it.
func (b *ResponseBuilder) Send() error {
	if b.Err != nil {
		b.log(false)
		return HandleError(b.C, b.Err)
	}

	body := b.Fields
	if b.Message != "" {
		body["message"] = b.Message
	}
	b.log(true)
	return b.C.Status(b.Status).JSON(body)
}

func (b *ResponseBuilder) log(ok bool) {
	l, found := b.C.Locals("logger").(*logger.Logger)
	if !found {
		return
	}
	meta := Map{
		"path":    b.C.Path(),
		"method":  b.C.Method(),
		"latency": time.Since(b.C.Context().Time()).String(),
	}
	if ok {
		meta["status"] = fmt.Sprintf("%d", b.Status)
		l.Debug(b.Ctx).WithMeta(meta).Logs("Response sent")
		return
	}

	var appErr *CustomError
	if As(b.Err, &appErr) && appErr.Code < fiber.StatusInternalServerError {
		meta["status"] = fmt.Sprintf("%d", appErr.Code)
		l.Info(b.Ctx).WithMeta(meta).Logs("Request rejected: " + appErr.Message)
		return
	}
	l.Error(b.Ctx).WithMeta(meta).WithError(b.Err).Logs("Request failed")
}

// SendError is a convenience function to send an error response directly.
func SendError(c *fiber.Ctx, err error) error {
	return Error(c, err).Send()
}
