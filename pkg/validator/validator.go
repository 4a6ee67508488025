package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RoomTypes lists the rooms the facilities office hands out.
var RoomTypes = []string{
	"Auditorium (MV Seminar Hall)",
	"Auditorium (KF Center Hall)",
	"AB3 Labs",
	"AB4 Labs",
	"AB5 Classrooms",
}

// Register installs the custom tags used by request DTOs on gin's validator.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("room_type", validateRoomType); err != nil {
		return err
	}
	return v.RegisterValidation("event_mode", validateEventMode)
}

func validateRoomType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, room := range RoomTypes {
		if room == value {
			return true
		}
	}
	return false
}

func validateEventMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "online", "offline":
		return true
	}
	return false
}

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "room_type":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(RoomTypes, ", "))
	case "event_mode":
		return fmt.Sprintf("%s must be online or offline", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Email":       "Email",
		"Password":    "Password",
		"OldPassword": "Old password",
		"NewPassword": "New password",
		"Role":        "Role",
		"OTP":         "OTP",
		"Name":        "Name",
		"Title":       "Title",
		"Category":    "Category",
		"DateTime":    "Date/time",
		"RoomType":    "Room type",
		"Mode":        "Mode",
		"Action":      "Action",
		"TeamName":    "Team name",
		"Payload":     "QR payload",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
