package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mikepea/promptportal/pkg/portal/models"
)

var registerOnce sync.Once

// RegisterValidators installs the portal's enum validators on gin's
// binding engine. It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterValidation("prompt_type", func(fl validator.FieldLevel) bool {
			return models.PromptType(fl.Field().String()).Valid()
		})
		v.RegisterValidation("prompt_status", func(fl validator.FieldLevel) bool {
			return models.PromptStatus(fl.Field().String()).Valid()
		})
		v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
			return models.Visibility(fl.Field().String()).Valid()
		})
		v.RegisterValidation("tool_type", func(fl validator.FieldLevel) bool {
			return models.ToolType(fl.Field().String()).Valid()
		})
		v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		})
	})
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// BindJSON binds the request body into obj. On failure it writes a 400
// naming the first offending field and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldMessage(verrs[0])})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", e.Field(), e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", e.Field())
	case "prompt_type", "prompt_status", "visibility", "tool_type", "role":
		return fmt.Sprintf("%s has unknown value %q", e.Field(), e.Value())
	}
	return fmt.Sprintf("%s failed on the '%s' rule", e.Field(), e.Tag())
}
