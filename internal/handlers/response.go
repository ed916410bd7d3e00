package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/models"
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
	"github.com/gin-gonic/gin"
)

const maxFormMemory = 8 << 20

var errMalformedBody = errors.New("malformed request body")

// respondError maps service errors onto the response envelope. Anything that
// is neither a validation nor a lookup failure is logged and hidden.
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *models.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": validationErr.Message,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": notFoundErr.Error(),
		})
	case errors.Is(err, errMalformedBody):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Malformed request body",
		})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}
}

func respondList(c *gin.Context, data interface{}, total int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"total":   total,
	})
}

func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// listQuery reads filter, sort, limit and start from the query string
func listQuery(c *gin.Context) models.ListQuery {
	return models.ParseListQuery(
		c.Query("filter"),
		c.Query("sort"),
		c.Query("limit"),
		c.Query("start"),
	)
}

// requestFields merges query string, body and route params into one field
// map. Later sources win.
func requestFields(c *gin.Context) (services.Fields, error) {
	fields := services.Fields{}

	for key, values := range c.Request.URL.Query() {
		fields[key] = singleOrList(values)
	}

	if err := readBodyFields(c, fields); err != nil {
		return nil, err
	}

	for _, param := range c.Params {
		if param.Value != "" {
			fields[param.Key] = param.Value
		}
	}

	return fields, nil
}

func readBodyFields(c *gin.Context, fields services.Fields) error {
	if c.Request.Body == nil || c.Request.Method == http.MethodGet {
		return nil
	}

	switch {
	case strings.HasPrefix(c.ContentType(), "application/json"):
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()

		var body map[string]interface{}
		if err := decoder.Decode(&body); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errMalformedBody
		}
		for key, value := range body {
			fields[key] = value
		}

	case c.ContentType() == "application/x-www-form-urlencoded",
		c.ContentType() == "multipart/form-data":
		if c.ContentType() == "multipart/form-data" {
			if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
				return errMalformedBody
			}
		} else if err := c.Request.ParseForm(); err != nil {
			return errMalformedBody
		}
		for key, values := range c.Request.PostForm {
			fields[key] = singleOrList(values)
		}
	}

	return nil
}

func singleOrList(values []string) interface{} {
	if len(values) == 1 {
		return values[0]
	}
	list := make([]interface{}, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}
