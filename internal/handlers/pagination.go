package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

var errInvalidPagination = errors.New("invalid pagination params")

type pageQuery struct {
	Page  int64 `form:"page" validate:"omitempty,min=1"`
	Limit int64 `form:"limit" validate:"omitempty,min=1,max=100"`
}

// pagination reads ?page and ?limit, defaulting to page 1 of 20.
func pagination(c *gin.Context) (int64, int64, error) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return 0, 0, errInvalidPagination
	}
	if q.Page == 0 {
		q.Page = defaultPage
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	return q.Page, q.Limit, nil
}
